package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Object implements Handler on an S3-compatible object store. Hierarchical
// paths map onto object keys; directories are prefixes, so MkdirAll is a
// no-op and empty directories do not survive.
type Object struct {
	cfg ObjectConfig
}

// ObjectConfig holds object-store connection parameters.
type ObjectConfig struct {
	EndpointURL     string // e.g. http://minio:9000
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	Region          string
	UseSSL          bool
}

// NewObject creates an object-store handler.
func NewObject(cfg ObjectConfig) (*Object, error) {
	if cfg.EndpointURL == "" {
		return nil, wrapError(CodeUnreachable, "", fmt.Errorf("endpointUrl is required"))
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, wrapError(CodeUnreachable, "", fmt.Errorf("credentials are required"))
	}
	if cfg.Bucket == "" {
		return nil, wrapError(CodeUnreachable, "", fmt.Errorf("bucket is required"))
	}
	return &Object{cfg: cfg}, nil
}

// client builds a fresh SDK client. minio.New does not dial, so per-call
// construction costs nothing beyond allocation.
func (o *Object) client() (*minio.Client, error) {
	u, err := url.Parse(o.cfg.EndpointURL)
	if err != nil {
		return nil, wrapError(CodeUnreachable, "", fmt.Errorf("invalid endpoint URL: %w", err))
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = o.cfg.EndpointURL
	}
	useSSL := o.cfg.UseSSL || u.Scheme == "https"

	c, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.cfg.AccessKeyID, o.cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: o.cfg.Region,
	})
	if err != nil {
		return nil, wrapError(CodeUnreachable, "", err)
	}
	return c, nil
}

func objectKey(p string) string {
	return strings.Trim(p, "/")
}

func classifyObjectError(p string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return notFound(p)
	}
	return wrapError(CodeIO, p, err)
}

func (o *Object) stat(ctx context.Context, c *minio.Client, p string) (minio.ObjectInfo, error) {
	info, err := c.StatObject(ctx, o.cfg.Bucket, objectKey(p), minio.StatObjectOptions{})
	if err != nil {
		return minio.ObjectInfo{}, classifyObjectError(p, err)
	}
	return info, nil
}

// listPrefix enumerates every object under the prefix.
func (o *Object) listPrefix(ctx context.Context, c *minio.Client, p string) ([]minio.ObjectInfo, error) {
	prefix := objectKey(p)
	if prefix != "" {
		prefix += "/"
	}
	var out []minio.ObjectInfo
	for obj := range c.ListObjects(ctx, o.cfg.Bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, classifyObjectError(p, obj.Err)
		}
		out = append(out, obj)
	}
	return out, nil
}

func (o *Object) Exists(ctx context.Context, p string) (bool, error) {
	c, err := o.client()
	if err != nil {
		return false, err
	}
	if _, err := o.stat(ctx, c, p); err == nil {
		return true, nil
	}
	objs, err := o.listPrefix(ctx, c, p)
	if err != nil {
		return false, err
	}
	return len(objs) > 0, nil
}

// MkdirAll succeeds unconditionally: prefixes exist implicitly.
func (o *Object) MkdirAll(ctx context.Context, p string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (o *Object) Delete(ctx context.Context, p string) (bool, error) {
	c, err := o.client()
	if err != nil {
		return false, err
	}
	removed := false
	if _, statErr := o.stat(ctx, c, p); statErr == nil {
		if err := c.RemoveObject(ctx, o.cfg.Bucket, objectKey(p), minio.RemoveObjectOptions{}); err != nil {
			return false, classifyObjectError(p, err)
		}
		removed = true
	}
	objs, err := o.listPrefix(ctx, c, p)
	if err != nil {
		return removed, err
	}
	for _, obj := range objs {
		if err := c.RemoveObject(ctx, o.cfg.Bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			return removed, classifyObjectError("/"+obj.Key, err)
		}
		removed = true
	}
	return removed, nil
}

func (o *Object) Move(ctx context.Context, src, dst string) (bool, error) {
	c, err := o.client()
	if err != nil {
		return false, err
	}
	type pair struct{ from, to string }
	var pairs []pair
	if _, statErr := o.stat(ctx, c, src); statErr == nil {
		pairs = append(pairs, pair{objectKey(src), objectKey(dst)})
	} else {
		objs, listErr := o.listPrefix(ctx, c, src)
		if listErr != nil {
			return false, listErr
		}
		if len(objs) == 0 {
			return false, notFound(src)
		}
		srcPrefix := objectKey(src) + "/"
		for _, obj := range objs {
			rel := strings.TrimPrefix(obj.Key, srcPrefix)
			pairs = append(pairs, pair{obj.Key, path.Join(objectKey(dst), rel)})
		}
	}
	for _, pr := range pairs {
		_, err := c.CopyObject(ctx,
			minio.CopyDestOptions{Bucket: o.cfg.Bucket, Object: pr.to},
			minio.CopySrcOptions{Bucket: o.cfg.Bucket, Object: pr.from})
		if err != nil {
			return false, classifyObjectError("/"+pr.from, err)
		}
	}
	return o.Delete(ctx, src)
}

func (o *Object) CopyFromLocal(ctx context.Context, local, dst string) error {
	c, err := o.client()
	if err != nil {
		return err
	}
	if _, err := c.FPutObject(ctx, o.cfg.Bucket, objectKey(dst), local, minio.PutObjectOptions{
		ContentType: "application/octet-stream",
	}); err != nil {
		return classifyObjectError(dst, err)
	}
	return nil
}

func (o *Object) MoveFromLocal(ctx context.Context, local, dst string) error {
	if err := o.CopyFromLocal(ctx, local, dst); err != nil {
		return err
	}
	if err := os.Remove(local); err != nil {
		return wrapError(CodeIO, local, err)
	}
	return nil
}

func (o *Object) ReadBytes(ctx context.Context, p string) ([]byte, error) {
	c, err := o.client()
	if err != nil {
		return nil, err
	}
	obj, err := c.GetObject(ctx, o.cfg.Bucket, objectKey(p), minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyObjectError(p, err)
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyObjectError(p, err)
	}
	return data, nil
}

func (o *Object) ReadText(ctx context.Context, p string) (string, error) {
	data, err := o.ReadBytes(ctx, p)
	if err != nil {
		return "", err
	}
	return decodeText(p, data)
}

func (o *Object) WriteText(ctx context.Context, text, p string) error {
	c, err := o.client()
	if err != nil {
		return err
	}
	data := []byte(text)
	if _, err := c.PutObject(ctx, o.cfg.Bucket, objectKey(p), bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "text/plain; charset=utf-8",
	}); err != nil {
		return classifyObjectError(p, err)
	}
	return nil
}

func (o *Object) List(ctx context.Context, p, suffix string, since time.Time) ([]string, error) {
	c, err := o.client()
	if err != nil {
		return nil, err
	}
	objs, err := o.listPrefix(ctx, c, p)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, obj := range objs {
		if suffix != "" && !strings.HasSuffix(obj.Key, suffix) {
			continue
		}
		if !obj.LastModified.After(since) {
			continue
		}
		out = append(out, "/"+obj.Key)
	}
	sort.Strings(out)
	return out, nil
}

func (o *Object) BlockSize(ctx context.Context, p string) (int64, error) {
	exists, err := o.Exists(ctx, p)
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, notFound(p)
	}
	return DefaultBlockSize, nil
}

func (o *Object) ContentSummary(ctx context.Context, p string) (*ContentSummary, error) {
	c, err := o.client()
	if err != nil {
		return nil, err
	}
	if info, statErr := o.stat(ctx, c, p); statErr == nil {
		return &ContentSummary{Length: info.Size, FileCount: 1}, nil
	}
	objs, err := o.listPrefix(ctx, c, p)
	if err != nil {
		return nil, err
	}
	if len(objs) == 0 {
		return nil, notFound(p)
	}
	summary := &ContentSummary{DirectoryCount: 1}
	prefixes := map[string]bool{}
	base := objectKey(p)
	for _, obj := range objs {
		summary.FileCount++
		summary.Length += obj.Size
		dir := path.Dir(obj.Key)
		for dir != "." && dir != base && !prefixes[dir] {
			prefixes[dir] = true
			dir = path.Dir(dir)
		}
	}
	summary.DirectoryCount += int64(len(prefixes))
	return summary, nil
}

func (o *Object) SpaceConsumed(ctx context.Context, p string) (int64, error) {
	summary, err := o.ContentSummary(ctx, p)
	if err != nil {
		return 0, err
	}
	return summary.Length, nil
}

func (o *Object) LastModified(ctx context.Context, p string) (time.Time, error) {
	c, err := o.client()
	if err != nil {
		return time.Time{}, err
	}
	if info, statErr := o.stat(ctx, c, p); statErr == nil {
		return info.LastModified, nil
	}
	objs, err := o.listPrefix(ctx, c, p)
	if err != nil {
		return time.Time{}, err
	}
	if len(objs) == 0 {
		return time.Time{}, notFound(p)
	}
	var latest time.Time
	for _, obj := range objs {
		if obj.LastModified.After(latest) {
			latest = obj.LastModified
		}
	}
	return latest, nil
}
