package storage

// WebHDFS operation constants.
const (
	opListStatus     = "LISTSTATUS"
	opGetFileStatus  = "GETFILESTATUS"
	opGetContentSum  = "GETCONTENTSUMMARY"
	opOpen           = "OPEN"
	opCreate         = "CREATE"
	opMkdirs         = "MKDIRS"
	opDelete         = "DELETE"
	opRename         = "RENAME"
)

// fileStatus is the WebHDFS file/directory metadata document.
type fileStatus struct {
	AccessTime       int64  `json:"accessTime"`
	BlockSize        int64  `json:"blockSize"`
	Group            string `json:"group"`
	Length           int64  `json:"length"`
	ModificationTime int64  `json:"modificationTime"`
	Owner            string `json:"owner"`
	PathSuffix       string `json:"pathSuffix"`
	Permission       string `json:"permission"`
	Replication      int    `json:"replication"`
	Type             string `json:"type"` // FILE or DIRECTORY
}

type listStatusResponse struct {
	FileStatuses struct {
		FileStatus []fileStatus `json:"FileStatus"`
	} `json:"FileStatuses"`
}

type fileStatusResponse struct {
	FileStatus fileStatus `json:"FileStatus"`
}

type contentSummaryResponse struct {
	ContentSummary struct {
		DirectoryCount int64 `json:"directoryCount"`
		FileCount      int64 `json:"fileCount"`
		Length         int64 `json:"length"`
		SpaceConsumed  int64 `json:"spaceConsumed"`
	} `json:"ContentSummary"`
}

type booleanResponse struct {
	Boolean bool `json:"boolean"`
}
