// Command indexpipe runs one dataset-indexing job: it reads a dataset,
// resolves and registers its index template, and bulk-loads the rows.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openlake/indexpipe/internal/bulk"
	"github.com/openlake/indexpipe/internal/cluster"
	"github.com/openlake/indexpipe/internal/config"
	"github.com/openlake/indexpipe/internal/dataset"
	"github.com/openlake/indexpipe/internal/pipeline"
	"github.com/openlake/indexpipe/internal/schema"
	"github.com/openlake/indexpipe/internal/template"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "indexpipe",
		Short:         "Dataset indexing pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "config file path")
	// Bound flag defaults participate in config resolution, so they carry
	// the real defaults.
	root.PersistentFlags().String("cluster.nodes", "localhost", "cluster host")
	root.PersistentFlags().Int("cluster.port", 9200, "cluster port")
	root.PersistentFlags().Bool("cluster.net_ssl", false, "use https")
	root.PersistentFlags().String("log_level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(&configFile))
	return root
}

func newRunCmd(configFile *string) *cobra.Command {
	var (
		domain      string
		schemaName  string
		format      string
		datasetPath string
		mappingPath string
		idField     string
		options     map[string]string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run one indexing job",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load(cmd.Flags(), *configFile)
			if err != nil {
				return err
			}
			logger := config.SetupLogging(settings.LogLevel)
			config.Log(settings, logger)

			jobFormat, err := dataset.ParseFormat(format)
			if err != nil {
				return err
			}
			job := pipeline.Job{
				Domain:      domain,
				Schema:      schemaName,
				Format:      jobFormat,
				DatasetPath: datasetPath,
				MappingPath: mappingPath,
				IDField:     idField,
				Options:     options,
			}

			handler, err := settings.Handler()
			if err != nil {
				return err
			}

			ctx := context.Background()
			var registry *schema.Registry
			if settings.RegistryPath != "" {
				registry, err = schema.Load(ctx, handler, settings.RegistryPath)
				if err != nil {
					return fmt.Errorf("load schema registry: %w", err)
				}
			} else {
				registry = &schema.Registry{}
			}

			endpoint := settings.Endpoint()
			loader, err := bulk.NewLoader(endpoint, nil)
			if err != nil {
				return err
			}
			loader.Logger = logger

			p := &pipeline.Pipeline{
				Storage:       handler,
				Resolver:      &template.Resolver{Storage: handler, Registry: registry, Logger: logger},
				Registrar:     &cluster.Registrar{Client: cluster.NewClient(cluster.ClientConfig{Endpoint: endpoint}), Logger: logger},
				Writer:        loader,
				GlobalOptions: settings.BulkOptions,
				Logger:        logger,
			}

			result, err := p.Run(ctx, job)
			if err != nil {
				return err
			}
			if !result.Indexed {
				// Registration failure skips the write but the run still
				// completes; the skip is visible in the logs and here.
				logger.Warn("run finished without indexing", "name", result.Name, "reason", result.SkipReason)
				return nil
			}
			logger.Info("run finished", "name", result.Name, "documents", result.Documents)
			return nil
		},
	}

	cmd.Flags().StringVar(&domain, "domain", "", "job domain (required)")
	cmd.Flags().StringVar(&schemaName, "schema", "", "job schema (required)")
	cmd.Flags().StringVar(&format, "format", string(dataset.FormatJSON), "dataset format: json, json-array or parquet")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "dataset path in the storage backend (required)")
	cmd.Flags().StringVar(&mappingPath, "mapping", "", "explicit mapping file path")
	cmd.Flags().StringVar(&idField, "id-field", "", "row field used as document _id")
	cmd.Flags().StringToStringVar(&options, "option", nil, "per-job write option (key=value, repeatable)")
	_ = cmd.MarkFlagRequired("domain")
	_ = cmd.MarkFlagRequired("schema")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}
