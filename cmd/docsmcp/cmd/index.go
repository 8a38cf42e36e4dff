package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grapecity-cn/docsmcp/internal/chunk"
	"github.com/grapecity-cn/docsmcp/internal/config"
	"github.com/grapecity-cn/docsmcp/internal/index"
	"github.com/grapecity-cn/docsmcp/internal/loader"
	"github.com/grapecity-cn/docsmcp/internal/logging"
	"github.com/grapecity-cn/docsmcp/internal/ratelimit"
	"github.com/grapecity-cn/docsmcp/internal/store"
	"github.com/grapecity-cn/docsmcp/internal/voyage"
)

// newIndexCmd creates the index command.
func newIndexCmd() *cobra.Command {
	var (
		force   bool
		restart bool
	)

	cmd := &cobra.Command{
		Use:   "index [product]",
		Short: "Index product documentation into the vector store",
		Long: `Load raw documents, chunk them, embed each chunk, and upsert the
result into the product's collection.

Progress is checkpointed per batch; an interrupted run resumes from
the last completed batch. Use --restart to discard the checkpoint and
re-embed everything, or --force to also drop and recreate the
collection first.

With no argument every configured product is indexed in turn.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if force && restart {
				return fmt.Errorf("--force and --restart are mutually exclusive")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}

			logger := logging.Setup(settings.LogLevel)
			resolver := config.NewResolver(settings)

			if err := os.MkdirAll(settings.CheckpointsDir, 0755); err != nil {
				return fmt.Errorf("create checkpoints dir: %w", err)
			}

			sc, err := store.NewClient(store.Config{
				Host:   settings.QdrantHost,
				Port:   settings.QdrantPort,
				APIKey: settings.QdrantAPIKey,
				UseTLS: settings.QdrantUseTLS,
			}, logger)
			if err != nil {
				return err
			}
			defer sc.Close()

			limiter := ratelimit.New(ratelimit.Config{
				RPM: settings.VoyageRPMLimit,
				TPM: settings.VoyageTPMLimit,
			})
			vc, err := voyage.NewClient(voyage.Config{
				APIKey:      settings.VoyageAPIKey,
				EmbedModel:  settings.VoyageEmbedModel,
				RerankModel: settings.VoyageRerankModel,
			}, limiter)
			if err != nil {
				return err
			}

			ids := settings.Products
			if len(args) == 1 {
				ids = []string{args[0]}
			}

			for _, id := range ids {
				product, err := resolver.Product(id)
				if err != nil {
					return err
				}

				ld, err := loader.New(filepath.Join(settings.RawDataDir, product.RawData), logger)
				if err != nil {
					return err
				}
				docs, err := ld.LoadAll(ctx, product.DocSubdirs)
				if err != nil {
					return err
				}

				chunker, err := chunk.New(product.Chunker, chunk.Options{ChunkSize: settings.ChunkSize})
				if err != nil {
					return err
				}
				chunks := chunker.ChunkDocuments(docs)
				logger.Info("documents chunked",
					"product", product.ID,
					"documents", len(docs),
					"chunks", len(chunks))

				ix, err := index.New(index.Config{
					Collection:     product.Collection,
					BatchSize:      settings.BatchSize,
					CheckpointPath: settings.CheckpointPath(product.ID),
					Embedder:       vc,
					Store:          sc,
					Logger:         logger,
				})
				if err != nil {
					return err
				}

				if err := ix.InitCollection(ctx, force); err != nil {
					return err
				}
				// A dropped collection invalidates any recorded progress.
				if force || restart {
					if err := ix.DiscardCheckpoint(); err != nil {
						return err
					}
				}

				report, err := ix.Run(ctx, chunks)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"%s: %d chunks indexed (%d succeeded, %d skipped, %d failed) in %dms\n",
					product.ID, report.Total, report.Succeeded, report.Skipped,
					report.Failed, report.DurationMS)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "drop and recreate the collection before indexing")
	cmd.Flags().BoolVar(&restart, "restart", false, "discard the checkpoint and re-embed from scratch")

	return cmd
}
