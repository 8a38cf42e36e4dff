package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/grapecity-cn/docsmcp/internal/config"
	"github.com/grapecity-cn/docsmcp/internal/httpserver"
	"github.com/grapecity-cn/docsmcp/internal/logging"
	"github.com/grapecity-cn/docsmcp/internal/mcpserver"
	"github.com/grapecity-cn/docsmcp/internal/ratelimit"
	"github.com/grapecity-cn/docsmcp/internal/search"
	"github.com/grapecity-cn/docsmcp/internal/store"
	"github.com/grapecity-cn/docsmcp/internal/voyage"
)

// newServeCmd creates the serve command.
func newServeCmd() *cobra.Command {
	var (
		host string
		port int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP HTTP server",
		Long: `Start the MCP server over Streamable HTTP.

Every configured product is mounted at /mcp/{product} with its own
search tools and session pool. REST search is available at
/api/{product}/search and liveness at /health.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("host") {
				settings.Host = host
			}
			if cmd.Flags().Changed("port") {
				settings.Port = port
			}

			logger := logging.Setup(settings.LogLevel)
			resolver := config.NewResolver(settings)

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

			products := make([]*mcpserver.Server, 0, len(settings.Products))
			for _, id := range settings.Products {
				product, err := resolver.Product(id)
				if err != nil {
					return err
				}
				searcher, err := search.New(search.Config{
					Collection:  product.Collection,
					DocLanguage: product.DocLanguage,
					Params:      product.Search,
					Embedder:    vc,
					Store:       sc,
					Reranker:    vc,
					Logger:      logger,
				})
				if err != nil {
					return err
				}
				ps, err := mcpserver.New(mcpserver.Config{
					Product:  product,
					Searcher: searcher,
					Logger:   logger,
				})
				if err != nil {
					return err
				}
				products = append(products, ps)
				logger.Info("product mounted",
					"product", product.ID,
					"collection", product.Collection,
					"doc_language", product.DocLanguage)
			}

			srv, err := httpserver.New(httpserver.Config{
				Host:     settings.Host,
				Port:     settings.Port,
				Products: products,
				Logger:   logger,
			})
			if err != nil {
				return err
			}

			logger.Info("starting server",
				"host", settings.Host,
				"port", settings.Port,
				"products", len(products))
			return srv.Run(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", config.DefaultHost, "bind address (overrides HOST)")
	cmd.Flags().IntVar(&port, "port", config.DefaultPort, "listen port (overrides PORT)")

	return cmd
}
