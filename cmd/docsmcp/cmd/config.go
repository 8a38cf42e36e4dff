package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grapecity-cn/docsmcp/configs"
	"github.com/grapecity-cn/docsmcp/internal/config"
	"github.com/grapecity-cn/docsmcp/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage service configuration",
		Long: `Manage the environment and product configuration.

The service reads environment variables, optionally from a .env file in
the working directory. Product descriptors live under the products
directory as products/{id}/product.yaml plus one products/{id}/{lang}.yaml
per language variant. 'config show' prints a merged descriptor exactly as
the server resolves it at startup.`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .env file from the template",
		Long: `Create a .env file in the working directory from the embedded
template. The template lists every environment variable the service
reads, with required ones uncommented.`,
		Example: `  # Create .env
  docsmcp config init

  # Overwrite an existing .env
  docsmcp config init --force`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := output.New(cmd.OutOrStdout())

			if _, err := os.Stat(".env"); err == nil && !force {
				out.Warning(".env already exists")
				out.Status("💡", "Use --force to overwrite it")
				return nil
			}

			if err := os.WriteFile(".env", []byte(configs.EnvTemplate), 0644); err != nil {
				return fmt.Errorf("write .env: %w", err)
			}

			out.Success("Created .env")
			out.Status("📋", "Next steps:")
			out.Status("", "1. Set VOYAGE_API_KEY and PRODUCT")
			out.Status("", "2. Run 'docsmcp config show' to verify")
			out.Status("", "3. Run 'docsmcp index' to ingest documentation")
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing .env")

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	var (
		productID  string
		lang       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the resolved configuration for a product",
		Long: `Show the resolved configuration for one (product, language) pair:
the product descriptor merged with its language variant and the
search defaults.`,
		Example: `  # Show the first configured product in the configured language
  docsmcp config show

  # Show a specific product and language variant
  docsmcp config show --product spreadjs --lang zh

  # Show as JSON
  docsmcp config show --json`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			settings, err := config.LoadSettings()
			if err != nil {
				return err
			}
			if productID == "" {
				productID = settings.Products[0]
			}
			if lang == "" {
				lang = settings.DocLang
			}

			resolver := config.NewResolver(settings)
			product, err := resolver.ProductLang(productID, lang)
			if err != nil {
				return err
			}

			if jsonOutput {
				data, err := json.MarshalIndent(product, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal product: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}

			data, err := yaml.Marshal(product)
			if err != nil {
				return fmt.Errorf("marshal product: %w", err)
			}
			fmt.Fprint(cmd.OutOrStdout(), string(data))
			return nil
		},
	}

	cmd.Flags().StringVar(&productID, "product", "", "product id (default: first configured product)")
	cmd.Flags().StringVar(&lang, "lang", "", "language variant (default: configured doc language)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}
