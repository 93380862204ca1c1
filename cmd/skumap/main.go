// Command skumap maintains the SKU to Shopify variant map used by the
// checkout server.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fjod/acp-checkout/internal/catalog"
	"github.com/fjod/acp-checkout/internal/commerce/shopify"
	"github.com/spf13/cobra"
)

var Version = "dev"

type options struct {
	dbPath         string
	migrationsPath string
	shop           string
	accessToken    string
	baseURL        string
	timeout        time.Duration
}

func main() {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:           "skumap",
		Short:         "Maintain the SKU to Shopify variant map",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.dbPath, "db", getEnv("SKU_DB_PATH", "./skumap.db"), "SQLite database path")
	flags.StringVar(&opts.migrationsPath, "migrations", getEnv("SKU_MIGRATIONS_PATH", "./internal/catalog/migrations"), "SKU map migrations directory")
	flags.StringVar(&opts.shop, "shop", getEnv("SHOPIFY_SHOP", ""), "Shopify shop domain")
	flags.StringVar(&opts.accessToken, "token", getEnv("SHOPIFY_ADMIN_API_ACCESS_TOKEN", ""), "Shopify Admin API access token")
	flags.StringVar(&opts.baseURL, "base-url", getEnv("SHOPIFY_BASE_URL", ""), "override the Shopify Admin API base URL")
	flags.DurationVar(&opts.timeout, "timeout", 30*time.Second, "per-request timeout for Shopify calls")

	rootCmd.AddCommand(importCmd(opts))
	rootCmd.AddCommand(exportCmd(opts))
	rootCmd.AddCommand(generateCmd(opts))
	rootCmd.AddCommand(validateCmd(opts))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (o *options) openRepo() (*catalog.Repository, error) {
	repo, err := catalog.NewRepository(o.dbPath)
	if err != nil {
		return nil, err
	}
	if err := repo.RunMigrations(o.migrationsPath); err != nil {
		repo.Close()
		return nil, err
	}
	return repo, nil
}

func (o *options) shopify() (*shopify.Client, error) {
	if (o.shop == "" && o.baseURL == "") || o.accessToken == "" {
		return nil, fmt.Errorf("SHOPIFY_SHOP and SHOPIFY_ADMIN_API_ACCESS_TOKEN are required")
	}
	return shopify.New(shopify.Config{
		Shop:        o.shop,
		AccessToken: o.accessToken,
		BaseURL:     o.baseURL,
		Timeout:     o.timeout,
	}), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
