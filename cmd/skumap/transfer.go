package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fjod/acp-checkout/internal/catalog"
	"github.com/spf13/cobra"
)

func importCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Load a JSON SKU map into the database",
		Long: `Reads a SKU map from file, or from SHOPIFY_SKU_MAP when no file is given.
Values may be a variant id or an object {variantId, productId, title}.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := readSkuMap(args)
			if err != nil {
				return err
			}
			mappings, err := catalog.ParseSkuMap(raw)
			if err != nil {
				return err
			}

			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			if err := repo.Upsert(cmd.Context(), mappings); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d mappings into %s\n", len(mappings), opts.dbPath)
			return nil
		},
	}
}

func readSkuMap(args []string) ([]byte, error) {
	if len(args) == 1 {
		return os.ReadFile(args[0])
	}
	if raw := os.Getenv("SHOPIFY_SKU_MAP"); raw != "" {
		return []byte(raw), nil
	}
	return nil, fmt.Errorf("no file given and SHOPIFY_SKU_MAP is empty")
}

func exportCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Print the SKU map as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepo()
			if err != nil {
				return err
			}
			defer repo.Close()

			mappings, err := repo.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeSkuMap(cmd.OutOrStdout(), mappings)
		},
	}
}

func writeSkuMap(w io.Writer, mappings []catalog.Mapping) error {
	raw, err := catalog.MarshalSkuMap(mappings)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(raw))
	return err
}
