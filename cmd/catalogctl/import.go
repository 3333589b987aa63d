package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/importer"
)

type importOptions struct {
	quoted bool
	asJSON bool
}

func newImportCmd(global *globalOptions) *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import products from a .csv or .xlsx file",
		Long: `Import products from a .csv or .xlsx file.

Required columns: name, price, categoryId. Optional: description, sku, stock,
lowStockThreshold, images (separated by |), isNew, isFeatured, isTrending,
isBestSeller and attributes (Color=Red;Size=M). Each row creates one product
with its default variant. Failed rows are listed and do not stop the run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, global, opts, args[0])
		},
	}

	cmd.Flags().BoolVar(&opts.quoted, "quoted", false, "Parse CSV with quoted fields (default: IMPORT_QUOTED_CSV)")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print the full outcome as JSON")

	return cmd
}

func runImport(cmd *cobra.Command, global *globalOptions, opts importOptions, path string) error {
	app, cfg, err := openApp(cmd, global, func(c *config.Config) {
		if opts.quoted {
			c.Import.QuotedCSV = true
		}
	})
	if err != nil {
		return err
	}
	defer app.Close()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	out, err := app.Service.Import(cmd.Context(), path, f, cfg.Import.MaxFileSize)
	if err != nil && !out.Cancelled {
		msg := importer.MapError(err)
		return fmt.Errorf("%s (%s): %w", msg.Message, msg.Code, err)
	}

	w := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(out); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintln(w, out.Summary())
		for _, rf := range out.Failures {
			line := fmt.Sprintf("  line %d: %s: %s", rf.Line, rf.Kind, rf.Reason)
			if len(rf.Fields) > 0 {
				line += " (" + strings.Join(rf.Fields, ", ") + ")"
			}
			fmt.Fprintln(w, line)
		}
	}

	if err != nil {
		return fmt.Errorf("import stopped after %d rows: %w", out.SuccessCount+out.FailureCount, err)
	}
	if out.FailureCount > 0 && out.SuccessCount == 0 {
		return errors.New("no products imported")
	}
	return nil
}
