package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/service"
)

func newResolveCmd(global *globalOptions) *cobra.Command {
	var fallback bool

	cmd := &cobra.Command{
		Use:   "resolve <slug> [Attribute=Value ...]",
		Short: "Show choosable values and the matching variant for a selection",
		Example: `  catalogctl resolve classic-tee Color=Red Size=M
  catalogctl resolve classic-tee Color=Blue --default`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sel, err := parseSelection(args[1:])
			if err != nil {
				return err
			}

			app, _, err := openApp(cmd, global)
			if err != nil {
				return err
			}
			defer app.Close()

			resolve := app.Service.Resolve
			if fallback {
				resolve = app.Service.ResolveOrDefault
			}
			res, err := resolve(cmd.Context(), args[0], sel)
			if err != nil {
				if service.IsNotFound(err) {
					return fmt.Errorf("no product with slug %q", args[0])
				}
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	cmd.Flags().BoolVar(&fallback, "default", false, "Fall back to the first variant when nothing matches")
	return cmd
}

// parseSelection reads Attribute=Value arguments. An empty value leaves the
// attribute unset.
func parseSelection(args []string) (catalog.Selection, error) {
	sel := catalog.Selection{}
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid selection %q: want Attribute=Value", arg)
		}
		sel[name] = strings.TrimSpace(value)
	}
	return sel, nil
}
