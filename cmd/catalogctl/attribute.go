package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/catalog/internal/repository"
)

func newAttributeCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attribute",
		Short: "Manage attributes",
	}
	cmd.AddCommand(newAttributeAddCmd(global))
	return cmd
}

func newAttributeAddCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "add <name> [value ...]",
		Short:   "Create an attribute and its values",
		Example: "  catalogctl attribute add Size S M L XL",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, _, err := openApp(cmd, global)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			w := cmd.OutOrStdout()

			attr, err := app.Service.CreateAttribute(ctx, args[0])
			if errors.Is(err, repository.ErrAttributeExists) {
				return fmt.Errorf("attribute %q already exists", args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "attribute %s (%s)\n", attr.Name, attr.Slug)

			for _, value := range args[1:] {
				v, err := app.Service.CreateAttributeValue(ctx, attr.ID, value)
				if err != nil {
					return fmt.Errorf("value %q: %w", value, err)
				}
				fmt.Fprintf(w, "  value %s (%s)\n", v.Value, v.Slug)
			}
			return nil
		},
	}
}
