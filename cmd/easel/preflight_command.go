package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"easel/internal/backend"
	"easel/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "preflight",
		Short: "Check backend reachability, model files, and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			client, err := backend.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("create backend client: %w", err)
			}

			results := preflight.RunAll(cmd.Context(), cfg, client)

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(results))
			for _, result := range results {
				rows = append(rows, []string{
					result.Name,
					passFail(result.Passed, colorize),
					result.Detail,
				})
			}
			fmt.Fprintln(out, renderTable([]string{"Check", "Result", "Detail"}, rows))

			if !preflight.Passed(results) {
				return fmt.Errorf("preflight failed")
			}
			fmt.Fprintln(out, "All checks passed")
			return nil
		},
	}
}
