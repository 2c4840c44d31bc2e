package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/socialpulse/internal/app"
	"github.com/sakif/socialpulse/internal/pipeline"
)

var summarizeUser string

var summarizeCmd = &cobra.Command{
	Use:     "summarize",
	Short:   "Run one summary cycle for a user and email the report",
	Example: `  socialpulse summarize --user alice`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res, err := a.Orchestrator.Run(ctx, summarizeUser, pipeline.TriggerCLI)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, p := range res.Platforms {
				fmt.Fprintf(out, "%-10s handles=%d items=%d trend=%t\n",
					p.Platform.DisplayName(), len(p.Handles), p.Items, p.Trend != nil)
			}
			for _, w := range res.Warnings() {
				fmt.Fprintf(out, "warning: %s\n", w)
			}
			if res.DeliveryErr != nil {
				return fmt.Errorf("report not delivered: %w", res.DeliveryErr)
			}
			fmt.Fprintf(out, "report sent to %s\n", summarizeUser)
			return nil
		})
	},
}

func init() {
	summarizeCmd.Flags().StringVarP(&summarizeUser, "user", "u", "", "username to summarize for")
	_ = summarizeCmd.MarkFlagRequired("user")
}
