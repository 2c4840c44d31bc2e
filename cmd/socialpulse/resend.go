package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/sakif/socialpulse/internal/app"
)

var resendCmd = &cobra.Command{
	Use:   "resend",
	Short: "Run the resend sweep once",
	Long: `Re-runs the summary cycle for every account selected by RESEND_POLICY:
"recent" picks accounts summarized within RESEND_THRESHOLD_HOURS, "overdue"
picks accounts whose last summary is at least that old.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			res := a.Sweeper.ResendDueSummaries(ctx)
			if res.ListErr != nil {
				return res.ListErr
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "checked=%d due=%d resent=%d failed=%d\n",
				res.Checked, res.Due, len(res.Resent), len(res.Failures))

			failed := make([]string, 0, len(res.Failures))
			for u := range res.Failures {
				failed = append(failed, u)
			}
			sort.Strings(failed)
			for _, u := range failed {
				fmt.Fprintf(out, "failed: %s: %v\n", u, res.Failures[u])
			}
			return nil
		})
	},
}
