package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sakif/socialpulse/internal/app"
	"github.com/sakif/socialpulse/internal/model"
)

var (
	verifyPlatform string
	verifyHandle   string
)

var verifyCmd = &cobra.Command{
	Use:     "verify",
	Short:   "Check that a handle exists on its platform",
	Example: `  socialpulse verify --platform youtube --handle @nasa`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		platform, err := model.ParsePlatform(verifyPlatform)
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app.App) error {
			v := a.Verifier.Verify(ctx, platform, verifyHandle)
			if !v.Verified {
				return fmt.Errorf("%s handle %q not verified: %w", platform.DisplayName(), v.Handle, v.Err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s handle %q verified\n", platform.DisplayName(), v.Handle)
			return nil
		})
	},
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyPlatform, "platform", "p", "", "youtube or instagram")
	verifyCmd.Flags().StringVar(&verifyHandle, "handle", "", "handle to check")
	_ = verifyCmd.MarkFlagRequired("platform")
	_ = verifyCmd.MarkFlagRequired("handle")
}
