package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var loginToken string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Store the auth token that selects whose study data is tracked",
	Long: `Store the auth token under the configured token key. The token's user
identifier is decoded without verification and only partitions local data.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.identity.SetToken(ctx, loginToken); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Tracking study time under %s\n", a.identity.StorageKey(ctx))
			return nil
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Remove the stored auth token",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			// Close the session under the outgoing user's key first
			if err := a.tracker.EndSession(ctx); err != nil {
				return err
			}
			if err := a.identity.ClearToken(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		})
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "Auth token (JWT)")
	_ = loginCmd.MarkFlagRequired("token")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
