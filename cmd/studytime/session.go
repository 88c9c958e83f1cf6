package main

import (
	"context"
	"fmt"

	"github.com/goodtune/studytime/internal/tracker"
	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Open a study session for today",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.tracker.StartSession(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Study session started")
			return nil
		})
	},
}

var endCmd = &cobra.Command{
	Use:   "end",
	Short: "Close today's open study session",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			if err := a.tracker.EndSession(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Study session ended, today: %s\n", formatMinutes(a.tracker.TodayStudyTime(ctx)))
			return nil
		})
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Run a single poll: resume, checkpoint and print totals",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app) error {
			totals, err := a.tracker.UpdateStudyTime(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), totalsLine(totals))
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(startCmd, endCmd, updateCmd)
}

// withApp runs fn against a freshly opened app and closes it afterwards.
func withApp(fn func(ctx context.Context, a *app) error) error {
	a, err := openApp(configPath, nil)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func totalsLine(t tracker.Totals) string {
	return fmt.Sprintf("today: %s  this week: %s", formatMinutes(t.Today), formatMinutes(t.ThisWeek))
}
