package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusJSON bool

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show today's and this week's study time",
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Print machine-readable JSON")
	rootCmd.AddCommand(statusCmd)
}

// statusReport is the status command's output.
type statusReport struct {
	Key      string         `json:"key"`
	Today    int            `json:"today"`
	ThisWeek int            `json:"thisWeek"`
	Days     map[string]int `json:"days"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp(configPath, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	report := statusReport{
		Key:      a.identity.StorageKey(ctx),
		Today:    a.tracker.TodayStudyTime(ctx),
		ThisWeek: a.tracker.WeeklyStudyTime(ctx),
		Days:     a.tracker.WeeklyStudyData(ctx),
	}

	if statusJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	printStatus(cmd.OutOrStdout(), report)
	return nil
}

func printStatus(w io.Writer, report statusReport) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	faint := color.New(color.Faint)

	bold.Fprintf(w, "Study time (%s)\n", report.Key)
	fmt.Fprintln(w, strings.Repeat("-", 32))
	fmt.Fprintf(w, "Today:      %s\n", green.Sprint(formatMinutes(report.Today)))
	fmt.Fprintf(w, "This week:  %s\n", green.Sprint(formatMinutes(report.ThisWeek)))
	fmt.Fprintln(w)

	days := make([]string, 0, len(report.Days))
	for day := range report.Days {
		days = append(days, day)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))

	for _, day := range days {
		minutes := report.Days[day]
		label := day
		if parsed, err := time.Parse("2006-01-02", day); err == nil {
			label = parsed.Format("Mon 2006-01-02")
		}
		line := fmt.Sprintf("  %-16s %8s", label, formatMinutes(minutes))
		if minutes == 0 {
			faint.Fprintln(w, line)
			continue
		}
		fmt.Fprintf(w, "%s %s\n", line, strings.Repeat("#", min(minutes/15, 40)))
	}
}

// formatMinutes renders minutes as "1h 05m" or "42m".
func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}
