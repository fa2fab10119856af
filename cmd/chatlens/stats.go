package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/minqua/chatlens/internal/analytics"
	"github.com/minqua/chatlens/internal/config"
)

func statsCmd() *cobra.Command {
	var from, to string
	var year int

	cmd := &cobra.Command{
		Use:   "stats <session-id>",
		Short: "Show activity statistics for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			filter, err := buildFilter(from, to, year)
			if err != nil {
				return err
			}

			engine := analytics.NewEngine(cfg.DataDir)
			sessionID := args[0]

			tr, err := engine.TimeRange(sessionID)
			if err != nil {
				return fmt.Errorf("time range: %w", err)
			}
			if tr == nil {
				fmt.Println("Session has no messages.")
				return nil
			}
			fmt.Printf("=== Time Range ===\n  %s .. %s\n",
				time.Unix(tr.Start, 0).Format("2006-01-02 15:04:05"),
				time.Unix(tr.End, 0).Format("2006-01-02 15:04:05"))

			years, err := engine.AvailableYears(sessionID)
			if err != nil {
				return fmt.Errorf("available years: %w", err)
			}
			fmt.Printf("  Years: %s\n", joinInts(years))

			activity, err := engine.MemberActivity(sessionID, filter)
			if err != nil {
				return fmt.Errorf("member activity: %w", err)
			}
			fmt.Println("\n=== Member Activity ===")
			for i, a := range activity {
				fmt.Printf("  %2d. %-24s %6d  %6.2f%%\n", i+1, a.Name, a.MessageCount, a.Percentage)
			}

			hours, err := engine.HourlyActivity(sessionID, filter)
			if err != nil {
				return fmt.Errorf("hourly activity: %w", err)
			}
			fmt.Println("\n=== Hourly Activity ===")
			printHourBars(hours)

			days, err := engine.DailyActivity(sessionID, filter)
			if err != nil {
				return fmt.Errorf("daily activity: %w", err)
			}
			if len(days) > 0 {
				fmt.Printf("\n=== Daily Activity ===\n  %d active days, %s .. %s\n",
					len(days), days[0].Date, days[len(days)-1].Date)
			}

			types, err := engine.TypeDistribution(sessionID, filter)
			if err != nil {
				return fmt.Errorf("type distribution: %w", err)
			}
			fmt.Println("\n=== Message Types ===")
			for _, t := range types {
				fmt.Printf("  %-8s %6d\n", t.Type, t.Count)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Only count messages on or after this date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "Only count messages on or before this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&year, "year", 0, "Scope all aggregates to one calendar year")

	return cmd
}

// buildFilter turns the date flags into an inclusive unix-second
// filter. --year is shorthand for the whole local calendar year and
// wins over --from/--to.
func buildFilter(from, to string, year int) (*analytics.TimeFilter, error) {
	if year != 0 {
		start := time.Date(year, 1, 1, 0, 0, 0, 0, time.Local).Unix()
		end := time.Date(year+1, 1, 1, 0, 0, 0, 0, time.Local).Unix() - 1
		return &analytics.TimeFilter{Start: &start, End: &end}, nil
	}

	var f analytics.TimeFilter
	if from != "" {
		t, err := time.ParseInLocation("2006-01-02", from, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --from date %q", from)
		}
		ts := t.Unix()
		f.Start = &ts
	}
	if to != "" {
		t, err := time.ParseInLocation("2006-01-02", to, time.Local)
		if err != nil {
			return nil, fmt.Errorf("invalid --to date %q", to)
		}
		ts := t.AddDate(0, 0, 1).Unix() - 1 // end of day
		f.End = &ts
	}
	if f.Start == nil && f.End == nil {
		return nil, nil
	}
	return &f, nil
}

func printHourBars(hours []analytics.HourBucket) {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		width = 80
	}
	barMax := width - 16
	if barMax < 10 {
		barMax = 10
	}

	max := 0
	for _, h := range hours {
		if h.MessageCount > max {
			max = h.MessageCount
		}
	}
	if max == 0 {
		fmt.Println("  (no messages)")
		return
	}

	for _, h := range hours {
		n := h.MessageCount * barMax / max
		fmt.Printf("  %02d %6d %s\n", h.Hour, h.MessageCount, strings.Repeat("█", n))
	}
}

func joinInts(nums []int) string {
	if len(nums) == 0 {
		return "-"
	}
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
