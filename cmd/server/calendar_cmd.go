package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/coverage-engine/calendar"
)

type holidayOutput struct {
	Name     string        `json:"name"`
	Date     calendar.Date `json:"date"`
	Nominal  calendar.Date `json:"nominal"`
	Observed bool          `json:"observed"`
	Weekday  string        `json:"weekday"`
}

func newHolidaysCmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Print the observed US federal holidays of a year",
		RunE: func(cmd *cobra.Command, args []string) error {
			holidays := calendar.NewUSFederal().HolidaysForYear(year)
			out := make([]holidayOutput, len(holidays))
			for i, h := range holidays {
				out[i] = holidayOutput{
					Name:     h.Name,
					Date:     h.Date,
					Nominal:  h.Nominal,
					Observed: h.Observed,
					Weekday:  h.Date.Weekday().String(),
				}
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().UTC().Year(), "Calendar year")
	return cmd
}

func newWeeksCmd() *cobra.Command {
	var (
		year         int
		quarter      int
		firstWeekday string
	)

	cmd := &cobra.Command{
		Use:   "weeks",
		Short: "Print a quarter's week starts with holiday names",
		RunE: func(cmd *cobra.Command, args []string) error {
			wd, err := calendar.ParseWeekday(firstWeekday)
			if err != nil {
				return fmt.Errorf("invalid --first-weekday: %w", err)
			}
			weeks, err := calendar.QuarterWeeks(year, quarter, wd)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), calendar.AnnotateWeeks(weeks, calendar.NewUSFederal()))
		},
	}

	current := calendar.QuarterOf(calendar.Today())
	cmd.Flags().IntVar(&year, "year", current.Year, "Calendar year")
	cmd.Flags().IntVar(&quarter, "quarter", current.Q, "Quarter (1-4)")
	cmd.Flags().StringVar(&firstWeekday, "first-weekday", "monday", "Day weeks start on")
	return cmd
}
