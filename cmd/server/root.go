package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "server",
		Short:        "Quarterly schedule coverage service",
		SilenceUsage: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newHolidaysCmd())
	cmd.AddCommand(newWeeksCmd())
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
