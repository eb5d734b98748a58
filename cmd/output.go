package cmd

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/topi314/chroma/v2/quick"
)

const (
	outputTable = "table"
	outputJSON  = "json"
)

func addOutputFlag(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", outputTable, "Output format (table or json)")
	if err := cmd.RegisterFlagCompletionFunc("output", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{outputTable, outputJSON}, cobra.ShellCompDirectiveNoFileComp
	}); err != nil {
		log.Printf("failed to register output flag completion func: %s", err)
	}
}

func bindOutputFlag(cmd *cobra.Command) error {
	return viper.BindPFlag("output", cmd.Flags().Lookup("output"))
}

// render prints v as json when requested, otherwise calls table.
func render(cmd *cobra.Command, v any, table func() string) error {
	switch output := viper.GetString("output"); output {
	case outputJSON:
		return printJSON(cmd, v)
	case outputTable, "":
		cmd.Println(table())
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", output)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode json: %w", err)
	}

	formatter := viper.GetString("formatter")
	if formatter == "" || formatter == "none" {
		cmd.Println(string(data))
		return nil
	}
	if err = quick.Highlight(cmd.OutOrStdout(), string(data), "json", formatter, viper.GetString("style")); err != nil {
		return fmt.Errorf("failed to highlight json: %w", err)
	}
	cmd.Println()
	return nil
}

func newTable(header ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row(header))
	return t
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}
