package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raffaelramalhorosa/folio-api/internal/models"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the journal integration",
}

var journalTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Check the connection to the journal database",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		report := a.entries.TestConnection(cmd.Context())
		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, report)
		}

		if !report.Success {
			fmt.Fprintln(out, errorStyle.Render("✗ "+report.Message))
			return nil
		}
		fmt.Fprintln(out, okStyle.Render("✓ "+report.Message))
		if d := report.Details; d != nil {
			printKV(out, "Title", d.Title)
			printKV(out, "Properties", strings.Join(d.Properties, ", "))
			printKV(out, "Created", d.Created)
			printKV(out, "Last edited", d.LastEdited)
		}
		return nil
	},
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "Fetch the journal listing once and print it",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		res := a.journal.Fetch(cmd.Context())
		out := cmd.OutOrStdout()
		if flagJSON {
			return printJSON(out, res)
		}

		header := fmt.Sprintf("%d entries (%s)", res.Count, res.Source)
		if res.Source == models.SourceFallback {
			header = warnStyle.Render(header)
		} else {
			header = okStyle.Render(header)
		}
		fmt.Fprintln(out, header)
		if res.Error != "" {
			fmt.Fprintln(out, errorStyle.Render("error: "+res.Error))
		}
		for _, e := range res.Entries {
			fmt.Fprintf(out, "%s  %s %s\n", mutedStyle.Render(e.Date), titleStyle.Render(e.Title), mutedStyle.Render("["+e.Category+"]"))
		}
		return nil
	},
}

func init() {
	journalCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "print JSON instead of text")
	journalCmd.AddCommand(journalTestCmd)
	journalCmd.AddCommand(journalListCmd)
}
