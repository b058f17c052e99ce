// cmd/tools/dataset-check/main.go
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"application-tracker/internal/tracker/lookup"
	"application-tracker/pkg/datasetcheck"
)

var errFindings = errors.New("dataset has findings")

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		if !errors.Is(err, errFindings) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "dataset-check",
		Short:         "Inspect an application tracker dataset",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.AddCommand(newValidateCmd(), newLookupCmd())
	return root
}

func newValidateCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Report missing fields, unknown statuses and duplicate keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			report, _, err := datasetcheck.LoadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printReport(out, report)
			}

			if !report.OK() {
				return errFindings
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func printReport(out io.Writer, report *datasetcheck.Report) {
	fmt.Fprintf(out, "%s: %d records\n", report.Path, report.Records)
	for _, f := range report.Findings {
		if f.Row == 0 {
			fmt.Fprintf(out, "  header  %-15s %s\n", f.Kind, f.Detail)
			continue
		}
		fmt.Fprintf(out, "  row %-4d %-15s %s/%s: %s\n", f.Row, f.Kind, f.FileNumber, f.Surname, f.Detail)
	}
	if report.OK() {
		fmt.Fprintln(out, "OK")
		return
	}
	fmt.Fprintf(out, "%d findings\n", len(report.Findings))
}

func newLookupCmd() *cobra.Command {
	var q lookup.Query

	cmd := &cobra.Command{
		Use:   "lookup <file>",
		Short: "Show the tracker for one file number and surname",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := lookup.ValidateQuery(q); err != nil {
				return err
			}
			_, records, err := datasetcheck.LoadFile(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			result := lookup.Find(records, q)
			switch result.Outcome {
			case lookup.OutcomeDataUnavailable:
				fmt.Fprintln(out, "Dataset has no records.")
				return nil
			case lookup.OutcomeNoMatch:
				fmt.Fprintln(out, "Application not found.")
				return nil
			}

			record := result.Record
			fmt.Fprintf(out, "Status for File %s (%s)\n", record.FileNumber(), record.Surname())
			tracker := result.Tracker()
			for _, stage := range tracker.Stages {
				mark := " "
				switch {
				case stage.Active:
					mark = ">"
				case stage.Reached:
					mark = "x"
				}
				fmt.Fprintf(out, "  [%s] %s\n", mark, stage.Label)
			}
			fmt.Fprintf(out, "Current stage: %s\n", record.Status())
			if !tracker.Recognized() {
				fmt.Fprintln(out, "Warning: status is not one of the tracker stages.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&q.FileNumber, "file-number", "", "application file number")
	cmd.Flags().StringVar(&q.Surname, "surname", "", "applicant surname")
	_ = cmd.MarkFlagRequired("file-number")
	_ = cmd.MarkFlagRequired("surname")
	return cmd
}
