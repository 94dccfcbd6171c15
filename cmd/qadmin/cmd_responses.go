package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"discovery/internal/app"
	"discovery/internal/model"
	"discovery/internal/report"
	"discovery/internal/service"
)

var (
	listJSON  bool
	renderOut string
)

// listCmd prints a summary of every stored response
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all responses with their progress",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			responses, err := a.Questionnaire.ListResponses(ctx)
			if err != nil {
				return err
			}
			if listJSON {
				return writeJSON(cmd.OutOrStdout(), responses)
			}
			return writeSummaryTable(cmd.OutOrStdout(), responses)
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show [user-id]",
	Short: "Print one response as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			resp, err := a.Questionnaire.GetResponse(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		})
	},
}

// renderCmd writes the HTML report for a response
var renderCmd = &cobra.Command{
	Use:   "render [user-id]",
	Short: "Render the HTML report for a response",
	Long: `Render the completion report for a response, complete or not.

Without --out the document is written to a file named the same way as the
email attachment in the current directory. Use --out - for stdout.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, a *app.App) error {
			resp, err := a.Questionnaire.GetResponse(ctx, args[0])
			if err != nil {
				return err
			}
			html, err := a.Completion.Render(resp)
			if err != nil {
				return err
			}

			if renderOut == "-" {
				_, err = io.WriteString(cmd.OutOrStdout(), html)
				return err
			}
			path := renderOut
			if path == "" {
				path = report.Filename(resp, time.Now())
			}
			if err := os.WriteFile(path, []byte(html), 0o644); err != nil {
				return fmt.Errorf("failed to write report: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
			return nil
		})
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print full records as JSON")
	renderCmd.Flags().StringVarP(&renderOut, "out", "o", "", "Output file (- for stdout)")
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeSummaryTable(w io.Writer, responses []*model.QuestionnaireResponse) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "USER\tEMAIL\tSTATUS\tPROGRESS\tLAST UPDATED")
	for _, r := range responses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d%% (%d/%d)\t%s\n",
			r.RowKey,
			r.Metadata.UserEmail,
			service.Status(r),
			r.Progress.PercentComplete,
			r.Progress.CompletedSections,
			r.Progress.TotalSections,
			r.LastUpdated.UTC().Format(time.RFC3339),
		)
	}
	return tw.Flush()
}
