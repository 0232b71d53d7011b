package commands

import (
	"fmt"
	"time"

	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/spf13/cobra"
)

// ReportCommands returns the report commands. now and loc fix "today" for --date defaults.
func ReportCommands(
	reports serviceinterfaces.ReportServiceInterface,
	runner serviceinterfaces.ScheduleRunnerInterface,
	loc *time.Location,
	now func() time.Time,
	logger *observability.Logger,
) *cobra.Command {
	reportsCmd := &cobra.Command{
		Use:   "reports",
		Short: "Report commands",
		Long: `Report commands.

Available commands:
  send      - Mail every report schedule due today (run once a day from cron)
  generate  - Compute and store a report`,
	}

	var sendDate string
	send := &cobra.Command{
		Use:   "send",
		Short: "Mail every report schedule due today",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			at := now().In(loc)
			if sendDate != "" {
				d, err := contextutils.ParseDateInLocation(sendDate, loc)
				if err != nil {
					return err
				}
				at = d
			}

			result, err := runner.RunDue(ctx, at)
			if err != nil {
				logger.Error(ctx, "Report schedule run failed", err)
				return contextutils.WrapError(err, "report schedule run failed")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: due=%d sent=%d failed=%d\n",
				at.Format(models.DateLayout), result.Due, result.Sent, result.Failed)
			if result.Aborted {
				return contextutils.ErrorWithContextf("report schedule run aborted, see the log for the cause")
			}
			if result.Failed > 0 {
				return contextutils.ErrorWithContextf("%d scheduled report(s) failed", result.Failed)
			}
			return nil
		},
	}
	send.Flags().StringVar(&sendDate, "date", "", "run as if today were this date (YYYY-MM-DD)")

	var genType, genDate string
	generate := &cobra.Command{
		Use:   "generate",
		Short: "Compute and store a report",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			reportType, err := models.ParseReportType(genType)
			if err != nil {
				return err
			}
			date := genDate
			if date == "" {
				date = now().In(loc).Format(models.DateLayout)
			}
			if _, err := contextutils.ParseDateInLocation(date, loc); err != nil {
				return err
			}

			report, err := reports.Generate(ctx, reportType, date, 0)
			if err != nil {
				logger.Error(ctx, "Report generation failed", err, map[string]interface{}{
					"type": genType,
					"date": date,
				})
				return contextutils.WrapError(err, "report generation failed")
			}

			d := report.Data
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%sレポート #%d (%s - %s)\n", report.Type.Label(), report.ID, d.PeriodStart, d.PeriodEnd)
			fmt.Fprintf(out, "  total=%d pending=%d in_progress=%d completed=%d\n",
				d.TotalFeedback, d.PendingCount, d.InProgressCount, d.CompletedCount)
			for _, b := range d.TypeBreakdown {
				fmt.Fprintf(out, "  %-20s %5d %5d\n", b.Type, b.Count, b.ResolvedCount)
			}
			return nil
		},
	}
	generate.Flags().StringVar(&genType, "type", string(models.ReportDaily), "daily, weekly or monthly")
	generate.Flags().StringVar(&genDate, "date", "", "anchor date (YYYY-MM-DD), defaults to today")

	reportsCmd.AddCommand(send, generate)
	return reportsCmd
}
