package commands

import (
	"fmt"
	"strconv"
	"time"

	"corpsite/internal/models"
	"corpsite/internal/observability"
	"corpsite/internal/serviceinterfaces"
	contextutils "corpsite/internal/utils"

	"github.com/spf13/cobra"
)

// ScheduleCommands returns the report schedule commands
func ScheduleCommands(schedules serviceinterfaces.ScheduleServiceInterface, loc *time.Location, logger *observability.Logger) *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Report schedule commands",
		Long: `Report schedule commands.

Available commands:
  add       - Mail a report type to an address
  list      - List schedules
  toggle    - Enable or disable a schedule
  delete    - Remove a schedule`,
	}

	scheduleCmd.AddCommand(&cobra.Command{
		Use:   "add <daily|weekly|monthly> <email>",
		Short: "Mail a report type to an address",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportType, err := models.ParseReportType(args[0])
			if err != nil {
				return err
			}
			sch, err := schedules.CreateSchedule(cmd.Context(), reportType, args[1], 0)
			if err != nil {
				return err
			}
			logger.Info(cmd.Context(), "Report schedule added", map[string]interface{}{
				"schedule_id": sch.ID,
				"type":        string(sch.Type),
				"email":       contextutils.MaskEmail(sch.Email),
			})
			fmt.Fprintf(cmd.OutOrStdout(), "Added schedule #%d: %s -> %s\n", sch.ID, sch.Type, sch.Email)
			return nil
		},
	})

	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List schedules",
		RunE: func(cmd *cobra.Command, _ []string) error {
			items, err := schedules.ListSchedules(cmd.Context(), activeOnly)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(out, "No schedules found")
				return nil
			}
			fmt.Fprintf(out, "%-5s %-8s %-32s %-8s %-16s %s\n", "ID", "Type", "Email", "Active", "Created", "Created by")
			for _, s := range items {
				active := "no"
				if s.IsActive {
					active = "yes"
				}
				fmt.Fprintf(out, "%-5d %-8s %-32s %-8s %-16s %s\n",
					s.ID, s.Type, s.Email, active, s.CreatedAt.In(loc).Format(timeLayout), nullString(s.CreatedByName))
			}
			return nil
		},
	}
	list.Flags().BoolVar(&activeOnly, "active", false, "only show active schedules")
	scheduleCmd.AddCommand(list)

	scheduleCmd.AddCommand(&cobra.Command{
		Use:   "toggle <id>",
		Short: "Enable or disable a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sch, err := schedules.ToggleSchedule(cmd.Context(), id)
			if err != nil {
				return err
			}
			state := "disabled"
			if sch.IsActive {
				state = "enabled"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule #%d %s\n", sch.ID, state)
			return nil
		},
	})

	scheduleCmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a schedule",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := schedules.DeleteSchedule(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Schedule #%d deleted\n", id)
			return nil
		},
	})

	return scheduleCmd
}

func parseID(raw string) (int, error) {
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, contextutils.WrapErrorf(contextutils.ErrInvalidInput, "invalid id %q", raw)
	}
	return id, nil
}
