package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/doeshing/filegate/internal/app"
	"github.com/doeshing/filegate/internal/domain"
)

func newAuditCommand(container *app.Container) *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Query the operation audit trail",
	}

	var limit int
	recentCmd := &cobra.Command{
		Use:   "recent",
		Short: "Show the newest audit entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := container.Audit.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printEntries(cmd, entries)
			return nil
		},
	}
	recentCmd.Flags().IntVar(&limit, "limit", 20, "Maximum entries to show")

	var days int
	highRiskCmd := &cobra.Command{
		Use:   "high-risk",
		Short: "Show high and critical entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := container.Audit.HighRisk(cmd.Context(), daysAgo(days), 0)
			if err != nil {
				return err
			}
			printEntries(cmd, entries)
			return nil
		},
	}
	highRiskCmd.Flags().IntVar(&days, "days", 7, "Window in days")

	var failedDays int
	failedCmd := &cobra.Command{
		Use:   "failed",
		Short: "Show failed operations",
		RunE: func(cmd *cobra.Command, args []string) error {
			entries, err := container.Audit.Failed(cmd.Context(), daysAgo(failedDays), 0)
			if err != nil {
				return err
			}
			printEntries(cmd, entries)
			return nil
		},
	}
	failedCmd.Flags().IntVar(&failedDays, "days", 7, "Window in days")

	var (
		statsUser string
		statsDays int
	)
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Aggregate the trail over a window",
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := container.Audit.Statistics(cmd.Context(), statsUser, daysAgo(statsDays))
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), stats)
		},
	}
	statsCmd.Flags().StringVar(&statsUser, "user", "", "Restrict to one user")
	statsCmd.Flags().IntVar(&statsDays, "days", 30, "Window in days")

	exportCmd := &cobra.Command{
		Use:   "export <dest.jsonl>",
		Short: "Export the whole trail as JSONL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.Audit.ExportJSON(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported to %s\n", args[0])
			return nil
		},
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete entries past the retention window",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := container.Audit.Prune(cmd.Context(), container.Config.Audit.RetentionDays)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entr(ies)\n", removed)
			return nil
		},
	}

	auditCmd.AddCommand(recentCmd, highRiskCmd, failedCmd, statsCmd, exportCmd, pruneCmd)
	return auditCmd
}

func printEntries(cmd *cobra.Command, entries []domain.AuditEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no entries")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\t%s\t%d path(s)\n",
			e.Timestamp.Format(time.RFC3339), e.UserID, e.Operation, e.RiskLevel, e.Status, len(e.Paths))
	}
}

func daysAgo(days int) time.Time {
	if days <= 0 {
		days = 7
	}
	return time.Now().AddDate(0, 0, -days)
}
