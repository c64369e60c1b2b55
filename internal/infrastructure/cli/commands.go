package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os/user"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/doeshing/filegate/internal/app"
	"github.com/doeshing/filegate/internal/domain"
)

func newCheckCommand(container *app.Container) *cobra.Command {
	var operation string
	cmd := &cobra.Command{
		Use:   "check <path>...",
		Short: "Classify paths against the configured policy",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := domain.OperationKind(operation)
			decisions, err := container.Policy.ClassifyAll(args, op, op.MustExist())
			if err != nil {
				return err
			}
			for _, d := range decisions {
				status := "allowed"
				if d.Sensitive {
					status = "allowed (sensitive)"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", status, d.ResolvedPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", string(domain.OpScanFolder), "Operation kind to check against")
	return cmd
}

func newAssessCommand(container *app.Container) *cobra.Command {
	var (
		operation string
		recursive bool
	)
	cmd := &cobra.Command{
		Use:   "assess <path>...",
		Short: "Score an operation without gating it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op := domain.OperationKind(operation)
			assessment := container.Risk.Assess(op, args, domain.OperationParams{Recursive: recursive})
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Level: %s (score %d)\n", assessment.Level, assessment.Score)
			for _, factor := range assessment.Factors {
				fmt.Fprintf(out, "  - %s\n", factor)
			}
			fmt.Fprintf(out, "Confirmation required: %v\n", assessment.RequiresConfirmation)
			fmt.Fprintf(out, "Backup required: %v\n", assessment.RequiresBackup)
			fmt.Fprintln(out, assessment.Recommendation)
			return nil
		},
	}
	cmd.Flags().StringVar(&operation, "operation", string(domain.OpDeleteFiles), "Operation kind to assess")
	cmd.Flags().BoolVar(&recursive, "recursive", false, "Treat the operation as recursive")
	return cmd
}

func newGateCommand(container *app.Container) *cobra.Command {
	gateCmd := &cobra.Command{
		Use:   "gate",
		Short: "Drive the confirmation state machine",
	}

	var (
		operation string
		recursive bool
		userID    string
	)
	requestCmd := &cobra.Command{
		Use:   "request <path>...",
		Short: "Request approval for an operation",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := container.Gate.RequestConfirmation(cmd.Context(),
				domain.OperationKind(operation), args, resolveUser(userID),
				domain.OperationParams{Recursive: recursive})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !decision.RequiresConfirmation {
				fmt.Fprintf(out, "approved (%s, score %d)\n", decision.Risk.Level, decision.Risk.Score)
				return nil
			}
			fmt.Fprintf(out, "operation id: %s\n", decision.OperationID)
			fmt.Fprintln(out, decision.Message)
			if decision.BackupID != "" {
				fmt.Fprintf(out, "backup: %s\n", decision.BackupID)
			}
			if decision.BackupDegraded {
				fmt.Fprintln(out, "warning: automatic backup failed; proceed with extra care")
			}
			return nil
		},
	}
	requestCmd.Flags().StringVar(&operation, "operation", string(domain.OpDeleteFiles), "Operation kind")
	requestCmd.Flags().BoolVar(&recursive, "recursive", false, "Treat the operation as recursive")
	requestCmd.Flags().StringVar(&userID, "user", "", "User id (defaults to the OS user)")

	confirmCmd := &cobra.Command{
		Use:   "confirm <operation-id> <response>...",
		Short: "Answer a pending confirmation",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			approved, req, err := container.Gate.Confirm(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			if req == nil {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending confirmation with that id")
				return nil
			}
			if approved {
				fmt.Fprintf(cmd.OutOrStdout(), "approved: %s on %d path(s)\n", req.Operation, len(req.Paths))
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "declined")
			}
			return nil
		},
	}

	cancelCmd := &cobra.Command{
		Use:   "cancel <operation-id>",
		Short: "Cancel a pending confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := container.Gate.Cancel(cmd.Context(), args[0], "cancelled from cli"); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
			return nil
		},
	}

	pendingCmd := &cobra.Command{
		Use:   "pending",
		Short: "List open confirmations",
		RunE: func(cmd *cobra.Command, args []string) error {
			pending := container.Gate.Pending()
			if len(pending) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no pending confirmations")
				return nil
			}
			for _, req := range pending {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%d path(s)\n",
					req.OperationID, req.Operation, req.Risk.Level, len(req.Paths))
			}
			return nil
		},
	}

	gateCmd.AddCommand(requestCmd, confirmCmd, cancelCmd, pendingCmd)
	return gateCmd
}

func newBackupCommand(container *app.Container) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Manage automatic backups",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Backups == nil {
				return fmt.Errorf("backups are disabled in configuration")
			}
			records, err := container.Backups.List("", time.Time{})
			if err != nil {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no backups")
				return nil
			}
			for _, rec := range records {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d file(s)\t%s\n",
					rec.ID, rec.Operation, rec.FileCount, humanize.IBytes(uint64(rec.TotalSize)))
			}
			return nil
		},
	}

	restoreCmd := &cobra.Command{
		Use:   "restore <backup-id>",
		Short: "Restore a backup to its original locations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Backups == nil {
				return fmt.Errorf("backups are disabled in configuration")
			}
			if err := container.Backups.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "restored")
			return nil
		},
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Run backup eviction now",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Backups == nil {
				return fmt.Errorf("backups are disabled in configuration")
			}
			return container.Backups.Prune()
		},
	}

	storageCmd := &cobra.Command{
		Use:   "storage",
		Short: "Show backup storage usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			if container.Backups == nil {
				return fmt.Errorf("backups are disabled in configuration")
			}
			info := container.Backups.StorageInfo()
			fmt.Fprintf(cmd.OutOrStdout(), "%d backup(s), %d file(s), %s of %s (%.1f%%)\n",
				info.BackupCount, info.TotalFiles,
				humanize.IBytes(uint64(info.TotalSize)), humanize.IBytes(uint64(info.StorageCap)),
				info.UsagePercent)
			return nil
		},
	}

	backupCmd.AddCommand(listCmd, restoreCmd, pruneCmd, storageCmd)
	return backupCmd
}

func newSnapshotCommand(container *app.Container) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage undo snapshots",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			snaps, err := container.Snapshots.List()
			if err != nil {
				return err
			}
			if len(snaps) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no snapshots")
				return nil
			}
			now := time.Now()
			for _, snap := range snaps {
				state := "active"
				if snap.Expired(now) {
					state = "expired"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d file(s)\t%s\n",
					snap.SnapshotID, snap.Operation, len(snap.FileStates), state)
			}
			return nil
		},
	}

	rollbackCmd := &cobra.Command{
		Use:   "rollback <snapshot-id>",
		Short: "Undo an operation from its snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := container.Snapshots.Rollback(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "restored %d, failed %d\n", result.Restored, result.Failed)
			for _, msg := range result.Errors {
				fmt.Fprintf(out, "  %s\n", msg)
			}
			return nil
		},
	}

	pruneCmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete expired snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := container.Snapshots.CleanupExpired()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired snapshot(s)\n", removed)
			return nil
		},
	}

	snapshotCmd.AddCommand(listCmd, rollbackCmd, pruneCmd)
	return snapshotCmd
}

func newConfigCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", container.ConfigLoader.Path())
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(container.Config)
		},
	}
}

func newPolicyCommand(container *app.Container) *cobra.Command {
	policyCmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect the path policy",
	}
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active policy rules",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", container.Config.Policy.RulesFile)
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(container.Rules)
		},
	}
	policyCmd.AddCommand(showCmd)
	return policyCmd
}

func newStatusCommand(container *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show gate health and storage usage",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "pending confirmations: %d\n", len(container.Gate.Pending()))
			if container.Backups != nil {
				info := container.Backups.StorageInfo()
				fmt.Fprintf(out, "backups: %d using %s (%.1f%% of cap)\n",
					info.BackupCount, humanize.IBytes(uint64(info.TotalSize)), info.UsagePercent)
			} else {
				fmt.Fprintln(out, "backups: disabled")
			}
			snaps, err := container.Snapshots.List()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "snapshots: %d\n", len(snaps))
			stats, err := container.Audit.Statistics(cmd.Context(), "", time.Now().AddDate(0, 0, -7))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "operations last 7 days: %d (%.0f%% successful)\n",
				stats.TotalOperations, stats.SuccessRate*100)
			return nil
		},
	}
}

func resolveUser(flag string) string {
	if flag != "" {
		return flag
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
