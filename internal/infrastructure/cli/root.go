// Package cli exposes the gate over cobra commands.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/doeshing/filegate/internal/app"
)

// Options holds CLI-level configuration.
type Options struct {
	Verbose bool
}

// NewRootCmd wires the cobra root command.
func NewRootCmd(ctx context.Context, opts Options) (*cobra.Command, error) {
	container, err := app.BuildContainer(ctx, opts.Verbose)
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:   "filegate",
		Short: "filegate - safety gate for agent-driven file operations",
		Long: "filegate validates, scores, and gates filesystem operations requested\n" +
			"by a natural-language agent, with automatic backups, undo snapshots,\n" +
			"and a persistent audit trail.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newCheckCommand(container))
	root.AddCommand(newAssessCommand(container))
	root.AddCommand(newGateCommand(container))
	root.AddCommand(newAuditCommand(container))
	root.AddCommand(newBackupCommand(container))
	root.AddCommand(newSnapshotCommand(container))
	root.AddCommand(newConfigCommand(container))
	root.AddCommand(newPolicyCommand(container))
	root.AddCommand(newStatusCommand(container))
	return root, nil
}
