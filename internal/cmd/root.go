// Package cmd wires condrvhostd's cobra subcommands: serve, handoff-accept,
// handoff-init, and version.
package cmd

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root cobra command with all subcommands.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "condrvhostd",
		Short: "A console-host server emulating the Windows ConDrv protocol",
		Long: `condrvhostd hosts a console session: a screen buffer, handle and alias
tables, command history, and the single-threaded request/response dispatch
loop a ConDrv driver connection drives, plus the handoff protocol for
delegating a session's UI to a third-party terminal.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() != "version" {
				currentTerminalHints = detectTerminalHints()
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		newServeCmd(),
		newHandoffAcceptCmd(),
		newHandoffInitCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
