// Command condrvhostd is the console-host server: a single binary whose
// subcommands (serve, handoff-accept, handoff-init, version) are built in
// internal/cmd.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/oconsole/condrvhost/internal/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cmd.NewRootCmd()
	root.SilenceUsage = true
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "condrvhostd:", err)
		os.Exit(1)
	}
}
