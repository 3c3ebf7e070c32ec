// Hood Bridge exposes Miele cooker hoods to a home-automation hub.
//
// It polls the Miele cloud device directory, keeps the hoods, registers
// each one as an accessory exactly once, and wires it to MQTT for control.
//
//	hoodbridge serve                  run the bridge
//	hoodbridge discover               list the hoods the cloud reports
//	hoodbridge accessories            list the accessory cache
//
// Every command reads configs/config.yaml unless --config or
// HOODBRIDGE_CONFIG names another file.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	_ "github.com/nerrad567/hood-bridge/migrations"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "hoodbridge",
		Short:         "Bridge Miele cooker hoods to MQTT",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"config file (default $HOODBRIDGE_CONFIG or "+defaultConfigPath+")")

	resolve := func() string { return getConfigPath(configPath) }

	root.AddCommand(
		newServeCmd(resolve),
		newDiscoverCmd(resolve),
		newAccessoriesCmd(resolve),
	)
	return root
}

// getConfigPath returns the --config flag, then HOODBRIDGE_CONFIG, then
// the default path.
func getConfigPath(flag string) string {
	if flag != "" {
		return flag
	}
	if path := os.Getenv("HOODBRIDGE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
