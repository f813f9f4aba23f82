// Hapcan-gw bridges a HAPCAN CAN bus to TCP clients.
//
// It speaks the HAPCAN Ethernet interface protocol on port 1001: every
// frame seen on the bus is forwarded to all connected clients, frames sent
// by clients are transmitted on the bus, and system queries addressed to
// the gateway are answered locally. The bus is reached through SocketCAN,
// an SLCAN serial adapter, or an in-process virtual bus for testing.
//
// Usage:
//
//	hapcan-gw [command] [flags]
//
// See 'hapcan-gw --help' for available commands.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/muurk/hapcangw/internal/config"
	"github.com/muurk/hapcangw/internal/version"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// Global flags
var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "hapcan-gw",
	Short: "HAPCAN CAN bus to TCP gateway",
	Long: `A gateway between a HAPCAN home automation CAN bus and TCP clients.

Clients connect on the HAPCAN Ethernet port (1001 by default) and exchange
15-byte HAPCAN frames with the bus. System queries addressed to the gateway
(hardware type, firmware type, description, supply voltage) are answered
locally without touching the bus.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Disable automatic completion command generation
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (default: user config dir)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig reads the config file named by --config.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		info := version.Get()
		fmt.Printf("hapcan-gw %s (commit: %s)\n", info.Version, info.Commit)
		fmt.Printf("  %s %s\n", info.GoVersion, info.Platform)
	},
}
