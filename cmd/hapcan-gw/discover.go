package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/muurk/hapcangw/internal/discovery"
)

var discoverTimeout int

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find HAPCAN gateways on the network",
	Long: `Browse for gateways advertising the ` + discovery.ServiceType + ` service over mDNS
and print their addresses.`,
	Example: `  # Browse for 5 seconds (default)
  hapcan-gw discover

  # Longer browse for busy networks
  hapcan-gw discover --timeout 15`,
	RunE: runDiscover,
}

func init() {
	discoverCmd.Flags().IntVar(&discoverTimeout, "timeout", int(discovery.DefaultScanTimeout/time.Second), "Browse timeout in seconds")
}

func runDiscover(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Browsing for HAPCAN gateways (timeout: %ds)...\n\n", discoverTimeout)

	scanner := discovery.NewScanner()
	scanner.Timeout = time.Duration(discoverTimeout) * time.Second

	gateways, err := scanner.Scan(cmd.Context())
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	if len(gateways) == 0 {
		fmt.Fprintln(out, "No gateways found.")
		fmt.Fprintln(out, "\nTroubleshooting:")
		fmt.Fprintln(out, "  - Check the gateway was started without --no-mdns")
		fmt.Fprintln(out, "  - mDNS does not cross routers; browse from the same network segment")
		fmt.Fprintln(out, "  - Try increasing --timeout")
		return nil
	}

	fmt.Fprintf(out, "Found %d gateway(s):\n\n", len(gateways))
	for i, gw := range gateways {
		fmt.Fprintf(out, "%d. %s\n", i+1, gw.Instance)
		fmt.Fprintf(out, "   Address: %s\n", gw.Address())
		if gw.Hostname != "" {
			fmt.Fprintf(out, "   Host:    %s\n", gw.Hostname)
		}
		if v := gw.Version(); v != "" {
			fmt.Fprintf(out, "   Version: %s\n", v)
		}
		if bus := gw.GetMetadata(discovery.TxtBus); bus != "" {
			fmt.Fprintf(out, "   Bus:     %s\n", bus)
		}
		if ws := gw.GetMetadata(discovery.TxtWS); ws != "" {
			fmt.Fprintf(out, "   WebSocket: %s\n", ws)
		}
		fmt.Fprintln(out)
	}
	return nil
}
