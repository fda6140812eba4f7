package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
)

// ============================================================================
// wiictl - Command-line IPC Client
// ============================================================================
// Sends events to the wiimoterd daemon over its Unix socket.
//
// Usage:
//   wiictl watch canvas
//   wiictl press 13
//   wiictl sample --slot 0 --x 320 --y 240 --distance 1.2
//   wiictl stop
// ============================================================================

const defaultSocketPath = "/tmp/wiimoter.sock"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var socketPath string

	root := &cobra.Command{
		Use:           "wiictl",
		Short:         "Control the wiimoterd daemon via IPC",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&socketPath, "socket", defaultSocketPath, "Unix domain socket path")

	send := func(cmd *cobra.Command, ev Event) error {
		if err := sendEvent(socketPath, ev); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	}

	root.AddCommand(
		targetCmd("watch <target>", "Start watching a target", func(t string) Event { return WatchBegin{Target: t} }, send),
		targetCmd("enter <target>", "Report that the pointer entered a target", func(t string) Event { return PointerEnter{Target: t} }, send),
		targetCmd("leave <target>", "Report that the pointer left a target", func(t string) Event { return PointerLeave{Target: t} }, send),
		&cobra.Command{
			Use:     "stop",
			Aliases: []string{"end"},
			Short:   "Stop the active watch session",
			Args:    cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return send(cmd, WatchEnd{})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Forget the previous sample and shake history of the active session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return send(cmd, WatchReset{})
			},
		},
		&cobra.Command{
			Use:   "press <code>",
			Short: "Send a raw key/button code",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				code, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid code %q: %w", args[0], err)
				}
				return send(cmd, ButtonPress{Code: code})
			},
		},
		newSampleCmd(send),
	)
	return root
}

// targetCmd builds a command that takes a single target name.
func targetCmd(use, short string, build func(string) Event, send func(*cobra.Command, Event) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return send(cmd, build(args[0]))
		},
	}
}

func newSampleCmd(send func(*cobra.Command, Event) error) *cobra.Command {
	var (
		report   SampleReport
		browsing bool
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Push a pointer reading into a device slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if report.Slot < 0 || report.Slot > 3 {
				return fmt.Errorf("slot must be between 0 and 3")
			}
			if cmd.Flags().Changed("browsing") {
				report.Browsing = &browsing
			}
			return send(cmd, report)
		},
	}
	cmd.Flags().IntVar(&report.Slot, "slot", 0, "device slot (0-3)")
	cmd.Flags().Float64Var(&report.ScreenX, "x", 0, "pointer x in pixels")
	cmd.Flags().Float64Var(&report.ScreenY, "y", 0, "pointer y in pixels")
	cmd.Flags().Float64Var(&report.Distance, "distance", 0, "distance from the sensor")
	cmd.Flags().Float64Var(&report.RollX, "roll-x", 1, "tilt x component")
	cmd.Flags().Float64Var(&report.RollY, "roll-y", 0, "tilt y component")
	cmd.Flags().BoolVar(&browsing, "browsing", true, "pointer is in range")
	return cmd
}
