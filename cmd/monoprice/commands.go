package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pior/monoprice"
	"github.com/pior/monoprice/protocol"
)

func newStatusCmd(cli *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status ZONE",
		Short: "Show the status of a zone",
		Example: `  # Status of the first zone of the first unit
  monoprice status 11`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zone, err := parseZone(args[0])
			if err != nil {
				return err
			}

			return cli.withClient(cmd, func(ctx context.Context, client *monoprice.Client) error {
				status, ok, err := client.ZoneStatus(ctx, zone)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("zone %d: no status in response", zone)
				}
				return cli.printStatuses(cmd.OutOrStdout(), []protocol.ZoneStatus{status})
			})
		},
	}
}

func newUnitCmd(cli *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unit UNIT",
		Short: "Show the status of every zone of a unit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			unit, err := strconv.Atoi(args[0])
			if err != nil || !protocol.ValidUnit(unit) {
				return fmt.Errorf("invalid unit %q: expected 1, 2 or 3", args[0])
			}

			return cli.withClient(cmd, func(ctx context.Context, client *monoprice.Client) error {
				statuses, err := client.AllZoneStatus(ctx, unit)
				if err != nil {
					return err
				}
				return cli.printStatuses(cmd.OutOrStdout(), statuses)
			})
		},
	}
}

func newSetCmd(cli *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set ZONE PARAM VALUE",
		Short: "Set a zone parameter",
		Long: `Set a zone parameter.

PARAM is a name or a wire code: power (PR), mute (MU), volume (VO), treble (TR),
bass (BS), balance (BL) or source (CH). Power and mute take on/off, numeric
values are clamped into the parameter range. Flags go before ZONE so that
negative values are not read as flags.`,
		Example: `  monoprice set 11 power on
  monoprice set 11 volume 20
  monoprice set 12 source 3
  monoprice --port /dev/ttyUSB1 set 21 treble -3`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			zone, err := parseZone(args[0])
			if err != nil {
				return err
			}
			param, ok := parseParam(args[1])
			if !ok {
				return fmt.Errorf("unknown parameter %q", args[1])
			}

			var value int
			switch param {
			case protocol.ParamPower, protocol.ParamMute:
				on, err := parseSwitch(args[2])
				if err != nil {
					return err
				}
				if on {
					value = 1
				}
			default:
				value, err = strconv.Atoi(args[2])
				if err != nil {
					return fmt.Errorf("invalid %s value %q", param, args[2])
				}
			}

			return cli.withClient(cmd, func(ctx context.Context, client *monoprice.Client) error {
				return client.SetParam(ctx, zone, param, value)
			})
		},
	}

	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newRestoreCmd(cli *app) *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "restore ZONE --from STATUS",
		Short: "Restore a zone from a status line",
		Long: `Restore a zone from a status line, as printed by "monoprice status".

Power, mute, volume, treble, bass, balance and source are set in this order.`,
		Example: `  monoprice restore 11 --from '>1100010000131112100401'`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			zone, err := parseZone(args[0])
			if err != nil {
				return err
			}
			status, ok := protocol.ParseStatus(from)
			if !ok {
				return fmt.Errorf("invalid status line %q", from)
			}
			status.Zone = zone

			return cli.withClient(cmd, func(ctx context.Context, client *monoprice.Client) error {
				return client.RestoreZone(ctx, status)
			})
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "Status line to restore")
	_ = cmd.MarkFlagRequired("from")
	return cmd
}

func newWatchCmd(cli *app) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "watch [UNIT...]",
		Short: "Print zone changes until interrupted",
		Long: `Poll the units and print every zone whose status changed.

Units default to the [watch] section of the config file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			wcfg := cli.vals.WatcherConfig(&cli.logger)
			if len(args) > 0 {
				wcfg.Units = wcfg.Units[:0:0]
				for _, arg := range args {
					unit, err := strconv.Atoi(arg)
					if err != nil || !protocol.ValidUnit(unit) {
						return fmt.Errorf("invalid unit %q: expected 1, 2 or 3", arg)
					}
					wcfg.Units = append(wcfg.Units, unit)
				}
			}
			if cmd.Flags().Changed("interval") {
				wcfg.Interval = interval
			}

			return cli.withClient(cmd, func(ctx context.Context, client *monoprice.Client) error {
				out := cmd.OutOrStdout()
				watcher := monoprice.NewWatcher(client, wcfg)

				err := watcher.Run(ctx, func(change monoprice.ZoneChange) {
					if err := cli.printChange(out, change); err != nil {
						cli.logger.Error().Err(err).Msg("failed to print change")
					}
				})
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return nil
				}
				return err
			})
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", monoprice.DefaultWatchInterval, "Poll interval")
	return cmd
}

func newRawCmd(cli *app) *cobra.Command {
	var markers int

	cmd := &cobra.Command{
		Use:     "raw REQUEST",
		Short:   "Send a raw request and print the raw response",
		Hidden:  true,
		Example: `  monoprice raw '?11' --markers 2`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			request := args[0]
			if !strings.HasSuffix(request, protocol.CR) {
				request += protocol.CR
			}

			return cli.withClient(cmd, func(ctx context.Context, client *monoprice.Client) error {
				resp, err := client.Exchange(ctx, []byte(request), protocol.UntilMarkers(markers))
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%q\n", resp)
				return err
			})
		},
	}

	cmd.Flags().IntVar(&markers, "markers", 1, "Number of end of line markers ending the response")
	return cmd
}

func parseZone(s string) (int, error) {
	zone, err := strconv.Atoi(s)
	if err != nil || !protocol.ValidUnit(protocol.ZoneUnit(zone)) || zone%10 < 1 || zone%10 > 6 {
		return 0, fmt.Errorf("invalid zone %q: expected 11-16, 21-26 or 31-36", s)
	}
	return zone, nil
}

func parseParam(s string) (protocol.Param, bool) {
	if p, ok := protocol.ParseParam(strings.ToLower(s)); ok {
		return p, true
	}
	return protocol.ParseParam(strings.ToUpper(s))
}

// parseSwitch reads an on/off argument. Words are matched first, then the
// value is coerced like a loosely typed flag.
func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "on", "yes", "true":
		return true, nil
	case "off", "no", "false":
		return false, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return protocol.Truthy(n), nil
	}
	return false, fmt.Errorf("invalid switch value %q: expected on or off", s)
}
