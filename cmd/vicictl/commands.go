package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/danmuck/vicictl/internal/config"
	"github.com/danmuck/vicictl/internal/protocol/message"
	"github.com/danmuck/vicictl/internal/protocol/session"
	"github.com/danmuck/vicictl/internal/vici"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// run dials a session and hands fn a printer bound to the command's stdout.
func (o *options) run(cmd *cobra.Command, fn func(ctx context.Context, s *vici.Session, out *printer) error) error {
	out := newPrinter(cmd.OutOrStdout(), o.cfg.Output)
	err := o.withSession(cmd, func(ctx context.Context, s *vici.Session) error {
		return fn(ctx, s, out)
	})
	if cerr := out.close(); err == nil {
		err = cerr
	}
	return err
}

func newVersionCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show daemon version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, out *printer) error {
				res, err := s.Version(ctx)
				if err != nil {
					return err
				}
				return out.print("", res)
			})
		},
	}
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show daemon statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, out *printer) error {
				res, err := s.Stats(ctx)
				if err != nil {
					return err
				}
				return out.print("", res)
			})
		},
	}
}

func newReloadSettingsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "reload-settings",
		Short: "Reload daemon settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, _ *printer) error {
				if err := s.ReloadSettings(ctx); err != nil {
					return err
				}
				log.Info().Msg("vicictl.reload-settings ok")
				return nil
			})
		},
	}
}

func newInitiateCmd(opts *options) *cobra.Command {
	var child, ike string
	var timeoutMS int
	cmd := &cobra.Command{
		Use:   "initiate",
		Short: "Initiate a CHILD_SA or IKE_SA and follow its log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if child == "" && ike == "" {
				return fmt.Errorf("initiate: --child or --ike is required")
			}
			req := message.New()
			setIf(req, "child", child)
			setIf(req, "ike", ike)
			if timeoutMS > 0 {
				req.Set("timeout", timeoutMS)
			}
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, out *printer) error {
				stream, err := s.Initiate(ctx, req)
				if err != nil {
					return err
				}
				return followControlLog(stream, vici.CmdInitiate, out)
			})
		},
	}
	cmd.Flags().StringVar(&child, "child", "", "CHILD_SA config name")
	cmd.Flags().StringVar(&ike, "ike", "", "IKE_SA config name")
	cmd.Flags().IntVar(&timeoutMS, "timeout", 0, "daemon side timeout in milliseconds, 0 waits for completion")
	return cmd
}

func newTerminateCmd(opts *options) *cobra.Command {
	var child, ike string
	var childID, ikeID uint
	var force bool
	var timeoutMS int
	cmd := &cobra.Command{
		Use:   "terminate",
		Short: "Terminate SAs and follow the log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if child == "" && ike == "" && childID == 0 && ikeID == 0 {
				return fmt.Errorf("terminate: one of --child, --ike, --child-id or --ike-id is required")
			}
			req := message.New()
			setIf(req, "child", child)
			setIf(req, "ike", ike)
			if childID > 0 {
				req.Set("child-id", childID)
			}
			if ikeID > 0 {
				req.Set("ike-id", ikeID)
			}
			if force {
				req.Set("force", true)
			}
			if timeoutMS != 0 {
				req.Set("timeout", timeoutMS)
			}
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, out *printer) error {
				stream, err := s.Terminate(ctx, req)
				if err != nil {
					return err
				}
				return followControlLog(stream, vici.CmdTerminate, out)
			})
		},
	}
	cmd.Flags().StringVar(&child, "child", "", "CHILD_SA config name")
	cmd.Flags().StringVar(&ike, "ike", "", "IKE_SA config name")
	cmd.Flags().UintVar(&childID, "child-id", 0, "CHILD_SA unique id")
	cmd.Flags().UintVar(&ikeID, "ike-id", 0, "IKE_SA unique id")
	cmd.Flags().BoolVar(&force, "force", false, "delete without waiting for the peer")
	cmd.Flags().IntVar(&timeoutMS, "timeout", 0, "daemon side timeout in milliseconds, -1 returns immediately")
	return cmd
}

// followControlLog prints log events as they arrive, then checks the result.
func followControlLog(stream *session.Stream, command string, out *printer) error {
	for ev := range stream.All() {
		if err := out.print(vici.EventControlLog, ev); err != nil {
			return err
		}
	}
	res, err := stream.Result()
	if err != nil {
		return err
	}
	if _, err := vici.CheckSuccess(command, res); err != nil {
		return err
	}
	log.Debug().Msgf("vicictl.%s ok events=%d", command, stream.Delivered())
	return nil
}

// newListCmd builds a streamed list command. primary is the filter key exposed
// as its own flag; other filters go through --set.
func newListCmd(opts *options, use, short, primary, command, event string) *cobra.Command {
	var value string
	var sets []string
	var limit int
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter, err := parseSets(sets)
			if err != nil {
				return err
			}
			setIf(filter, primary, value)
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, out *printer) error {
				stream, err := s.CallStreamed(ctx, command, event, filter)
				if err != nil {
					return err
				}
				printed := 0
				for ev := range stream.All() {
					if err := out.print("", ev); err != nil {
						return err
					}
					printed++
					if limit > 0 && printed >= limit {
						break
					}
				}
				if err := stream.Err(); err != nil {
					return err
				}
				log.Debug().Msgf("vicictl.%s done delivered=%d discarded=%d", use, stream.Delivered(), stream.Discarded())
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&value, primary, "", "filter by "+primary)
	cmd.Flags().StringArrayVar(&sets, "set", nil, "extra filter key=value, repeatable")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many entries, 0 prints all")
	return cmd
}

func newGetConnsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get-conns",
		Short: "List names of loaded connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, out *printer) error {
				conns, err := s.GetConns(ctx)
				if err != nil {
					return err
				}
				return out.printList("conns", conns)
			})
		},
	}
}

func newGetPoolsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "get-pools",
		Short: "List loaded virtual IP pools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, out *printer) error {
				pools, err := s.GetPools(ctx)
				if err != nil {
					return err
				}
				return out.print("", pools)
			})
		},
	}
}

func newLoadConnsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "load-conns FILE",
		Short: "Load connections and pools from a TOML definitions file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defs, err := config.LoadDefinitions(args[0])
			if err != nil {
				return err
			}
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, out *printer) error {
				loaded := message.New()
				var conns, pools []string
				for _, def := range defs.Connections {
					if err := s.LoadConn(ctx, def.Message()); err != nil {
						return fmt.Errorf("load connection %q: %w", def.Name, err)
					}
					conns = append(conns, def.Name)
				}
				for _, def := range defs.Pools {
					if err := s.LoadPool(ctx, def.Message()); err != nil {
						return fmt.Errorf("load pool %q: %w", def.Name, err)
					}
					pools = append(pools, def.Name)
				}
				loaded.Set("conns", conns).Set("pools", pools)
				return out.print("loaded", loaded)
			})
		},
	}
}

func newUnloadConnCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "unload-conn NAME",
		Short: "Unload a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, _ *printer) error {
				if err := s.UnloadConn(ctx, args[0]); err != nil {
					return err
				}
				log.Info().Msgf("vicictl.unload-conn ok name=%q", args[0])
				return nil
			})
		},
	}
}

func newCallCmd(opts *options) *cobra.Command {
	var event string
	var sets []string
	cmd := &cobra.Command{
		Use:   "call COMMAND",
		Short: "Run any command, streaming events when --event is given",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req, err := parseSets(sets)
			if err != nil {
				return err
			}
			command := args[0]
			return opts.run(cmd, func(ctx context.Context, s *vici.Session, out *printer) error {
				if event == "" {
					res, err := s.Call(ctx, command, req)
					if err != nil {
						return err
					}
					return out.print("", res)
				}
				stream, err := s.CallStreamed(ctx, command, event, req)
				if err != nil {
					return err
				}
				for ev := range stream.All() {
					if err := out.print(event, ev); err != nil {
						return err
					}
				}
				res, err := stream.Result()
				if err != nil {
					return err
				}
				return out.print("", res)
			})
		},
	}
	cmd.Flags().StringVar(&event, "event", "", "event stream to subscribe for the call")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "request key=value, repeatable; repeating a key builds a list")
	return cmd
}

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage vicictl config files",
	}
	var kind string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init PATH",
		Short: "Write a config template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.WriteTemplate(args[0], kind, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s config: %s\n", kind, args[0])
			return nil
		},
	}
	initCmd.Flags().StringVar(&kind, "kind", config.KindClient, "template kind: client|definitions")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	configCmd.AddCommand(initCmd)
	return configCmd
}

func setIf(m *message.Message, key, value string) {
	if value != "" {
		m.Set(key, value)
	}
}

// parseSets turns key=value pairs into a request; a repeated key becomes a list.
func parseSets(pairs []string) (*message.Message, error) {
	m := message.New()
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", pair)
		}
		prev, exists := m.Get(key)
		switch p := prev.(type) {
		case string:
			m.Set(key, []string{p, value})
		case []string:
			m.Set(key, append(p, value))
		default:
			if exists {
				return nil, fmt.Errorf("invalid --set %q: key already set", pair)
			}
			m.Set(key, value)
		}
	}
	return m, nil
}
