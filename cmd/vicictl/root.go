package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/danmuck/vicictl/internal/auth"
	"github.com/danmuck/vicictl/internal/config"
	"github.com/danmuck/vicictl/internal/logging"
	"github.com/danmuck/vicictl/internal/observability"
	"github.com/danmuck/vicictl/internal/protocol/session"
	"github.com/danmuck/vicictl/internal/vici"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// options holds persistent flag values; cfg is resolved before every command runs.
type options struct {
	configPath  string
	network     string
	address     string
	output      string
	logLevel    string
	metricsAddr string
	metricsTok  string
	metricsFile string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "vicictl",
		Short:         "vicictl talks to an IKE daemon over its VICI socket",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.resolve(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "path to a vicictl TOML config")
	flags.StringVar(&opts.network, "network", "", "socket network: unix|tcp")
	flags.StringVar(&opts.address, "socket", "", "socket path or host:port")
	flags.StringVarP(&opts.output, "output", "o", "", "output format: yaml|json")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level: trace|debug|info|warn|error|off")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address while running")
	flags.StringVar(&opts.metricsTok, "metrics-token", "", "bearer token required on /metrics")
	flags.StringVar(&opts.metricsFile, "metrics-token-file", "", "file holding the /metrics bearer token, read per request")

	root.AddCommand(
		newVersionCmd(opts),
		newStatsCmd(opts),
		newReloadSettingsCmd(opts),
		newInitiateCmd(opts),
		newTerminateCmd(opts),
		newListCmd(opts, "list-sas", "List IKE_SAs", "ike", vici.CmdListSAs, vici.EventListSA),
		newListCmd(opts, "list-conns", "List loaded connections", "ike", vici.CmdListConns, vici.EventListConn),
		newListCmd(opts, "list-policies", "List trap/shunt policies", "child", vici.CmdListPolicies, vici.EventListPolicy),
		newListCmd(opts, "list-certs", "List loaded certificates", "type", vici.CmdListCerts, vici.EventListCert),
		newGetConnsCmd(opts),
		newGetPoolsCmd(opts),
		newLoadConnsCmd(opts),
		newUnloadConnCmd(opts),
		newCallCmd(opts),
		newConfigCmd(),
	)
	return root
}

func (o *options) resolve(cmd *cobra.Command) error {
	cfg := config.Default()
	if strings.TrimSpace(o.configPath) != "" {
		loaded, err := config.Load(o.configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("network") {
		cfg.Network = strings.ToLower(strings.TrimSpace(o.network))
	}
	if flags.Changed("socket") {
		cfg.Address = strings.TrimSpace(o.address)
	}
	if flags.Changed("output") {
		cfg.Output = strings.ToLower(strings.TrimSpace(o.output))
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = strings.TrimSpace(o.metricsAddr)
	}
	if flags.Changed("metrics-token") {
		cfg.MetricsToken = strings.TrimSpace(o.metricsTok)
	}
	if flags.Changed("metrics-token-file") {
		cfg.MetricsTokenFile = strings.TrimSpace(o.metricsFile)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(cfg.LogLevel) != "" {
		if err := logging.SetLevel(cfg.LogLevel); err != nil {
			return err
		}
	}
	o.cfg = cfg
	return nil
}

// withSession dials, runs fn and tears everything down. SIGINT cancels ctx.
func (o *options) withSession(cmd *cobra.Command, fn func(ctx context.Context, s *vici.Session) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	metrics := observability.DefaultSessionMetrics()
	if o.cfg.MetricsAddr != "" {
		shutdown, err := serveMetrics(o.cfg.MetricsAddr, metricsGuard(o.cfg))
		if err != nil {
			return err
		}
		defer shutdown()
	}

	s, err := vici.Dial(ctx, o.cfg,
		session.WithLogger(logging.Component("session")),
		session.WithRecorder(metrics),
	)
	if err != nil {
		return err
	}
	defer s.Close()
	return fn(ctx, s)
}

// metricsGuard picks the /metrics validator; nil leaves the endpoint open.
func metricsGuard(cfg config.Config) auth.Validator {
	switch {
	case cfg.MetricsTokenFile != "":
		return auth.TokenFile(cfg.MetricsTokenFile)
	case cfg.MetricsToken != "":
		return auth.StaticToken{Token: cfg.MetricsToken}
	default:
		return nil
	}
}

func serveMetrics(addr string, guard auth.Validator) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	srv := &http.Server{
		Handler:           observability.MetricsHandler(logging.Component("metrics"), prometheus.DefaultGatherer, guard),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Warn().Msgf("vicictl.serveMetrics stopped addr=%q err=%v", addr, err)
		}
	}()
	log.Info().Msgf("vicictl.serveMetrics listening addr=%q", ln.Addr().String())
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
