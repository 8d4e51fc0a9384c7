// Command bugle is the launcher's entry point: it parses the CLI surface
// (spec.md §6.5), loads the preferences and saved-servers stores, wires the
// event bus, and runs the core subsystems until the UI requests exit.
//
// Grounded on cmd/atlas/main.go's top-level flag parsing and signal-driven
// run loop (pflag.BoolVarP/pflag.Parse, signal.NotifyContext), adapted from
// a long-running server process to a desktop launcher that exits once its
// (out-of-scope) UI closes.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"github.com/vstojkovic/bugle/internal/auth"
	"github.com/vstojkovic/bugle/internal/bugleconfig"
	"github.com/vstojkovic/bugle/internal/bus"
	"github.com/vstojkovic/bugle/internal/directory"
	"github.com/vstojkovic/bugle/internal/merge"
	"github.com/vstojkovic/bugle/internal/savedservers"
)

var opt struct {
	NoPrefetch bool
	LogLevel   string
}

func init() {
	pflag.BoolVar(&opt.NoPrefetch, "no-prefetch", false, "Skip the initial server-directory fetch on startup")
	pflag.StringVarP(&opt.LogLevel, "log-level", "l", "", "Override the log filter (off|trace|debug|info|warning|error|critical)")
}

func main() {
	pflag.Parse()

	cfgPath := bugleconfig.Path()
	bootstrap := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	cfg, err := bugleconfig.Load(bootstrap, cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: load config: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if opt.LogLevel != "" {
		if parsed, err := parseLogLevel(opt.LogLevel); err == nil {
			level = parsed
		} else {
			fmt.Fprintf(os.Stderr, "warning: invalid -l/--log-level %q, using config value\n", opt.LogLevel)
		}
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()

	stateDir := filepath.Dir(cfgPath)
	saved := savedservers.Load(log, filepath.Join(stateDir, "saved_servers.json"))
	userCache := auth.LoadFileCache(filepath.Join(stateDir, "cached_users.json"))

	eventBus := bus.New()
	sender := bus.NewSender()

	dirClient := directory.New(log)
	identity := auth.NewIdentityClient()
	authMgr := auth.New(log, identity, userCache, sender)

	bus.Consume(eventBus, authMgr.HandleLoginComplete)
	bus.Observe(eventBus, func(e bus.UpdateAuthState) {
		log.Debug().Msg("auth state updated")
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if !opt.NoPrefetch {
		log.Info().Str("branch", string(cfg.Branch)).Msg("prefetching server directory")
		prefetch(ctx, log, eventBus, dirClient, saved, cfg)
	}

	log.Info().Msg("bugle core initialized; UI front-end is out of scope for this build")

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			os.Exit(0)
		case <-ticker.C:
			sender.Flush(eventBus)
		}
	}
}

// prefetch runs the Directory Client fetch and Similarity Merger in
// sequence (spec.md §4.5, §4.6), publishing ServersLoaded once complete.
func prefetch(ctx context.Context, log zerolog.Logger, eventBus *bus.Bus, dirClient *directory.Client, saved *savedservers.Store, cfg bugleconfig.Config) {
	servers, err := dirClient.Fetch(ctx, cfg.Branch)
	if err != nil {
		log.Warn().Err(err).Msg("initial directory prefetch failed")
		bus.Publish(eventBus, bus.ServersLoaded{Err: err})
		return
	}

	merged := merge.Merge(log, saved, servers, merge.ScoreHigh, nil, 0)

	log.Info().Int("count", len(merged)).Msg("prefetch complete")
	bus.Publish(eventBus, bus.ServersLoaded{Servers: merged})
}

func parseLogLevel(s string) (zerolog.Level, error) {
	switch s {
	case "off":
		return zerolog.Disabled, nil
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "info":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "critical":
		return zerolog.FatalLevel, nil
	default:
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}
