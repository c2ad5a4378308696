// Command mediascand watches on-disk media-library roots and triggers
// partial rescans of an external media-indexing server when their
// structure changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediascand/internal/config"
	"mediascand/internal/control"
	"mediascand/internal/daemonize"
	"mediascand/internal/dispatcher"
	"mediascand/internal/logging"
	"mediascand/internal/startup"
	"mediascand/internal/statusserver"

	"github.com/spf13/cobra"
)

const (
	statusAddr        = ":9090"
	maxWatches        = 65536
	connRetryInterval = 2 * time.Second
	dispatchTimeout   = 10 * time.Second
)

func main() {
	var (
		configPath     string
		verbose        bool
		daemon         bool
		startupTimeout int
	)

	root := &cobra.Command{
		Use:   "mediascand",
		Short: "Watch media library roots and trigger indexer rescans on change",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, verbose, daemon, startupTimeout)
		},
	}

	root.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigPath, "path to configuration file")
	root.Flags().BoolVarP(&verbose, "verbose", "v", false, "verbose logging to stdout")
	root.Flags().BoolVarP(&daemon, "daemon", "d", false, "run detached in the background")
	root.Flags().IntVarP(&startupTimeout, "startup-timeout", "t", 0, "override startup_timeout (seconds)")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(configPath string, verbose, daemon bool, startupTimeoutOverride int) error {
	startTime := time.Now()

	if verbose {
		os.Setenv("LOG_LEVEL", "debug")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		startup.LogFatal("configuration error: %v", err)
		return err
	}
	if startupTimeoutOverride > 0 {
		cfg.StartupTimeout = startupTimeoutOverride
	}

	if daemon {
		logFile := cfg.LogFile
		if logFile == "" {
			logFile = "/var/log/mediascand.log"
		}
		if err := daemonize.Daemonize(logFile); err != nil {
			startup.LogFatal("daemonize: %v", err)
			return err
		}
	}

	startup.LogStartup(cfg, configPath)

	for _, root := range cfg.LibraryRoots {
		if err := startup.CheckLibraryRoot(root.Path); err != nil {
			logging.Warn("startup: %v", err)
		}
	}

	client := dispatcher.New(cfg.PlexURL, cfg.PlexToken, dispatchTimeout)

	timeout := time.Duration(cfg.StartupTimeout) * time.Second
	startup.LogConnectivityCheck(cfg.PlexURL, timeout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if !client.CheckConnectivity(ctx, timeout, connRetryInterval) {
		startup.LogConnectivityFailed(timeout)
		startup.LogFatal("mediascand: could not reach indexer at %s within %v", cfg.PlexURL, timeout)
		return fmt.Errorf("mediascand: indexer unreachable at %s", cfg.PlexURL)
	}
	startup.LogConnectivityEstablished()

	// Connectivity is confirmed above, so library_roots is only a
	// fallback for a /library/sections call that fails for some other
	// reason (e.g. HTTP error) — not a way to skip the mandatory
	// connectivity check itself.
	sections, err := client.Libraries(ctx)
	if err != nil || len(sections) == 0 {
		logging.Warn("mediascand: /library/sections unavailable, falling back to configured library_roots: %v", err)
		sections = sectionsFromConfig(cfg)
	}
	if len(sections) == 0 {
		startup.LogFatal("mediascand: no library sections available from %s or library_roots config", cfg.PlexURL)
		return fmt.Errorf("mediascand: no library sections available")
	}

	debounce := time.Duration(cfg.ScanInterval) * time.Second
	loop, err := control.New(client, maxWatches, debounce)
	if err != nil {
		startup.LogFatal("mediascand: failed to initialize watcher: %v", err)
		return err
	}
	defer loop.Close()

	startup.LogDiscoveryStart(len(sections))
	discoveryStart := time.Now()
	loop.Bootstrap(sections)
	startup.LogDiscoveryComplete(time.Since(discoveryStart), loop.GetStats().ActiveWatches)

	srv := statusserver.New(statusAddr, loop, loop)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error("mediascand: status server error: %v", err)
		}
	}()
	startup.LogServerStarted(statusAddr, time.Since(startTime))

	daemonize.Ready()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		for sig := range sigCh {
			if sig == syscall.SIGHUP {
				loop.RequestReload()
				continue
			}
			startup.LogShutdownInitiated(sig.String())
			cancel()
			return
		}
	}()

	loop.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	startup.LogShutdownStep("Shutting down status server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Warn("mediascand: status server shutdown error: %v", err)
	} else {
		startup.LogShutdownStepComplete("Status server stopped")
	}

	startup.LogShutdownComplete()
	return nil
}

func sectionsFromConfig(cfg *config.Config) []dispatcher.Section {
	bySectionID := make(map[int][]string)
	var order []int
	for _, r := range cfg.LibraryRoots {
		if _, seen := bySectionID[r.SectionID]; !seen {
			order = append(order, r.SectionID)
		}
		bySectionID[r.SectionID] = append(bySectionID[r.SectionID], r.Path)
	}
	sections := make([]dispatcher.Section, 0, len(order))
	for _, id := range order {
		sections = append(sections, dispatcher.Section{ID: id, Paths: bySectionID[id]})
	}
	return sections
}
