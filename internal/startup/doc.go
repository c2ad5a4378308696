// Package startup provides consistent boot-time and shutdown-time logging
// narration around the daemon's lifecycle.
//
// Configuration itself is loaded by mediascand/internal/config; this
// package only narrates it (banner, system info, resolved values),
// validates library roots, and logs the startup discovery and indexer
// connectivity phases.
//
// # Lifecycle Logging
//
// The package provides structured logging functions for consistent output:
//   - [LogStartup]: banner, system info, and resolved configuration
//   - [LogDiscoveryStart] / [LogDiscoveryComplete]: startup directory walk
//   - [LogConnectivityCheck] / [LogConnectivityEstablished] /
//     [LogConnectivityFailed]: indexer reachability probe
//   - [LogHTTPRoutes]: registered status-server routes (debug level)
//   - [LogServerStarted]: status server endpoint and startup duration
//   - [LogShutdownInitiated] / [LogShutdownStep] / [LogShutdownStepComplete]
//     / [LogShutdownComplete]: graceful shutdown narration
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo]:
//   - Version: Application version
//   - Commit: Git commit hash
//   - BuildTime: Build timestamp
//   - GoVersion: Go compiler version
//
// # Example Usage
//
//	cfg, err := config.Load(configPath)
//	if err != nil {
//	    startup.LogFatal("configuration error: %v", err)
//	}
//	startup.LogStartup(cfg, configPath)
//
//	for _, root := range cfg.LibraryRoots {
//	    if err := startup.CheckLibraryRoot(root.Path); err != nil {
//	        logging.Warn("startup: %v", err)
//	    }
//	}
//
//	startup.LogConnectivityCheck(cfg.PlexURL, timeout)
//	if client.CheckConnectivity(ctx, timeout, retryInterval) {
//	    startup.LogConnectivityEstablished()
//	} else {
//	    startup.LogConnectivityFailed(timeout)
//	}
//
//	// ... discovery, event loop ...
//
//	startup.LogShutdownInitiated("SIGTERM")
//	// ... cleanup ...
//	startup.LogShutdownComplete()
package startup
