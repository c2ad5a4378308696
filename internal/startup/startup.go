// Package startup provides the boot-time and shutdown-time logging
// narration the teacher prints around its HTTP server lifecycle,
// adapted here to mediascand's own bootstrap sequence: banner, system
// info, resolved configuration, library-root validation, connectivity
// probing, and status-server/shutdown narration.
package startup

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"mediascand/internal/config"
	"mediascand/internal/logging"

	"github.com/gorilla/mux"
	"golang.org/x/term"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// LogStartup prints the banner, system info, and a summary of the
// resolved configuration. Callers invoke it once after config.Load
// succeeds, mirroring the teacher's LoadConfig narration but with the
// actual loading already done by internal/config.
func LogStartup(cfg *config.Config, configPath string) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  config file:       %s", configPath)
	logging.Info("  plex_url:          %s", cfg.PlexURL)
	logging.Info("  plex_token:        %s", maskToken(cfg.PlexToken))
	logging.Info("  scan_interval:     %ds", cfg.ScanInterval)
	logging.Info("  startup_timeout:   %ds", cfg.StartupTimeout)
	logging.Info("  log_level:         %s", cfg.LogLevel)
	logging.Info("  log_file:          %s", orStderr(cfg.LogFile))

	if len(cfg.LibraryRoots) == 0 {
		logging.Info("  library_roots:     none configured (sections will be discovered via %s)", cfg.PlexURL)
	} else {
		logging.Info("  library_roots:     %d configured", len(cfg.LibraryRoots))
		for _, r := range cfg.LibraryRoots {
			logging.Info("    %s -> section %d", r.Path, r.SectionID)
		}
	}
	logging.Info("")
}

func maskToken(token string) string {
	if token == "" {
		return "(none)"
	}
	if len(token) <= 4 {
		return strings.Repeat("*", len(token))
	}
	return strings.Repeat("*", len(token)-4) + token[len(token)-4:]
}

func orStderr(s string) string {
	if s == "" {
		return "(stderr)"
	}
	return s
}

// CheckLibraryRoot validates that path exists, is a directory, and is
// readable. Unlike the teacher's ensureDirectory, this never creates a
// missing directory: a library root is operator-managed media storage,
// not daemon-owned cache/state.
func CheckLibraryRoot(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("library root %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("library root %s: not a directory", path)
	}
	if _, err := os.ReadDir(path); err != nil {
		return fmt.Errorf("library root %s: not readable: %w", path, err)
	}
	return nil
}

// LogDiscoveryStart logs the beginning of startup directory discovery.
func LogDiscoveryStart(roots int) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STARTUP DISCOVERY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Walking %d library root(s)...", roots)
}

// LogDiscoveryComplete logs the result of startup directory discovery.
func LogDiscoveryComplete(duration time.Duration, watchCount int) {
	logging.Info("  [OK] Discovery complete in %v: %d directories registered", duration, watchCount)
}

// LogConnectivityCheck logs the beginning of the indexer connectivity probe.
func LogConnectivityCheck(baseURL string, timeout time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("INDEXER CONNECTIVITY")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Probing %s (timeout %v)...", baseURL, timeout)
}

// LogConnectivityEstablished logs a successful connectivity probe.
func LogConnectivityEstablished() {
	logging.Info("  [OK] Indexer reachable")
}

// LogConnectivityFailed logs a connectivity probe that never succeeded
// within the configured startup_timeout.
func LogConnectivityFailed(timeout time.Duration) {
	logging.Error("  Indexer unreachable after %v", timeout)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			// Route might not have methods specified (e.g., static file server)
			methods = []string{"*"}
		}

		name := route.GetName()

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   name,
			})
		}

		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs the status server's registered HTTP routes.
func LogHTTPRoutes(router *mux.Router) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("STATUS SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })

		logging.Debug("  Registered routes (%d total):", len(routes))
		for _, route := range routes {
			methodPadded := fmt.Sprintf("%-6s", route.Method)
			logging.Debug("    %s %s", methodPadded, route.Path)
		}
	}
}

// LogServerStarted logs the status server coming up.
func LogServerStarted(addr string, startupDuration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("RUNNING")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time: %v", startupDuration)
	logging.Info("  Status server: http://localhost%s", addr)
	logging.Info("  Press Ctrl+C to stop")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	// Skip the ASCII art when stdout isn't a terminal — daemonized runs
	// redirect it to a log file, where the art is just noise.
	if term.IsTerminal(int(os.Stdout.Fd())) {
		banner := `
------------------------------------------------------------
 _ __ ___   ___  __| (_  __ _ ___  ___ __ _ _ __   __| |
| '_ ' _ \ / _ \/ _' | |/ _' / __|/ __/ _' | '_ \ / _' |
| | | | | |  __/ (_| | | (_| \__ \ (_| (_| | | | | (_| |
|_| |_| |_|\___|\__,_|_|\__,_|___/\___\__,_|_| |_|\__,_|

------------------------------------------------------------`
		fmt.Println(banner)
	}
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		logging.Debug("  Goroutines:      %d", runtime.NumGoroutine())

		if wd, err := os.Getwd(); err == nil {
			logging.Debug("  Working dir:     %s", wd)
		}

		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}
