// Package config loads the daemon's key=value configuration file: a
// small line-oriented format (the tool's own historical format, not
// INI/YAML/TOML) with '#' comments, whitespace-tolerant key/value pairs,
// warn-and-ignore on unknown keys, and a non-fatal missing file that
// falls back to defaults.
package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"mediascand/internal/logging"
)

const (
	DefaultPlexURL        = "http://localhost:32400"
	DefaultScanInterval   = 1
	DefaultStartupTimeout = 60
	DefaultConfigPath     = "/usr/local/etc/mediascand.conf"
)

// LibraryRoot is one statically-configured library root, used to seed
// the Watcher when the indexer's section-listing endpoint is
// unreachable at startup.
type LibraryRoot struct {
	Path      string
	SectionID int
}

// Config is the daemon's resolved configuration.
type Config struct {
	PlexURL        string
	PlexToken      string
	LogFile        string
	ScanInterval   int // seconds
	StartupTimeout int // seconds
	LogLevel       string
	LibraryRoots   []LibraryRoot
}

// Default returns a Config populated with the tool's built-in defaults.
func Default() *Config {
	return &Config{
		PlexURL:        DefaultPlexURL,
		ScanInterval:   DefaultScanInterval,
		StartupTimeout: DefaultStartupTimeout,
		LogLevel:       "info",
	}
}

// Load reads path and returns a Config, falling back to defaults for any
// key not present. A missing file is not an error: it's logged and
// defaults are used.
func Load(path string) (*Config, error) {
	cfg := Default()

	logging.Info("config: loading from %s", path)

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			logging.Warn("config: could not open %s: %v", path, err)
			logging.Info("config: using default configuration")
			return cfg, nil
		}
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		sep := strings.IndexByte(line, '=')
		if sep < 0 {
			continue
		}
		key := strings.TrimSpace(line[:sep])
		value := strings.TrimSpace(line[sep+1:])

		if err := cfg.apply(key, value); err != nil {
			logging.Warn("config: %v", err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	logging.Info("config: loaded successfully")
	cfg.validate()
	return cfg, nil
}

func (c *Config) apply(key, value string) error {
	switch key {
	case "plex_url":
		c.PlexURL = value
	case "plex_token":
		c.PlexToken = value
	case "scan_interval":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid scan_interval %q: %w", value, err)
		}
		c.ScanInterval = n
	case "startup_timeout":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid startup_timeout %q: %w", value, err)
		}
		c.StartupTimeout = n
	case "log_level":
		switch strings.ToLower(value) {
		case "debug", "info":
			c.LogLevel = strings.ToLower(value)
		default:
			return fmt.Errorf("invalid log_level %q, using default", value)
		}
	case "log_file":
		c.LogFile = value
	case "library_roots":
		roots, err := parseLibraryRoots(value)
		if err != nil {
			return fmt.Errorf("invalid library_roots: %w", err)
		}
		c.LibraryRoots = roots
	default:
		return fmt.Errorf("unknown configuration option: %s", key)
	}
	return nil
}

// parseLibraryRoots parses a comma-separated list of "path:section_id"
// pairs, e.g. "/media/Movies:1,/media/TV:2".
func parseLibraryRoots(value string) ([]LibraryRoot, error) {
	var roots []LibraryRoot
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		idx := strings.LastIndexByte(part, ':')
		if idx < 0 {
			return nil, fmt.Errorf("entry %q missing :section_id", part)
		}
		path := strings.TrimSpace(part[:idx])
		idStr := strings.TrimSpace(part[idx+1:])
		id, err := strconv.Atoi(idStr)
		if err != nil {
			return nil, fmt.Errorf("entry %q has non-numeric section id: %w", part, err)
		}
		roots = append(roots, LibraryRoot{Path: path, SectionID: id})
	}
	return roots, nil
}

func (c *Config) validate() {
	if c.PlexToken == "" {
		logging.Warn("config: no plex_token provided")
	}
	if c.StartupTimeout <= 0 {
		logging.Warn("config: invalid startup_timeout (%d), using default of %ds", c.StartupTimeout, DefaultStartupTimeout)
		c.StartupTimeout = DefaultStartupTimeout
	}
	if c.ScanInterval <= 0 {
		logging.Warn("config: invalid scan_interval (%d), using default of %ds", c.ScanInterval, DefaultScanInterval)
		c.ScanInterval = DefaultScanInterval
	}
}
