package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mediascand.conf")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "does-not-exist.conf"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PlexURL != DefaultPlexURL {
		t.Errorf("PlexURL = %q, want default", cfg.PlexURL)
	}
	if cfg.ScanInterval != DefaultScanInterval {
		t.Errorf("ScanInterval = %d, want default", cfg.ScanInterval)
	}
	if cfg.StartupTimeout != DefaultStartupTimeout {
		t.Errorf("StartupTimeout = %d, want default", cfg.StartupTimeout)
	}
}

func TestLoadParsesAllKeys(t *testing.T) {
	path := writeConfig(t, `
# a comment
plex_url = http://plex.local:32400
plex_token=abc123
scan_interval = 3
startup_timeout=90
log_level = debug
log_file = /var/log/mediascand.log
library_roots = /media/Movies:1, /media/TV:2
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PlexURL != "http://plex.local:32400" {
		t.Errorf("PlexURL = %q", cfg.PlexURL)
	}
	if cfg.PlexToken != "abc123" {
		t.Errorf("PlexToken = %q", cfg.PlexToken)
	}
	if cfg.ScanInterval != 3 {
		t.Errorf("ScanInterval = %d", cfg.ScanInterval)
	}
	if cfg.StartupTimeout != 90 {
		t.Errorf("StartupTimeout = %d", cfg.StartupTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.LogFile != "/var/log/mediascand.log" {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
	if len(cfg.LibraryRoots) != 2 {
		t.Fatalf("LibraryRoots = %+v, want 2 entries", cfg.LibraryRoots)
	}
	if cfg.LibraryRoots[0] != (LibraryRoot{Path: "/media/Movies", SectionID: 1}) {
		t.Errorf("LibraryRoots[0] = %+v", cfg.LibraryRoots[0])
	}
	if cfg.LibraryRoots[1] != (LibraryRoot{Path: "/media/TV", SectionID: 2}) {
		t.Errorf("LibraryRoots[1] = %+v", cfg.LibraryRoots[1])
	}
}

func TestLoadInvalidScanIntervalFallsBackToDefault(t *testing.T) {
	path := writeConfig(t, "scan_interval=-5\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ScanInterval != DefaultScanInterval {
		t.Errorf("ScanInterval = %d, want default %d", cfg.ScanInterval, DefaultScanInterval)
	}
}

func TestLoadInvalidStartupTimeoutFallsBackToDefault(t *testing.T) {
	path := writeConfig(t, "startup_timeout=0\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StartupTimeout != DefaultStartupTimeout {
		t.Errorf("StartupTimeout = %d, want default %d", cfg.StartupTimeout, DefaultStartupTimeout)
	}
}

func TestLoadUnknownKeyIsIgnoredWithWarning(t *testing.T) {
	path := writeConfig(t, "plex_url=http://plex.local:32400\nbogus_key=value\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PlexURL != "http://plex.local:32400" {
		t.Errorf("PlexURL = %q", cfg.PlexURL)
	}
}

func TestLoadNonNumericLibraryRootIsRejected(t *testing.T) {
	path := writeConfig(t, "library_roots=/media/Movies:abc\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.LibraryRoots) != 0 {
		t.Errorf("LibraryRoots = %+v, want empty after rejected entry", cfg.LibraryRoots)
	}
}
