package daemonize

import (
	"os"
	"testing"
)

func TestDaemonizeReturnsImmediatelyWhenAlreadyChild(t *testing.T) {
	t.Setenv(childEnvVar, "1")

	if err := Daemonize("/nonexistent/path/should/not/be/opened.log"); err != nil {
		t.Fatalf("Daemonize in child mode returned error: %v", err)
	}
}

func TestReadyIsNoOpOutsideDaemonizedChild(t *testing.T) {
	os.Unsetenv(childEnvVar)

	// Must not panic or block when there's no inherited readiness pipe.
	Ready()
}
