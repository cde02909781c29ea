package runtimepath

import (
	"path/filepath"
	"runtime"
	"strings"
	"testing"
)

func TestDir_UsesHomeOverrideWhenSet(t *testing.T) {
	td := t.TempDir()
	t.Setenv(HomeEnv, td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if got != td {
		t.Fatalf("Dir() = %q, want %q", got, td)
	}
}

func TestDir_FallsBackToUserConfigDir(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("XDG_CONFIG_HOME only applies on linux")
	}
	td := t.TempDir()
	t.Setenv(HomeEnv, "")
	t.Setenv("XDG_CONFIG_HOME", td)

	got, err := Dir()
	if err != nil {
		t.Fatalf("Dir() error: %v", err)
	}
	if want := filepath.Join(td, "persistwin"); got != want {
		t.Fatalf("Dir() = %q, want %q", got, want)
	}
}

func TestConfigDatabaseAndLogPaths(t *testing.T) {
	td := t.TempDir()
	t.Setenv(HomeEnv, td)

	for name, fn := range map[string]func() (string, error){
		"config.yaml":    ConfigPath,
		"placements.db":  DatabasePath,
		"persistwin.log": LogPath,
	} {
		got, err := fn()
		if err != nil {
			t.Fatalf("%s: error: %v", name, err)
		}
		if !strings.HasPrefix(got, td) || filepath.Base(got) != name {
			t.Fatalf("path = %q, want %s under %q", got, name, td)
		}
	}
}
