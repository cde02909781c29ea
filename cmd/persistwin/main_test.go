package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/1broseidon/persistwin/internal/config"
	"github.com/1broseidon/persistwin/internal/platform"
	"github.com/1broseidon/persistwin/internal/store"
	"github.com/1broseidon/persistwin/internal/topology"
	"github.com/1broseidon/persistwin/internal/window"
)

// execute runs the root command with args against an isolated home directory.
func execute(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("PERSISTWIN_HOME", home)
	configPath, databasePath, logLevel = "", "", ""
	jsonOutput, placementsTopology, printDefaults = false, 0, false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func seedStore(t *testing.T, home string) topology.ID {
	t.Helper()
	st, err := store.Open(filepath.Join(home, "placements.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	topo := topology.Topology{Monitors: []platform.Rect{{Left: 0, Top: 0, Right: 1920, Bottom: 1080}}}
	data, err := topo.Canonical()
	if err != nil {
		t.Fatalf("canonical: %v", err)
	}
	id, err := st.Intern(data)
	if err != nil {
		t.Fatalf("intern: %v", err)
	}
	err = st.Upsert(id, window.Identity{ExePath: "/usr/bin/editor", ClassName: "Editor", Title: "notes.txt"},
		platform.Placement{Show: platform.ShowNormal, NormalRect: platform.Rect{Left: 100, Top: 100, Right: 740, Bottom: 580}})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	return id
}

func TestTopologiesCommand(t *testing.T) {
	home := t.TempDir()
	seedStore(t, home)

	out, err := execute(t, home, "topologies")
	if err != nil {
		t.Fatalf("topologies: %v", err)
	}
	if !strings.Contains(out, "FINGERPRINT") || !strings.Contains(out, "(0,0,1920,1080)") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestPlacementsCommandJSON(t *testing.T) {
	home := t.TempDir()
	id := seedStore(t, home)

	out, err := execute(t, home, "placements", "--json", "--topology", "1")
	if err != nil {
		t.Fatalf("placements: %v", err)
	}
	var got []map[string]any
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(got) != 1 {
		t.Fatalf("placements = %v", got)
	}
	if got[0]["exe_path"] != "/usr/bin/editor" || got[0]["show"] != "normal" {
		t.Fatalf("placement = %v", got[0])
	}
	if int64(got[0]["topology_id"].(float64)) != int64(id) {
		t.Fatalf("topology_id = %v, want %d", got[0]["topology_id"], id)
	}
}

func TestPlacementsCommandRejectsNegativeTopology(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "placements", "--topology", "-2"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPlacementsCommandEmpty(t *testing.T) {
	out, err := execute(t, t.TempDir(), "placements")
	if err != nil {
		t.Fatalf("placements: %v", err)
	}
	if !strings.Contains(out, "no placements stored") {
		t.Fatalf("unexpected output: %q", out)
	}
}

func TestConfigCommands(t *testing.T) {
	home := t.TempDir()
	if err := os.WriteFile(filepath.Join(home, "config.yaml"), []byte("log:\n  level: debug\n"), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := execute(t, home, "config", "path")
	if err != nil {
		t.Fatalf("config path: %v", err)
	}
	if strings.TrimSpace(out) != filepath.Join(home, "config.yaml") {
		t.Fatalf("config path = %q", out)
	}

	out, err = execute(t, home, "config", "validate")
	if err != nil || !strings.Contains(out, "config: ok") {
		t.Fatalf("config validate = %q, %v", out, err)
	}

	out, err = execute(t, home, "config", "explain", "log.level")
	if err != nil {
		t.Fatalf("config explain: %v", err)
	}
	if !strings.Contains(out, "log.level: debug") || !strings.Contains(out, "config.yaml:2:") {
		t.Fatalf("config explain output:\n%s", out)
	}

	out, err = execute(t, home, "config", "explain", "restore.async")
	if err != nil {
		t.Fatalf("config explain: %v", err)
	}
	if !strings.Contains(out, "restore.async: true") || !strings.Contains(out, "source: default") {
		t.Fatalf("config explain output:\n%s", out)
	}

	if _, err := execute(t, home, "config", "explain", "log.nope"); err == nil {
		t.Fatalf("expected unknown key error")
	}

	out, err = execute(t, home, "config", "print", "--defaults")
	if err != nil {
		t.Fatalf("config print: %v", err)
	}
	if !strings.Contains(out, "level: "+config.DefaultLogLevel) {
		t.Fatalf("config print --defaults:\n%s", out)
	}
}

func TestLogLevelOverrideIsValidated(t *testing.T) {
	if _, err := execute(t, t.TempDir(), "config", "validate", "--log-level", "loud"); err == nil {
		t.Fatalf("expected invalid --log-level to fail")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer window title", 10, "a longe..."},
		{"héllo wörld", 8, "héllo..."},
		{"abc", 2, "ab"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestRects(t *testing.T) {
	if got := rects(nil); got != "-" {
		t.Errorf("rects(nil) = %q", got)
	}
	got := rects([]platform.Rect{{Right: 10, Bottom: 10}, {Left: 10, Right: 20, Bottom: 10}})
	if got != "(0,0,10,10) (10,0,20,10)" {
		t.Errorf("rects = %q", got)
	}
}
