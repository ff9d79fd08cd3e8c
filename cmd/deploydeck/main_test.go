package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/waabox/deploydeck/internal/config"
	"github.com/waabox/deploydeck/internal/git"
)

func TestRememberRepo_DoesNotPersistServerFlag(t *testing.T) {
	t.Setenv("DEPLOYDECK_SERVER", "")
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("server = \"https://deploy.example.com\"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	g := &globals{configPath: path, server: "http://staging:9000"}
	if err := g.load(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.cfg.ServerOrDefault() != "http://staging:9000" {
		t.Fatalf("expected flag to win for this run, got '%s'", g.cfg.ServerOrDefault())
	}

	g.rememberRepo(git.ParseRemoteURL("https://github.com/acme/widgets"))

	persisted, err := config.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if persisted.Server != "https://deploy.example.com" {
		t.Errorf("expected server from file kept, got '%s'", persisted.Server)
	}
	if persisted.LastRepoURL != "https://github.com/acme/widgets" {
		t.Errorf("expected last repo saved, got '%s'", persisted.LastRepoURL)
	}
}
