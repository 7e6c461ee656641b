package main

import (
	"io/fs"
	"strings"
	"testing"

	appmigrations "github.com/wolfman30/doctorhome/migrations"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		args    []string
		wantCmd string
		wantArg string
	}{
		{nil, "up", ""},
		{[]string{"UP"}, "up", ""},
		{[]string{"down"}, "down", ""},
		{[]string{"force", " 2 "}, "force", "2"},
	}
	for _, tt := range tests {
		cmd, arg := parseCommand(tt.args)
		if cmd != tt.wantCmd || arg != tt.wantArg {
			t.Fatalf("parseCommand(%v) = %q, %q; want %q, %q", tt.args, cmd, arg, tt.wantCmd, tt.wantArg)
		}
	}
}

func TestEmbeddedMigrationsArePaired(t *testing.T) {
	entries, err := fs.ReadDir(appmigrations.FS, ".")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	ups, downs := map[string]bool{}, map[string]bool{}
	for _, e := range entries {
		name := e.Name()
		switch {
		case strings.HasSuffix(name, ".up.sql"):
			ups[strings.TrimSuffix(name, ".up.sql")] = true
		case strings.HasSuffix(name, ".down.sql"):
			downs[strings.TrimSuffix(name, ".down.sql")] = true
		}
	}
	if len(ups) < 2 {
		t.Fatalf("expected appointments and outbox migrations, got %v", ups)
	}
	for name := range ups {
		if !downs[name] {
			t.Fatalf("migration %s has no down file", name)
		}
	}
}
