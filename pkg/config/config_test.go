package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errs "github.com/matzehuels/flowmaker/pkg/errors"
	"github.com/matzehuels/flowmaker/pkg/pipeline"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[layout]
mode = "snap"
cell_width = 200

[cache]
ttl = "36h"

[cache.redis]
addr = "localhost:6379"
db = 2

[server]
addr = ":9000"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Layout.Mode != pipeline.ModeSnap {
		t.Errorf("mode = %q", cfg.Layout.Mode)
	}
	if cfg.Layout.CellWidth != 200 {
		t.Errorf("cell width = %v", cfg.Layout.CellWidth)
	}
	if cfg.Layout.CellHeight != pipeline.DefaultCellHeight {
		t.Errorf("cell height = %v, want default %v", cfg.Layout.CellHeight, pipeline.DefaultCellHeight)
	}
	if cfg.Cache.TTL.Duration != 36*time.Hour {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Cache.Redis.Addr != "localhost:6379" || cfg.Cache.Redis.DB != 2 {
		t.Errorf("redis = %+v", cfg.Cache.Redis)
	}
	if cfg.Server.Addr != ":9000" {
		t.Errorf("server addr = %q", cfg.Server.Addr)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		code    errs.Code
		want    string
	}{
		{"syntax", "[layout\n", errs.ErrCodeInvalidFormat, ""},
		{"unknown key", "[layout]\ncell_size = 3\n", errs.ErrCodeInvalidFormat, "layout.cell_size"},
		{"bad duration", "[cache]\nttl = \"soon\"\n", errs.ErrCodeInvalidFormat, ""},
		{"bad mode", "[layout]\nmode = \"spiral\"\n", errs.ErrCodeInvalidInput, "invalid mode"},
		{"zero cell", "[layout]\ncell_width = 0\n", errs.ErrCodeInvalidInput, "cell size"},
		{"negative ttl", "[cache]\nttl = \"-1h\"\n", errs.ErrCodeInvalidInput, "ttl"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			if !errs.Is(err, tt.code) {
				t.Fatalf("Load error = %v, want code %s", err, tt.code)
			}
			if tt.want != "" && !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDefaultPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/tmp/xdg")
	got, err := DefaultPath()
	if err != nil {
		t.Fatal(err)
	}
	if want := filepath.Join("/tmp/xdg", AppName, "config.toml"); got != want {
		t.Errorf("DefaultPath() = %q, want %q", got, want)
	}
}

func TestDefaultValidates(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default().Validate() = %v", err)
	}
}
