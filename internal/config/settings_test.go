package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "oscript.yaml", `
preprocessor:
  defines: [Сервер, Linux]
compiler:
  debug_code: true
machine:
  trace: true
cache:
  expressions: 16
  image_db: images.db
log:
  level: debug
locale: en
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(s.Preprocessor.Defines) != 2 || s.Preprocessor.Defines[0] != "Сервер" {
		t.Errorf("defines = %v", s.Preprocessor.Defines)
	}
	if !s.Compiler.DebugCode || !s.Machine.Trace {
		t.Errorf("flags not read: %+v %+v", s.Compiler, s.Machine)
	}
	if s.Cache.Expressions != 16 {
		t.Errorf("expressions = %d, want 16", s.Cache.Expressions)
	}
	if s.Cache.ImageDB != filepath.Join(dir, "images.db") {
		t.Errorf("image_db = %q, want it resolved next to the settings file", s.Cache.ImageDB)
	}
	if s.Machine.MaxCallDepth != DefaultMaxCallDepth {
		t.Errorf("max_call_depth default not applied: %d", s.Machine.MaxCallDepth)
	}
	if s.Locale != "en" {
		t.Errorf("locale = %q", s.Locale)
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "oscript.toml", `
locale = "ru"

[preprocessor]
defines = ["Клиент"]

[machine]
max_call_depth = 100

[log]
level = "trace"
format = "json"
`)

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if s.Machine.MaxCallDepth != 100 {
		t.Errorf("max_call_depth = %d", s.Machine.MaxCallDepth)
	}
	if s.Log.Format != "json" || s.Log.Level != "trace" {
		t.Errorf("log = %+v", s.Log)
	}
	if s.Cache.Expressions != DefaultExpressionCacheSize {
		t.Errorf("expressions default not applied: %d", s.Cache.Expressions)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"negative depth", "a.yaml", "machine:\n  max_call_depth: -1\n"},
		{"unknown locale", "b.yaml", "locale: fr\n"},
		{"unknown extension", "c.ini", "x=1\n"},
		{"broken yaml", "d.yaml", "machine: [\n"},
	}

	dir := t.TempDir()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, dir, tt.file, tt.content)
			if _, err := Load(path); err == nil {
				t.Errorf("expected error for %s", tt.name)
			}
		})
	}
}

func TestDiscoverDefaults(t *testing.T) {
	s, err := Discover(t.TempDir())
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}
	if s.Path != "" || s.Cache.Expressions != DefaultExpressionCacheSize {
		t.Errorf("unexpected defaults: %+v", s)
	}
}

func TestTrimSourceExt(t *testing.T) {
	tests := map[string]string{
		"main.os":      "main",
		"lib/Mod.BSL":  "lib/Mod",
		"readme.txt":   "readme.txt",
		"no_extension": "no_extension",
	}
	for in, want := range tests {
		if got := TrimSourceExt(in); got != want {
			t.Errorf("TrimSourceExt(%q) = %q, want %q", in, got, want)
		}
	}
}
