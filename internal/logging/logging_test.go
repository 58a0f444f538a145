package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/funvibe/oscript/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"trace", zerolog.TraceLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{"off", zerolog.Disabled},
		{"nonsense", zerolog.WarnLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogSettings{Level: "debug", Format: "json"}, &buf)
	log.Debug().Str("module", "main.os").Msg("compiled")
	log.Trace().Msg("hidden")

	out := buf.String()
	if !strings.Contains(out, `"module":"main.os"`) {
		t.Errorf("expected structured field in output, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Errorf("trace message must be filtered at debug level: %q", out)
	}
}

func TestNewDisabled(t *testing.T) {
	var buf bytes.Buffer
	log := New(config.LogSettings{Level: "disabled"}, &buf)
	log.Error().Msg("nothing")
	if buf.Len() != 0 {
		t.Errorf("disabled logger wrote %q", buf.String())
	}
}

func TestBufferIsNotTerminal(t *testing.T) {
	if IsTerminal(&bytes.Buffer{}) {
		t.Error("buffer must not be a terminal")
	}
}
