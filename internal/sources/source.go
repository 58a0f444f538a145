// Package sources holds script source text and its origin.
package sources

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/funvibe/oscript/internal/config"
)

// SourceCode is one unit of script text.
type SourceCode struct {
	// Name is the display name, the file name without extension for files.
	Name string
	// Location is the absolute path, or a synthetic name for strings.
	Location string
	Text     string

	lines []string
}

// FromString wraps in-memory code.
func FromString(name, text string) *SourceCode {
	if name == "" {
		name = config.StringSourceName
	}
	return &SourceCode{Name: name, Location: name, Text: text}
}

// FromFile reads and decodes a script file.
func FromFile(path string) (*SourceCode, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	text, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", path, err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return &SourceCode{
		Name:     config.TrimSourceExt(filepath.Base(path)),
		Location: abs,
		Text:     text,
	}, nil
}

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Decode converts raw file bytes to text. A BOM selects UTF-8 or UTF-16;
// without one, valid UTF-8 is kept and anything else is read as Windows-1251.
func Decode(data []byte) (string, error) {
	if bytes.HasPrefix(data, bomUTF8) || bytes.HasPrefix(data, bomUTF16LE) || bytes.HasPrefix(data, bomUTF16BE) {
		out, _, err := transform.Bytes(unicode.BOMOverride(unicode.UTF8.NewDecoder()), data)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	if utf8.Valid(data) {
		return string(data), nil
	}
	out, err := charmap.Windows1251.NewDecoder().Bytes(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Line returns the 1-based source line without its terminator.
func (s *SourceCode) Line(n int) string {
	if s.lines == nil {
		s.lines = strings.Split(strings.ReplaceAll(s.Text, "\r\n", "\n"), "\n")
	}
	if n < 1 || n > len(s.lines) {
		return ""
	}
	return s.lines[n-1]
}
