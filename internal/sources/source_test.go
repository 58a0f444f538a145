package sources

import (
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
)

func TestDecode(t *testing.T) {
	cp1251, err := charmap.Windows1251.NewEncoder().String("Сообщить(1);")
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tests := []struct {
		name string
		data []byte
		want string
	}{
		{"plain utf8", []byte("А = 1;"), "А = 1;"},
		{"utf8 bom", append([]byte{0xEF, 0xBB, 0xBF}, []byte("Б = 2;")...), "Б = 2;"},
		{"utf16le bom", []byte{0xFF, 0xFE, 'x', 0, '=', 0, '1', 0}, "x=1"},
		{"windows-1251", []byte(cp1251), "Сообщить(1);"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Модуль.os")
	if err := os.WriteFile(path, []byte("А = 1;\r\nБ = 2;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if src.Name != "Модуль" {
		t.Errorf("Name = %q", src.Name)
	}
	if !filepath.IsAbs(src.Location) {
		t.Errorf("Location must be absolute: %q", src.Location)
	}
	if got := src.Line(2); got != "Б = 2;" {
		t.Errorf("Line(2) = %q", got)
	}
	if got := src.Line(10); got != "" {
		t.Errorf("Line(10) = %q, want empty", got)
	}
}

func TestFromStringDefaultsName(t *testing.T) {
	src := FromString("", "x = 1")
	if src.Name == "" || src.Location != src.Name {
		t.Errorf("unexpected source identity: %+v", src)
	}
}
