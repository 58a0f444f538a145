package main

import (
	"bytes"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/funvibe/oscript/internal/config"
)

// buildBinary compiles the command once for the functional tests.
func buildBinary(t *testing.T) string {
	t.Helper()
	binaryPath := filepath.Join(t.TempDir(), "oscript-test-binary")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if output, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("Failed to build binary: %v\n%s", err, output)
	}
	return binaryPath
}

func runBinary(t *testing.T, binary string, args ...string) (string, string, error) {
	t.Helper()
	cmd := exec.Command(binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// TestFunctional runs testdata scripts through the compiled binary
// and compares output with .want files.
func TestFunctional(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binary := buildBinary(t)

	var testFiles []string
	err := filepath.Walk("testdata", func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		for _, ext := range config.SourceFileExtensions {
			if strings.HasSuffix(path, ext) {
				if _, err := os.Stat(strings.TrimSuffix(path, ext) + ".want"); err == nil {
					testFiles = append(testFiles, path)
				}
				break
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk testdata: %v", err)
	}
	if len(testFiles) == 0 {
		t.Skip("No test files with .want found")
	}

	for _, testFile := range testFiles {
		testName := strings.TrimSuffix(filepath.Base(testFile), filepath.Ext(testFile))
		t.Run(testName, func(t *testing.T) {
			wantBytes, err := os.ReadFile(strings.TrimSuffix(testFile, filepath.Ext(testFile)) + ".want")
			if err != nil {
				t.Fatalf("Failed to read .want file: %v", err)
			}
			stdout, stderr, err := runBinary(t, binary, testFile)
			if err != nil {
				t.Fatalf("%v\n%s", err, stderr)
			}

			got := strings.TrimSpace(strings.ReplaceAll(stdout, "\r\n", "\n"))
			want := strings.TrimSpace(strings.ReplaceAll(string(wantBytes), "\r\n", "\n"))
			if got != want {
				t.Errorf("Output mismatch:\n--- want ---\n%s\n--- got ---\n%s", want, got)
			}
		})
	}
}

func TestFlags(t *testing.T) {
	if testing.Short() {
		t.Skip("builds the binary")
	}
	binary := buildBinary(t)
	script := filepath.Join("testdata", "preprocessor.os")

	t.Run("define", func(t *testing.T) {
		stdout, stderr, err := runBinary(t, binary, "-D", "Отладка", script)
		if err != nil {
			t.Fatalf("%v\n%s", err, stderr)
		}
		if strings.TrimSpace(stdout) != "отладка" {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("check", func(t *testing.T) {
		stdout, _, err := runBinary(t, binary, "-check", script)
		if err != nil || stdout != "" {
			t.Errorf("check ran the script or failed: %q, %v", stdout, err)
		}
	})

	t.Run("disasm", func(t *testing.T) {
		stdout, _, err := runBinary(t, binary, "-disasm", filepath.Join("testdata", "fib.os"))
		if err != nil || !strings.Contains(stdout, "RETURN") {
			t.Errorf("listing: %v\n%s", err, stdout)
		}
	})

	t.Run("ast", func(t *testing.T) {
		stdout, _, err := runBinary(t, binary, "-ast", filepath.Join("testdata", "fib.os"))
		if err != nil || stdout == "" {
			t.Errorf("ast dump: %v\n%s", err, stdout)
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "bad.os")
		if err := os.WriteFile(bad, []byte("Если Тогда\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		_, stderr, err := runBinary(t, binary, bad)
		if err == nil || stderr == "" {
			t.Errorf("broken script accepted: %v %q", err, stderr)
		}
	})

	t.Run("config", func(t *testing.T) {
		cfg := filepath.Join(t.TempDir(), "oscript.yaml")
		if err := os.WriteFile(cfg, []byte("preprocessor:\n  defines: [Отладка]\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		stdout, stderr, err := runBinary(t, binary, "-config", cfg, script)
		if err != nil {
			t.Fatalf("%v\n%s", err, stderr)
		}
		if strings.TrimSpace(stdout) != "отладка" {
			t.Errorf("stdout = %q", stdout)
		}
	})
}
