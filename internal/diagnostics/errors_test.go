package diagnostics

import (
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/oscript/internal/token"
)

func TestDescribeLocales(t *testing.T) {
	defer SetLocale("ru")

	SetLocale("ru")
	if got := Describe(DuplicateVarDefinition, "А"); !strings.Contains(got, "уже определена: А") {
		t.Errorf("ru message = %q", got)
	}

	SetLocale("en")
	if got := Describe(DuplicateVarDefinition, "A"); got != "Variable with the same name already defined: A" {
		t.Errorf("en message = %q", got)
	}
	if got := Describe(SemicolonExpected); got != "Expecting ; (semicolon)" {
		t.Errorf("message without args = %q", got)
	}
}

func TestCodeErrorFormat(t *testing.T) {
	err := New(SemicolonExpected, token.Position{Line: 3, Column: 7})
	err.ModuleName = "main"
	if got := err.Error(); !strings.HasPrefix(got, "{main(3,7)}: ") {
		t.Errorf("Error() = %q", got)
	}
}

func TestCompilationErrorUnwrap(t *testing.T) {
	sink := NewListErrorSink()
	sink.AddError(New(DuplicateMethodDefinition, token.Position{Line: 1, Column: 1}, "А"))
	sink.AddError(New(SymbolNotFound, token.Position{Line: 2, Column: 1}, "Б"))

	err := AsError(sink, "mod")
	var ce *CompilationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *CompilationError, got %T", err)
	}
	if !ce.Has(SymbolNotFound) || ce.Has(UnexpectedEof) {
		t.Error("Has reports wrong ids")
	}
	var code *CodeError
	if !errors.As(err, &code) || code.ID != DuplicateMethodDefinition {
		t.Errorf("errors.As must reach the first code error, got %+v", code)
	}
	if code.ModuleName != "mod" {
		t.Errorf("module name not filled: %q", code.ModuleName)
	}
	if AsError(NewListErrorSink(), "x") != nil {
		t.Error("empty sink must produce nil error")
	}
}
