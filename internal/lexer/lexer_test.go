package lexer

import (
	"testing"

	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/token"
)

func collect(t *testing.T, src LexemSource) []token.Lexem {
	t.Helper()
	var out []token.Lexem
	for i := 0; i < 10000; i++ {
		lex := src.NextLexem()
		if lex.Type == token.EndOfTextType {
			return out
		}
		out = append(out, lex)
	}
	t.Fatal("lexer did not reach end of text")
	return nil
}

func TestNextLexem(t *testing.T) {
	tests := []struct {
		input    string
		expected []token.Lexem
	}{
		{
			"А = 1.5;",
			[]token.Lexem{
				{Type: token.Identifier, Content: "А"},
				{Type: token.Operator, Token: token.Equal, Content: "="},
				{Type: token.NumberLiteral, Content: "1.5"},
				{Type: token.EndOperator, Token: token.Semicolon, Content: ";"},
			},
		},
		{
			"Если а <> б Тогда // comment\nКонецЕсли",
			[]token.Lexem{
				{Type: token.Identifier, Token: token.If, Content: "Если"},
				{Type: token.Identifier, Content: "а"},
				{Type: token.Operator, Token: token.NotEqual, Content: "<>"},
				{Type: token.Identifier, Content: "б"},
				{Type: token.Identifier, Token: token.Then, Content: "Тогда"},
				{Type: token.Identifier, Token: token.EndIf, Content: "КонецЕсли"},
			},
		},
		{
			"x >= 1 И НЕ y",
			[]token.Lexem{
				{Type: token.Identifier, Content: "x"},
				{Type: token.Operator, Token: token.MoreOrEqual, Content: ">="},
				{Type: token.NumberLiteral, Content: "1"},
				{Type: token.Operator, Token: token.And, Content: "И"},
				{Type: token.Operator, Token: token.Not, Content: "НЕ"},
				{Type: token.Identifier, Content: "y"},
			},
		},
		{
			`"say ""hi"""`,
			[]token.Lexem{{Type: token.StringLiteral, Content: `say "hi"`}},
		},
		{
			"\"line1\n  |line2\n  // skipped\n  |line3\"",
			[]token.Lexem{{Type: token.StringLiteral, Content: "line1\nline2\nline3"}},
		},
		{
			"'20240131' '2024-01-31 10:20:30'",
			[]token.Lexem{
				{Type: token.DateLiteral, Content: "20240131"},
				{Type: token.DateLiteral, Content: "20240131102030"},
			},
		},
		{
			"&НаКлиенте ~Метка: Истина Undefined NULL",
			[]token.Lexem{
				{Type: token.Annotation, Content: "НаКлиенте"},
				{Type: token.Label, Content: "Метка"},
				{Type: token.Operator, Token: token.Colon, Content: ":"},
				{Type: token.BooleanLiteral, Token: token.True, Content: "Истина"},
				{Type: token.UndefinedLiteral, Token: token.Undefined, Content: "Undefined"},
				{Type: token.NullLiteral, Token: token.Null, Content: "NULL"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sink := diagnostics.NewListErrorSink()
			got := collect(t, New(tt.input, sink))
			if sink.HasErrors() {
				t.Fatalf("unexpected errors: %v", sink.Errors())
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d lexems, got %d: %v", len(tt.expected), len(got), got)
			}
			for i, exp := range tt.expected {
				g := got[i]
				if g.Type != exp.Type || g.Token != exp.Token || g.Content != exp.Content {
					t.Errorf("lexem %d: expected %v/%v/%q, got %v/%v/%q",
						i, exp.Type, exp.Token, exp.Content, g.Type, g.Token, g.Content)
				}
			}
		})
	}
}

func TestPositions(t *testing.T) {
	l := New("а\n  бв", nil)
	first := l.NextLexem()
	second := l.NextLexem()
	if first.Location.Line != 1 || first.Location.Column != 1 {
		t.Errorf("first at %v", first.Location)
	}
	if second.Location.Line != 2 || second.Location.Column != 3 {
		t.Errorf("second at %v", second.Location)
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		id    diagnostics.ErrorID
	}{
		{`"unterminated`, diagnostics.UnclosedString},
		{"\"first\nsecond\"", diagnostics.UnclosedString},
		{"'2024'", diagnostics.InvalidDate},
		{"a = 1 $ 2", diagnostics.InvalidCharacter},
		{"12abc", diagnostics.InvalidNumber},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sink := diagnostics.NewListErrorSink()
			collect(t, New(tt.input, sink))
			errs := sink.Errors()
			if len(errs) == 0 {
				t.Fatalf("expected %s, got no errors", tt.id)
			}
			if errs[0].ID != tt.id {
				t.Errorf("expected %s, got %s", tt.id, errs[0].ID)
			}
		})
	}
}

func preprocess(t *testing.T, input string, defines ...string) ([]token.Lexem, *diagnostics.ListErrorSink, *ImportHandler) {
	t.Helper()
	sink := diagnostics.NewListErrorSink()
	handlers := DefaultHandlers(defines)
	pl := NewPreprocessingLexer(New(input, sink), handlers...)
	lexems := collect(t, pl)
	return lexems, sink, handlers[2].(*ImportHandler)
}

func contents(lexems []token.Lexem) []string {
	out := make([]string, len(lexems))
	for i, l := range lexems {
		out[i] = l.Content
	}
	return out
}

func TestConditionalCompilation(t *testing.T) {
	src := `#Если Сервер Тогда
a
#ИначеЕсли Клиент ИЛИ Веб Тогда
b
#Иначе
c
#КонецЕсли
d`
	tests := []struct {
		defines  []string
		expected string
	}{
		{[]string{"Сервер"}, "a d"},
		{[]string{"веб"}, "b d"},
		{nil, "c d"},
		{[]string{"Сервер", "Клиент"}, "a d"},
	}
	for _, tt := range tests {
		lexems, sink, _ := preprocess(t, src, tt.defines...)
		if sink.HasErrors() {
			t.Fatalf("defines %v: unexpected errors %v", tt.defines, sink.Errors())
		}
		got := ""
		for i, c := range contents(lexems) {
			if i > 0 {
				got += " "
			}
			got += c
		}
		if got != tt.expected {
			t.Errorf("defines %v: expected %q, got %q", tt.defines, tt.expected, got)
		}
	}
}

func TestNestedConditionalSkipsInner(t *testing.T) {
	src := `#Если НЕ (А И Б) Тогда
x
#Иначе
#Если А Тогда
y
#КонецЕсли
#КонецЕсли
z`
	lexems, sink, _ := preprocess(t, src, "А", "Б")
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Errors())
	}
	got := contents(lexems)
	if len(got) != 2 || got[0] != "y" || got[1] != "z" {
		t.Errorf("expected [y z], got %v", got)
	}
}

func TestDirectiveErrors(t *testing.T) {
	tests := []struct {
		input string
		id    diagnostics.ErrorID
	}{
		{"#Если А Тогда\nx", diagnostics.UnclosedDirective},
		{"#КонецЕсли", diagnostics.DirectiveExpected},
		{"#Область Основная\nx", diagnostics.UnclosedDirective},
		{"#КонецОбласти", diagnostics.DirectiveExpected},
		{"x\n#Использовать lib", diagnostics.MisplacedImportDirective},
		{"#Неизвестная", diagnostics.DirectiveNotSupported},
		{"#Если А\nx\n#КонецЕсли", diagnostics.TokenExpected},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, sink, _ := preprocess(t, tt.input)
			errs := sink.Errors()
			if len(errs) == 0 || errs[0].ID != tt.id {
				t.Errorf("expected %s, got %v", tt.id, errs)
			}
		})
	}
}

func TestImportsAndRegions(t *testing.T) {
	src := `#Использовать "json"
#Использовать asserts
#Область Main
a = 1;
#КонецОбласти`
	lexems, sink, imports := preprocess(t, src)
	if sink.HasErrors() {
		t.Fatalf("unexpected errors: %v", sink.Errors())
	}
	if len(lexems) != 4 {
		t.Errorf("expected 4 code lexems, got %v", contents(lexems))
	}
	if len(imports.Imports) != 2 || imports.Imports[0].Name != "json" || imports.Imports[1].Name != "asserts" {
		t.Errorf("unexpected imports: %+v", imports.Imports)
	}
}
