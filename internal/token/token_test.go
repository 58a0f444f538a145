package token

import "testing"

func TestLookupWord(t *testing.T) {
	tests := []struct {
		word    string
		wantTok Token
		wantTyp LexemType
	}{
		{"Если", If, Identifier},
		{"если", If, Identifier},
		{"ЕСЛИ", If, Identifier},
		{"If", If, Identifier},
		{"КонецЦикла", EndLoop, Identifier},
		{"EndDo", EndLoop, Identifier},
		{"Истина", True, BooleanLiteral},
		{"false", False, BooleanLiteral},
		{"Неопределено", Undefined, UndefinedLiteral},
		{"NULL", Null, NullLiteral},
		{"или", Or, Operator},
		{"Не", Not, Operator},
		{"Сумма", NotAToken, Identifier},
		{"ЁЛКА", NotAToken, Identifier},
	}
	for _, tt := range tests {
		tok, typ := LookupWord(tt.word)
		if tok != tt.wantTok || typ != tt.wantTyp {
			t.Errorf("LookupWord(%q) = (%v, %v), want (%v, %v)", tt.word, tok, typ, tt.wantTok, tt.wantTyp)
		}
	}
}

func TestFold(t *testing.T) {
	if !EqualFold("МояПеременная", "мояпеременная") {
		t.Error("cyrillic identifiers must compare case-insensitively")
	}
	if EqualFold("Ёж", "Еж") {
		t.Error("Ё and Е are different letters")
	}
}

func TestLexemHelpers(t *testing.T) {
	num := Lexem{Type: NumberLiteral, Content: "1"}
	ident := Lexem{Type: Identifier, Token: NotAToken, Content: "А"}
	kw := Lexem{Type: Identifier, Token: If, Content: "Если"}

	if !IsLiteral(num) || IsLiteral(ident) {
		t.Error("IsLiteral misclassifies")
	}
	if !IsUserSymbol(ident) || IsUserSymbol(kw) {
		t.Error("IsUserSymbol misclassifies")
	}
	if !IsBeginOfStatement(If) || IsBeginOfStatement(Plus) {
		t.Error("IsBeginOfStatement misclassifies")
	}
	if !IsComparison(LessOrEqual) || IsComparison(Plus) {
		t.Error("IsComparison misclassifies")
	}
}
