package lexer

import (
	"strings"
	"unicode"

	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/token"
)

// LexemSource is anything the parser can pull lexems from.
type LexemSource interface {
	NextLexem() token.Lexem
	Iterator() *SourceIterator
}

// Lexer turns source text into lexems on demand.
// Invalid input is reported to the error sink and skipped.
type Lexer struct {
	it   *SourceIterator
	sink diagnostics.ErrorSink
}

func New(code string, sink diagnostics.ErrorSink) *Lexer {
	return NewWithIterator(NewIterator(code), sink)
}

func NewWithIterator(it *SourceIterator, sink diagnostics.ErrorSink) *Lexer {
	if sink == nil {
		sink = diagnostics.NewListErrorSink()
	}
	return &Lexer{it: it, sink: sink}
}

func (l *Lexer) Iterator() *SourceIterator {
	return l.it
}

func (l *Lexer) Sink() diagnostics.ErrorSink {
	return l.sink
}

func (l *Lexer) addError(id diagnostics.ErrorID, pos token.Position, args ...any) {
	l.sink.AddError(diagnostics.New(id, pos, args...))
}

// NextLexem returns the next lexem, skipping whitespace and comments.
func (l *Lexer) NextLexem() token.Lexem {
	for {
		l.it.SkipSpaces()
		if l.it.AtEnd() {
			return token.EndOfTextLexem(l.it.Position())
		}

		ch := l.it.Current()
		switch {
		case ch == '/' && l.it.Peek() == '/':
			l.it.ReadToLineEnd()
			continue
		case isIdentifierStart(ch):
			return l.readWord()
		case unicode.IsDigit(ch):
			return l.readNumber()
		case ch == '"':
			if lex, ok := l.readString(); ok {
				return lex
			}
			continue
		case ch == '\'':
			return l.readDate()
		case ch == '&':
			return l.readPrefixed(token.Annotation)
		case ch == '#':
			return l.readPrefixed(token.PreprocessorDirective)
		case ch == '~':
			return l.readPrefixed(token.Label)
		}

		if lex, ok := l.readOperator(); ok {
			return lex
		}

		l.addError(diagnostics.InvalidCharacter, l.it.Position(), string(ch))
		l.it.MoveNext()
	}
}

// NextLexemOnSameLine returns EndOfText when the next lexem would start on another line.
func (l *Lexer) NextLexemOnSameLine() token.Lexem {
	l.it.SkipLineSpaces()
	if l.it.AtEnd() || l.it.Current() == '\n' {
		return token.EndOfTextLexem(l.it.Position())
	}
	return l.NextLexem()
}

func isIdentifierStart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch)
}

func isIdentifierPart(ch rune) bool {
	return ch == '_' || unicode.IsLetter(ch) || unicode.IsDigit(ch)
}

func (l *Lexer) readIdentifier() string {
	start := l.it.Offset()
	for !l.it.AtEnd() && isIdentifierPart(l.it.Current()) {
		l.it.MoveNext()
	}
	return l.it.Slice(start)
}

func (l *Lexer) readWord() token.Lexem {
	pos := l.it.Position()
	word := l.readIdentifier()
	tok, typ := token.LookupWord(word)
	return token.Lexem{Type: typ, Token: tok, Content: word, Location: pos}
}

func (l *Lexer) readNumber() token.Lexem {
	pos := l.it.Position()
	start := l.it.Offset()
	seenDot := false
	for !l.it.AtEnd() {
		ch := l.it.Current()
		if unicode.IsDigit(ch) {
			l.it.MoveNext()
			continue
		}
		if ch == '.' && !seenDot && unicode.IsDigit(l.it.Peek()) {
			seenDot = true
			l.it.MoveNext()
			continue
		}
		break
	}
	content := l.it.Slice(start)
	if !l.it.AtEnd() && isIdentifierStart(l.it.Current()) {
		bad := content + l.readIdentifier()
		l.addError(diagnostics.InvalidNumber, pos, bad)
	}
	return token.Lexem{Type: token.NumberLiteral, Content: content, Location: pos}
}

// readString reads a string literal. Line breaks inside it must be
// followed by a continuation bar; comment lines in between are skipped.
func (l *Lexer) readString() (token.Lexem, bool) {
	pos := l.it.Position()
	var sb strings.Builder
	l.it.MoveNext() // opening quote

	for {
		if l.it.AtEnd() {
			l.addError(diagnostics.UnclosedString, pos)
			return token.Lexem{}, false
		}
		ch := l.it.Current()
		switch ch {
		case '"':
			l.it.MoveNext()
			if l.it.Current() == '"' {
				sb.WriteRune('"')
				l.it.MoveNext()
				continue
			}
			return token.Lexem{Type: token.StringLiteral, Content: sb.String(), Location: pos}, true
		case '\n':
			if !l.continueString() {
				l.addError(diagnostics.UnclosedString, pos)
				return token.Lexem{}, false
			}
			sb.WriteRune('\n')
		case '\r':
			l.it.MoveNext()
		default:
			sb.WriteRune(ch)
			l.it.MoveNext()
		}
	}
}

// continueString moves past a line break inside a string literal up to
// and including the next continuation bar.
func (l *Lexer) continueString() bool {
	for {
		l.it.MoveNext() // line break
		l.it.SkipLineSpaces()
		if l.it.Current() == '|' {
			l.it.MoveNext()
			return true
		}
		if l.it.Current() == '/' && l.it.Peek() == '/' {
			l.it.ReadToLineEnd()
			if l.it.Current() == '\n' {
				continue
			}
		}
		return false
	}
}

func (l *Lexer) readDate() token.Lexem {
	pos := l.it.Position()
	l.it.MoveNext()
	var digits strings.Builder
	closed := false
	for !l.it.AtEnd() {
		ch := l.it.Current()
		if ch == '\'' {
			l.it.MoveNext()
			closed = true
			break
		}
		if ch == '\n' {
			break
		}
		if unicode.IsDigit(ch) {
			digits.WriteRune(ch)
		}
		l.it.MoveNext()
	}
	content := digits.String()
	if !closed {
		l.addError(diagnostics.UnclosedString, pos)
	} else if n := len(content); n != 8 && n != 12 && n != 14 {
		l.addError(diagnostics.InvalidDate, pos, content)
	}
	return token.Lexem{Type: token.DateLiteral, Content: content, Location: pos}
}

func (l *Lexer) readPrefixed(typ token.LexemType) token.Lexem {
	pos := l.it.Position()
	l.it.MoveNext()
	name := ""
	if !l.it.AtEnd() && isIdentifierStart(l.it.Current()) {
		name = l.readIdentifier()
	} else {
		l.addError(diagnostics.IdentifierExpected, l.it.Position())
	}
	return token.Lexem{Type: typ, Content: name, Location: pos}
}

var singleOperators = map[rune]token.Token{
	'+': token.Plus,
	'-': token.Minus,
	'*': token.Multiply,
	'/': token.Division,
	'%': token.Modulo,
	'=': token.Equal,
	'.': token.Dot,
	',': token.Comma,
	'(': token.OpenPar,
	')': token.ClosePar,
	'[': token.OpenBracket,
	']': token.CloseBracket,
	'?': token.Question,
	':': token.Colon,
}

func (l *Lexer) readOperator() (token.Lexem, bool) {
	pos := l.it.Position()
	ch := l.it.Current()

	if ch == ';' {
		l.it.MoveNext()
		return token.Lexem{Type: token.EndOperator, Token: token.Semicolon, Content: ";", Location: pos}, true
	}

	if ch == '<' || ch == '>' {
		next := l.it.Peek()
		l.it.MoveNext()
		switch {
		case ch == '<' && next == '=':
			l.it.MoveNext()
			return operator(token.LessOrEqual, "<=", pos), true
		case ch == '<' && next == '>':
			l.it.MoveNext()
			return operator(token.NotEqual, "<>", pos), true
		case ch == '>' && next == '=':
			l.it.MoveNext()
			return operator(token.MoreOrEqual, ">=", pos), true
		case ch == '<':
			return operator(token.LessThan, "<", pos), true
		default:
			return operator(token.MoreThan, ">", pos), true
		}
	}

	if tok, ok := singleOperators[ch]; ok {
		l.it.MoveNext()
		return operator(tok, string(ch), pos), true
	}
	return token.Lexem{}, false
}

func operator(tok token.Token, content string, pos token.Position) token.Lexem {
	return token.Lexem{Type: token.Operator, Token: tok, Content: content, Location: pos}
}
