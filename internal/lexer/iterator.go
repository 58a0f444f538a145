package lexer

import (
	"unicode"

	"github.com/funvibe/oscript/internal/token"
)

// SourceIterator walks source text rune by rune and tracks the position.
// Several lexers may share one iterator, which is how directive handlers
// read the remainder of a directive line with their own rules.
type SourceIterator struct {
	text   []rune
	pos    int
	line   int
	column int
}

func NewIterator(code string) *SourceIterator {
	return &SourceIterator{text: []rune(code), line: 1, column: 1}
}

// Current returns the rune under the cursor, or 0 at the end.
func (it *SourceIterator) Current() rune {
	if it.pos >= len(it.text) {
		return 0
	}
	return it.text[it.pos]
}

// Peek returns the rune after the cursor, or 0.
func (it *SourceIterator) Peek() rune {
	if it.pos+1 >= len(it.text) {
		return 0
	}
	return it.text[it.pos+1]
}

func (it *SourceIterator) AtEnd() bool {
	return it.pos >= len(it.text)
}

// MoveNext advances by one rune. Returns false at the end of text.
func (it *SourceIterator) MoveNext() bool {
	if it.pos >= len(it.text) {
		return false
	}
	if it.text[it.pos] == '\n' {
		it.line++
		it.column = 1
	} else {
		it.column++
	}
	it.pos++
	return it.pos < len(it.text)
}

// SkipSpaces moves over whitespace including line breaks.
func (it *SourceIterator) SkipSpaces() {
	for !it.AtEnd() && unicode.IsSpace(it.Current()) {
		it.MoveNext()
	}
}

// SkipLineSpaces moves over whitespace without crossing a line break.
func (it *SourceIterator) SkipLineSpaces() {
	for !it.AtEnd() && it.Current() != '\n' && unicode.IsSpace(it.Current()) {
		it.MoveNext()
	}
}

// ReadToLineEnd returns the rest of the current line and stops on the line break.
func (it *SourceIterator) ReadToLineEnd() string {
	start := it.pos
	for !it.AtEnd() && it.Current() != '\n' {
		it.MoveNext()
	}
	end := it.pos
	if end > start && it.text[end-1] == '\r' {
		end--
	}
	return string(it.text[start:end])
}

// Slice returns text between an earlier offset and the cursor.
func (it *SourceIterator) Slice(from int) string {
	if from < 0 || from > it.pos {
		return ""
	}
	return string(it.text[from:it.pos])
}

func (it *SourceIterator) Position() token.Position {
	return token.Position{Line: it.line, Column: it.column, Offset: it.pos}
}

func (it *SourceIterator) Offset() int {
	return it.pos
}
