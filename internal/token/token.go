package token

import "fmt"

// Token identifies keywords and operators. Plain identifiers carry NotAToken.
type Token int

const (
	NotAToken Token = iota

	// Keywords
	If
	Then
	ElseIf
	Else
	EndIf
	VarDef
	ByValParam
	Procedure
	EndProcedure
	Function
	EndFunction
	For
	Each
	In
	To
	While
	Loop
	EndLoop
	Return
	Continue
	Break
	Try
	Exception
	RaiseException
	EndTry
	NewObject
	Execute
	Export
	AddHandler
	RemoveHandler
	Goto

	// Literal words
	True
	False
	Undefined
	Null

	// Operators
	Plus
	Minus
	Multiply
	Division
	Modulo
	Equal
	LessThan
	LessOrEqual
	MoreThan
	MoreOrEqual
	NotEqual
	And
	Or
	Not
	Dot
	OpenPar
	ClosePar
	OpenBracket
	CloseBracket
	Comma
	Semicolon
	Colon
	Question

	EndOfText
)

var tokenNames = map[Token]string{
	NotAToken:      "<identifier>",
	If:             "Если",
	Then:           "Тогда",
	ElseIf:         "ИначеЕсли",
	Else:           "Иначе",
	EndIf:          "КонецЕсли",
	VarDef:         "Перем",
	ByValParam:     "Знач",
	Procedure:      "Процедура",
	EndProcedure:   "КонецПроцедуры",
	Function:       "Функция",
	EndFunction:    "КонецФункции",
	For:            "Для",
	Each:           "Каждого",
	In:             "Из",
	To:             "По",
	While:          "Пока",
	Loop:           "Цикл",
	EndLoop:        "КонецЦикла",
	Return:         "Возврат",
	Continue:       "Продолжить",
	Break:          "Прервать",
	Try:            "Попытка",
	Exception:      "Исключение",
	RaiseException: "ВызватьИсключение",
	EndTry:         "КонецПопытки",
	NewObject:      "Новый",
	Execute:        "Выполнить",
	Export:         "Экспорт",
	AddHandler:     "ДобавитьОбработчик",
	RemoveHandler:  "УдалитьОбработчик",
	Goto:           "Перейти",
	True:           "Истина",
	False:          "Ложь",
	Undefined:      "Неопределено",
	Null:           "NULL",
	Plus:           "+",
	Minus:          "-",
	Multiply:       "*",
	Division:       "/",
	Modulo:         "%",
	Equal:          "=",
	LessThan:       "<",
	LessOrEqual:    "<=",
	MoreThan:       ">",
	MoreOrEqual:    ">=",
	NotEqual:       "<>",
	And:            "И",
	Or:             "ИЛИ",
	Not:            "НЕ",
	Dot:            ".",
	OpenPar:        "(",
	ClosePar:       ")",
	OpenBracket:    "[",
	CloseBracket:   "]",
	Comma:          ",",
	Semicolon:      ";",
	Colon:          ":",
	Question:       "?",
	EndOfText:      "<EOF>",
}

func (t Token) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", int(t))
}

// LexemType classifies a lexem independently of the exact token.
type LexemType int

const (
	NotALexem LexemType = iota
	Identifier
	NumberLiteral
	StringLiteral
	DateLiteral
	BooleanLiteral
	UndefinedLiteral
	NullLiteral
	Operator
	EndOperator
	Annotation
	PreprocessorDirective
	Label
	Comment
	EndOfTextType
)

var lexemTypeNames = [...]string{
	NotALexem:             "NotALexem",
	Identifier:            "Identifier",
	NumberLiteral:         "NumberLiteral",
	StringLiteral:         "StringLiteral",
	DateLiteral:           "DateLiteral",
	BooleanLiteral:        "BooleanLiteral",
	UndefinedLiteral:      "UndefinedLiteral",
	NullLiteral:           "NullLiteral",
	Operator:              "Operator",
	EndOperator:           "EndOperator",
	Annotation:            "Annotation",
	PreprocessorDirective: "PreprocessorDirective",
	Label:                 "Label",
	Comment:               "Comment",
	EndOfTextType:         "EndOfText",
}

func (t LexemType) String() string {
	if int(t) < len(lexemTypeNames) {
		return lexemTypeNames[t]
	}
	return fmt.Sprintf("LexemType(%d)", int(t))
}

// Position is a 1-based location in source text.
type Position struct {
	Line   int
	Column int
	Offset int
}

func (p Position) String() string {
	return fmt.Sprintf("%d:%d", p.Line, p.Column)
}

// IsValid reports whether the position points into real source text.
func (p Position) IsValid() bool {
	return p.Line > 0
}

// Lexem is one unit produced by the lexer.
type Lexem struct {
	Type     LexemType
	Token    Token
	Content  string
	Location Position
}

func (l Lexem) String() string {
	if l.Type == EndOfTextType {
		return "<EOF>"
	}
	return fmt.Sprintf("%s(%q) at %s", l.Type, l.Content, l.Location)
}

// EndOfTextLexem is returned once the source is exhausted.
func EndOfTextLexem(pos Position) Lexem {
	return Lexem{Type: EndOfTextType, Token: EndOfText, Location: pos}
}
