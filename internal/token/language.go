package token

import (
	"sync"

	"golang.org/x/text/cases"
)

var foldPool = sync.Pool{
	New: func() any { return cases.Fold() },
}

// Fold returns the case-folded form of an identifier.
// Identifiers and keywords of the language are case-insensitive.
func Fold(s string) string {
	c := foldPool.Get().(cases.Caser)
	out := c.String(s)
	foldPool.Put(c)
	return out
}

// EqualFold compares two identifiers ignoring case.
func EqualFold(a, b string) bool {
	if a == b {
		return true
	}
	return Fold(a) == Fold(b)
}

type keywordInfo struct {
	tok Token
	typ LexemType
}

var keywords = map[string]keywordInfo{}

func addKeyword(tok Token, typ LexemType, names ...string) {
	for _, name := range names {
		keywords[Fold(name)] = keywordInfo{tok: tok, typ: typ}
	}
}

func init() {
	addKeyword(If, Identifier, "Если", "If")
	addKeyword(Then, Identifier, "Тогда", "Then")
	addKeyword(ElseIf, Identifier, "ИначеЕсли", "ElsIf", "ElseIf")
	addKeyword(Else, Identifier, "Иначе", "Else")
	addKeyword(EndIf, Identifier, "КонецЕсли", "EndIf")
	addKeyword(VarDef, Identifier, "Перем", "Var")
	addKeyword(ByValParam, Identifier, "Знач", "Val")
	addKeyword(Procedure, Identifier, "Процедура", "Procedure")
	addKeyword(EndProcedure, Identifier, "КонецПроцедуры", "EndProcedure")
	addKeyword(Function, Identifier, "Функция", "Function")
	addKeyword(EndFunction, Identifier, "КонецФункции", "EndFunction")
	addKeyword(For, Identifier, "Для", "For")
	addKeyword(Each, Identifier, "Каждого", "Each")
	addKeyword(In, Identifier, "Из", "In")
	addKeyword(To, Identifier, "По", "To")
	addKeyword(While, Identifier, "Пока", "While")
	addKeyword(Loop, Identifier, "Цикл", "Do")
	addKeyword(EndLoop, Identifier, "КонецЦикла", "EndDo")
	addKeyword(Return, Identifier, "Возврат", "Return")
	addKeyword(Continue, Identifier, "Продолжить", "Continue")
	addKeyword(Break, Identifier, "Прервать", "Break")
	addKeyword(Try, Identifier, "Попытка", "Try")
	addKeyword(Exception, Identifier, "Исключение", "Except")
	addKeyword(RaiseException, Identifier, "ВызватьИсключение", "Raise")
	addKeyword(EndTry, Identifier, "КонецПопытки", "EndTry")
	addKeyword(NewObject, Identifier, "Новый", "New")
	addKeyword(Execute, Identifier, "Выполнить", "Execute")
	addKeyword(Export, Identifier, "Экспорт", "Export")
	addKeyword(AddHandler, Identifier, "ДобавитьОбработчик", "AddHandler")
	addKeyword(RemoveHandler, Identifier, "УдалитьОбработчик", "RemoveHandler")
	addKeyword(Goto, Identifier, "Перейти", "Goto")

	addKeyword(True, BooleanLiteral, "Истина", "True")
	addKeyword(False, BooleanLiteral, "Ложь", "False")
	addKeyword(Undefined, UndefinedLiteral, "Неопределено", "Undefined")
	addKeyword(Null, NullLiteral, "Null")

	addKeyword(And, Operator, "И", "And")
	addKeyword(Or, Operator, "ИЛИ", "Or")
	addKeyword(Not, Operator, "НЕ", "Not")
}

// LookupWord classifies a word: keyword, literal word, word operator or identifier.
func LookupWord(word string) (Token, LexemType) {
	if kw, ok := keywords[Fold(word)]; ok {
		return kw.tok, kw.typ
	}
	return NotAToken, Identifier
}

// IsLiteral reports whether the lexem denotes a constant value.
func IsLiteral(l Lexem) bool {
	switch l.Type {
	case NumberLiteral, StringLiteral, DateLiteral, BooleanLiteral, UndefinedLiteral, NullLiteral:
		return true
	}
	return false
}

// IsUserSymbol reports whether the lexem is a plain identifier, not a keyword.
func IsUserSymbol(l Lexem) bool {
	return l.Type == Identifier && l.Token == NotAToken
}

// IsBeginOfStatement reports whether a token may start a statement.
func IsBeginOfStatement(t Token) bool {
	switch t {
	case VarDef, If, For, While, Try, Break, Continue, Return, RaiseException,
		Execute, AddHandler, RemoveHandler, Goto, Procedure, Function:
		return true
	}
	return false
}

// IsEndOfBlockToken reports whether a token closes a structural block.
func IsEndOfBlockToken(t Token) bool {
	switch t {
	case EndIf, EndProcedure, EndFunction, Else, EndLoop, EndTry, EndOfText, ElseIf, Exception:
		return true
	}
	return false
}

// IsComparison reports whether the token is a non-chaining comparison operator.
func IsComparison(t Token) bool {
	switch t {
	case Equal, NotEqual, LessThan, LessOrEqual, MoreThan, MoreOrEqual:
		return true
	}
	return false
}
