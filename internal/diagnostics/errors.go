// Package diagnostics defines compile-time errors and the sinks that collect them.
package diagnostics

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/funvibe/oscript/internal/token"
)

// ErrorID names a class of compile error independently of its text.
type ErrorID string

// Lexical and syntax errors
const (
	InvalidCharacter         ErrorID = "InvalidCharacter"
	UnclosedString           ErrorID = "UnclosedString"
	InvalidDate              ErrorID = "InvalidDate"
	InvalidNumber            ErrorID = "InvalidNumber"
	UnexpectedOperation      ErrorID = "UnexpectedOperation"
	SemicolonExpected        ErrorID = "SemicolonExpected"
	ExpressionExpected       ErrorID = "ExpressionExpected"
	ExpressionSyntax         ErrorID = "ExpressionSyntax"
	IdentifierExpected       ErrorID = "IdentifierExpected"
	TokenExpected            ErrorID = "TokenExpected"
	LiteralExpected          ErrorID = "LiteralExpected"
	NumberExpected           ErrorID = "NumberExpected"
	UnexpectedEof            ErrorID = "UnexpectedEof"
	LateVarDefinition        ErrorID = "LateVarDefinition"
	ExportedLocalVar         ErrorID = "ExportedLocalVar"
	MisplacedAnnotation      ErrorID = "MisplacedAnnotation"
	FuncEmptyReturnValue     ErrorID = "FuncEmptyReturnValue"
	ProcReturnsAValue        ErrorID = "ProcReturnsAValue"
	ReturnOutsideOfMethod    ErrorID = "ReturnOutsideOfMethod"
	BreakOutsideOfLoop       ErrorID = "BreakOutsideOfLoop"
	ContinueOutsideOfLoop    ErrorID = "ContinueOutsideOfLoop"
	WrongAssignment          ErrorID = "WrongAssignment"
	DirectiveNotSupported    ErrorID = "DirectiveNotSupported"
	DirectiveExpected        ErrorID = "DirectiveExpected"
	UnclosedDirective        ErrorID = "UnclosedDirective"
	MisplacedImportDirective ErrorID = "MisplacedImportDirective"
)

// Binding errors
const (
	DuplicateVarDefinition    ErrorID = "DuplicateVarDefinition"
	DuplicateMethodDefinition ErrorID = "DuplicateMethodDefinition"
	DuplicateLabelDefinition  ErrorID = "DuplicateLabelDefinition"
	LabelNotFound             ErrorID = "LabelNotFound"
	SymbolNotFound            ErrorID = "SymbolNotFound"
	MethodNotFound            ErrorID = "MethodNotFound"
	UseProcAsFunction         ErrorID = "UseProcAsFunction"
	TooManyArgumentsPassed    ErrorID = "TooManyArgumentsPassed"
	TooFewArgumentsPassed     ErrorID = "TooFewArgumentsPassed"
	WrongHandlerName          ErrorID = "WrongHandlerName"
	WrongEventName            ErrorID = "WrongEventName"
	BuiltinAsProcedure        ErrorID = "BuiltinAsProcedure"
)

type message struct {
	ru, en string
}

var messages = map[ErrorID]message{
	InvalidCharacter:          {"Недопустимый символ %q", "Invalid character %q"},
	UnclosedString:            {"Незавершенный строковый литерал", "Unterminated string literal"},
	InvalidDate:               {"Некорректный литерал даты %q", "Invalid date literal %q"},
	InvalidNumber:             {"Некорректный числовой литерал %q", "Invalid number literal %q"},
	UnexpectedOperation:       {"Неизвестная операция", "Unexpected operation"},
	SemicolonExpected:         {"Ожидается символ ; (точка с запятой)", "Expecting ; (semicolon)"},
	ExpressionExpected:        {"Ожидается выражение", "Expression expected"},
	ExpressionSyntax:          {"Ошибка в выражении", "Expression syntax error"},
	IdentifierExpected:        {"Ожидается идентификатор", "Identifier expected"},
	TokenExpected:             {"Ожидается символ: %s", "Expecting symbol: %s"},
	LiteralExpected:           {"Ожидается константа", "Constant expected"},
	NumberExpected:            {"Ожидается числовая константа", "Numeric constant expected"},
	UnexpectedEof:             {"Неожиданный конец модуля", "Unexpected end of text"},
	LateVarDefinition:         {"Объявления переменных должны быть расположены в начале модуля, процедуры или функции", "Variable declarations must be placed at beginning of module, procedure, or function"},
	ExportedLocalVar:          {"Локальная переменная не может быть экспортирована (%s)", "Local variable can't be exported (%s)"},
	MisplacedAnnotation:       {"Аннотация может применяться только к методу или переменной", "Annotation may be applied only to a method or a variable"},
	FuncEmptyReturnValue:      {"Функция должна возвращать значение", "Function should return a value"},
	ProcReturnsAValue:         {"Процедура не может возвращать значение", "Procedure can't return a value"},
	ReturnOutsideOfMethod:     {"Оператор \"Возврат\" (Return) может использоваться только внутри метода", "Return operator may not be used outside procedure or function"},
	BreakOutsideOfLoop:        {"Оператор \"Прервать\" (Break) может использоваться только внутри цикла", "Break operator may be used only within loop"},
	ContinueOutsideOfLoop:     {"Оператор \"Продолжить\" (Continue) может использоваться только внутри цикла", "Continue operator may be used only within loop"},
	WrongAssignment:           {"Ожидается присваивание", "Assignment expected"},
	DirectiveNotSupported:     {"Директива %s не поддерживается в данном месте", "Directive %s is not supported here"},
	DirectiveExpected:         {"Ожидается директива препроцессора %s", "Preprocessor directive %s expected"},
	UnclosedDirective:         {"Не завершена директива препроцессора %s", "Unclosed preprocessor directive %s"},
	MisplacedImportDirective:  {"Директива #Использовать должна находиться в начале модуля", "#Use directive must be placed at the beginning of the module"},
	DuplicateVarDefinition:    {"Переменная с таким именем уже определена: %s", "Variable with the same name already defined: %s"},
	DuplicateMethodDefinition: {"Метод с таким именем уже определен: %s", "Method with the same name already defined: %s"},
	DuplicateLabelDefinition:  {"Метка с таким именем уже определена: %s", "Label with the same name already defined: %s"},
	LabelNotFound:             {"Метка не определена: %s", "Label is not defined: %s"},
	SymbolNotFound:            {"Переменная не определена (%s)", "Variable is not defined (%s)"},
	MethodNotFound:            {"Процедура или функция с указанным именем не определена (%s)", "Procedure or function is not defined (%s)"},
	UseProcAsFunction:         {"Использование процедуры как функции (%s)", "Procedure called as function (%s)"},
	TooManyArgumentsPassed:    {"Слишком много фактических параметров (%s)", "Too many actual parameters (%s)"},
	TooFewArgumentsPassed:     {"Недостаточно фактических параметров (%s)", "Too few actual parameters (%s)"},
	WrongHandlerName:          {"Неверное имя обработчика события", "Wrong event handler name"},
	WrongEventName:            {"Ожидается имя события объекта", "Object event name expected"},
	BuiltinAsProcedure:        {"Использование встроенной функции как процедуры (%s)", "Built-in function called as procedure (%s)"},
}

var englishMessages atomic.Bool

// SetLocale selects the language of messages: "ru" (default) or "en".
func SetLocale(locale string) {
	englishMessages.Store(strings.EqualFold(locale, "en"))
}

// Localize picks one of two texts by the current locale.
func Localize(ru, en string) string {
	if englishMessages.Load() {
		return en
	}
	return ru
}

// Describe formats the message text for an error id.
func Describe(id ErrorID, args ...any) string {
	m, ok := messages[id]
	if !ok {
		return string(id)
	}
	format := Localize(m.ru, m.en)
	if len(args) == 0 && !strings.Contains(format, "%") {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// CodeError is one compile-time problem with its source position.
type CodeError struct {
	ID          ErrorID
	Description string
	Position    token.Position
	ModuleName  string
	SourceLine  string
}

// New creates an error with the standard description for id.
func New(id ErrorID, pos token.Position, args ...any) *CodeError {
	return &CodeError{
		ID:          id,
		Description: Describe(id, args...),
		Position:    pos,
	}
}

func (e *CodeError) Error() string {
	var sb strings.Builder
	if e.ModuleName != "" {
		sb.WriteString("{")
		sb.WriteString(e.ModuleName)
		if e.Position.IsValid() {
			fmt.Fprintf(&sb, "(%d,%d)", e.Position.Line, e.Position.Column)
		}
		sb.WriteString("}: ")
	} else if e.Position.IsValid() {
		fmt.Fprintf(&sb, "(%d,%d): ", e.Position.Line, e.Position.Column)
	}
	sb.WriteString(e.Description)
	return sb.String()
}

// CompilationError is returned when a compilation produced any errors.
type CompilationError struct {
	Errors []*CodeError
}

func (e *CompilationError) Error() string {
	switch len(e.Errors) {
	case 0:
		return Localize("Ошибка компиляции", "Compilation error")
	case 1:
		return e.Errors[0].Error()
	}
	lines := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		lines[i] = err.Error()
	}
	return strings.Join(lines, "\n")
}

// Unwrap exposes the individual errors to errors.Is / errors.As.
func (e *CompilationError) Unwrap() []error {
	out := make([]error, len(e.Errors))
	for i, err := range e.Errors {
		out[i] = err
	}
	return out
}

// Has reports whether any collected error has the given id.
func (e *CompilationError) Has(id ErrorID) bool {
	for _, err := range e.Errors {
		if err.ID == id {
			return true
		}
	}
	return false
}
