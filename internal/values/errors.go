package values

import (
	"errors"
	"fmt"

	"github.com/funvibe/oscript/internal/diagnostics"
)

// ErrScriptInterrupted stops a running script. Script handlers never catch it.
var ErrScriptInterrupted = errors.New("script interrupted")

// ErrArithmetic is wrapped by errors from the decimal arithmetic.
var ErrArithmetic = errors.New("arithmetic error")

// ErrorPosition locates a runtime error in the script source.
type ErrorPosition struct {
	ModuleName string
	Line       int
	SourceLine string
}

// StackFrameInfo is one entry of a captured call stack.
type StackFrameInfo struct {
	Method string
	Module string
	Line   int
}

// RuntimeError is an exception raised by script code or by a library
// method called from script code. Script handlers catch only these.
type RuntimeError struct {
	Message  string
	Position ErrorPosition

	// Parameter is the payload of a parametrized exception
	// (ВызватьИсключение Новый ИнформацияОбОшибке(текст, параметры)).
	Parameter Value
	// Cause is the error this one was raised from.
	Cause error
	// CallStack is captured when the error leaves the frame that raised it.
	CallStack []StackFrameInfo

	wrapped error
}

// NewRuntimeError formats a message into a RuntimeError.
func NewRuntimeError(format string, args ...any) *RuntimeError {
	if len(args) == 0 {
		return &RuntimeError{Message: format}
	}
	return &RuntimeError{Message: fmt.Sprintf(format, args...)}
}

func (e *RuntimeError) Error() string {
	if e.Position.Line <= 0 {
		return e.Message
	}
	return fmt.Sprintf(diagnostics.Localize("{Модуль %s / Ошибка в строке: %d / %s}", "{Module %s / Error in line: %d / %s}"),
		e.Position.ModuleName, e.Position.Line, e.Message)
}

// DetailedDescription is Error() followed by the offending source line.
func (e *RuntimeError) DetailedDescription() string {
	if e.Position.SourceLine == "" {
		return e.Error()
	}
	return e.Error() + "\n" + e.Position.SourceLine
}

func (e *RuntimeError) Unwrap() error {
	if e.wrapped != nil {
		return e.wrapped
	}
	return e.Cause
}

// HasPosition reports whether a line has been attached.
func (e *RuntimeError) HasPosition() bool {
	return e.Position.Line > 0
}

// SetPosition attaches pos unless the error already has one.
func (e *RuntimeError) SetPosition(pos ErrorPosition) {
	if !e.HasPosition() {
		e.Position = pos
	}
}

// ExternalError is a Go error or panic that escaped a library call.
type ExternalError struct {
	Err error
}

func (e *ExternalError) Error() string { return e.Err.Error() }
func (e *ExternalError) Unwrap() error { return e.Err }

// AsRuntimeError returns the RuntimeError inside err, or wraps err as an
// ExternalError so script handlers can catch it.
func AsRuntimeError(err error) *RuntimeError {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re
	}
	return &RuntimeError{Message: err.Error(), wrapped: &ExternalError{Err: err}}
}

// Wrap builds a RuntimeError with its own message around another error.
func Wrap(err error, message string) *RuntimeError {
	return &RuntimeError{Message: message, wrapped: err}
}

func arithmeticError(err error) *RuntimeError {
	return Wrap(fmt.Errorf("%w: %v", ErrArithmetic, err), diagnostics.Localize("Арифметическая ошибка: ", "Arithmetic error: ")+err.Error())
}

func localized(ru, en string, args ...any) *RuntimeError {
	return NewRuntimeError(diagnostics.Localize(ru, en), args...)
}

func DivideByZero() *RuntimeError {
	return localized("Деление на 0", "Divide by zero")
}

func NumberOverflow() *RuntimeError {
	return localized("Переполнение числа", "Number overflow")
}

func ConvertToNumber(v Value) *RuntimeError {
	return localized("Преобразование к типу 'Число' не поддерживается (%s)", "Conversion to type 'Number' is not supported (%s)", v.TypeName())
}

func ConvertToBoolean(v Value) *RuntimeError {
	return localized("Преобразование к типу 'Булево' не поддерживается (%s)", "Conversion to type 'Boolean' is not supported (%s)", v.TypeName())
}

func ConvertToDate(v Value) *RuntimeError {
	return localized("Преобразование к типу 'Дата' не поддерживается (%s)", "Conversion to type 'Date' is not supported (%s)", v.TypeName())
}

func ComparisonNotSupported(a, b Value) *RuntimeError {
	return localized("Сравнение на больше/меньше для данного типа не поддерживается (%s, %s)",
		"Greater/less comparison is not supported for these types (%s, %s)", a.TypeName(), b.TypeName())
}

func PropertyNotFound(name string) *RuntimeError {
	return localized("Свойство объекта не обнаружено (%s)", "Object property is not found (%s)", name)
}

func PropertyNotReadable(name string) *RuntimeError {
	return localized("Свойство %s недоступно для чтения", "Property %s is not readable", name)
}

func PropertyNotWritable(name string) *RuntimeError {
	return localized("Свойство %s недоступно для записи", "Property %s is not writable", name)
}

func MethodNotFound(name string) *RuntimeError {
	return localized("Метод объекта не обнаружен (%s)", "Object method is not found (%s)", name)
}

func ValueIsNotObject(v Value) *RuntimeError {
	return localized("Значение не является значением объектного типа (%s)", "Value is not of object type (%s)", v.TypeName())
}

func IndexedAccessNotSupported() *RuntimeError {
	return localized("Объект не поддерживает доступ по индексу", "Indexed access is not supported")
}

func IndexOutOfRange() *RuntimeError {
	return localized("Значение индекса выходит за пределы диапазона", "Index is out of range")
}

func IteratorNotDefined() *RuntimeError {
	return localized("Итератор не определен", "Iterator is not defined")
}

func TooManyArguments(method string) *RuntimeError {
	return localized("Слишком много фактических параметров (%s)", "Too many actual parameters (%s)", method)
}

func TooFewArguments(method string) *RuntimeError {
	return localized("Недостаточно фактических параметров (%s)", "Too few actual parameters (%s)", method)
}

func MissedArgument(method string) *RuntimeError {
	return localized("Пропущен обязательный параметр (%s)", "Required parameter is missing (%s)", method)
}

func UseProcAsFunction(method string) *RuntimeError {
	return localized("Использование процедуры как функции (%s)", "Procedure called as function (%s)", method)
}

func TypeNotRegistered(name string) *RuntimeError {
	return localized("Тип не зарегистрирован (%s)", "Type is not registered (%s)", name)
}

func ConstructorNotFound(name string) *RuntimeError {
	return localized("Конструктор не найден (%s)", "Constructor not found (%s)", name)
}

func InvalidArgumentType(n int) *RuntimeError {
	return localized("Неверный тип аргумента номер %d", "Invalid type of argument number %d", n)
}

func InvalidArgumentValue(n int) *RuntimeError {
	return localized("Неверное значение аргумента номер %d", "Invalid value of argument number %d", n)
}

func KeyNotFound(key string) *RuntimeError {
	return localized("Ключ не найден (%s)", "Key not found (%s)", key)
}
