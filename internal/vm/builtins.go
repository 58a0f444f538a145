package vm

import (
	"github.com/funvibe/oscript/internal/token"
)

// builtinFunction is a global function compiled into a single command.
// maxArgs < 0 means any number of arguments.
type builtinFunction struct {
	op      Opcode
	minArgs int
	maxArgs int
}

var builtins = map[string]builtinFunction{}

func defBuiltin(ru, en string, op Opcode, minArgs, maxArgs int) {
	fn := builtinFunction{op: op, minArgs: minArgs, maxArgs: maxArgs}
	builtins[token.Fold(ru)] = fn
	builtins[token.Fold(en)] = fn
}

func init() {
	defBuiltin("Вычислить", "Eval", OP_EVAL, 1, 1)

	defBuiltin("Булево", "Boolean", OP_BOOL, 1, 1)
	defBuiltin("Число", "Number", OP_NUMBER, 1, 1)
	defBuiltin("Строка", "String", OP_STR, 1, 1)
	defBuiltin("Дата", "Date", OP_DATE, 1, 6)
	defBuiltin("Тип", "Type", OP_TYPE, 1, 1)
	defBuiltin("ТипЗнч", "TypeOf", OP_VAL_TYPE, 1, 1)

	defBuiltin("СтрДлина", "StrLen", OP_STR_LEN, 1, 1)
	defBuiltin("СокрЛ", "TrimL", OP_TRIM_L, 1, 1)
	defBuiltin("СокрП", "TrimR", OP_TRIM_R, 1, 1)
	defBuiltin("СокрЛП", "TrimAll", OP_TRIM_LR, 1, 1)
	defBuiltin("Лев", "Left", OP_LEFT, 2, 2)
	defBuiltin("Прав", "Right", OP_RIGHT, 2, 2)
	defBuiltin("Сред", "Mid", OP_MID, 2, 3)
	defBuiltin("Найти", "Find", OP_STR_POS, 2, 2)
	defBuiltin("СтрНайти", "StrFind", OP_STR_POS, 2, 5)
	defBuiltin("ВРег", "Upper", OP_UCASE, 1, 1)
	defBuiltin("НРег", "Lower", OP_LCASE, 1, 1)
	defBuiltin("ТРег", "Title", OP_TCASE, 1, 1)
	defBuiltin("Символ", "Char", OP_CHR, 1, 1)
	defBuiltin("КодСимвола", "CharCode", OP_CHR_CODE, 1, 2)
	defBuiltin("ПустаяСтрока", "IsBlankString", OP_EMPTY_STR, 1, 1)
	defBuiltin("СтрЗаменить", "StrReplace", OP_STR_REPLACE, 3, 3)
	defBuiltin("СтрПолучитьСтроку", "StrGetLine", OP_STR_GET_LINE, 2, 2)
	defBuiltin("СтрЧислоСтрок", "StrLineCount", OP_STR_LINE_COUNT, 1, 1)
	defBuiltin("СтрЧислоВхождений", "StrOccurrenceCount", OP_STR_ENTRY_COUNT, 2, 2)

	defBuiltin("Год", "Year", OP_YEAR, 1, 1)
	defBuiltin("Месяц", "Month", OP_MONTH, 1, 1)
	defBuiltin("День", "Day", OP_DAY, 1, 1)
	defBuiltin("Час", "Hour", OP_HOUR, 1, 1)
	defBuiltin("Минута", "Minute", OP_MINUTE, 1, 1)
	defBuiltin("Секунда", "Second", OP_SECOND, 1, 1)
	defBuiltin("НачалоНедели", "BegOfWeek", OP_BEG_OF_WEEK, 1, 1)
	defBuiltin("НачалоГода", "BegOfYear", OP_BEG_OF_YEAR, 1, 1)
	defBuiltin("НачалоМесяца", "BegOfMonth", OP_BEG_OF_MONTH, 1, 1)
	defBuiltin("НачалоДня", "BegOfDay", OP_BEG_OF_DAY, 1, 1)
	defBuiltin("НачалоЧаса", "BegOfHour", OP_BEG_OF_HOUR, 1, 1)
	defBuiltin("НачалоМинуты", "BegOfMinute", OP_BEG_OF_MINUTE, 1, 1)
	defBuiltin("НачалоКвартала", "BegOfQuarter", OP_BEG_OF_QUARTER, 1, 1)
	defBuiltin("КонецНедели", "EndOfWeek", OP_END_OF_WEEK, 1, 1)
	defBuiltin("КонецГода", "EndOfYear", OP_END_OF_YEAR, 1, 1)
	defBuiltin("КонецМесяца", "EndOfMonth", OP_END_OF_MONTH, 1, 1)
	defBuiltin("КонецДня", "EndOfDay", OP_END_OF_DAY, 1, 1)
	defBuiltin("КонецЧаса", "EndOfHour", OP_END_OF_HOUR, 1, 1)
	defBuiltin("КонецМинуты", "EndOfMinute", OP_END_OF_MINUTE, 1, 1)
	defBuiltin("КонецКвартала", "EndOfQuarter", OP_END_OF_QUARTER, 1, 1)
	defBuiltin("НеделяГода", "WeekOfYear", OP_WEEK_OF_YEAR, 1, 1)
	defBuiltin("ДеньГода", "DayOfYear", OP_DAY_OF_YEAR, 1, 1)
	defBuiltin("ДеньНедели", "WeekDay", OP_DAY_OF_WEEK, 1, 1)
	defBuiltin("ДобавитьМесяц", "AddMonth", OP_ADD_MONTH, 2, 2)
	defBuiltin("ТекущаяДата", "CurrentDate", OP_CURRENT_DATE, 0, 0)

	defBuiltin("Цел", "Int", OP_INTEGER, 1, 1)
	defBuiltin("Окр", "Round", OP_ROUND, 1, 3)
	defBuiltin("Log", "Log", OP_LOG, 1, 1)
	defBuiltin("Log10", "Log10", OP_LOG10, 1, 1)
	defBuiltin("Sin", "Sin", OP_SIN, 1, 1)
	defBuiltin("Cos", "Cos", OP_COS, 1, 1)
	defBuiltin("Tan", "Tan", OP_TAN, 1, 1)
	defBuiltin("ASin", "ASin", OP_ASIN, 1, 1)
	defBuiltin("ACos", "ACos", OP_ACOS, 1, 1)
	defBuiltin("ATan", "ATan", OP_ATAN, 1, 1)
	defBuiltin("Exp", "Exp", OP_EXP, 1, 1)
	defBuiltin("Pow", "Pow", OP_POW, 2, 2)
	defBuiltin("Sqrt", "Sqrt", OP_SQRT, 1, 1)
	defBuiltin("Мин", "Min", OP_MIN, 1, -1)
	defBuiltin("Макс", "Max", OP_MAX, 1, -1)

	defBuiltin("ИнформацияОбОшибке", "ErrorInfo", OP_EXCEPTION_INFO, 0, 0)
	defBuiltin("ОписаниеОшибки", "ErrorDescription", OP_EXCEPTION_DESCR, 0, 0)
	defBuiltin("ТекущийСценарий", "CurrentScript", OP_MODULE_INFO, 0, 0)
}

func lookupBuiltin(name string) (builtinFunction, bool) {
	fn, ok := builtins[token.Fold(name)]
	return fn, ok
}

// IsBuiltin reports whether name is a built-in function of the language.
func IsBuiltin(name string) bool {
	_, ok := lookupBuiltin(name)
	return ok
}
