package vm

import (
	"math"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

// popArgs pops n builtin arguments in call order. A skipped argument is nil.
func (m *Machine) popArgs(n int) []values.Value {
	args := make([]values.Value, n)
	for i := n - 1; i >= 0; i-- {
		v := m.pop()
		if isSkipped(v) {
			continue
		}
		raw, err := values.Get(v)
		if err != nil {
			panic(err)
		}
		args[i] = raw
	}
	return args
}

// executeBuiltin runs a built-in function. Every builtin is a function:
// it pops cmd.Arg arguments and pushes one result.
func (m *Machine) executeBuiltin(cmd Command) error {
	args := m.popArgs(cmd.Arg)
	var (
		res values.Value
		err error
	)
	switch op := cmd.Op; {
	case op == OP_EVAL:
		res, err = m.builtinEval(args)
	case op <= OP_VAL_TYPE:
		res, err = m.conversionBuiltin(op, args)
	case op <= OP_STR_ENTRY_COUNT:
		res, err = stringBuiltin(op, args)
	case op <= OP_CURRENT_DATE:
		res, err = dateBuiltin(op, args)
	case op <= OP_MAX:
		res, err = numberBuiltin(op, args)
	default:
		res, err = m.moduleBuiltin(op)
	}
	if err != nil {
		return err
	}
	m.push(res)
	return nil
}

func (m *Machine) builtinEval(args []values.Value) (values.Value, error) {
	m.nested++
	defer func() { m.nested-- }()
	return m.evaluateIn(m.frame, str(args, 0))
}

func (m *Machine) conversionBuiltin(op Opcode, args []values.Value) (values.Value, error) {
	switch op {
	case OP_BOOL:
		b, err := values.AsBoolean(arg(args, 0))
		return values.Boolean(b), err
	case OP_NUMBER:
		return values.AsNumber(arg(args, 0))
	case OP_STR:
		return values.String(str(args, 0)), nil
	case OP_DATE:
		return dateConstructor(args)
	case OP_TYPE:
		return m.env.Types.TypeValue(str(args, 0))
	case OP_VAL_TYPE:
		return values.TypeOf(arg(args, 0)), nil
	}
	return nil, unknownBuiltin(op)
}

func dateConstructor(args []values.Value) (values.Value, error) {
	if len(args) == 1 {
		return values.AsDate(arg(args, 0))
	}
	if len(args) < 3 || len(args) > 6 {
		return nil, values.NewRuntimeError("%s", diagnostics.Localize("Неверное количество параметров", "Wrong number of parameters"))
	}
	parts := [6]int{}
	for i := range args {
		n, err := values.AsInt(arg(args, i))
		if err != nil {
			return nil, err
		}
		parts[i] = n
	}
	d, ok := values.DateOf(parts[0], parts[1], parts[2], parts[3], parts[4], parts[5])
	if !ok {
		return nil, values.InvalidArgumentValue(1)
	}
	return d, nil
}

// Strings

func stringBuiltin(op Opcode, args []values.Value) (values.Value, error) {
	s := str(args, 0)
	switch op {
	case OP_STR_LEN:
		return number(utf8.RuneCountInString(s)), nil
	case OP_TRIM_L:
		return values.String(strings.TrimLeftFunc(s, isSpace)), nil
	case OP_TRIM_R:
		return values.String(strings.TrimRightFunc(s, isSpace)), nil
	case OP_TRIM_LR:
		return values.String(strings.TrimFunc(s, isSpace)), nil
	case OP_LEFT, OP_RIGHT:
		n, err := integer(args, 1)
		if err != nil {
			return nil, err
		}
		r := []rune(s)
		n = max(0, min(n, len(r)))
		if op == OP_LEFT {
			return values.String(r[:n]), nil
		}
		return values.String(r[len(r)-n:]), nil
	case OP_MID:
		return mid(s, args)
	case OP_STR_POS:
		return strFind(s, args)
	case OP_UCASE:
		return values.String(cases.Upper(language.Und).String(s)), nil
	case OP_LCASE:
		return values.String(cases.Lower(language.Und).String(s)), nil
	case OP_TCASE:
		return values.String(cases.Title(language.Und).String(s)), nil
	case OP_CHR:
		code, err := integer(args, 0)
		if err != nil {
			return nil, err
		}
		if code < 0 || code > 0xFFFF || !utf8.ValidRune(rune(code)) {
			return values.String(""), nil
		}
		return values.String(string(rune(code))), nil
	case OP_CHR_CODE:
		pos := 1
		if len(args) > 1 && args[1] != nil {
			var err error
			if pos, err = integer(args, 1); err != nil {
				return nil, err
			}
		}
		r := []rune(s)
		if pos < 1 || pos > len(r) {
			return number(-1), nil
		}
		return number(int(r[pos-1])), nil
	case OP_EMPTY_STR:
		return values.Boolean(strings.TrimFunc(s, isSpace) == ""), nil
	case OP_STR_REPLACE:
		return values.String(strings.ReplaceAll(s, str(args, 1), str(args, 2))), nil
	case OP_STR_GET_LINE:
		n, err := integer(args, 1)
		if err != nil {
			return nil, err
		}
		lines := strings.Split(s, "\n")
		if n < 1 || n > len(lines) {
			return values.String(""), nil
		}
		return values.String(strings.TrimSuffix(lines[n-1], "\r")), nil
	case OP_STR_LINE_COUNT:
		return number(strings.Count(s, "\n") + 1), nil
	case OP_STR_ENTRY_COUNT:
		sub := str(args, 1)
		if sub == "" {
			return number(0), nil
		}
		return number(strings.Count(s, sub)), nil
	}
	return nil, unknownBuiltin(op)
}

// mid is Сред(Строка, Начало[, Длина]) on characters.
func mid(s string, args []values.Value) (values.Value, error) {
	r := []rune(s)
	start, err := integer(args, 1)
	if err != nil {
		return nil, err
	}
	length := len(r) - start + 1
	if len(args) > 2 && args[2] != nil {
		if length, err = integer(args, 2); err != nil {
			return nil, err
		}
	}
	if start < 1 {
		start = 1
	}
	if start > len(r) || length <= 0 {
		return values.String(""), nil
	}
	end := min(len(r), start-1+length)
	return values.String(r[start-1 : end]), nil
}

// strFind is Найти and СтрНайти(Строка, Подстрока[, Направление,
// НачальнаяПозиция, НомерВхождения]). Positions are 1-based; 0 means
// not found.
func strFind(s string, args []values.Value) (values.Value, error) {
	r := []rune(s)
	needle := []rune(str(args, 1))
	fromEnd := false
	if len(args) > 2 && args[2] != nil {
		switch dir := args[2].(type) {
		case values.Number:
			fromEnd = dir.Int() == 1
		default:
			f := token.Fold(values.AsString(dir))
			fromEnd = f == token.Fold("СКонца") || f == token.Fold("FromEnd")
		}
	}
	start := 1
	if fromEnd {
		start = len(r)
	}
	if len(args) > 3 && args[3] != nil {
		var err error
		if start, err = integer(args, 3); err != nil {
			return nil, err
		}
		if start < 1 || start > len(r)+1 {
			return nil, values.InvalidArgumentValue(4)
		}
	}
	occurrence := 1
	if len(args) > 4 && args[4] != nil {
		var err error
		if occurrence, err = integer(args, 4); err != nil {
			return nil, err
		}
	}
	if len(needle) == 0 {
		return number(start), nil
	}

	match := func(i int) bool {
		if i < 0 || i+len(needle) > len(r) {
			return false
		}
		for j, c := range needle {
			if r[i+j] != c {
				return false
			}
		}
		return true
	}
	found := 0
	if fromEnd {
		for i := min(start-1, len(r)-len(needle)); i >= 0; i-- {
			if match(i) {
				if found++; found == occurrence {
					return number(i + 1), nil
				}
			}
		}
	} else {
		for i := start - 1; i <= len(r)-len(needle); i++ {
			if match(i) {
				if found++; found == occurrence {
					return number(i + 1), nil
				}
			}
		}
	}
	return number(0), nil
}

// Dates

func dateBuiltin(op Opcode, args []values.Value) (values.Value, error) {
	if op == OP_CURRENT_DATE {
		return values.NewDate(time.Now()), nil
	}
	d, err := values.AsDate(arg(args, 0))
	if err != nil {
		return nil, err
	}
	t := d.Time()
	y, mo, day := t.Date()
	h, mi, sec := t.Clock()
	at := func(y int, mo time.Month, d, h, mi, s int) values.Value {
		return values.NewDate(time.Date(y, mo, d, h, mi, s, 0, time.UTC))
	}
	quarter := time.Month((int(mo)-1)/3*3 + 1)
	monday := day - (int(t.Weekday())+6)%7

	switch op {
	case OP_YEAR:
		return number(y), nil
	case OP_MONTH:
		return number(int(mo)), nil
	case OP_DAY:
		return number(day), nil
	case OP_HOUR:
		return number(h), nil
	case OP_MINUTE:
		return number(mi), nil
	case OP_SECOND:
		return number(sec), nil
	case OP_BEG_OF_WEEK:
		return at(y, mo, monday, 0, 0, 0), nil
	case OP_BEG_OF_YEAR:
		return at(y, 1, 1, 0, 0, 0), nil
	case OP_BEG_OF_MONTH:
		return at(y, mo, 1, 0, 0, 0), nil
	case OP_BEG_OF_DAY:
		return at(y, mo, day, 0, 0, 0), nil
	case OP_BEG_OF_HOUR:
		return at(y, mo, day, h, 0, 0), nil
	case OP_BEG_OF_MINUTE:
		return at(y, mo, day, h, mi, 0), nil
	case OP_BEG_OF_QUARTER:
		return at(y, quarter, 1, 0, 0, 0), nil
	case OP_END_OF_WEEK:
		return at(y, mo, monday+6, 23, 59, 59), nil
	case OP_END_OF_YEAR:
		return at(y, 12, 31, 23, 59, 59), nil
	case OP_END_OF_MONTH:
		return at(y, mo+1, 0, 23, 59, 59), nil
	case OP_END_OF_DAY:
		return at(y, mo, day, 23, 59, 59), nil
	case OP_END_OF_HOUR:
		return at(y, mo, day, h, 59, 59), nil
	case OP_END_OF_MINUTE:
		return at(y, mo, day, h, mi, 59), nil
	case OP_END_OF_QUARTER:
		return at(y, quarter+3, 0, 23, 59, 59), nil
	case OP_WEEK_OF_YEAR:
		return number(weekOfYear(t)), nil
	case OP_DAY_OF_YEAR:
		return number(t.YearDay()), nil
	case OP_DAY_OF_WEEK:
		return number((int(t.Weekday())+6)%7 + 1), nil
	case OP_ADD_MONTH:
		n, err := integer(args, 1)
		if err != nil {
			return nil, err
		}
		return addMonths(t, n), nil
	}
	return nil, unknownBuiltin(op)
}

// weekOfYear numbers weeks from the one holding January 1st; weeks start
// on Monday.
func weekOfYear(t time.Time) int {
	jan1 := time.Date(t.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(jan1.Weekday()) + 6) % 7
	return (t.YearDay()-1+offset)/7 + 1
}

// addMonths shifts by n months, clamping the day to the target month.
func addMonths(t time.Time, n int) values.Value {
	y, mo, d := t.Date()
	total := y*12 + int(mo) - 1 + n
	ty, tm := total/12, time.Month(total%12+1)
	last := time.Date(ty, tm+1, 0, 0, 0, 0, 0, time.UTC).Day()
	h, mi, s := t.Clock()
	return values.NewDate(time.Date(ty, tm, min(d, last), h, mi, s, 0, time.UTC))
}

// Numbers

func numberBuiltin(op Opcode, args []values.Value) (values.Value, error) {
	if op == OP_MIN || op == OP_MAX {
		return minMax(op == OP_MIN, args)
	}
	n, err := values.AsNumber(arg(args, 0))
	if err != nil {
		return nil, err
	}
	switch op {
	case OP_INTEGER:
		return n.Truncate(), nil
	case OP_ROUND:
		digits := 0
		if len(args) > 1 && args[1] != nil {
			if digits, err = integer(args, 1); err != nil {
				return nil, err
			}
		}
		mode := values.RoundHalfAwayFromZero
		if len(args) > 2 && args[2] != nil {
			if m, err := values.AsInt(args[2]); err == nil && m == 0 {
				mode = values.RoundHalfTowardZero
			}
		}
		return n.Round(digits, mode)
	case OP_LOG:
		return n.Ln()
	case OP_LOG10:
		return n.Log10()
	case OP_EXP:
		return n.Exp()
	case OP_SQRT:
		return n.Sqrt()
	case OP_POW:
		e, err := values.AsNumber(arg(args, 1))
		if err != nil {
			return nil, err
		}
		return n.Pow(e)
	case OP_SIN:
		return values.NumberFromFloat(math.Sin(n.Float64()))
	case OP_COS:
		return values.NumberFromFloat(math.Cos(n.Float64()))
	case OP_TAN:
		return values.NumberFromFloat(math.Tan(n.Float64()))
	case OP_ASIN:
		return values.NumberFromFloat(math.Asin(n.Float64()))
	case OP_ACOS:
		return values.NumberFromFloat(math.Acos(n.Float64()))
	case OP_ATAN:
		return values.NumberFromFloat(math.Atan(n.Float64()))
	}
	return nil, unknownBuiltin(op)
}

// minMax compares the arguments as raw values; values that do not
// compare are an error.
func minMax(isMin bool, args []values.Value) (values.Value, error) {
	best := arg(args, 0)
	for i := 1; i < len(args); i++ {
		v := arg(args, i)
		c, err := values.Compare(v, best)
		if err != nil {
			return nil, err
		}
		if (isMin && c < 0) || (!isMin && c > 0) {
			best = v
		}
	}
	return best, nil
}

// Errors and modules

func (m *Machine) moduleBuiltin(op Opcode) (values.Value, error) {
	f := m.frame
	switch op {
	case OP_EXCEPTION_INFO:
		return NewErrorInfo(f.LastException), nil
	case OP_EXCEPTION_DESCR:
		if f.LastException == nil {
			return values.String(""), nil
		}
		return values.String(f.LastException.Message), nil
	case OP_MODULE_INFO:
		obj := m.currentScript()
		if obj == nil || obj.module.Source == nil {
			return values.Undefined, nil
		}
		return newScriptInfo(obj.module.Source.Location), nil
	}
	return nil, unknownBuiltin(op)
}

// currentScript is the nearest script object on the call stack.
func (m *Machine) currentScript() *ScriptObject {
	for i := len(m.frames) - 1; i >= 0; i-- {
		if f := m.frames[i]; f.ThisScope != nil {
			if obj, ok := f.ThisScope.Instance.(*ScriptObject); ok {
				return obj
			}
		}
	}
	return nil
}

var scriptInfoMembers = values.NewMembers([]values.PropertyInfo{
	{Name: "Источник", Alias: "Source", Readable: true},
	{Name: "Каталог", Alias: "Path", Readable: true},
}, nil)

// ScriptInfo is ТекущийСценарий(): where the running module was loaded from.
type ScriptInfo struct {
	*values.Members
	source string
}

func newScriptInfo(source string) *ScriptInfo {
	return &ScriptInfo{Members: scriptInfoMembers, source: source}
}

func (s *ScriptInfo) DataType() values.DataType { return values.TypeObject }
func (s *ScriptInfo) TypeName() string          { return "ИнформацияОСценарии" }
func (s *ScriptInfo) String() string            { return s.source }

func (s *ScriptInfo) GetProperty(n int) (values.Value, error) {
	if n == 0 {
		return values.String(s.source), nil
	}
	return values.String(filepath.Dir(s.source)), nil
}

func (s *ScriptInfo) SetProperty(n int, _ values.Value) error {
	return values.PropertyNotWritable(s.Property(n).Name)
}

func (s *ScriptInfo) CallMethod(int, []values.Value) (values.Value, error) {
	return nil, values.MethodNotFound("")
}

// helpers

func arg(args []values.Value, i int) values.Value {
	if i >= len(args) || args[i] == nil {
		return values.Undefined
	}
	return args[i]
}

func str(args []values.Value, i int) string {
	return values.AsString(arg(args, i))
}

func integer(args []values.Value, i int) (int, error) {
	return values.AsInt(arg(args, i))
}

func number(n int) values.Value {
	return values.NumberFromInt(int64(n))
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f' || r == 0xA0 || r == 0x2007 || r == 0x202F || r == 0x3000
}

func unknownBuiltin(op Opcode) error {
	return values.Wrap(ErrWrongStackCondition, "unknown builtin "+op.String())
}
