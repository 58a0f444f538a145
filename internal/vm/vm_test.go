package vm

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/diagnostics"
	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/stdlib"
	"github.com/funvibe/oscript/internal/values"
)

func newTestMachine(t *testing.T) (*Machine, *bytes.Buffer) {
	t.Helper()
	env, err := NewEnv(nil, nil)
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	var out bytes.Buffer
	if err := stdlib.Register(env.Types, env.Globals, &out); err != nil {
		t.Fatalf("stdlib: %v", err)
	}
	return New(env), &out
}

func runScriptErr(t *testing.T, code string) (string, error) {
	t.Helper()
	m, out := newTestMachine(t)
	_, err := m.Run(sources.FromString("test", code))
	return out.String(), err
}

func runScript(t *testing.T, code string) string {
	t.Helper()
	out, err := runScriptErr(t, code)
	if err != nil {
		t.Fatalf("script failed: %v\noutput so far:\n%s", err, out)
	}
	return out
}

func lines(s ...string) string {
	return strings.Join(s, "\n") + "\n"
}

func TestExpressions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"arithmetic", `Сообщить(1 + 2 * 3);`, "7"},
		{"parentheses", `Сообщить((1 + 2) * 3);`, "9"},
		{"decimal", `Сообщить(0.1 + 0.2);`, "0.3"},
		{"division", `Сообщить(10 / 4);`, "2.5"},
		{"modulo", `Сообщить(10 % 3);`, "1"},
		{"negation", `Сообщить(-(2 - 5));`, "3"},
		{"concat", `Сообщить("а" + 1);`, "а1"},
		{"comparison", `Сообщить(2 > 1);`, "Да"},
		{"equality", `Сообщить("а" = "б");`, "Нет"},
		{"and short circuit", `Сообщить(Ложь И (1 / 0 = 1));`, "Нет"},
		{"or short circuit", `Сообщить(Истина ИЛИ (1 / 0 = 1));`, "Да"},
		{"not", `Сообщить(НЕ Ложь);`, "Да"},
		{"ternary", `Сообщить(?(1 > 2, "да", "нет"));`, "нет"},
		{"english keywords", `Message(?(True AND NOT False, 1, 2));`, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runScript(t, tt.input)
			if got != tt.expected+"\n" {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestMethods(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"function",
			`Функция Сумма(А, Б)
				Возврат А + Б;
			КонецФункции
			Сообщить(Сумма(2, 3));`,
			lines("5"),
		},
		{
			"by reference",
			`Процедура Инк(Знач А, Б)
				А = А + 1;
				Б = Б + 1;
			КонецПроцедуры
			Х = 1; У = 1;
			Инк(Х, У);
			Сообщить(Х);
			Сообщить(У);`,
			lines("1", "2"),
		},
		{
			"default parameter",
			`Функция Ф(А, Б = 10)
				Возврат А + Б;
			КонецФункции
			Сообщить(Ф(1));
			Сообщить(Ф(1, 2));`,
			lines("11", "3"),
		},
		{
			"function as procedure",
			`Функция Ф()
				Сообщить("вызвана");
				Возврат 1;
			КонецФункции
			Ф();`,
			lines("вызвана"),
		},
		{
			"recursion",
			`Функция Факториал(Н)
				Если Н <= 1 Тогда
					Возврат 1;
				КонецЕсли;
				Возврат Н * Факториал(Н - 1);
			КонецФункции
			Сообщить(Факториал(10));`,
			lines("3628800"),
		},
		{
			"module variable",
			`Перем Счетчик;
			Процедура Увеличить()
				Счетчик = Счетчик + 1;
			КонецПроцедуры
			Счетчик = 0;
			Увеличить();
			Увеличить();
			Сообщить(Счетчик);`,
			lines("2"),
		},
		{
			"forward call",
			`Процедура А()
				Б();
			КонецПроцедуры
			Процедура Б()
				Сообщить("б");
			КонецПроцедуры
			А();`,
			lines("б"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runScript(t, tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLoops(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"for",
			`Для Сч = 1 По 3 Цикл
				Сообщить(Сч);
			КонецЦикла;`,
			lines("1", "2", "3"),
		},
		{
			"for limit evaluated once",
			`Гр = 2;
			Для Сч = 1 По Гр Цикл
				Гр = 10;
				Сообщить(Сч);
			КонецЦикла;`,
			lines("1", "2"),
		},
		{
			"while with break and continue",
			`Н = 0;
			Пока Истина Цикл
				Н = Н + 1;
				Если Н = 2 Тогда
					Продолжить;
				КонецЕсли;
				Если Н > 3 Тогда
					Прервать;
				КонецЕсли;
				Сообщить(Н);
			КонецЦикла;`,
			lines("1", "3"),
		},
		{
			"for each",
			`М = Новый Массив;
			М.Добавить("а");
			М.Добавить("б");
			Для Каждого Эл Из М Цикл
				Сообщить(Эл);
			КонецЦикла;`,
			lines("а", "б"),
		},
		{
			"break out of try inside loop",
			`Для Сч = 1 По 3 Цикл
				Попытка
					Прервать;
				Исключение
				КонецПопытки;
			КонецЦикла;
			Попытка
				ВызватьИсключение "после";
			Исключение
				Сообщить(ОписаниеОшибки());
			КонецПопытки;`,
			lines("после"),
		},
		{
			"break once the counter passes three",
			`Сумма = 0;
			Для Сч = 1 По 6 Цикл
				Если Сч > 3 Тогда
					Прервать;
				КонецЕсли;
				Сумма = Сумма + Сч;
			КонецЦикла;
			Сообщить(Сумма);`,
			lines("6"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runScript(t, tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestExceptions(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			"raise and catch",
			`Попытка
				ВызватьИсключение "ой";
			Исключение
				Сообщить(ОписаниеОшибки());
			КонецПопытки;`,
			lines("ой"),
		},
		{
			"runtime error is caught",
			`Попытка
				А = 1 / 0;
			Исключение
				Сообщить("поймано");
			КонецПопытки;`,
			lines("поймано"),
		},
		{
			"unwinds callee frames",
			`Процедура Глубже()
				ВызватьИсключение "изнутри";
			КонецПроцедуры
			Процедура Вызов()
				Глубже();
				Сообщить("не выполнится");
			КонецПроцедуры
			Попытка
				Вызов();
			Исключение
				Сообщить(ИнформацияОбОшибке().Описание);
			КонецПопытки;
			Сообщить("дальше");`,
			lines("изнутри", "дальше"),
		},
		{
			"rethrow",
			`Попытка
				Попытка
					ВызватьИсключение "первое";
				Исключение
					ВызватьИсключение;
				КонецПопытки;
			Исключение
				Сообщить(ОписаниеОшибки());
			КонецПопытки;`,
			lines("первое"),
		},
		{
			"parameters of error info",
			`Попытка
				ВызватьИсключение Новый ИнформацияОбОшибке("с параметром", 42);
			Исключение
				Инфо = ИнформацияОбОшибке();
				Сообщить(Инфо.Описание);
				Сообщить(Инфо.Параметры);
			КонецПопытки;`,
			lines("с параметром", "42"),
		},
		{
			"line number",
			`Попытка
				А = 1;
				ВызватьИсключение "строка";
			Исключение
				Сообщить(ИнформацияОбОшибке().НомерСтроки);
			КонецПопытки;`,
			lines("3"),
		},
		{
			"percent signs in raised text",
			`Попытка
				ВызватьИсключение "100% готово %d";
			Исключение
				Сообщить(ОписаниеОшибки());
			КонецПопытки;`,
			lines("100% готово %d"),
		},
		{
			"goto out of nested try",
			`Попытка
				Попытка
					Перейти ~Выход;
				Исключение
					Сообщить("внутр");
				КонецПопытки;
				~Выход:
				ВызватьИсключение "после перехода";
			Исключение
				Сообщить("внеш");
			КонецПопытки;`,
			lines("внеш"),
		},
		{
			"goto within the same try",
			`Попытка
				Перейти ~Дальше;
				Сообщить("пропущено");
				~Дальше:
				ВызватьИсключение "там же";
			Исключение
				Сообщить(ОписаниеОшибки());
			КонецПопытки;`,
			lines("там же"),
		},
		{
			"no exception outside handler",
			`Сообщить(ОписаниеОшибки() = "");`,
			lines("Да"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := runScript(t, tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestUncaughtError(t *testing.T) {
	out, err := runScriptErr(t, "Сообщить(1);\nА = Неизвестная.Поле;\n")
	if err == nil {
		t.Fatal("expected an error")
	}
	if out != "1\n" {
		t.Errorf("output = %q", out)
	}
	var re *values.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected *values.RuntimeError, got %T", err)
	}
	if re.Position.Line != 2 {
		t.Errorf("line = %d, want 2", re.Position.Line)
	}
	if re.Position.ModuleName != "test" {
		t.Errorf("module = %q", re.Position.ModuleName)
	}
}

func TestCompileErrorIsReported(t *testing.T) {
	_, err := runScriptErr(t, "Если Тогда\n")
	if err == nil {
		t.Fatal("expected a compile error")
	}
}

func TestBuiltins(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`СтрДлина("привет")`, "6"},
		{`Лев("привет", 3)`, "при"},
		{`Прав("привет", 3)`, "вет"},
		{`Лев("аб", 10)`, "аб"},
		{`Сред("привет", 2, 3)`, "рив"},
		{`Сред("привет", 4)`, "вет"},
		{`Сред("привет", 0, 2)`, "пр"},
		{`Найти("привет", "ив")`, "3"},
		{`СтрНайти("абаб", "б", , , 2)`, "4"},
		{`ВРег("абв")`, "АБВ"},
		{`НРег("АБВ")`, "абв"},
		{`СокрЛП("  а  ")`, "а"},
		{`КодСимвола("А")`, "1040"},
		{`КодСимвола("А", 5)`, "-1"},
		{`Символ(1041)`, "Б"},
		{`ПустаяСтрока("   ")`, "Да"},
		{`СтрЗаменить("а-б-в", "-", "+")`, "а+б+в"},
		{`СтрЧислоВхождений("ааа", "аа")`, "1"},
		{`Цел(-2.7)`, "-2"},
		{`Окр(2.5)`, "3"},
		{`Окр(2.5, 0, 0)`, "2"},
		{`Окр(1.2345, 2)`, "1.23"},
		{`Макс(1, 5, 3)`, "5"},
		{`Мин(4, 2, 8)`, "2"},
		{`Pow(2, 10)`, "1024"},
		{`Sqrt(16)`, "4"},
		{`Число("12.5") + 1`, "13.5"},
		{`Строка(5) + Строка(Истина)`, "5Да"},
		{`Булево(1)`, "Да"},
		{`ТипЗнч(1) = Тип("Число")`, "Да"},
		{`Год(Дата(2024, 2, 15))`, "2024"},
		{`НачалоМесяца(Дата(2024, 2, 15, 10, 30, 0))`, "01.02.2024 00:00:00"},
		{`КонецМесяца(Дата(2024, 2, 15))`, "29.02.2024 23:59:59"},
		{`НачалоНедели(Дата(2024, 5, 16))`, "13.05.2024 00:00:00"},
		{`КонецКвартала(Дата(2024, 5, 16))`, "30.06.2024 23:59:59"},
		{`ДобавитьМесяц(Дата(2024, 1, 31), 1)`, "29.02.2024 00:00:00"},
		{`ДеньНедели(Дата(2024, 5, 19))`, "7"},
		{`ДеньГода(Дата(2024, 2, 1))`, "32"},
		{`НеделяГода(Дата(2024, 1, 8))`, "2"},
		{`Дата("20240102030405")`, "02.01.2024 03:04:05"},
		{`Вычислить("2 * 21")`, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := runScript(t, "Сообщить("+tt.input+");")
			if got != tt.expected+"\n" {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEvaluateSeesLocals(t *testing.T) {
	got := runScript(t, `Процедура П(Параметр)
		Локальная = 5;
		Сообщить(Вычислить("Локальная * Параметр"));
	КонецПроцедуры
	П(3);`)
	if got != "15\n" {
		t.Errorf("got %q", got)
	}
}

func TestEvaluateErrorIsCatchable(t *testing.T) {
	got := runScript(t, `Попытка
		Вычислить("1 / 0");
	Исключение
		Сообщить("поймано");
	КонецПопытки;`)
	if got != "поймано\n" {
		t.Errorf("got %q", got)
	}
}

func TestExecute(t *testing.T) {
	got := runScript(t, `Х = 1;
	Выполнить("Х = Х + 1; Сообщить(""внутри"")");
	Сообщить(Х);`)
	if got != lines("внутри", "2") {
		t.Errorf("got %q", got)
	}
}

func TestEvaluateFromHost(t *testing.T) {
	m, _ := newTestMachine(t)
	v, err := m.Evaluate("1 + 2")
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "3" {
		t.Errorf("got %s", v)
	}
	if _, err := m.Evaluate("  "); err == nil {
		t.Error("expected an error for an empty expression")
	}
	if m.IsRunning() {
		t.Error("machine should be idle after evaluation")
	}
}

func TestExpressionCache(t *testing.T) {
	m, _ := newTestMachine(t)
	for i := 0; i < 3; i++ {
		if _, err := m.Evaluate("2 + 2"); err != nil {
			t.Fatal(err)
		}
	}
	if n := m.evalCache.Len(); n != 1 {
		t.Errorf("cache holds %d entries, want 1", n)
	}
}

func TestHostCalls(t *testing.T) {
	m, out := newTestMachine(t)
	obj, err := m.Run(sources.FromString("lib", `
		Перем Имя Экспорт;
		Функция Привет(Кому) Экспорт
			Возврат "Привет, " + Кому;
		КонецФункции
		Процедура Скрытая()
		КонецПроцедуры
		Имя = "модуль";
		Сообщить("тело");`))
	if err != nil {
		t.Fatal(err)
	}
	if out.String() != "тело\n" {
		t.Errorf("body output = %q", out.String())
	}

	v, err := m.CallByName(obj, "привет", values.String("мир"))
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "Привет, мир" {
		t.Errorf("got %q", v.String())
	}
	if _, err := m.CallByName(obj, "Скрытая"); err == nil {
		t.Error("a method without Экспорт must not be callable by name")
	}

	n, ok := obj.FindProperty("ИМЯ")
	if !ok {
		t.Fatal("exported variable not found")
	}
	name, _ := obj.GetProperty(n)
	if name.String() != "модуль" {
		t.Errorf("variable = %q", name.String())
	}
}

func TestHostCallIsReentrant(t *testing.T) {
	m, out := newTestMachine(t)
	obj, err := m.Run(sources.FromString("lib", `
		Процедура Упасть() Экспорт
			ВызватьИсключение "снаружи";
		КонецПроцедуры`))
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.CallByName(obj, "Упасть")
	if err == nil || !strings.Contains(err.Error(), "снаружи") {
		t.Fatalf("got %v", err)
	}
	if m.IsRunning() || m.StackSize() != 0 {
		t.Errorf("machine not reset: running=%v stack=%d", m.IsRunning(), m.StackSize())
	}
	if out.Len() != 0 {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestGotoOutOfTryDropsHandler(t *testing.T) {
	out, err := runScriptErr(t, `Н = 0;
		~Снова:
		Попытка
			Н = Н + 1;
			Если Н < 100 Тогда
				Перейти ~Снова;
			КонецЕсли;
		Исключение
			Сообщить("пойман старым обработчиком");
		КонецПопытки;
		Сообщить(Н);
		ВызватьИсключение "наружу";`)
	if err == nil || !strings.Contains(err.Error(), "наружу") {
		t.Fatalf("got %v", err)
	}
	if out != "100\n" {
		t.Errorf("output = %q", out)
	}
}

func TestStackDepthAfterCaughtException(t *testing.T) {
	m, dbg := newDebugMachine(t)
	dbg.SetBreakpoint(debugFile, 2)
	dbg.SetBreakpoint(debugFile, 7)

	depth := map[int][]int{}
	dbg.OnStop = func(d *Debugger, m *Machine) {
		_, line := d.GetCurrentLocation(m)
		depth[line] = append(depth[line], m.StackSize())
		d.Continue()
	}

	obj, err := m.Run(sources.FromString(debugFile, `Функция Внутр()
	Н = 0;
	Попытка
		А = 1 + (2 * (3 - Сбой()));
		Сообщить("не выполнится");
	Исключение
		Возврат 5;
	КонецПопытки;
КонецФункции
Функция Сбой()
	ВызватьИсключение "сбой";
КонецФункции
Итог = 10 + Внутр();
Итог = Итог + (Внутр() * 2);
`))
	if err != nil {
		t.Fatalf("script failed: %v", err)
	}

	before, after := depth[2], depth[7]
	if len(before) != 2 || len(after) != 2 {
		t.Fatalf("stops: before=%v after=%v", before, after)
	}
	for i := range before {
		if before[i] != after[i] {
			t.Errorf("call %d: stack depth %d at try, %d in handler", i+1, before[i], after[i])
		}
	}
	if before[0] == 0 {
		t.Error("pending operands of the caller are not on the stack")
	}
	n, _ := obj.FindProperty("Итог")
	if v, _ := obj.GetProperty(n); v.String() != "25" {
		t.Errorf("Итог = %s, want 25", v)
	}
}

func TestHandleErrorWithoutFrame(t *testing.T) {
	m, _ := newTestMachine(t)
	m.handlers = []exceptionHandler{{frame: &ExecutionFrame{}}}
	if err := m.handleError(errors.New("сбой")); err == nil {
		t.Fatal("error swallowed without a frame")
	}
	if len(m.handlers) != 1 {
		t.Errorf("handler dropped: %d left", len(m.handlers))
	}
}

func TestDuplicateDefinitions(t *testing.T) {
	tests := []struct {
		name  string
		input string
		id    diagnostics.ErrorID
	}{
		{"module variable", "Перем А;\nПерем а;", diagnostics.DuplicateVarDefinition},
		{"method", "Процедура П()\nКонецПроцедуры\nФункция п()\nКонецФункции", diagnostics.DuplicateMethodDefinition},
		{"parameter", "Процедура П(Х, х)\nКонецПроцедуры", diagnostics.DuplicateVarDefinition},
		{"local", "Процедура П()\nПерем Б;\nПерем Б;\nКонецПроцедуры", diagnostics.DuplicateVarDefinition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _ := newTestMachine(t)
			_, err := m.Env().Compiler.Compile(sources.FromString("dup", tt.input))
			var ce *diagnostics.CompilationError
			if !errors.As(err, &ce) {
				t.Fatalf("expected a compilation error, got %v", err)
			}
			if len(ce.Errors) != 1 || ce.Errors[0].ID != tt.id {
				t.Errorf("expected one %s, got %v", tt.id, ce)
			}
		})
	}
}

func TestAnnotationValues(t *testing.T) {
	m, _ := newTestMachine(t)
	mod, err := m.LoadSource(sources.FromString("ann", `
&Аннотация(Имя = "x", 5)
Перем А Экспорт;

&Тест(Порядок = 2, Пометка)
Процедура П() Экспорт
КонецПроцедуры
`))
	if err != nil {
		t.Fatal(err)
	}

	if len(mod.Variables) != 1 || len(mod.Variables[0].Annotations) != 1 {
		t.Fatalf("variable annotations: %+v", mod.Variables)
	}
	ann := mod.Variables[0].Annotations[0]
	if ann.Name != "Аннотация" || len(ann.Params) != 2 {
		t.Fatalf("annotation = %+v", ann)
	}
	if p := ann.Params[0]; p.Name != "Имя" || p.Value == nil || p.Value.String() != "x" {
		t.Errorf("first parameter = %+v", p)
	}
	if p := ann.Params[1]; p.Name != "" || p.Value == nil || p.Value.String() != "5" {
		t.Errorf("second parameter = %+v", p)
	}

	n, ok := mod.FindMethod("П")
	if !ok {
		t.Fatal("method not found")
	}
	anns := mod.Methods[n].Annotations
	if len(anns) != 1 || anns[0].Name != "Тест" || len(anns[0].Params) != 2 {
		t.Fatalf("method annotations = %+v", anns)
	}
	if p := anns[0].Params[0]; p.Name != "Порядок" || p.Value == nil || p.Value.String() != "2" {
		t.Errorf("Порядок = %+v", p)
	}
	if p := anns[0].Params[1]; p.Name != "Пометка" || p.Value != nil {
		t.Errorf("Пометка = %+v", p)
	}
}

func TestCallDepthLimit(t *testing.T) {
	m, _ := newTestMachine(t)
	m.Configure(config.MachineSettings{MaxCallDepth: 50})
	_, err := m.Run(sources.FromString("deep", `
		Процедура Бесконечно()
			Бесконечно();
		КонецПроцедуры
		Бесконечно();`))
	if !errors.Is(err, ErrCallDepthExceeded) {
		t.Fatalf("expected call depth error, got %v", err)
	}
}

func TestCancelledContextStopsScript(t *testing.T) {
	m, _ := newTestMachine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.SetContext(ctx)
	_, err := m.Run(sources.FromString("loop", `
		Попытка
			Пока Истина Цикл
			КонецЦикла;
		Исключение
		КонецПопытки;`))
	if !errors.Is(err, values.ErrScriptInterrupted) {
		t.Fatalf("expected interruption, got %v", err)
	}
}

func TestEvents(t *testing.T) {
	m, out := newTestMachine(t)
	obj, err := m.Run(sources.FromString("events", `
		Перем Источник Экспорт;
		Процедура ПриСобытии(Текст)
			Сообщить("получено: " + Текст);
		КонецПроцедуры
		Источник = Новый Массив;
		ДобавитьОбработчик Источник.Событие, ПриСобытии;
		ДобавитьОбработчик Источник.Событие, ПриСобытии;`))
	if err != nil {
		t.Fatal(err)
	}
	n, ok := obj.FindProperty("Источник")
	if !ok {
		t.Fatal("source variable not found")
	}
	source, _ := obj.GetProperty(n)

	events := m.Env().Events
	if n := events.HandlerCount(source, "событие"); n != 1 {
		t.Fatalf("handlers = %d, want 1", n)
	}
	if err := events.HandleEvent(source, "Событие", []values.Value{values.String("х")}); err != nil {
		t.Fatal(err)
	}
	if out.String() != "получено: х\n" {
		t.Errorf("got %q", out.String())
	}
	events.RemoveHandler(source, "СОБЫТИЕ", obj, "присобытии")
	if n := events.HandlerCount(source, "Событие"); n != 0 {
		t.Errorf("handlers after remove = %d", n)
	}
}

func TestCodeStat(t *testing.T) {
	m, _ := newTestMachine(t)
	stat := m.EnableCodeStat()
	_, err := m.Run(sources.FromString("stat", "Для Сч = 1 По 3 Цикл\nА = Сч;\nКонецЦикла;\n"))
	if err != nil {
		t.Fatal(err)
	}
	hits := map[int]int{}
	for _, h := range stat.Lines() {
		hits[h.Line] = h.Count
	}
	if hits[2] != 3 {
		t.Errorf("line 2 hit %d times, want 3 (%v)", hits[2], hits)
	}
	var buf bytes.Buffer
	if _, err := stat.WriteTo(&buf); err != nil || !strings.Contains(buf.String(), "stat:2\t3") {
		t.Errorf("report %q (%v)", buf.String(), err)
	}
}

func TestDisassemble(t *testing.T) {
	m, _ := newTestMachine(t)
	mod, err := m.LoadSource(sources.FromString("dis", `Функция Ф(А) Экспорт
		Возврат А + 1;
	КонецФункции`))
	if err != nil {
		t.Fatal(err)
	}
	text := Disassemble(mod.Image)
	for _, want := range []string{"== dis ==", "Функция Ф(А) Экспорт", "RETURN", "ADD"} {
		if !strings.Contains(text, want) {
			t.Errorf("listing lacks %q:\n%s", want, text)
		}
	}
}

func TestImageRoundTrip(t *testing.T) {
	m, out := newTestMachine(t)
	src := sources.FromString("cached", `Сообщить("из образа");`)
	img, err := m.Env().Compiler.Compile(src)
	if err != nil {
		t.Fatal(err)
	}
	data, err := MarshalImage(img)
	if err != nil {
		t.Fatal(err)
	}
	back, err := UnmarshalImage(data)
	if err != nil {
		t.Fatal(err)
	}
	mod, err := Load(back, src)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.Instantiate(mod); err != nil {
		t.Fatal(err)
	}
	if out.String() != "из образа\n" {
		t.Errorf("got %q", out.String())
	}
}
