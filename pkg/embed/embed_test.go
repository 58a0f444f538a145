package oscript_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	oscript "github.com/funvibe/oscript/pkg/embed"
)

// Player is a Go struct used as a host object.
type Player struct {
	Name  string
	Score int
}

func (p *Player) AddScore(points int) {
	p.Score += points
}

func (p *Player) Status() string {
	return fmt.Sprintf("%s: %d", p.Name, p.Score)
}

func newEngine(t *testing.T, opts ...oscript.Option) (*oscript.Engine, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	e, err := oscript.New(append([]oscript.Option{oscript.WithOutput(&out)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { e.Close() })
	return e, &out
}

func TestEmbedAPI(t *testing.T) {
	e, out := newEngine(t)

	if err := e.Bind("Удвоить", func(x int) int { return x * 2 }); err != nil {
		t.Fatal(err)
	}
	player := &Player{Name: "Алиса", Score: 10}
	if err := e.Bind("Игрок", player); err != nil {
		t.Fatal(err)
	}

	obj, err := e.LoadModule("main", `
Перем Результат Экспорт;
Перем Имя Экспорт;
Результат = Удвоить(21);
Имя = Игрок.Name;
Игрок.AddScore(5);
Сообщить(Игрок.Status());
`)
	if err != nil {
		t.Fatalf("LoadModule failed: %v", err)
	}

	res, err := obj.Get("Результат")
	if err != nil {
		t.Fatal(err)
	}
	if res != 42 {
		t.Errorf("Результат = %v (%T)", res, res)
	}
	if name, _ := obj.Get("Имя"); name != "Алиса" {
		t.Errorf("Имя = %v", name)
	}
	if player.Score != 15 {
		t.Errorf("method did not change the Go struct: %d", player.Score)
	}
	if out.String() != "Алиса: 15\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestCallExportedMethods(t *testing.T) {
	e, _ := newEngine(t)
	obj, err := e.LoadModule("lib", `
Функция Сумма(Числа) Экспорт
	Итог = 0;
	Для Каждого Э Из Числа Цикл
		Итог = Итог + Э;
	КонецЦикла;
	Возврат Итог;
КонецФункции

Функция Пары() Экспорт
	Р = Новый Структура;
	Р.Вставить("Ключ", "значение");
	Р.Вставить("Число", 1.5);
	Возврат Р;
КонецФункции

Функция Список() Экспорт
	М = Новый Массив;
	М.Добавить(1);
	М.Добавить("два");
	Возврат М;
КонецФункции

Процедура Ничего() Экспорт
КонецПроцедуры
`)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		method string
		args   []any
		want   string
	}{
		{"Сумма", []any{[]int{1, 2, 3}}, "6"},
		{"Пары", nil, "map[Ключ:значение Число:1.5]"},
		{"Список", nil, "[1 два]"},
		{"Ничего", nil, "<nil>"},
	}
	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			got, err := obj.Call(tt.method, tt.args...)
			if err != nil {
				t.Fatal(err)
			}
			if s := fmt.Sprint(got); s != tt.want {
				t.Errorf("got %s, want %s", s, tt.want)
			}
		})
	}

	if _, err := obj.Call("Нет"); err == nil {
		t.Error("calling a missing method should fail")
	}
}

func TestObjectVariables(t *testing.T) {
	e, _ := newEngine(t)
	obj, err := e.LoadModule("vars", `
Перем Счетчик Экспорт;
Перем Скрытая;
Функция Следующий() Экспорт
	Счетчик = Счетчик + 1;
	Возврат Счетчик;
КонецФункции
Счетчик = 0;
`)
	if err != nil {
		t.Fatal(err)
	}
	if err := obj.Set("Счетчик", 41); err != nil {
		t.Fatal(err)
	}
	if got, _ := obj.Call("Следующий"); got != 42 {
		t.Errorf("Следующий() = %v", got)
	}
	if _, err := obj.Get("Скрытая"); err == nil {
		t.Error("non-exported variable is visible")
	}
}

func TestBoundVariables(t *testing.T) {
	e, _ := newEngine(t)
	if err := e.Bind("Порог", 10); err != nil {
		t.Fatal(err)
	}
	if err := e.Bind("Настройки", map[string]any{"Имя": "тест"}); err != nil {
		t.Fatal(err)
	}
	if err := e.Bind("Порог", 1); err == nil {
		t.Error("duplicate binding accepted")
	}

	if err := e.Set("Порог", 15); err != nil {
		t.Fatal(err)
	}
	if got, err := e.Eval("Порог + 1"); err != nil || got != 16 {
		t.Errorf("Eval = %v, %v", got, err)
	}
	if got, err := e.Eval("Настройки.Имя"); err != nil || got != "тест" {
		t.Errorf("Eval = %v, %v", got, err)
	}
	if got, _ := e.Get("Порог"); got != 15 {
		t.Errorf("Get = %v", got)
	}

	if err := e.Bind("Поздно", 1); !errors.Is(err, oscript.ErrEngineStarted) {
		t.Errorf("Bind after start: %v", err)
	}
}

func TestHostErrors(t *testing.T) {
	e, _ := newEngine(t)
	e.Bind("Проверить", func(s string) error {
		if s == "" {
			return errors.New("пустая строка")
		}
		return nil
	})
	e.Bind("Разделить", func(a, b float64) (float64, error) {
		if b == 0 {
			return 0, errors.New("деление на ноль")
		}
		return a / b, nil
	})

	if _, err := e.LoadModule("ok", `Проверить("да");`); err != nil {
		t.Fatal(err)
	}
	_, err := e.LoadModule("bad", `Проверить("");`)
	if err == nil || !strings.Contains(err.Error(), "пустая строка") {
		t.Errorf("error = %v", err)
	}

	if got, err := e.Eval("Разделить(3, 2)"); err != nil || got != 1.5 {
		t.Errorf("Eval = %v, %v", got, err)
	}
	if _, err := e.Eval("Разделить(1, 0)"); err == nil {
		t.Error("Go error not propagated")
	}
}

func TestHostErrorIsCatchable(t *testing.T) {
	e, out := newEngine(t)
	e.Bind("Упасть", func() error { return errors.New("отказ") })
	_, err := e.LoadModule("try", `
Попытка
	Упасть();
Исключение
	Сообщить(ИнформацияОбОшибке().Описание);
КонецПопытки;
`)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "отказ") {
		t.Errorf("output = %q", out.String())
	}
}

func TestHostCallbackExceptionCrossesBoundary(t *testing.T) {
	e, out := newEngine(t)
	var (
		obj     *oscript.Object
		hostErr error
		seen    string
	)
	e.Bind("ВызватьСкрипт", func() error {
		_, hostErr = obj.Call("Бросить")
		seen = out.String()
		return hostErr
	})

	var err error
	obj, err = e.LoadModule("lib", `
Процедура Бросить() Экспорт
	ВызватьИсключение "изнутри";
КонецПроцедуры

Процедура Запуск() Экспорт
	Попытка
		Попытка
			ВызватьИсключение "локально";
		Исключение
			Сообщить("внутр:" + ОписаниеОшибки());
		КонецПопытки;
		ВызватьСкрипт();
		Сообщить("не выполнится");
	Исключение
		Сообщить("внеш:" + ИнформацияОбОшибке().Описание);
	КонецПопытки;
КонецПроцедуры
`)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := obj.Call("Запуск"); err != nil {
		t.Fatal(err)
	}

	if hostErr == nil || !strings.Contains(hostErr.Error(), "изнутри") || !strings.Contains(hostErr.Error(), "lib") {
		t.Errorf("host got %v", hostErr)
	}
	if seen != "внутр:локально\n" {
		t.Errorf("outer handler ran before the host saw the error: %q", seen)
	}
	if out.String() != "внутр:локально\nвнеш:изнутри\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestExecuteAndEval(t *testing.T) {
	e, out := newEngine(t)
	if err := e.Execute(`Для И = 1 По 3 Цикл Сообщить(И); КонецЦикла;`); err != nil {
		t.Fatal(err)
	}
	if out.String() != "1\n2\n3\n" {
		t.Errorf("output = %q", out.String())
	}
	if _, err := e.Eval("1 +"); err == nil {
		t.Error("broken expression accepted")
	}
}

func TestLoadFileWithImageCache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hello.os")
	if err := os.WriteFile(path, []byte(`Сообщить("из файла");`), 0o644); err != nil {
		t.Fatal(err)
	}
	e, out := newEngine(t, oscript.WithImageCache(filepath.Join(dir, "cache.db")))
	for i := 0; i < 2; i++ {
		if _, err := e.LoadFile(path); err != nil {
			t.Fatal(err)
		}
	}
	if out.String() != "из файла\nиз файла\n" {
		t.Errorf("output = %q", out.String())
	}
}

type Button struct {
	Caption string
}

func TestEvents(t *testing.T) {
	e, _ := newEngine(t)
	button := &Button{Caption: "ОК"}
	e.Bind("Кнопка", button)
	obj, err := e.LoadModule("events", `
Перем Получено Экспорт;
Процедура ПриНажатии(Значение) Экспорт
	Получено = Кнопка.Caption + " " + Значение;
КонецПроцедуры
ДобавитьОбработчик Кнопка.Нажатие, ПриНажатии;
`)
	if err != nil {
		t.Fatal(err)
	}
	if err := e.HandleEvent(button, "нажатие", 7); err != nil {
		t.Fatal(err)
	}
	if got, _ := obj.Get("Получено"); got != "ОК 7" {
		t.Errorf("Получено = %v", got)
	}
}
