package backend

import (
	"context"
	"testing"
	"time"

	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/vm"
)

var fuzzSeeds = []string{
	"Сообщить(\"Привет\");",
	"А = 1 + 2 * 3;",
	"Если А > 1 Тогда Б = 2; ИначеЕсли А = 0 Тогда Б = 3; Иначе Б = 4; КонецЕсли;",
	"Функция Ф(Знач П = 1) Экспорт Возврат П * 2; КонецФункции",
	"Для И = 1 По 3 Цикл Продолжить; КонецЦикла;",
	"Попытка ВызватьИсключение \"x\"; Исключение ВызватьИсключение; КонецПопытки;",
	"#Если Сервер Тогда\nА = 1;\n#КонецЕсли",
	"М = Новый Массив; М.Добавить(?(Истина, 1, 2));",
	"~Метка: Перейти ~Метка;",
	"Если Тогда",
}

// FuzzFrontend feeds arbitrary text through the compile stages; broken
// input must end in diagnostics, never in a panic.
func FuzzFrontend(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, code string) {
		env, err := vm.NewEnv(nil, nil)
		if err != nil {
			t.Fatal(err)
		}
		ctx := NewContext(sources.FromString("fuzz", code), env.Compiler)
		ctx = FrontStages(env.Compiler, nil).Run(ctx)
		if ctx.Err() == nil && ModuleImage(ctx) == nil {
			t.Fatal("no image and no error")
		}
	})
}

// FuzzImageRoundTrip checks that every image the compiler produces
// survives serialization and still runs the same way.
func FuzzImageRoundTrip(f *testing.F) {
	for _, s := range fuzzSeeds {
		f.Add(s)
	}
	f.Fuzz(func(t *testing.T, code string) {
		env, _ := newTestEnv(t)
		src := sources.FromString("fuzz", code)
		img, err := Compile(NewContext(src, env.Compiler), env.Compiler, nil)
		if err != nil {
			return
		}
		data, err := vm.MarshalImage(img)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		back, err := vm.UnmarshalImage(data)
		if err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if vm.Disassemble(img) != vm.Disassemble(back) {
			t.Fatal("listing changed after round trip")
		}

		mod, err := vm.Load(back, src)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		m := vm.New(env)
		m.SetContext(ctx)
		m.Instantiate(mod)
	})
}
