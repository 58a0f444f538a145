package stdlib

import (
	"bytes"
	"testing"

	"github.com/funvibe/oscript/internal/environment"
	"github.com/funvibe/oscript/internal/values"
)

func newEnv(t *testing.T) (*environment.TypeManager, *bytes.Buffer) {
	t.Helper()
	tm := environment.NewTypeManager()
	gm := environment.NewGlobalsManager()
	var out bytes.Buffer
	if err := Register(tm, gm, &out); err != nil {
		t.Fatal(err)
	}
	if gm.Count() != 1 {
		t.Fatalf("expected one global context, got %d", gm.Count())
	}
	return tm, &out
}

func call(t *testing.T, ctx values.Context, method string, args ...values.Value) values.Value {
	t.Helper()
	n, ok := ctx.FindMethod(method)
	if !ok {
		t.Fatalf("method %s not found", method)
	}
	v, err := ctx.CallMethod(n, args)
	if err != nil {
		t.Fatalf("%s: %v", method, err)
	}
	return v
}

func TestArray(t *testing.T) {
	tm, _ := newEnv(t)
	v, err := tm.NewInstance("array", []values.Value{values.NumberFromInt(2)})
	if err != nil {
		t.Fatal(err)
	}
	a := v.(*Array)
	call(t, a, "Добавить", values.String("x"))
	call(t, a, "Insert", values.Zero, values.String("first"))
	if got := call(t, a, "Количество"); got.String() != "4" {
		t.Errorf("count = %s", got)
	}
	if got := call(t, a, "Найти", values.String("x")); got.String() != "3" {
		t.Errorf("find = %s", got)
	}
	if got := call(t, a, "Найти", values.String("nope")); got != values.Undefined {
		t.Errorf("find missing = %v", got)
	}
	if _, err := a.GetIndexed(values.NumberFromInt(4)); err == nil {
		t.Error("index past the end should fail")
	}
	call(t, a, "Удалить", values.Zero)
	if got := call(t, a, "ВГраница"); got.String() != "2" {
		t.Errorf("ubound = %s", got)
	}
}

func TestStructure(t *testing.T) {
	tm, _ := newEnv(t)
	v, err := tm.NewInstance("Структура", []values.Value{values.String("А, Б"), values.NumberFromInt(1)})
	if err != nil {
		t.Fatal(err)
	}
	s := v.(*Structure)
	if b, ok := s.Get("б"); !ok || b != values.Undefined {
		t.Errorf("Б = %v, %v", b, ok)
	}
	n, ok := s.FindProperty("а")
	if !ok {
		t.Fatal("property А not found")
	}
	if err := values.NewPropertyReference(s, n).Set(values.String("new")); err != nil {
		t.Fatal(err)
	}

	out := values.NewCell("Значение", values.Undefined)
	if found := call(t, s, "Свойство", values.String("А"), out); found != values.True {
		t.Error("Свойство should report true")
	}
	if out.Value() != values.String("new") {
		t.Errorf("out parameter = %v", out.Value())
	}

	fixed, err := tm.NewInstance("FixedStructure", []values.Value{s})
	if err != nil {
		t.Fatal(err)
	}
	fs := fixed.(*Structure)
	if err := fs.SetProperty(0, values.Zero); err == nil {
		t.Error("fixed structure must be read-only")
	}
	if _, ok := fs.FindMethod("Вставить"); ok {
		t.Error("fixed structure has no Вставить")
	}

	it := s.Iterate()
	first, _ := it.Next()
	kv := first.(*KeyAndValue)
	if kv.Key() != values.String("А") {
		t.Errorf("key = %v", kv.Key())
	}
}

func TestMessage(t *testing.T) {
	_, out := newEnv(t)
	g := NewGlobalContext(out)
	call(t, g, "Сообщить", values.NumberFromInt(42))
	call(t, g, "message", values.True)
	if out.String() != "42\nДа\n" {
		t.Errorf("output = %q", out.String())
	}
	if got := call(t, g, "ЗначениеЗаполнено", values.String("  ")); got != values.False {
		t.Error("blank string is not filled")
	}
}

func TestTypeManager(t *testing.T) {
	tm, _ := newEnv(t)
	if err := tm.Register("Массив", "", newArray); err == nil {
		t.Error("duplicate registration must fail")
	}
	if _, err := tm.NewInstance("Несуществующий", nil); err == nil {
		t.Error("unknown type must fail")
	}
	tv, err := tm.TypeValue("number")
	if err != nil || tv.Name != "Число" {
		t.Errorf("TypeValue(number) = %v, %v", tv, err)
	}
	tv, err = tm.TypeValue("ARRAY")
	if err != nil || tv.Name != "Массив" {
		t.Errorf("TypeValue(ARRAY) = %v, %v", tv, err)
	}
}
