package symbols_test

import (
	"errors"
	"testing"

	"github.com/funvibe/oscript/internal/symbols"
	"github.com/funvibe/oscript/internal/values"
)

func variable(name, alias string) *symbols.VariableSymbol {
	return &symbols.VariableSymbol{Names: symbols.Names{Name: name, Alias: alias}}
}

func TestScopeIsCaseInsensitive(t *testing.T) {
	s := symbols.NewScope()
	n, err := s.DefineVariable(variable("Счетчик", "Counter"))
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"Счетчик", "СЧЕТЧИК", "counter"} {
		got, ok := s.FindVariable(name)
		if !ok || got != n {
			t.Errorf("FindVariable(%q) = %d, %v", name, got, ok)
		}
	}
}

func TestDuplicates(t *testing.T) {
	s := symbols.NewScope()
	if _, err := s.DefineVariable(variable("А", "")); err != nil {
		t.Fatal(err)
	}
	_, err := s.DefineVariable(variable("а", ""))
	if !errors.Is(err, symbols.ErrDuplicateSymbol) {
		t.Errorf("expected ErrDuplicateSymbol, got %v", err)
	}

	// methods live in their own namespace
	m := &symbols.MethodSymbol{Names: symbols.Names{Name: "А"}}
	if _, err := s.DefineMethod(m); err != nil {
		t.Errorf("a method may share a name with a variable: %v", err)
	}
	if _, err := s.DefineMethod(m); !errors.Is(err, symbols.ErrDuplicateSymbol) {
		t.Errorf("expected ErrDuplicateSymbol, got %v", err)
	}
}

func TestTableSearchesInnermostFirst(t *testing.T) {
	table := symbols.NewTable()
	outer := symbols.NewScope()
	outer.DefineVariable(variable("Х", ""))
	outer.DefineVariable(variable("У", ""))
	inner := symbols.NewScope()
	inner.DefineVariable(variable("У", ""))
	table.PushScope(outer)
	table.PushScope(inner)

	b, ok := table.FindVariable("у")
	if !ok || b != (symbols.Binding{ScopeNumber: 1, MemberNumber: 0}) {
		t.Errorf("У: %+v %v", b, ok)
	}
	b, ok = table.FindVariable("х")
	if !ok || b != (symbols.Binding{ScopeNumber: 0, MemberNumber: 0}) {
		t.Errorf("Х: %+v %v", b, ok)
	}
	if _, ok := table.FindVariable("Z"); ok {
		t.Error("unknown name resolved")
	}

	table.PopScope()
	b, _ = table.FindVariable("У")
	if b.ScopeNumber != 0 || b.MemberNumber != 1 {
		t.Errorf("after pop: %+v", b)
	}
}

type fakeContext struct {
	*values.Members
}

func (fakeContext) DataType() values.DataType                            { return values.TypeObject }
func (fakeContext) TypeName() string                                     { return "Fake" }
func (fakeContext) String() string                                       { return "Fake" }
func (fakeContext) GetProperty(int) (values.Value, error)                { return values.Undefined, nil }
func (fakeContext) SetProperty(int, values.Value) error                  { return nil }
func (fakeContext) CallMethod(int, []values.Value) (values.Value, error) { return nil, nil }

func TestScopeFromContext(t *testing.T) {
	ctx := fakeContext{values.NewMembers(
		[]values.PropertyInfo{{Name: "Версия", Alias: "Version", Readable: true}},
		[]values.MethodInfo{{Name: "Сообщить", Alias: "Message", Params: values.Params("Текст")}},
	)}
	s := symbols.ScopeFromContext(ctx)
	if n, ok := s.FindVariable("version"); !ok || n != 0 {
		t.Errorf("property lookup: %d %v", n, ok)
	}
	n, ok := s.FindMethod("MESSAGE")
	if !ok {
		t.Fatal("method lookup failed")
	}
	if got := s.Method(n).Method.Params; len(got) != 1 {
		t.Errorf("params: %+v", got)
	}
	if _, isProp := s.Variable(0).(*symbols.PropertySymbol); !isProp {
		t.Error("context properties become PropertySymbols")
	}
}
