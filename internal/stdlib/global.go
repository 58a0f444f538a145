// Package stdlib provides the library types and the global context that
// scripts get out of the box: collections, key/value pairs and console
// output. Everything else is registered by the host.
package stdlib

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/environment"
	"github.com/funvibe/oscript/internal/values"
)

const (
	globalMessage = iota
	globalValueIsFilled
)

var globalMembers = values.NewMembers(nil, []values.MethodInfo{
	globalMessage:       {Name: "Сообщить", Alias: "Message", Params: values.Optional(values.Params("ТекстСообщения", "Статус"), 1)},
	globalValueIsFilled: {Name: "ЗначениеЗаполнено", Alias: "ValueIsFilled", IsFunction: true, Params: values.Params("Значение")},
})

// GlobalContext holds the global procedures. Output goes to the writer
// given at construction.
type GlobalContext struct {
	*values.Members
	mu  sync.Mutex
	out io.Writer
}

func NewGlobalContext(out io.Writer) *GlobalContext {
	return &GlobalContext{Members: globalMembers, out: out}
}

func (g *GlobalContext) DataType() values.DataType { return values.TypeObject }
func (g *GlobalContext) TypeName() string          { return "ГлобальныйКонтекст" }
func (g *GlobalContext) String() string            { return g.TypeName() }

func (g *GlobalContext) GetProperty(int) (values.Value, error) {
	return nil, values.PropertyNotFound("")
}

func (g *GlobalContext) SetProperty(int, values.Value) error {
	return values.PropertyNotFound("")
}

func (g *GlobalContext) CallMethod(n int, args []values.Value) (values.Value, error) {
	switch n {
	case globalMessage:
		text := ""
		if v := values.Arg(args, 0); v != nil {
			text = v.String()
		}
		g.mu.Lock()
		defer g.mu.Unlock()
		_, err := fmt.Fprintln(g.out, text)
		return nil, err
	case globalValueIsFilled:
		return values.Boolean(isFilled(values.Arg(args, 0))), nil
	}
	return nil, values.MethodNotFound(g.Method(n).Name)
}

func isFilled(v values.Value) bool {
	switch x := values.Raw(v).(type) {
	case values.Boolean:
		return true
	case values.Number:
		return !x.IsZero()
	case values.String:
		return strings.TrimSpace(string(x)) != ""
	case values.Date:
		return !x.IsEmpty()
	case *Array:
		return x.Len() > 0
	case *Structure:
		return x.Len() > 0
	case values.Context:
		return true
	}
	return false
}

// Register adds the library types to tm and attaches the global context
// to gm.
func Register(tm *environment.TypeManager, gm *environment.GlobalsManager, out io.Writer) error {
	for _, t := range []struct {
		name, alias string
		f           environment.Factory
	}{
		{config.ArrayTypeName, config.ArrayTypeAlias, newArray},
		{config.StructureTypeName, config.StructureTypeAlias, newStructure},
		{config.FixedStructureTypeName, config.FixedStructureAlias, newFixedStructure},
		{config.KeyAndValueTypeName, config.KeyAndValueTypeAlias, newKeyAndValue},
	} {
		if err := tm.Register(t.name, t.alias, t.f); err != nil {
			return err
		}
	}
	gm.Attach(NewGlobalContext(out))
	return nil
}

func newKeyAndValue(args []values.Value) (values.Value, error) {
	key, value := values.Arg(args, 0), values.Arg(args, 1)
	if key == nil {
		key = values.Undefined
	}
	if value == nil {
		value = values.Undefined
	}
	return NewKeyAndValue(key, value), nil
}
