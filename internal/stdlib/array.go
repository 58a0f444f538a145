package stdlib

import (
	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/values"
)

const (
	arrayAdd = iota
	arrayInsert
	arrayCount
	arrayUBound
	arrayGet
	arraySet
	arrayFind
	arrayDelete
	arrayClear
)

var arrayMembers = values.NewMembers(nil, []values.MethodInfo{
	arrayAdd:    {Name: "Добавить", Alias: "Add", Params: values.Optional(values.Params("Значение"), 0)},
	arrayInsert: {Name: "Вставить", Alias: "Insert", Params: values.Optional(values.Params("Индекс", "Значение"), 1)},
	arrayCount:  {Name: "Количество", Alias: "Count", IsFunction: true},
	arrayUBound: {Name: "ВГраница", Alias: "UBound", IsFunction: true},
	arrayGet:    {Name: "Получить", Alias: "Get", IsFunction: true, Params: values.Params("Индекс")},
	arraySet:    {Name: "Установить", Alias: "Set", Params: values.Params("Индекс", "Значение")},
	arrayFind:   {Name: "Найти", Alias: "Find", IsFunction: true, Params: values.Params("Значение")},
	arrayDelete: {Name: "Удалить", Alias: "Delete", Params: values.Params("Индекс")},
	arrayClear:  {Name: "Очистить", Alias: "Clear"},
})

// Array is Массив: a zero-based list of values.
type Array struct {
	*values.Members
	items []values.Value
}

func NewArray(items ...values.Value) *Array {
	a := &Array{Members: arrayMembers}
	for _, v := range items {
		a.items = append(a.items, values.Raw(v))
	}
	return a
}

// newArray is the constructor of Новый Массив([размер]).
func newArray(args []values.Value) (values.Value, error) {
	if len(args) > 1 {
		return nil, values.TooManyArguments(config.ArrayTypeName)
	}
	a := NewArray()
	if size := values.Arg(args, 0); size != nil {
		n, err := values.AsInt(size)
		if err != nil || n < 0 {
			return nil, values.InvalidArgumentValue(1)
		}
		a.items = make([]values.Value, n)
		for i := range a.items {
			a.items[i] = values.Undefined
		}
	}
	return a, nil
}

func (a *Array) DataType() values.DataType { return values.TypeObject }
func (a *Array) TypeName() string          { return config.ArrayTypeName }
func (a *Array) String() string            { return config.ArrayTypeName }

func (a *Array) Items() []values.Value { return a.items }
func (a *Array) Len() int              { return len(a.items) }

func (a *Array) GetProperty(n int) (values.Value, error) {
	return nil, values.PropertyNotFound("")
}

func (a *Array) SetProperty(n int, v values.Value) error {
	return values.PropertyNotFound("")
}

func (a *Array) index(v values.Value, size int) (int, error) {
	n, err := values.AsNumber(v)
	if err != nil {
		return 0, values.InvalidArgumentType(1)
	}
	i := n.Int()
	if i < 0 || i >= size {
		return 0, values.IndexOutOfRange()
	}
	return i, nil
}

func (a *Array) GetIndexed(index values.Value) (values.Value, error) {
	i, err := a.index(index, len(a.items))
	if err != nil {
		return nil, err
	}
	return a.items[i], nil
}

func (a *Array) SetIndexed(index, v values.Value) error {
	i, err := a.index(index, len(a.items))
	if err != nil {
		return err
	}
	a.items[i] = values.Raw(v)
	return nil
}

func (a *Array) Iterate() values.Iterator {
	return values.NewSliceIterator(append([]values.Value(nil), a.items...))
}

func (a *Array) CallMethod(n int, args []values.Value) (values.Value, error) {
	switch n {
	case arrayAdd:
		v := values.Arg(args, 0)
		if v == nil {
			v = values.Undefined
		}
		a.items = append(a.items, v)
	case arrayInsert:
		i, err := a.index(values.Arg(args, 0), len(a.items)+1)
		if err != nil {
			return nil, err
		}
		v := values.Arg(args, 1)
		if v == nil {
			v = values.Undefined
		}
		a.items = append(a.items, nil)
		copy(a.items[i+1:], a.items[i:])
		a.items[i] = v
	case arrayCount:
		return values.NumberFromInt(int64(len(a.items))), nil
	case arrayUBound:
		return values.NumberFromInt(int64(len(a.items) - 1)), nil
	case arrayGet:
		return a.GetIndexed(values.Arg(args, 0))
	case arraySet:
		return nil, a.SetIndexed(values.Arg(args, 0), values.Arg(args, 1))
	case arrayFind:
		needle := values.Arg(args, 0)
		for i, v := range a.items {
			if values.Equals(v, needle) {
				return values.NumberFromInt(int64(i)), nil
			}
		}
		return values.Undefined, nil
	case arrayDelete:
		i, err := a.index(values.Arg(args, 0), len(a.items))
		if err != nil {
			return nil, err
		}
		a.items = append(a.items[:i], a.items[i+1:]...)
	case arrayClear:
		a.items = nil
	default:
		return nil, values.MethodNotFound(a.Method(n).Name)
	}
	return nil, nil
}
