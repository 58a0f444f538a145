package stdlib

import (
	"strings"

	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

const (
	structInsert = iota
	structDelete
	structCount
	structClear
	structProperty
)

var structureMembers = values.NewMembers(nil, []values.MethodInfo{
	structInsert:   {Name: "Вставить", Alias: "Insert", Params: values.Optional(values.Params("Ключ", "Значение"), 1)},
	structDelete:   {Name: "Удалить", Alias: "Delete", Params: values.Params("Ключ")},
	structCount:    {Name: "Количество", Alias: "Count", IsFunction: true},
	structClear:    {Name: "Очистить", Alias: "Clear"},
	structProperty: {Name: "Свойство", Alias: "Property", IsFunction: true, Params: []values.ParameterInfo{{Name: "Ключ", ByValue: true}, {Name: "НайденноеЗначение", HasDefault: true}}},
})

var fixedStructureMembers = values.NewMembers(nil, []values.MethodInfo{
	structCount:    structureMembers.Method(structCount),
	structProperty: structureMembers.Method(structProperty),
})

type field struct {
	key   string
	value values.Value
}

// Structure is Структура: named values in insertion order, each key
// also visible as a property.
type Structure struct {
	*values.Members
	fields []field
	index  map[string]int
	fixed  bool
}

func NewStructure() *Structure {
	return &Structure{Members: structureMembers, index: make(map[string]int)}
}

// newStructure is Новый Структура([ключи, значения...]) and also accepts
// a fixed structure to copy.
func newStructure(args []values.Value) (values.Value, error) {
	return buildStructure(NewStructure(), args)
}

func newFixedStructure(args []values.Value) (values.Value, error) {
	s := NewStructure()
	s.Members = fixedStructureMembers
	s.fixed = true
	return buildStructure(s, args)
}

func buildStructure(s *Structure, args []values.Value) (values.Value, error) {
	first := values.Arg(args, 0)
	if first == nil {
		return s, nil
	}
	if src, ok := first.(*Structure); ok {
		if len(args) > 1 {
			return nil, values.TooManyArguments(s.TypeName())
		}
		for _, f := range src.fields {
			s.insert(f.key, f.value)
		}
		return s, nil
	}
	keys, ok := first.(values.String)
	if !ok {
		return nil, values.InvalidArgumentType(1)
	}
	for i, k := range strings.Split(string(keys), ",") {
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		v := values.Arg(args, i+1)
		if v == nil {
			v = values.Undefined
		}
		if err := s.insert(k, v); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func validKey(k string) bool {
	if k == "" {
		return false
	}
	for i, r := range k {
		letter := r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= 0x400 && r <= 0x4FF
		if !letter && (i == 0 || r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func (s *Structure) insert(key string, v values.Value) error {
	if !validKey(key) {
		return values.InvalidArgumentValue(1)
	}
	folded := token.Fold(key)
	if i, ok := s.index[folded]; ok {
		s.fields[i].value = values.Raw(v)
		return nil
	}
	s.index[folded] = len(s.fields)
	s.fields = append(s.fields, field{key: key, value: values.Raw(v)})
	return nil
}

func (s *Structure) remove(key string) {
	folded := token.Fold(key)
	i, ok := s.index[folded]
	if !ok {
		return
	}
	s.fields = append(s.fields[:i], s.fields[i+1:]...)
	delete(s.index, folded)
	for k, j := range s.index {
		if j > i {
			s.index[k] = j - 1
		}
	}
}

// Get returns the value stored under key.
func (s *Structure) Get(key string) (values.Value, bool) {
	i, ok := s.index[token.Fold(key)]
	if !ok {
		return nil, false
	}
	return s.fields[i].value, true
}

// Insert adds or replaces a field.
func (s *Structure) Insert(key string, v values.Value) error {
	return s.insert(key, v)
}

func (s *Structure) Len() int { return len(s.fields) }

func (s *Structure) DataType() values.DataType { return values.TypeObject }

func (s *Structure) TypeName() string {
	if s.fixed {
		return config.FixedStructureTypeName
	}
	return config.StructureTypeName
}

func (s *Structure) String() string { return s.TypeName() }

func (s *Structure) FindProperty(name string) (int, bool) {
	i, ok := s.index[token.Fold(name)]
	return i, ok
}

func (s *Structure) PropertyCount() int { return len(s.fields) }

func (s *Structure) Property(n int) values.PropertyInfo {
	return values.PropertyInfo{Name: s.fields[n].key, Readable: true, Writable: !s.fixed}
}

func (s *Structure) GetProperty(n int) (values.Value, error) {
	return s.fields[n].value, nil
}

func (s *Structure) SetProperty(n int, v values.Value) error {
	if s.fixed {
		return values.PropertyNotWritable(s.fields[n].key)
	}
	s.fields[n].value = values.Raw(v)
	return nil
}

func (s *Structure) GetIndexed(index values.Value) (values.Value, error) {
	key := values.AsString(index)
	v, ok := s.Get(key)
	if !ok {
		return nil, values.PropertyNotFound(key)
	}
	return v, nil
}

func (s *Structure) SetIndexed(index, v values.Value) error {
	key := values.AsString(index)
	i, ok := s.index[token.Fold(key)]
	if !ok {
		return values.PropertyNotFound(key)
	}
	return s.SetProperty(i, v)
}

func (s *Structure) Iterate() values.Iterator {
	items := make([]values.Value, len(s.fields))
	for i, f := range s.fields {
		items[i] = &KeyAndValue{key: values.String(f.key), value: f.value}
	}
	return values.NewSliceIterator(items)
}

func (s *Structure) CallMethod(n int, args []values.Value) (values.Value, error) {
	switch n {
	case structInsert:
		if s.fixed {
			break
		}
		v := values.Arg(args, 1)
		if v == nil {
			v = values.Undefined
		}
		return nil, s.insert(values.AsString(values.Arg(args, 0)), v)
	case structDelete:
		if s.fixed {
			break
		}
		s.remove(values.AsString(values.Arg(args, 0)))
		return nil, nil
	case structCount:
		return values.NumberFromInt(int64(len(s.fields))), nil
	case structClear:
		if s.fixed {
			break
		}
		s.fields = nil
		s.index = make(map[string]int)
		return nil, nil
	case structProperty:
		v, ok := s.Get(values.AsString(values.Arg(args, 0)))
		if len(args) > 1 {
			if out, isVar := args[1].(values.Variable); isVar {
				if !ok {
					v = values.Undefined
				}
				if err := out.Set(v); err != nil {
					return nil, err
				}
			}
		}
		return values.Boolean(ok), nil
	}
	return nil, values.MethodNotFound(s.Method(n).Name)
}

// KeyAndValue is КлючИЗначение, the element of structure iteration.
type KeyAndValue struct {
	key   values.Value
	value values.Value
}

var keyAndValueMembers = values.NewMembers([]values.PropertyInfo{
	{Name: "Ключ", Alias: "Key", Readable: true},
	{Name: "Значение", Alias: "Value", Readable: true},
}, nil)

func NewKeyAndValue(key, value values.Value) *KeyAndValue {
	return &KeyAndValue{key: values.Raw(key), value: values.Raw(value)}
}

func (kv *KeyAndValue) Key() values.Value   { return kv.key }
func (kv *KeyAndValue) Value() values.Value { return kv.value }

func (kv *KeyAndValue) DataType() values.DataType { return values.TypeObject }
func (kv *KeyAndValue) TypeName() string          { return config.KeyAndValueTypeName }
func (kv *KeyAndValue) String() string            { return config.KeyAndValueTypeName }

func (kv *KeyAndValue) FindProperty(name string) (int, bool) { return keyAndValueMembers.FindProperty(name) }
func (kv *KeyAndValue) PropertyCount() int                   { return keyAndValueMembers.PropertyCount() }
func (kv *KeyAndValue) Property(n int) values.PropertyInfo   { return keyAndValueMembers.Property(n) }
func (kv *KeyAndValue) FindMethod(string) (int, bool)        { return -1, false }
func (kv *KeyAndValue) MethodCount() int                     { return 0 }
func (kv *KeyAndValue) Method(int) values.MethodInfo         { return values.MethodInfo{} }

func (kv *KeyAndValue) GetProperty(n int) (values.Value, error) {
	if n == 0 {
		return kv.key, nil
	}
	return kv.value, nil
}

func (kv *KeyAndValue) SetProperty(n int, _ values.Value) error {
	return values.PropertyNotWritable(kv.Property(n).Name)
}

func (kv *KeyAndValue) CallMethod(n int, _ []values.Value) (values.Value, error) {
	return nil, values.MethodNotFound("")
}
