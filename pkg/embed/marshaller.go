package oscript

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"github.com/funvibe/oscript/internal/config"
	"github.com/funvibe/oscript/internal/stdlib"
	"github.com/funvibe/oscript/internal/values"
)

var (
	valueType   = reflect.TypeOf((*values.Value)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	decimalType = reflect.TypeOf(apd.Decimal{})
	uuidType    = reflect.TypeOf(uuid.UUID{})
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	anyType     = reflect.TypeOf((*any)(nil)).Elem()
)

var errFuncValue = errors.New("functions can only be bound by name")

// Marshaller handles conversion between Go and script values. The same
// Go pointer always maps to the same host object, so scripts can compare
// it and subscribe to its events.
type Marshaller struct {
	mu      sync.Mutex
	objects map[hostKey]*hostObject
}

type hostKey struct {
	t reflect.Type
	p uintptr
}

func NewMarshaller() *Marshaller {
	return &Marshaller{objects: make(map[hostKey]*hostObject)}
}

func (m *Marshaller) wrap(ptr reflect.Value) *hostObject {
	key := hostKey{ptr.Type(), ptr.Pointer()}
	m.mu.Lock()
	defer m.mu.Unlock()
	if obj, ok := m.objects[key]; ok {
		return obj
	}
	obj := newHostObject(m, ptr)
	m.objects[key] = obj
	return obj
}

// ToValue converts a Go value to a script value. Pointers to structs
// become host objects whose exported fields and methods scripts can use.
func (m *Marshaller) ToValue(val any) (values.Value, error) {
	if val == nil {
		return values.Undefined, nil
	}

	// Check if already a script value
	switch v := val.(type) {
	case values.Value:
		return v, nil
	case *Object:
		return v.script, nil
	case time.Time:
		return values.NewDate(v), nil
	case *apd.Decimal:
		return values.NumberFromDecimal(v), nil
	case apd.Decimal:
		return values.NumberFromDecimal(&v), nil
	case uuid.UUID:
		return values.String(v.String()), nil
	case []byte:
		return values.String(v), nil
	}

	// Unpack interface if it's contained in one
	v := reflect.ValueOf(val)
	if v.Kind() == reflect.Interface {
		v = v.Elem()
	}
	if !v.IsValid() {
		return values.Undefined, nil
	}

	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return values.NumberFromInt(v.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return values.NumberFromInt(int64(v.Uint())), nil
	case reflect.Float32, reflect.Float64:
		n, err := values.NumberFromFloat(v.Float())
		if err != nil {
			return nil, err
		}
		return n, nil
	case reflect.Bool:
		return values.Boolean(v.Bool()), nil
	case reflect.String:
		return values.String(v.String()), nil
	case reflect.Slice, reflect.Array:
		return m.sliceToArray(v)
	case reflect.Map:
		return m.mapToStructure(v)
	case reflect.Struct:
		// Struct by value -> Structure (copy)
		return m.structToStructure(v)
	case reflect.Ptr:
		if v.IsNil() {
			return values.Undefined, nil
		}
		if v.Elem().Kind() == reflect.Struct && v.Elem().Type() != timeType {
			// Pointer -> host object (reference)
			return m.wrap(v), nil
		}
		return m.ToValue(v.Elem().Interface())
	case reflect.Func:
		return nil, errFuncValue
	}
	return nil, fmt.Errorf("unsupported Go type %s", v.Type())
}

// FromValue converts a script value to a Go value.
// targetType is optional; if provided, tries to convert to that type.
func (m *Marshaller) FromValue(obj values.Value, targetType reflect.Type) (any, error) {
	if obj == nil {
		return nil, nil
	}
	obj = values.Raw(obj)

	// If target type is values.Value, return as is
	if targetType != nil && targetType == valueType {
		return obj, nil
	}

	var (
		out any
		err error
	)
	switch o := obj.(type) {
	case values.Number:
		out = m.numberToGo(o, targetType)
	case values.Boolean:
		out = bool(o)
	case values.String:
		out = string(o)
	case values.Date:
		out = o.Time()
	case *stdlib.Array:
		return m.arrayToSlice(o, targetType)
	case *stdlib.Structure:
		out, err = m.structureToMap(o)
	case *hostObject:
		out = o.ptr.Interface()
	default:
		switch obj.DataType() {
		case values.TypeUndefined, values.TypeNull:
			return nil, nil
		}
		// other objects stay script values
		out = obj
	}
	if err != nil {
		return nil, err
	}
	if targetType == nil {
		return out, nil
	}
	rv, err := assign(out, targetType)
	if err != nil {
		return nil, err
	}
	return rv.Interface(), nil
}

func (m *Marshaller) numberToGo(n values.Number, targetType reflect.Type) any {
	if targetType != nil {
		switch targetType.Kind() {
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return n.Int64()
		case reflect.Float32, reflect.Float64:
			return n.Float64()
		case reflect.String:
			return n.String()
		}
		switch targetType {
		case decimalType:
			return *n.Decimal()
		case reflect.PointerTo(decimalType):
			return n.Decimal()
		}
	}
	if n.IsInteger() {
		return n.Int() // Default to int
	}
	return n.Float64()
}

// assign converts a Go value produced by FromValue to target.
func assign(val any, target reflect.Type) (reflect.Value, error) {
	if val == nil {
		return reflect.Zero(target), nil
	}
	rv := reflect.ValueOf(val)
	switch {
	case rv.Type().AssignableTo(target):
		return rv, nil
	case rv.Type().ConvertibleTo(target) && rv.Kind() != reflect.String && target.Kind() != reflect.String:
		return rv.Convert(target), nil
	case rv.Kind() == reflect.String && target.Kind() == reflect.String:
		return rv.Convert(target), nil
	case target == uuidType && rv.Kind() == reflect.String:
		u, err := uuid.Parse(rv.String())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("cannot convert %q to UUID: %w", rv.String(), err)
		}
		return reflect.ValueOf(u), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot convert %s to %s", rv.Type(), target)
}

func (m *Marshaller) sliceToArray(v reflect.Value) (*stdlib.Array, error) {
	items := make([]values.Value, v.Len())
	for i := 0; i < v.Len(); i++ {
		val, err := m.ToValue(v.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		items[i] = val
	}
	return stdlib.NewArray(items...), nil
}

func (m *Marshaller) mapToStructure(v reflect.Value) (*stdlib.Structure, error) {
	if v.Type().Key().Kind() != reflect.String {
		return nil, fmt.Errorf("map keys must be strings, got %s", v.Type().Key())
	}
	result := stdlib.NewStructure()
	iter := v.MapRange()
	for iter.Next() {
		val, err := m.ToValue(iter.Value().Interface())
		if err != nil {
			return nil, fmt.Errorf("map value: %w", err)
		}
		if err := result.Insert(iter.Key().String(), val); err != nil {
			return nil, fmt.Errorf("map key: %w", err)
		}
	}
	return result, nil
}

func (m *Marshaller) structToStructure(v reflect.Value) (*stdlib.Structure, error) {
	result := stdlib.NewStructure()
	t := v.Type()
	for i := 0; i < v.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		val, err := m.ToValue(v.Field(i).Interface())
		if err != nil {
			return nil, err
		}
		if err := result.Insert(field.Name, val); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (m *Marshaller) arrayToSlice(a *stdlib.Array, targetType reflect.Type) (any, error) {
	// If targetType is nil, default to []any
	elemType := anyType
	if targetType != nil && targetType.Kind() == reflect.Slice {
		elemType = targetType.Elem()
	} else if targetType != nil && targetType != anyType {
		return nil, fmt.Errorf("cannot convert %s to %s", config.ArrayTypeName, targetType)
	}

	slice := reflect.MakeSlice(reflect.SliceOf(elemType), 0, a.Len())
	for _, el := range a.Items() {
		val, err := m.FromValue(el, elemType)
		if err != nil {
			return nil, err
		}
		rv, err := assign(val, elemType)
		if err != nil {
			return nil, err
		}
		slice = reflect.Append(slice, rv)
	}
	return slice.Interface(), nil
}

func (m *Marshaller) structureToMap(s *stdlib.Structure) (map[string]any, error) {
	result := make(map[string]any, s.Len())
	it := s.Iterate()
	for {
		item, ok := it.Next()
		if !ok {
			break
		}
		kv, ok := item.(*stdlib.KeyAndValue)
		if !ok {
			continue
		}
		val, err := m.FromValue(kv.Value(), nil)
		if err != nil {
			return nil, err
		}
		result[kv.Key().String()] = val
	}
	return result, nil
}
