package values

// Variable is a mutable slot. Passing a Variable instead of its value is
// how by-reference arguments work: the callee writes through it.
type Variable interface {
	Value
	Name() string
	Get() (Value, error)
	Set(v Value) error
}

// Cell owns one value. Locals, module variables and by-value parameters
// are cells.
type Cell struct {
	name  string
	value Value
}

func NewCell(name string, v Value) *Cell {
	return &Cell{name: name, value: Raw(v)}
}

func (c *Cell) Name() string { return c.name }

func (c *Cell) Get() (Value, error) {
	if c.value == nil {
		return Undefined, nil
	}
	return c.value, nil
}

func (c *Cell) Set(v Value) error {
	c.value = Raw(v)
	return nil
}

// Value is Get without the error.
func (c *Cell) Value() Value {
	if c.value == nil {
		return Undefined
	}
	return c.value
}

func (c *Cell) DataType() DataType { return c.Value().DataType() }
func (c *Cell) TypeName() string   { return c.Value().TypeName() }
func (c *Cell) String() string     { return c.Value().String() }

// PropertyReference addresses a property of an object.
type PropertyReference struct {
	Target Context
	Index  int
}

func NewPropertyReference(target Context, index int) *PropertyReference {
	return &PropertyReference{Target: target, Index: index}
}

func (r *PropertyReference) Name() string {
	return r.Target.Property(r.Index).Name
}

func (r *PropertyReference) Get() (Value, error) {
	if !r.Target.Property(r.Index).Readable {
		return nil, PropertyNotReadable(r.Name())
	}
	return r.Target.GetProperty(r.Index)
}

func (r *PropertyReference) Set(v Value) error {
	if !r.Target.Property(r.Index).Writable {
		return PropertyNotWritable(r.Name())
	}
	return r.Target.SetProperty(r.Index, Raw(v))
}

func (r *PropertyReference) DataType() DataType { return Raw(r).DataType() }
func (r *PropertyReference) TypeName() string   { return Raw(r).TypeName() }
func (r *PropertyReference) String() string     { return Raw(r).String() }

// IndexedReference addresses an element of an indexable object.
type IndexedReference struct {
	Target Indexer
	Index  Value
}

func NewIndexedReference(target Indexer, index Value) *IndexedReference {
	return &IndexedReference{Target: target, Index: Raw(index)}
}

func (r *IndexedReference) Name() string { return "[" + r.Index.String() + "]" }

func (r *IndexedReference) Get() (Value, error) {
	return r.Target.GetIndexed(r.Index)
}

func (r *IndexedReference) Set(v Value) error {
	return r.Target.SetIndexed(r.Index, Raw(v))
}

func (r *IndexedReference) DataType() DataType { return Raw(r).DataType() }
func (r *IndexedReference) TypeName() string   { return Raw(r).TypeName() }
func (r *IndexedReference) String() string     { return Raw(r).String() }
