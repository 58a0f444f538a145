package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/funvibe/oscript/internal/symbols"
	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

// ImageFormatVersion changes whenever the layout of ModuleImage or the
// opcode numbering changes. Cached images of another version are stale.
const ImageFormatVersion = 1

// NoIndex marks an absent constant or method index.
const NoIndex = -1

// ModuleImage is the compiled form of a module. It is immutable once built
// and carries everything the loader needs, so it can be cached on disk.
type ModuleImage struct {
	Version          int                  `cbor:"1,keyasint"`
	Code             []Command            `cbor:"2,keyasint"`
	Constants        []ConstantDefinition `cbor:"3,keyasint,omitempty"`
	Methods          []MethodDescriptor   `cbor:"4,keyasint,omitempty"`
	Variables        []VariableDescriptor `cbor:"5,keyasint,omitempty"`
	VariableRefs     []symbols.Binding    `cbor:"6,keyasint,omitempty"`
	MethodRefs       []symbols.Binding    `cbor:"7,keyasint,omitempty"`
	ExportedProps    []ExportedSymbol     `cbor:"8,keyasint,omitempty"`
	ExportedMethods  []ExportedSymbol     `cbor:"9,keyasint,omitempty"`
	Annotations      []AnnotationDef      `cbor:"10,keyasint,omitempty"`
	EntryMethodIndex int                  `cbor:"11,keyasint"`
	ModuleInfo       ModuleInfo           `cbor:"12,keyasint"`
}

// ConstantDefinition is a literal in its source presentation.
type ConstantDefinition struct {
	Type         values.DataType `cbor:"1,keyasint"`
	Presentation string          `cbor:"2,keyasint"`
}

type AnnotationParamDef struct {
	Name       string `cbor:"1,keyasint,omitempty"`
	ValueIndex int    `cbor:"2,keyasint"`
}

type AnnotationDef struct {
	Name   string               `cbor:"1,keyasint"`
	Params []AnnotationParamDef `cbor:"2,keyasint,omitempty"`
}

type ParameterDef struct {
	Name              string          `cbor:"1,keyasint"`
	ByValue           bool            `cbor:"2,keyasint,omitempty"`
	HasDefault        bool            `cbor:"3,keyasint,omitempty"`
	DefaultValueIndex int             `cbor:"4,keyasint"`
	Annotations       []AnnotationDef `cbor:"5,keyasint,omitempty"`
}

type MethodSignature struct {
	Name        string          `cbor:"1,keyasint"`
	IsFunction  bool            `cbor:"2,keyasint,omitempty"`
	IsExport    bool            `cbor:"3,keyasint,omitempty"`
	Params      []ParameterDef  `cbor:"4,keyasint,omitempty"`
	Annotations []AnnotationDef `cbor:"5,keyasint,omitempty"`
}

// MethodDescriptor is a method of the module: its signature, the address
// of its first command and the names of its local slots. Parameters are
// the first locals.
type MethodDescriptor struct {
	Signature      MethodSignature `cbor:"1,keyasint"`
	EntryPoint     int             `cbor:"2,keyasint"`
	LocalVariables []string        `cbor:"3,keyasint,omitempty"`
}

type VariableDescriptor struct {
	Name        string          `cbor:"1,keyasint"`
	IsExport    bool            `cbor:"2,keyasint,omitempty"`
	Annotations []AnnotationDef `cbor:"3,keyasint,omitempty"`
}

// ExportedSymbol maps an exported name to its slot in the module.
type ExportedSymbol struct {
	Name  string `cbor:"1,keyasint"`
	Index int    `cbor:"2,keyasint"`
}

type ModuleInfo struct {
	ModuleName string   `cbor:"1,keyasint"`
	Origin     string   `cbor:"2,keyasint,omitempty"`
	Imports    []string `cbor:"3,keyasint,omitempty"`
}

// HasEntry reports whether the module has a body to run.
func (img *ModuleImage) HasEntry() bool {
	return img.EntryMethodIndex != NoIndex
}

// FindMethod returns the index of the method with the given name.
func (img *ModuleImage) FindMethod(name string) (int, bool) {
	for i := range img.Methods {
		if token.EqualFold(img.Methods[i].Signature.Name, name) {
			return i, true
		}
	}
	return NoIndex, false
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalImage serializes a ModuleImage to CBOR bytes.
func MarshalImage(img *ModuleImage) ([]byte, error) {
	return cborEncMode.Marshal(img)
}

// UnmarshalImage deserializes a ModuleImage from CBOR bytes.
func UnmarshalImage(data []byte) (*ModuleImage, error) {
	var img ModuleImage
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("vm: unmarshal image: %w", err)
	}
	if img.Version != ImageFormatVersion {
		return nil, fmt.Errorf("vm: image format %d, want %d", img.Version, ImageFormatVersion)
	}
	return &img, nil
}
