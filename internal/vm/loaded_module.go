package vm

import (
	"fmt"

	"github.com/funvibe/oscript/internal/sources"
	"github.com/funvibe/oscript/internal/token"
	"github.com/funvibe/oscript/internal/values"
)

// LoadedModule is a ModuleImage with its constants and annotations turned
// into runtime values. It is immutable and shared by every object created
// from the module.
type LoadedModule struct {
	Name   string
	Source *sources.SourceCode
	Image  *ModuleImage

	Code        []Command
	Constants   []values.Value
	Methods     []values.MethodInfo
	Variables   []VariableInfo
	Annotations []values.Annotation

	exportedProps   map[string]int
	exportedMethods map[string]int
}

// VariableInfo is a module variable as seen at runtime.
type VariableInfo struct {
	Name        string
	IsExport    bool
	Annotations []values.Annotation
}

// Load prepares an image for execution. src is used for error messages
// and may be nil.
func Load(img *ModuleImage, src *sources.SourceCode) (*LoadedModule, error) {
	if img == nil {
		return nil, fmt.Errorf("vm: load: nil image")
	}
	m := &LoadedModule{
		Name:            img.ModuleInfo.ModuleName,
		Source:          src,
		Image:           img,
		Code:            img.Code,
		Constants:       make([]values.Value, len(img.Constants)),
		Methods:         make([]values.MethodInfo, len(img.Methods)),
		Variables:       make([]VariableInfo, len(img.Variables)),
		exportedProps:   make(map[string]int, len(img.ExportedProps)),
		exportedMethods: make(map[string]int, len(img.ExportedMethods)),
	}
	if m.Name == "" && src != nil {
		m.Name = src.Name
	}

	for i, def := range img.Constants {
		v, ok := constantValue(def)
		if !ok {
			return nil, fmt.Errorf("vm: load %s: bad constant %d (%s %q)", m.Name, i, def.Type, def.Presentation)
		}
		m.Constants[i] = v
	}

	m.Annotations = m.annotations(img.Annotations)
	for i, v := range img.Variables {
		m.Variables[i] = VariableInfo{Name: v.Name, IsExport: v.IsExport, Annotations: m.annotations(v.Annotations)}
	}
	for i, desc := range img.Methods {
		m.Methods[i] = m.methodInfo(desc.Signature)
	}
	for _, e := range img.ExportedProps {
		m.exportedProps[token.Fold(e.Name)] = e.Index
	}
	for _, e := range img.ExportedMethods {
		m.exportedMethods[token.Fold(e.Name)] = e.Index
	}
	return m, nil
}

func (m *LoadedModule) methodInfo(sig MethodSignature) values.MethodInfo {
	info := values.MethodInfo{
		Name:        sig.Name,
		IsFunction:  sig.IsFunction,
		IsExport:    sig.IsExport,
		Params:      make([]values.ParameterInfo, len(sig.Params)),
		Annotations: m.annotations(sig.Annotations),
	}
	for i, p := range sig.Params {
		info.Params[i] = values.ParameterInfo{
			Name:        p.Name,
			ByValue:     p.ByValue,
			HasDefault:  p.HasDefault,
			Annotations: m.annotations(p.Annotations),
		}
		if p.DefaultValueIndex != NoIndex {
			info.Params[i].DefaultValue = m.Constants[p.DefaultValueIndex]
		}
	}
	return info
}

func (m *LoadedModule) annotations(defs []AnnotationDef) []values.Annotation {
	if len(defs) == 0 {
		return nil
	}
	out := make([]values.Annotation, len(defs))
	for i, d := range defs {
		out[i].Name = d.Name
		for _, p := range d.Params {
			param := values.AnnotationParameter{Name: p.Name}
			if p.ValueIndex != NoIndex {
				param.Value = m.Constants[p.ValueIndex]
			}
			out[i].Params = append(out[i].Params, param)
		}
	}
	return out
}

// Method returns the descriptor of method n.
func (m *LoadedModule) Method(n int) *MethodDescriptor {
	return &m.Image.Methods[n]
}

// EntryMethod is the module body, or NoIndex.
func (m *LoadedModule) EntryMethod() int {
	return m.Image.EntryMethodIndex
}

// FindMethod looks up any method of the module by name.
func (m *LoadedModule) FindMethod(name string) (int, bool) {
	return m.Image.FindMethod(name)
}

func (m *LoadedModule) FindExportedMethod(name string) (int, bool) {
	n, ok := m.exportedMethods[token.Fold(name)]
	return n, ok
}

func (m *LoadedModule) FindExportedProperty(name string) (int, bool) {
	n, ok := m.exportedProps[token.Fold(name)]
	return n, ok
}

// SourceLine returns the text of a line for error messages.
func (m *LoadedModule) SourceLine(line int) string {
	if m.Source == nil {
		return ""
	}
	return m.Source.Line(line)
}
