package config

import (
	"path/filepath"
	"strings"
)

const SourceFileExt = ".os"

// SourceFileExtensions are all recognized source file extensions
var SourceFileExtensions = []string{".os", ".bsl"}

// TrimSourceExt removes a recognized source extension from a file name.
func TrimSourceExt(file string) string {
	ext := filepath.Ext(file)
	for _, known := range SourceFileExtensions {
		if strings.EqualFold(ext, known) {
			return strings.TrimSuffix(file, ext)
		}
	}
	return file
}

// IsSourceFile reports whether the path has a recognized source extension.
func IsSourceFile(path string) bool {
	ext := filepath.Ext(path)
	for _, known := range SourceFileExtensions {
		if strings.EqualFold(ext, known) {
			return true
		}
	}
	return false
}

// Names of synthetic methods produced by the compiler
const (
	EntryMethodName = "$entry"
	BatchMethodName = "$batch"
	EvalMethodName  = "$eval"
)

// Module names used for code that has no file
const (
	StringSourceName     = "<string>"
	ExpressionSourceName = "<expression>"
	BatchSourceName      = "<batch>"
)

// Machine limits
const (
	DefaultMaxCallDepth        = 4096
	DefaultExpressionCacheSize = 64
	DefaultNumberPrecision     = 38
	MaxOperandStackSize        = 1024 * 1024
)

// Settings file names looked up in the working directory when -config is absent
var SettingsFileNames = []string{"oscript.yaml", "oscript.yml", "oscript.toml"}

// Built-in global type names (Russian, English)
const (
	ArrayTypeName          = "Массив"
	ArrayTypeAlias         = "Array"
	StructureTypeName      = "Структура"
	StructureTypeAlias     = "Structure"
	FixedStructureTypeName = "ФиксированнаяСтруктура"
	FixedStructureAlias    = "FixedStructure"
	KeyAndValueTypeName    = "КлючИЗначение"
	KeyAndValueTypeAlias   = "KeyAndValue"
	ErrorInfoTypeName      = "ИнформацияОбОшибке"
	ErrorInfoTypeAlias     = "ErrorInfo"
)
