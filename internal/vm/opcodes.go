// Package vm implements the stack machine that runs compiled script modules:
// the code generator, the module image, the dispatch loop and the debugger.
package vm

// Opcode represents a single VM instruction
type Opcode byte

const (
	OP_NOP Opcode = iota

	// Operand stack
	OP_PUSH_VAR   // Push module or global variable: VariableRefs[arg]
	OP_PUSH_CONST // Push constant from pool
	OP_PUSH_INT   // Push arg as a number
	OP_PUSH_BOOL  // Push arg == 1
	OP_PUSH_UNDEF // Push Неопределено
	OP_PUSH_NULL  // Push NULL
	OP_PUSH_LOC   // Push local variable by index
	OP_PUSH_REF   // Push a reference to a property of the scope object: VariableRefs[arg]
	OP_LOAD_VAR   // Pop value into VariableRefs[arg]
	OP_LOAD_LOC   // Pop value into local variable by index
	OP_ASSIGN_REF // Pop value, pop reference, write through the reference

	// Arithmetic
	OP_ADD
	OP_SUB
	OP_MUL
	OP_DIV
	OP_MOD
	OP_NEG

	// Comparison
	OP_EQUALS
	OP_LESS
	OP_GREATER
	OP_LESS_OR_EQUAL
	OP_GREATER_OR_EQUAL
	OP_NOT_EQUAL

	// Logic
	OP_NOT
	OP_AND // Jump to arg if top is false, otherwise pop it
	OP_OR  // Jump to arg if top is true, otherwise pop it

	// Calls
	OP_CALL_FUNC           // Call MethodRefs[arg] as a function
	OP_CALL_PROC           // Call MethodRefs[arg] as a procedure
	OP_ARG_NUM             // Push the argument count
	OP_PUSH_DEFAULT_ARG    // Push the marker of a skipped argument
	OP_RESOLVE_PROP        // Pop object, push reference to property named Constants[arg]
	OP_RESOLVE_METHOD_PROC // Call method named Constants[arg] of an object as a procedure
	OP_RESOLVE_METHOD_FUNC // Call method named Constants[arg] of an object as a function

	// Control flow
	OP_JMP
	OP_JMP_FALSE
	OP_PUSH_INDEXED // Pop index and object, push reference to the element
	OP_RETURN
	OP_JMP_COUNTER // Pop counter; jump to arg if it passed the limit on the frame stack
	OP_INC

	// Objects and iteration
	OP_NEW_INSTANCE // Construct by type name with arg arguments
	OP_NEW_FUNC     // Новый(ИмяТипа, МассивАргументов)
	OP_PUSH_ITERATOR
	OP_ITERATOR_NEXT
	OP_STOP_ITERATOR

	// Exceptions
	OP_BEGIN_TRY // Register handler at arg
	OP_END_TRY   // Drop handler registered for arg
	OP_RAISE_EXCEPTION
	OP_LINE_NUM

	// Value helpers
	OP_MAKE_RAW_VALUE
	OP_MAKE_BOOL
	OP_PUSH_TMP // Move top of stack to the frame stack
	OP_POP_TMP  // Move top of frame stack back (arg == 0) or drop it

	// Dynamic code and events
	OP_EXECUTE
	OP_ADD_HANDLER
	OP_REMOVE_HANDLER
	OP_EXIT_TRY // Drop arg handlers when jumping out of try blocks

	// Built-in functions; arg is the argument count
	OP_EVAL
	OP_BOOL
	OP_NUMBER
	OP_STR
	OP_DATE
	OP_TYPE
	OP_VAL_TYPE
	OP_STR_LEN
	OP_TRIM_L
	OP_TRIM_R
	OP_TRIM_LR
	OP_LEFT
	OP_RIGHT
	OP_MID
	OP_STR_POS
	OP_UCASE
	OP_LCASE
	OP_TCASE
	OP_CHR
	OP_CHR_CODE
	OP_EMPTY_STR
	OP_STR_REPLACE
	OP_STR_GET_LINE
	OP_STR_LINE_COUNT
	OP_STR_ENTRY_COUNT
	OP_YEAR
	OP_MONTH
	OP_DAY
	OP_HOUR
	OP_MINUTE
	OP_SECOND
	OP_BEG_OF_WEEK
	OP_BEG_OF_YEAR
	OP_BEG_OF_MONTH
	OP_BEG_OF_DAY
	OP_BEG_OF_HOUR
	OP_BEG_OF_MINUTE
	OP_BEG_OF_QUARTER
	OP_END_OF_WEEK
	OP_END_OF_YEAR
	OP_END_OF_MONTH
	OP_END_OF_DAY
	OP_END_OF_HOUR
	OP_END_OF_MINUTE
	OP_END_OF_QUARTER
	OP_WEEK_OF_YEAR
	OP_DAY_OF_YEAR
	OP_DAY_OF_WEEK
	OP_ADD_MONTH
	OP_CURRENT_DATE
	OP_INTEGER
	OP_ROUND
	OP_LOG
	OP_LOG10
	OP_SIN
	OP_COS
	OP_TAN
	OP_ASIN
	OP_ACOS
	OP_ATAN
	OP_EXP
	OP_POW
	OP_SQRT
	OP_MIN
	OP_MAX
	OP_EXCEPTION_INFO
	OP_EXCEPTION_DESCR
	OP_MODULE_INFO

	opcodeCount
)

// OpcodeNames maps opcodes to their string names (for debugging)
var OpcodeNames = map[Opcode]string{
	OP_NOP: "NOP",

	OP_PUSH_VAR:   "PUSH_VAR",
	OP_PUSH_CONST: "PUSH_CONST",
	OP_PUSH_INT:   "PUSH_INT",
	OP_PUSH_BOOL:  "PUSH_BOOL",
	OP_PUSH_UNDEF: "PUSH_UNDEF",
	OP_PUSH_NULL:  "PUSH_NULL",
	OP_PUSH_LOC:   "PUSH_LOC",
	OP_PUSH_REF:   "PUSH_REF",
	OP_LOAD_VAR:   "LOAD_VAR",
	OP_LOAD_LOC:   "LOAD_LOC",
	OP_ASSIGN_REF: "ASSIGN_REF",

	OP_ADD: "ADD",
	OP_SUB: "SUB",
	OP_MUL: "MUL",
	OP_DIV: "DIV",
	OP_MOD: "MOD",
	OP_NEG: "NEG",

	OP_EQUALS:           "EQUALS",
	OP_LESS:             "LESS",
	OP_GREATER:          "GREATER",
	OP_LESS_OR_EQUAL:    "LESS_OR_EQUAL",
	OP_GREATER_OR_EQUAL: "GREATER_OR_EQUAL",
	OP_NOT_EQUAL:        "NOT_EQUAL",

	OP_NOT: "NOT",
	OP_AND: "AND",
	OP_OR:  "OR",

	OP_CALL_FUNC:           "CALL_FUNC",
	OP_CALL_PROC:           "CALL_PROC",
	OP_ARG_NUM:             "ARG_NUM",
	OP_PUSH_DEFAULT_ARG:    "PUSH_DEFAULT_ARG",
	OP_RESOLVE_PROP:        "RESOLVE_PROP",
	OP_RESOLVE_METHOD_PROC: "RESOLVE_METHOD_PROC",
	OP_RESOLVE_METHOD_FUNC: "RESOLVE_METHOD_FUNC",

	OP_JMP:          "JMP",
	OP_JMP_FALSE:    "JMP_FALSE",
	OP_PUSH_INDEXED: "PUSH_INDEXED",
	OP_RETURN:       "RETURN",
	OP_JMP_COUNTER:  "JMP_COUNTER",
	OP_INC:          "INC",

	OP_NEW_INSTANCE:  "NEW_INSTANCE",
	OP_NEW_FUNC:      "NEW_FUNC",
	OP_PUSH_ITERATOR: "PUSH_ITERATOR",
	OP_ITERATOR_NEXT: "ITERATOR_NEXT",
	OP_STOP_ITERATOR: "STOP_ITERATOR",

	OP_BEGIN_TRY:       "BEGIN_TRY",
	OP_END_TRY:         "END_TRY",
	OP_RAISE_EXCEPTION: "RAISE_EXCEPTION",
	OP_LINE_NUM:        "LINE_NUM",

	OP_MAKE_RAW_VALUE: "MAKE_RAW_VALUE",
	OP_MAKE_BOOL:      "MAKE_BOOL",
	OP_PUSH_TMP:       "PUSH_TMP",
	OP_POP_TMP:        "POP_TMP",

	OP_EXECUTE:        "EXECUTE",
	OP_ADD_HANDLER:    "ADD_HANDLER",
	OP_REMOVE_HANDLER: "REMOVE_HANDLER",
	OP_EXIT_TRY:       "EXIT_TRY",

	OP_EVAL:            "EVAL",
	OP_BOOL:            "BOOL",
	OP_NUMBER:          "NUMBER",
	OP_STR:             "STR",
	OP_DATE:            "DATE",
	OP_TYPE:            "TYPE",
	OP_VAL_TYPE:        "VAL_TYPE",
	OP_STR_LEN:         "STR_LEN",
	OP_TRIM_L:          "TRIM_L",
	OP_TRIM_R:          "TRIM_R",
	OP_TRIM_LR:         "TRIM_LR",
	OP_LEFT:            "LEFT",
	OP_RIGHT:           "RIGHT",
	OP_MID:             "MID",
	OP_STR_POS:         "STR_POS",
	OP_UCASE:           "UCASE",
	OP_LCASE:           "LCASE",
	OP_TCASE:           "TCASE",
	OP_CHR:             "CHR",
	OP_CHR_CODE:        "CHR_CODE",
	OP_EMPTY_STR:       "EMPTY_STR",
	OP_STR_REPLACE:     "STR_REPLACE",
	OP_STR_GET_LINE:    "STR_GET_LINE",
	OP_STR_LINE_COUNT:  "STR_LINE_COUNT",
	OP_STR_ENTRY_COUNT: "STR_ENTRY_COUNT",
	OP_YEAR:            "YEAR",
	OP_MONTH:           "MONTH",
	OP_DAY:             "DAY",
	OP_HOUR:            "HOUR",
	OP_MINUTE:          "MINUTE",
	OP_SECOND:          "SECOND",
	OP_BEG_OF_WEEK:     "BEG_OF_WEEK",
	OP_BEG_OF_YEAR:     "BEG_OF_YEAR",
	OP_BEG_OF_MONTH:    "BEG_OF_MONTH",
	OP_BEG_OF_DAY:      "BEG_OF_DAY",
	OP_BEG_OF_HOUR:     "BEG_OF_HOUR",
	OP_BEG_OF_MINUTE:   "BEG_OF_MINUTE",
	OP_BEG_OF_QUARTER:  "BEG_OF_QUARTER",
	OP_END_OF_WEEK:     "END_OF_WEEK",
	OP_END_OF_YEAR:     "END_OF_YEAR",
	OP_END_OF_MONTH:    "END_OF_MONTH",
	OP_END_OF_DAY:      "END_OF_DAY",
	OP_END_OF_HOUR:     "END_OF_HOUR",
	OP_END_OF_MINUTE:   "END_OF_MINUTE",
	OP_END_OF_QUARTER:  "END_OF_QUARTER",
	OP_WEEK_OF_YEAR:    "WEEK_OF_YEAR",
	OP_DAY_OF_YEAR:     "DAY_OF_YEAR",
	OP_DAY_OF_WEEK:     "DAY_OF_WEEK",
	OP_ADD_MONTH:       "ADD_MONTH",
	OP_CURRENT_DATE:    "CURRENT_DATE",
	OP_INTEGER:         "INTEGER",
	OP_ROUND:           "ROUND",
	OP_LOG:             "LOG",
	OP_LOG10:           "LOG10",
	OP_SIN:             "SIN",
	OP_COS:             "COS",
	OP_TAN:             "TAN",
	OP_ASIN:            "ASIN",
	OP_ACOS:            "ACOS",
	OP_ATAN:            "ATAN",
	OP_EXP:             "EXP",
	OP_POW:             "POW",
	OP_SQRT:            "SQRT",
	OP_MIN:             "MIN",
	OP_MAX:             "MAX",
	OP_EXCEPTION_INFO:  "EXCEPTION_INFO",
	OP_EXCEPTION_DESCR: "EXCEPTION_DESCR",
	OP_MODULE_INFO:     "MODULE_INFO",
}

func (op Opcode) String() string {
	if name, ok := OpcodeNames[op]; ok {
		return name
	}
	return "UNKNOWN"
}

// Command is one instruction of a module: an opcode and its integer operand.
type Command struct {
	Op  Opcode `cbor:"1,keyasint"`
	Arg int    `cbor:"2,keyasint,omitempty"`
}
