package irbuild

import "sparrow/internal/bytecode"

// intrinsicArity mirrors internal/vm's intrinsicTable name/arity pairs: the
// dedicated OpCallXxx opcodes take their arguments from the stack, so the
// builder needs the fixed arity to know how many stack-model values belong
// to each call. CALL_IMPORT is the exception: its path is the operand's
// string constant and it pops nothing, so buildLinear handles it before
// consulting this table.
var intrinsicArity = map[bytecode.Op]struct {
	name  string
	arity int
}{
	bytecode.OpCallTypeof:    {"typeof", 1},
	bytecode.OpCallIsBool:    {"is_bool", 1},
	bytecode.OpCallIsString:  {"is_string", 1},
	bytecode.OpCallIsNumber:  {"is_number", 1},
	bytecode.OpCallIsNull:    {"is_null", 1},
	bytecode.OpCallIsList:    {"is_list", 1},
	bytecode.OpCallIsMap:     {"is_map", 1},
	bytecode.OpCallIsClosure: {"is_closure", 1},
	bytecode.OpCallToString:  {"to_string", 1},
	bytecode.OpCallToNumber:  {"to_number", 1},
	bytecode.OpCallToBoolean: {"to_boolean", 1},
	bytecode.OpCallPrint:     {"print", 1},
	bytecode.OpCallError:     {"error", 1},
	bytecode.OpCallAssert:    {"assert", 2},
	bytecode.OpCallSize:      {"size", 1},
	bytecode.OpCallRange:     {"range", 3},
	bytecode.OpCallLoop:      {"loop", 1},
	bytecode.OpCallRunString: {"run_string", 1},
	bytecode.OpCallImport:    {"import", 1},
	bytecode.OpCallMin:       {"min", 2},
	bytecode.OpCallMax:       {"max", 2},
	bytecode.OpCallSort:      {"sort", 1},
	bytecode.OpCallSet:       {"set", 3},
	bytecode.OpCallGet:       {"get", 2},
	bytecode.OpCallExist:     {"exist", 2},
	bytecode.OpCallMsec:      {"msec", 0},
}
