package llvm

import (
	"fmt"
	"slices"
	"strings"

	"github.com/llir/llvm/asm"
	lir "github.com/llir/llvm/ir"
	lltypes "github.com/llir/llvm/ir/types"
)

// RuntimePrefix starts every runtime entry point name.
const RuntimePrefix = "rt_"

// abiKind is a parameter or result shape of a runtime entry point.
type abiKind uint8

const (
	kVoid abiKind = iota
	kCtx          // %ExecutionContext*
	kValue        // %Value*
	kString       // %String*
	kI1
	kI32
	kDouble
	kUTF16 // i16*
	kUTF8  // i8*
	kNative
)

type builtinDecl struct {
	name   string
	ret    abiKind
	params []abiKind
}

// fusedOps are the read-modify-write operators, in runtime naming.
var fusedOps = []string{"bit_and", "bit_or", "bit_xor", "add", "sub", "mul", "div", "mod", "shl", "shr", "ushr"}

// binaryOps are the runtime names of every binary operator entry point.
var binaryOps = append(slices.Clone(fusedOps), "eq", "ne", "se", "sne", "lt", "le", "gt", "ge", "instanceof", "in")

// runtimeDecls lists the runtime ABI. The execution context is always the
// first parameter; entries producing a value write it through a result
// pointer.
func runtimeDecls() []builtinDecl {
	decls := []builtinDecl{
		{name: "init_undefined", params: []abiKind{kCtx, kValue}},
		{name: "init_null", params: []abiKind{kCtx, kValue}},
		{name: "init_boolean", params: []abiKind{kCtx, kValue, kI1}},
		{name: "init_number", params: []abiKind{kCtx, kValue, kDouble}},
		{name: "init_string", params: []abiKind{kCtx, kValue, kUTF16, kI32}},
		{name: "init_native_function", params: []abiKind{kCtx, kValue, kNative}},

		{name: "not", params: []abiKind{kCtx, kValue, kValue}},
		{name: "uminus", params: []abiKind{kCtx, kValue, kValue}},
		{name: "uplus", params: []abiKind{kCtx, kValue, kValue}},
		{name: "compl", params: []abiKind{kCtx, kValue, kValue}},
	}
	for _, op := range binaryOps {
		decls = append(decls, builtinDecl{name: op, params: []abiKind{kCtx, kValue, kValue, kValue}})
	}
	for _, op := range fusedOps {
		decls = append(decls,
			builtinDecl{name: "inplace_" + op + "_name", params: []abiKind{kCtx, kString, kValue}},
			builtinDecl{name: "inplace_" + op + "_element", params: []abiKind{kCtx, kValue, kValue, kValue}},
			builtinDecl{name: "inplace_" + op + "_member", params: []abiKind{kCtx, kValue, kString, kValue}},
			builtinDecl{name: "inplace_" + op + "_value", params: []abiKind{kCtx, kValue, kValue}},
		)
	}
	decls = append(decls, []builtinDecl{
		{name: "get_property", params: []abiKind{kCtx, kValue, kValue, kString}},
		{name: "set_property", params: []abiKind{kCtx, kValue, kString, kValue}},
		{name: "get_element", params: []abiKind{kCtx, kValue, kValue, kValue}},
		{name: "set_element", params: []abiKind{kCtx, kValue, kValue, kValue}},
		{name: "get_activation_property", params: []abiKind{kCtx, kValue, kString}},
		{name: "set_activation_property", params: []abiKind{kCtx, kString, kValue}},
		{name: "call_activation_property", params: []abiKind{kCtx, kValue, kString, kValue, kI32}},
		{name: "construct_activation_property", params: []abiKind{kCtx, kValue, kString, kValue, kI32}},
		{name: "call_property", params: []abiKind{kCtx, kValue, kValue, kString, kValue, kI32}},
		{name: "construct_property", params: []abiKind{kCtx, kValue, kValue, kString, kValue, kI32}},
		{name: "call_value", params: []abiKind{kCtx, kValue, kValue, kValue, kValue, kI32}},
		{name: "construct_value", params: []abiKind{kCtx, kValue, kValue, kValue, kI32}},
		{name: "get_argument", params: []abiKind{kCtx, kValue, kI32}},
		{name: "set_argument", params: []abiKind{kCtx, kI32, kValue}},
		{name: "identifier_from_utf8", ret: kString, params: []abiKind{kCtx, kUTF8, kI32}},
		{name: "get_this_object", params: []abiKind{kCtx, kValue}},
		{name: "init_this_object", params: []abiKind{kCtx}},

		{name: "typeof_member", params: []abiKind{kCtx, kValue, kValue, kString}},
		{name: "typeof_element", params: []abiKind{kCtx, kValue, kValue, kValue}},
		{name: "typeof_name", params: []abiKind{kCtx, kValue, kString}},
		{name: "typeof_value", params: []abiKind{kCtx, kValue, kValue}},
		{name: "delete_member", params: []abiKind{kCtx, kValue, kValue, kString}},
		{name: "delete_element", params: []abiKind{kCtx, kValue, kValue, kValue}},
		{name: "delete_name", params: []abiKind{kCtx, kValue, kString}},
		{name: "delete_value", params: []abiKind{kCtx, kValue, kValue}},

		{name: "create_exception_handler", params: []abiKind{kCtx, kValue}},
		{name: "delete_exception_handler", params: []abiKind{kCtx}},
		{name: "get_exception", params: []abiKind{kCtx, kValue}},
		{name: "foreach_iterator_object", params: []abiKind{kCtx, kValue, kValue}},
		{name: "foreach_next_property_name", params: []abiKind{kCtx, kValue, kValue}},
		{name: "push_with_scope", params: []abiKind{kCtx, kValue}},
		{name: "pop_scope", params: []abiKind{kCtx}},

		{name: "throw", params: []abiKind{kCtx, kValue}},
		{name: "return", params: []abiKind{kCtx, kValue}},
		{name: "to_boolean", ret: kI1, params: []abiKind{kCtx, kValue}},

		{name: "context_create", ret: kCtx},
		{name: "context_finish", ret: kI32, params: []abiKind{kCtx}},
	}...)
	for i := range decls {
		decls[i].name = RuntimePrefix + decls[i].name
	}
	return decls
}

// Runtime is the runtime support library the selector links against.
type Runtime struct {
	// Path of the textual library, empty for the builtin catalogue.
	Path  string
	lib   *lir.Module
	decls map[string]builtinDecl
	order []string
}

func newRuntime() *Runtime {
	decls := runtimeDecls()
	rt := &Runtime{decls: make(map[string]builtinDecl, len(decls))}
	for _, d := range decls {
		rt.decls[d.name] = d
		rt.order = append(rt.order, d.name)
	}
	return rt
}

// DefaultRuntime describes the ABI without a backing library. Lowering
// declares the entry points it uses; definitions are supplied at link time.
func DefaultRuntime() *Runtime {
	return newRuntime()
}

// LoadRuntime parses a textual LLVM module and checks that it provides
// every entry point with the expected signature.
func LoadRuntime(path string) (*Runtime, error) {
	lib, err := asm.ParseFile(path)
	if err != nil {
		return nil, linkFailure(err, "load runtime %s", path)
	}
	return linkRuntime(path, lib)
}

// ParseRuntime is LoadRuntime over in-memory source.
func ParseRuntime(path, src string) (*Runtime, error) {
	lib, err := asm.ParseString(path, src)
	if err != nil {
		return nil, linkFailure(err, "parse runtime %s", path)
	}
	return linkRuntime(path, lib)
}

func linkRuntime(path string, lib *lir.Module) (*Runtime, error) {
	rt := newRuntime()
	rt.Path = path
	rt.lib = lib

	byName := make(map[string]*lir.Func, len(lib.Funcs))
	for _, f := range lib.Funcs {
		byName[f.Name()] = f
	}
	want := newABI(lir.NewModule())
	var missing, mismatched []string
	for _, name := range rt.order {
		f, ok := byName[name]
		if !ok {
			missing = append(missing, name)
			continue
		}
		if !sameSignature(f, want.signature(rt.decls[name])) {
			mismatched = append(mismatched, name)
		}
	}
	switch {
	case len(missing) > 0:
		return nil, linkFailure(nil, "runtime %s lacks %d entry points: %s", path, len(missing), abbreviate(missing))
	case len(mismatched) > 0:
		return nil, linkFailure(nil, "runtime %s has mismatched signatures: %s", path, abbreviate(mismatched))
	}
	return rt, nil
}

func sameSignature(f *lir.Func, sig *lltypes.FuncType) bool {
	if f.Sig.RetType.String() != sig.RetType.String() || len(f.Sig.Params) != len(sig.Params) {
		return false
	}
	for i, p := range f.Sig.Params {
		if p.String() != sig.Params[i].String() {
			return false
		}
	}
	return true
}

func abbreviate(names []string) string {
	const limit = 5
	if len(names) <= limit {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s, ... (%d more)", strings.Join(names[:limit], ", "), len(names)-limit)
}

// Has reports whether name is a runtime entry point.
func (rt *Runtime) Has(name string) bool {
	_, ok := rt.decls[name]
	return ok
}

// Names lists the entry points in catalogue order.
func (rt *Runtime) Names() []string {
	return slices.Clone(rt.order)
}

// Library returns the parsed library module, or nil for the builtin
// catalogue.
func (rt *Runtime) Library() *lir.Module { return rt.lib }

// Text renders the catalogue as a textual LLVM module of declarations,
// suitable for LoadRuntime.
func (rt *Runtime) Text() string {
	m := lir.NewModule()
	a := newABI(m)
	for _, name := range rt.order {
		a.declare(rt.decls[name])
	}
	return m.String()
}
