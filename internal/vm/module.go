package vm

import (
	"sparrow/internal/heap"
	"sparrow/internal/serr"
)

// importModule implements the lookup half of spec §4.F.9's import: find an
// already-loaded Module by path in this Heap's module ring, build a
// fresh Component around a new environment Map, run its entry Proto, and
// return the produced Value. There is no lexer/parser in this
// implementation's scope, so the parse-a-fresh-Module half of the original
// "parse-or-lookup" step is unavailable; a path with no matching loaded
// Module reports an AttributeNotFound error rather than silently compiling
// one.
func (rt *Runtime) importModule(path string) (heap.Value, error) {
	mod := rt.Heap.FindModule(path)
	if mod == nil {
		return heap.Null(), serr.New(serr.AttributeNotFound, "import: no module loaded for path %q", path)
	}
	env := rt.Heap.NewMap()
	comp := rt.Heap.NewComponent(mod, env)

	savedComp := rt.comp
	rt.comp = comp
	defer func() { rt.comp = savedComp }()

	if len(mod.Protos) == 0 {
		return heap.Null(), serr.New(serr.AttributeNotFound, "import: module %q has no entry proto", path)
	}
	return rt.callClosureValue(mod.Protos[0], nil)
}
