package main

import (
	"testing"

	"sparrow/internal/heap"
	"sparrow/internal/irbuild"
	"sparrow/internal/vm"
)

func runDemo(t *testing.T, name string) (heap.Value, error) {
	t.Helper()
	build, ok := demos[name]
	if !ok {
		t.Fatalf("no such demo %q", name)
	}
	rt := vm.NewRuntime()
	mod := build(rt)
	env := rt.Heap.NewMap()
	comp := rt.Heap.NewComponent(mod, env)
	return rt.Execute(comp)
}

func TestDemoArith(t *testing.T) {
	v, err := runDemo(t, "arith")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !heap.IsNumber(v) || heap.AsNumber(v) != 22 {
		t.Fatalf("got %s, want 22", heap.Print(v))
	}
}

func TestDemoLoop(t *testing.T) {
	v, err := runDemo(t, "loop")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !heap.IsNumber(v) || heap.AsNumber(v) != 60 {
		t.Fatalf("got %s, want 60", heap.Print(v))
	}
}

func TestDemoUdata(t *testing.T) {
	v, err := runDemo(t, "udata")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if heap.Print(v) != "hello, sparrow" {
		t.Fatalf("got %s, want %q", heap.Print(v), "hello, sparrow")
	}
}

// TestDemoBuildsIR confirms every demo's entry Proto also survives the
// bytecode-to-IR builder, since cmd/sparrow's -dump-ir flag runs it over
// whichever demo was selected.
func TestDemoBuildsIR(t *testing.T) {
	for name, build := range demos {
		rt := vm.NewRuntime()
		mod := build(rt)
		if _, err := irbuild.Build(mod.Protos[0]); err != nil {
			t.Fatalf("demo %q: irbuild.Build: %v", name, err)
		}
	}
}
