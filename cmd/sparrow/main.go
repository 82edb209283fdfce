// cmd/sparrow/main.go
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"sparrow/internal/bytecode"
	"sparrow/internal/heap"
	"sparrow/internal/irbuild"
	"sparrow/internal/vm"
)

// sparrow is the minimal host-embedding driver spec §6.3 asks for: create
// an interpreter instance, Load a Module into a Component, Execute it, and
// print the result or the structured error. There is no lexer or parser in
// scope, so "Parse" has no source text to compile — the driver picks one
// of a few already-assembled demo Modules instead of reading a script
// file, the same substitution internal/irbuild's own tests make.
func main() {
	demo := flag.String("demo", "arith", fmt.Sprintf("which demo module to run (%s)", demoNames()))
	verify := flag.Bool("verify", false, "run the bytecode verifier before executing")
	dumpIR := flag.Bool("dump-ir", false, "print the built IR graph (dot format) instead of executing")
	flag.Parse()

	build, ok := demos[*demo]
	if !ok {
		fmt.Fprintf(os.Stderr, "sparrow: unknown demo %q (have: %s)\n", *demo, demoNames())
		os.Exit(1)
	}

	rt := vm.NewRuntime()
	mod := build(rt)
	proto := mod.Protos[0]

	if *verify {
		if err := bytecode.Verify(proto.Code); err != nil {
			fmt.Fprintf(os.Stderr, "sparrow: verify: %v\n", err)
			os.Exit(1)
		}
	}

	if *dumpIR {
		g, err := irbuild.Build(proto)
		if err != nil {
			fmt.Fprintf(os.Stderr, "sparrow: irbuild: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(g.Dot())
		return
	}

	env := rt.Heap.NewMap()
	comp := rt.Heap.NewComponent(mod, env)

	result, err := rt.Execute(comp)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Println(heap.Print(result))
}

func demoNames() string {
	names := make([]string, 0, len(demos))
	for n := range demos {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

