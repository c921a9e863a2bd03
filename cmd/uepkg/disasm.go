package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/zboralski/lattice"
	"github.com/zboralski/lattice/render"

	"uepkg/internal/callgraph"
	"uepkg/internal/disasm"
	"uepkg/internal/output"
	uerender "uepkg/internal/render"
)

func cmdDisasm(args []string) error {
	var c commonFlags
	fs := newFlagSet("disasm", &c)
	fn := fs.String("function", "", "function full name, e.g. Engine.Pawn.Tick")
	class := fs.String("class", "", "list every function of this class")
	cfgDir := fs.String("cfg", "", "write a CFG DOT per function with more than one block")
	blocksDir := fs.String("blocks", "", "write a statement-level block DOT per function")
	edgesOut := fs.Bool("edges", false, "print call edges as JSON instead of the listing")
	s, p, err := onePackage(fs, &c, args)
	if err != nil {
		return err
	}
	defer s.Close()
	if (*fn == "") == (*class == "") {
		return fmt.Errorf("exactly one of --function or --class is required")
	}

	owner := *class
	if *fn != "" {
		owner = ownerOf(*fn)
	}
	funcs := s.functions(p, owner)
	if *fn != "" {
		var one []function
		for _, f := range funcs {
			if strings.EqualFold(f.name, *fn) {
				one = append(one, f)
			}
		}
		if len(one) == 0 {
			return fmt.Errorf("%s has no function %s", p.Name, *fn)
		}
		funcs = one
	}
	defer s.reportDiags(20)

	if *edgesOut {
		var recs []disasm.CallEdgeRecord
		for _, f := range funcs {
			recs = append(recs, disasm.Records(f.name, f.edges)...)
		}
		return output.Write(os.Stdout, output.FormatJSON, recs)
	}

	cfgCount := 0
	for _, f := range funcs {
		fmt.Printf("// %s  native=%d  size=%d  flags=%s\n", f.name, f.obj.Function.NativeIndex, f.obj.Struct.ScriptSize, f.obj.Function.Flags)
		fmt.Print(disasm.Format(f.insts, disasm.TargetAnnotator(f.insts)))
		fmt.Println()

		if *cfgDir != "" {
			lcfg, nblocks := callgraph.BuildFuncCFG(f.name, f.insts, f.edges)
			if nblocks > 1 {
				g := &lattice.CFGGraph{Funcs: []*lattice.FuncCFG{lcfg}}
				if _, err := output.WriteText(*cfgDir, f.name+".dot", render.DOTCFG(g, f.name)); err != nil {
					return err
				}
				cfgCount++
			}
		}
		if *blocksDir != "" && len(f.insts) > 0 {
			dot := uerender.CFGDOT(disasm.BuildCFG(f.name, f.insts), uerender.NASA)
			if _, err := output.WriteText(*blocksDir, f.name+".dot", dot); err != nil {
				return err
			}
		}
	}
	if *cfgDir != "" {
		fmt.Fprintf(os.Stderr, "wrote %d per-function CFG DOTs to %s\n", cfgCount, *cfgDir)
	}
	return nil
}
