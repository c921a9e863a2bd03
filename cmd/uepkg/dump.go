package main

import (
	"fmt"
	"os"
	"strings"

	"uepkg/internal/output"
	"uepkg/internal/upkg"
)

func cmdDump(args []string) error {
	var c commonFlags
	fs := newFlagSet("dump", &c)
	name := fs.String("object", "", "object full name, e.g. Engine.Actor (required)")
	class := fs.String("object-class", "", "class of the object when the name is ambiguous")
	outDir := fs.String("out", "", "write to <out>/<Package>/<Object>.<ext> instead of stdout")
	format := fs.String("format", "", "json or cbor (default from config)")
	s, p, err := onePackage(fs, &c, args)
	if err != nil {
		return err
	}
	defer s.Close()
	if *name == "" {
		return fmt.Errorf("--object is required")
	}
	f := s.cfg.Output
	if fs.Changed("format") {
		f = *format
	}
	of, err := output.ParseFormat(f)
	if err != nil {
		return err
	}

	full := *name
	if !strings.Contains(full, ".") {
		full = p.Name + "." + full
	}
	var match upkg.ClassMatch = upkg.AnyClass
	if *class != "" {
		match = upkg.ClassIs(*class)
	}
	exp := p.FindExport(full, match)
	if exp == nil {
		return fmt.Errorf("%s has no export %s", p.Name, full)
	}
	o, err := s.loader.GetOrCreate(exp)
	if err != nil {
		return err
	}
	defer s.reportDiags(20)

	if *outDir == "" {
		return output.Write(os.Stdout, of, o)
	}
	path, err := output.WriteFile(*outDir, strings.ReplaceAll(o.Entry.FullName, ".", "/"), of, o)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", path)
	return nil
}
