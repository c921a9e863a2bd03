package main

import (
	"os"

	"uepkg/internal/output"
	"uepkg/internal/upkg"
)

func cmdObjects(args []string) error {
	var c commonFlags
	fs := newFlagSet("objects", &c)
	imports := fs.Bool("imports", false, "also list imports")
	class := fs.StringSlice("class", nil, "only entries of these classes (e.g. Core.Function)")
	jsonOut := fs.Bool("json", false, "output as JSON")
	s, p, err := onePackage(fs, &c, args)
	if err != nil {
		return err
	}
	defer s.Close()

	var match upkg.ClassMatch
	if len(*class) > 0 {
		match = upkg.ClassIs(*class...)
	}
	recs := output.Entries(p, *imports, match)
	if *jsonOut {
		return output.Write(os.Stdout, output.FormatJSON, recs)
	}
	_, err = os.Stdout.WriteString(output.FormatEntries(recs))
	return err
}
