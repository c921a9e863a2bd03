package main

import (
	"fmt"
	"os"
	"sort"

	"uepkg/internal/output"
)

func cmdScan(args []string) error {
	var c commonFlags
	fs := newFlagSet("scan", &c)
	jsonOut := fs.Bool("json", false, "output as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("scan: package argument required")
	}
	s, err := c.session(fs)
	if err != nil {
		return err
	}
	defer s.Close()

	var sums []output.PackageSummary
	for _, arg := range fs.Args() {
		p, err := s.openPackage(arg)
		if err != nil {
			return err
		}
		sums = append(sums, output.Summarize(p))
	}
	if *jsonOut {
		return output.Write(os.Stdout, output.FormatJSON, sums)
	}

	for _, sum := range sums {
		fmt.Printf("%s  version %d/%d  flags %s  guid %s\n", sum.Name, sum.Version, sum.License, sum.Flags, sum.GUID)
		if sum.Path != "" {
			fmt.Printf("  path     %s\n", sum.Path)
		}
		fmt.Printf("  names    %d\n  imports  %d\n  exports  %d\n", sum.Names, sum.Imports, sum.Exports)
		for _, g := range sum.Generations {
			fmt.Printf("  generation  exports %d  names %d\n", g.ExportCount, g.NameCount)
		}
		classes := make([]string, 0, len(sum.Classes))
		for cls := range sum.Classes {
			classes = append(classes, cls)
		}
		sort.Slice(classes, func(i, j int) bool {
			if sum.Classes[classes[i]] != sum.Classes[classes[j]] {
				return sum.Classes[classes[i]] > sum.Classes[classes[j]]
			}
			return classes[i] < classes[j]
		})
		for _, cls := range classes {
			fmt.Printf("  %6d  %s\n", sum.Classes[cls], cls)
		}
	}
	return nil
}
