package main

import (
	"fmt"
	"strings"

	"uepkg/internal/property"
	"uepkg/internal/upkg"
)

func cmdProps(args []string) error {
	var c commonFlags
	fs := newFlagSet("props", &c)
	class := fs.String("class", "", "class full name, e.g. Engine.Pawn (required)")
	diff := fs.Bool("diff", false, "only properties that differ from the superclass defaults")
	s, p, err := onePackage(fs, &c, args)
	if err != nil {
		return err
	}
	defer s.Close()
	if *class == "" {
		return fmt.Errorf("--class is required")
	}
	full := *class
	if !strings.Contains(full, ".") {
		full = p.Name + "." + full
	}
	exp := p.FindExport(full, upkg.ClassIs(upkg.ClassClass))
	if exp == nil {
		return fmt.Errorf("%s has no class %s", p.Name, full)
	}
	o, err := s.loader.GetOrCreate(exp)
	if err != nil {
		return err
	}
	defer s.reportDiags(20)

	props := o.Properties
	if *diff {
		super := exp.SuperFullName()
		if super == "" {
			return fmt.Errorf("%s has no superclass to compare with", full)
		}
		if props, err = property.RemoveDefaults(s.loader.Schema(), super, props); err != nil {
			return err
		}
	}

	fmt.Printf("[%s]\n", o.Entry.FullName)
	for _, v := range props {
		for _, line := range v.Assignments() {
			fmt.Println(line)
		}
	}
	if pending := s.loader.Pending(); len(pending) > 0 {
		s.log.Warn("classes still waiting for their superclass", "classes", strings.Join(pending, ","))
	}
	return nil
}
