package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/zeebo/blake3"

	"uepkg/internal/upkg"
)

// verifyResult is the re-encode outcome of one export.
type verifyResult struct {
	Name   string
	Class  string
	Size   int
	Unread int
	Err    error
}

func cmdVerify(args []string) error {
	var c commonFlags
	fs := newFlagSet("verify", &c)
	container := fs.Bool("container", false, "also re-encode the package container and compare its tables")
	verbose := fs.BoolP("verbose", "v", false, "print every export, not only mismatches")
	s, p, err := onePackage(fs, &c, args)
	if err != nil {
		return err
	}
	defer s.Close()

	var ok, bad, skipped int
	for _, exp := range p.Exports {
		r := verifyExport(s, exp)
		switch {
		case errors.Is(r.Err, errSkipped):
			skipped++
			continue
		case r.Err != nil:
			bad++
			fmt.Printf("FAIL  %-40s %-24s %v\n", r.Name, r.Class, r.Err)
		default:
			ok++
			if *verbose {
				fmt.Printf("ok    %-40s %-24s %d bytes\n", r.Name, r.Class, r.Size)
			}
		}
		if r.Unread > 0 {
			s.log.Warn("residual bytes not covered", "export", r.Name, "bytes", r.Unread)
		}
	}
	fmt.Fprintf(os.Stderr, "%s: %d identical, %d mismatched, %d skipped\n", p.Name, ok, bad, skipped)

	if *container {
		if err := verifyContainer(s, p); err != nil {
			bad++
			fmt.Printf("FAIL  container  %v\n", err)
		} else {
			fmt.Fprintf(os.Stderr, "%s: container re-encodes to identical tables\n", p.Name)
		}
	}
	if bad > 0 {
		return fmt.Errorf("%d mismatches", bad)
	}
	return nil
}

var errSkipped = errors.New("skipped")

// verifyExport decodes exp and compares the re-encoded bytes with the
// decoded prefix of its data.
func verifyExport(s *session, exp *upkg.Export) verifyResult {
	r := verifyResult{Name: exp.FullName(), Class: exp.FullClassName()}
	data := exp.Data()
	if len(data) == 0 {
		r.Err = errSkipped
		return r
	}
	o, err := s.loader.GetOrCreate(exp)
	if err != nil {
		r.Err = err
		return r
	}
	enc, err := s.loader.Encode(o)
	if err != nil {
		r.Err = err
		return r
	}
	r.Unread = len(o.Unread)
	want := data[:len(data)-len(o.Unread)]
	r.Size = len(enc)
	if blake3.Sum256(enc) != blake3.Sum256(want) {
		r.Err = fmt.Errorf("re-encoded %d bytes differ from %d decoded bytes at 0x%x", len(enc), len(want), firstDiff(enc, want))
	}
	return r
}

// verifyContainer re-encodes p, parses the result and checks that names,
// imports and export data survive.
func verifyContainer(s *session, p *upkg.Package) error {
	enc, err := upkg.Encode(p, s.opts.Charset)
	if err != nil {
		return err
	}
	q, err := upkg.Parse(p.Name, enc, s.opts.Charset)
	if err != nil {
		return fmt.Errorf("reparse: %w", err)
	}
	if len(q.Names) != len(p.Names) || len(q.Imports) != len(p.Imports) || len(q.Exports) != len(p.Exports) {
		return fmt.Errorf("table sizes %d/%d/%d, want %d/%d/%d",
			len(q.Names), len(q.Imports), len(q.Exports), len(p.Names), len(p.Imports), len(p.Exports))
	}
	for i, n := range p.Names {
		if q.Names[i] != n {
			return fmt.Errorf("name %d: %q, want %q", i, q.Names[i].Value, n.Value)
		}
	}
	for i, imp := range p.Imports {
		if got := q.Imports[i].FullName(); got != imp.FullName() {
			return fmt.Errorf("import %d: %s, want %s", i, got, imp.FullName())
		}
	}
	for i, exp := range p.Exports {
		got := q.Exports[i]
		if got.FullName() != exp.FullName() || blake3.Sum256(got.Data()) != blake3.Sum256(exp.Data()) {
			return fmt.Errorf("export %d: %s differs", i, exp.FullName())
		}
	}
	return nil
}

func firstDiff(a, b []byte) int {
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
