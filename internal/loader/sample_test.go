package loader

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

// findSystem locates a game System directory: $UEPKG_SAMPLES, or a
// samples/System directory above the working directory.
func findSystem(t *testing.T) string {
	t.Helper()
	if dir := os.Getenv("UEPKG_SAMPLES"); dir != "" {
		return dir
	}
	dir, _ := os.Getwd()
	for {
		p := filepath.Join(dir, "samples", "System")
		if _, err := os.Stat(filepath.Join(p, "Core.u")); err == nil {
			return p
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Skip("samples/System not found")
		}
		dir = parent
	}
}

func TestSamples_RoundTrip(t *testing.T) {
	system := findSystem(t)
	env := upkg.NewDirEnv(system, nil)
	env.Log = quietLog()
	l := New(env, Options{Log: quietLog(), Mode: ufmt.ModeBestEffort})
	t.Cleanup(l.Close)

	for _, name := range []string{"Core", "Engine"} {
		t.Run(name, func(t *testing.T) {
			pkgs := env.Find(name)
			if len(pkgs) == 0 {
				t.Skipf("sample %s not found", name)
			}
			p := pkgs[0]
			objs, err := l.LoadAll(p)
			if err != nil {
				t.Logf("LoadAll: %v", err)
			}
			t.Logf("decoded %d of %d exports", len(objs), len(p.Exports))
			mismatches := 0
			for _, o := range objs {
				if o.Placeholder || o.Entry.Size == 0 {
					continue
				}
				data := p.Exports[o.Entry.Ref-1].Data()
				enc, err := l.Encode(o)
				if err != nil {
					t.Errorf("Encode(%s): %v", o.Entry.FullName, err)
					continue
				}
				if !bytes.Equal(enc, data[:len(data)-len(o.Unread)]) {
					mismatches++
					if mismatches <= 10 {
						t.Errorf("%s: re-encoded bytes differ", o.Entry.FullName)
					}
				}
			}
			if mismatches > 10 {
				t.Errorf("%d mismatches in total", mismatches)
			}
		})
	}
}
