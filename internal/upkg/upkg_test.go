package upkg

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"uepkg/internal/ufmt"
)

// buildEngine returns a small package: Engine.Actor (class, super Core.Object)
// with a function Engine.Actor.Tick.
func buildEngine(t *testing.T) *Package {
	t.Helper()
	b := NewBuilder("Engine")
	object := b.ImportObject("Core.Object", ClassClass)
	function := b.ImportObject("Core.Function", ClassClass)
	actor := b.Export("Actor", 0, object, 0, 0x00070004)
	tick := b.Export("Tick", function, 0, actor, 0)
	b.SetData(actor, []byte{1, 2, 3})
	b.SetData(tick, []byte{4, 5})
	return b.Package()
}

func TestFullNames(t *testing.T) {
	p := buildEngine(t)
	tests := []struct {
		ref       int32
		name      string
		className string
	}{
		{1, "Engine.Actor", "Core.Class"},
		{2, "Engine.Actor.Tick", "Core.Function"},
		{-1, "Core", "Core.Package"},
		{-2, "Core.Object", "Core.Class"},
	}
	for _, tt := range tests {
		e, err := p.Entry(tt.ref)
		if err != nil {
			t.Fatalf("Entry(%d): %v", tt.ref, err)
		}
		if e.FullName() != tt.name {
			t.Errorf("Entry(%d).FullName() = %q, want %q", tt.ref, e.FullName(), tt.name)
		}
		if e.FullClassName() != tt.className {
			t.Errorf("Entry(%d).FullClassName() = %q, want %q", tt.ref, e.FullClassName(), tt.className)
		}
		if e.Ref() != tt.ref {
			t.Errorf("Entry(%d).Ref() = %d", tt.ref, e.Ref())
		}
	}
	if got := p.Exports[0].SuperFullName(); got != "Core.Object" {
		t.Errorf("Actor super = %q, want Core.Object", got)
	}
	if e, err := p.Entry(0); e != nil || err != nil {
		t.Errorf("Entry(0) = %v, %v; want nil, nil", e, err)
	}
	if _, err := p.Entry(99); !errors.Is(err, ufmt.ErrMalformed) {
		t.Errorf("Entry(99) err = %v, want ErrMalformed", err)
	}
}

func TestNameIndex(t *testing.T) {
	p := buildEngine(t)
	if i, err := p.NameIndex("none"); err != nil || i != 0 {
		t.Errorf("NameIndex(none) = %d, %v; want 0", i, err)
	}
	if _, err := p.NameIndex("Missing"); !errors.Is(err, ufmt.ErrNotFound) {
		t.Errorf("NameIndex(Missing) err = %v, want ErrNotFound", err)
	}
}

func TestEncodeParse_RoundTrip(t *testing.T) {
	p := buildEngine(t)
	data, err := Encode(p, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	q, err := Parse("Engine", data, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Names) != len(p.Names) || len(q.Imports) != len(p.Imports) || len(q.Exports) != len(p.Exports) {
		t.Fatalf("tables = %d/%d/%d, want %d/%d/%d",
			len(q.Names), len(q.Imports), len(q.Exports), len(p.Names), len(p.Imports), len(p.Exports))
	}
	for i := range p.Exports {
		if q.Exports[i].FullName() != p.Exports[i].FullName() {
			t.Errorf("export %d = %q, want %q", i, q.Exports[i].FullName(), p.Exports[i].FullName())
		}
		if !bytes.Equal(q.Exports[i].Data(), p.Exports[i].Data()) {
			t.Errorf("export %d data = %x, want %x", i, q.Exports[i].Data(), p.Exports[i].Data())
		}
	}
	again, err := Encode(q, nil)
	if err != nil {
		t.Fatalf("Encode(Parse): %v", err)
	}
	if !bytes.Equal(again, data) {
		t.Error("Encode(Parse(Encode(p))) differs from Encode(p)")
	}
}

func TestEncodeParse_OldVersion(t *testing.T) {
	b := NewBuilder("Old")
	b.Export("Thing", b.ImportObject("Core.Object", ClassClass), 0, 0, 0)
	p := b.Package()
	p.Version = 61
	p.Heritage = [][16]byte{{1, 2, 3}}
	data, err := Encode(p, nil)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	q, err := Parse("Old", data, nil)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(q.Heritage) != 1 || q.Heritage[0] != p.Heritage[0] {
		t.Errorf("heritage = %v, want %v", q.Heritage, p.Heritage)
	}
	if q.Exports[0].FullName() != "Old.Thing" {
		t.Errorf("export = %q, want Old.Thing", q.Exports[0].FullName())
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse("x", []byte{1, 2, 3, 4}, nil); !errors.Is(err, ErrBadTag) {
		t.Errorf("bad tag: err = %v, want ErrBadTag", err)
	}
	enc := append([]byte(nil), encryptedMagic...)
	enc = append(enc, '1', 0, '2', 0, '1', 0)
	if _, err := Parse("x", enc, nil); !errors.Is(err, ErrEncrypted) {
		t.Errorf("encrypted: err = %v, want ErrEncrypted", err)
	}

	loops := []struct {
		name  string
		build func(b *Builder)
	}{
		{"self", func(b *Builder) { b.Export("Loop", 0, 0, 1, 0) }},
		{"pair", func(b *Builder) {
			b.Export("A", 0, 0, 2, 0)
			b.Export("B", 0, 0, 1, 0)
		}},
		{"through import", func(b *Builder) {
			imp := b.Import("Core", "Package", "Outer", 1)
			b.Export("Inner", 0, 0, imp, 0)
		}},
	}
	for _, tt := range loops {
		b := NewBuilder("Loop")
		tt.build(b)
		data, err := Encode(b.Package(), nil)
		if err != nil {
			t.Fatalf("%s: Encode: %v", tt.name, err)
		}
		if _, err := Parse("Loop", data, nil); !errors.Is(err, ufmt.ErrMalformed) {
			t.Errorf("%s: outer loop: err = %v, want ErrMalformed", tt.name, err)
		}
	}
}

func TestResolve(t *testing.T) {
	env := NewMemEnv(buildEngine(t))

	e, ok := Resolve(env, "engine.actor", ClassIs(ClassClass))
	if !ok || e.FullName() != "Engine.Actor" {
		t.Errorf("Resolve(engine.actor) = %v, %v", e, ok)
	}
	// Exact name fails (wrong outer), bare last segment still matches.
	e, ok = Resolve(env, "Engine.Pawn.Tick", ClassIs("Core.Function"))
	if !ok || e.FullName() != "Engine.Actor.Tick" {
		t.Errorf("Resolve(Engine.Pawn.Tick) = %v, %v; want Engine.Actor.Tick", e, ok)
	}
	if _, ok := Resolve(env, "Engine.Actor", ClassIs("Core.Function")); ok {
		t.Error("Resolve matched despite class predicate")
	}
	if _, ok := Resolve(env, "Missing.Actor", nil); ok {
		t.Error("Resolve found an export in a missing package")
	}
	env.Invalidate("engine")
	if _, ok := Resolve(env, "Engine.Actor", nil); ok {
		t.Error("Resolve found an export after Invalidate")
	}
}

func TestDirEnv(t *testing.T) {
	root := t.TempDir()
	system := filepath.Join(root, "System")
	if err := os.MkdirAll(system, 0755); err != nil {
		t.Fatal(err)
	}
	data, err := Encode(buildEngine(t), nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(system, "Engine.u"), data, 0644); err != nil {
		t.Fatal(err)
	}
	iniText := "[Core.System]\nPaths=../System/*.u\nPaths=../Maps/*.unr\nCacheExt=.uxx\n"
	iniPath := filepath.Join(system, "L2.ini")
	if err := os.WriteFile(iniPath, []byte(iniText), 0644); err != nil {
		t.Fatal(err)
	}

	paths, err := IniPaths(iniPath)
	if err != nil {
		t.Fatalf("IniPaths: %v", err)
	}
	if len(paths) != 2 || paths[0] != "../System/*.u" || paths[1] != "../Maps/*.unr" {
		t.Errorf("IniPaths = %q", paths)
	}

	env, err := NewDirEnvFromIni(iniPath)
	if err != nil {
		t.Fatal(err)
	}
	pkgs := env.Find("engine")
	if len(pkgs) != 1 {
		t.Fatalf("Find(engine) = %d packages, want 1", len(pkgs))
	}
	if pkgs[0].Name != "Engine" {
		t.Errorf("package name = %q, want Engine", pkgs[0].Name)
	}
	if again := env.Find("Engine"); len(again) != 1 || again[0] != pkgs[0] {
		t.Error("Find did not return the cached package")
	}
	env.Invalidate("Engine")
	if again := env.Find("Engine"); len(again) != 1 || again[0] == pkgs[0] {
		t.Error("Invalidate did not drop the cached package")
	}
	if len(env.Find("Core")) != 0 {
		t.Error("Find(Core) found a package that does not exist")
	}
}
