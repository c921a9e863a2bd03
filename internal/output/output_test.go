package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"

	"uepkg/internal/upkg"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatJSON, false},
		{"json", FormatJSON, false},
		{"CBOR", FormatCBOR, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
	if FormatCBOR.Ext() != ".cbor" || FormatJSON.Ext() != ".json" {
		t.Error("unexpected extensions")
	}
}

func TestMarshalCBORDeterministic(t *testing.T) {
	v := map[string]int{"zeta": 1, "alpha": 2, "mid": 3}
	a, err := Marshal(FormatCBOR, v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		b, err := Marshal(FormatCBOR, map[string]int{"mid": 3, "alpha": 2, "zeta": 1})
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Fatalf("encodings differ: %x vs %x", a, b)
		}
	}
	var back map[string]int
	if err := cbor.Unmarshal(a, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if back["alpha"] != 2 || len(back) != 3 {
		t.Errorf("decoded = %v", back)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	rec := EntryRecord{Ref: 1, Name: "Engine.Actor", Class: "Core.Class"}
	path, err := WriteFile(dir, "Engine/Actor", FormatJSON, rec)
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if path != filepath.Join(dir, "Engine", "Actor.json") {
		t.Errorf("path = %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var got EntryRecord
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got != rec {
		t.Errorf("read back %+v, want %+v", got, rec)
	}

	txt, err := WriteText(dir, "cfg/Tick.dot", "digraph {}\n")
	if err != nil {
		t.Fatal(err)
	}
	if b, _ := os.ReadFile(txt); string(b) != "digraph {}\n" {
		t.Errorf("text = %q", b)
	}
}

func testPackage() *upkg.Package {
	b := upkg.NewBuilder("Engine")
	obj := b.ImportObject("Core.Object", upkg.ClassClass)
	fn := b.ImportObject("Core.Function", upkg.ClassClass)
	actor := b.Export("Actor", 0, obj, 0, 0x00000004)
	b.Export("Tick", fn, 0, actor, 0)
	return b.Package()
}

func TestSummarize(t *testing.T) {
	s := Summarize(testPackage())
	if s.Name != "Engine" || s.Exports != 2 || s.Imports != 3 {
		t.Errorf("summary = %+v", s)
	}
	if s.Classes["Core.Class"] != 1 || s.Classes["Core.Function"] != 1 {
		t.Errorf("classes = %v", s.Classes)
	}
}

func TestEntries(t *testing.T) {
	p := testPackage()
	recs := Entries(p, false, upkg.ClassIs(upkg.ClassClass))
	if len(recs) != 1 || recs[0].Name != "Engine.Actor" || recs[0].Super != "Core.Object" {
		t.Fatalf("class entries = %+v", recs)
	}
	all := Entries(p, true, nil)
	if len(all) != 5 {
		t.Errorf("entries with imports = %d, want 5", len(all))
	}
	if all[1].Name != "Engine.Actor.Tick" || all[2].Ref != -1 {
		t.Errorf("entries = %+v", all)
	}
	text := FormatEntries(recs)
	if !strings.Contains(text, "Engine.Actor") || !strings.Contains(text, "extends Core.Object") {
		t.Errorf("text = %q", text)
	}
}
