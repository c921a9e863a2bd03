package main

import "testing"

func TestOwnerOf(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Engine.Pawn.Tick", "Engine.Pawn"},
		{"Engine.Pawn.Dying.BeginState", "Engine.Pawn"},
		{"Engine.Pawn", ""},
		{"Tick", ""},
	}
	for _, tt := range tests {
		if got := ownerOf(tt.name); got != tt.want {
			t.Errorf("ownerOf(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestFirstDiff(t *testing.T) {
	tests := []struct {
		a, b []byte
		want int
	}{
		{[]byte{1, 2, 3}, []byte{1, 2, 3}, 3},
		{[]byte{1, 2, 3}, []byte{1, 9, 3}, 1},
		{[]byte{1, 2}, []byte{1, 2, 3}, 2},
		{nil, []byte{1}, 0},
	}
	for _, tt := range tests {
		if got := firstDiff(tt.a, tt.b); got != tt.want {
			t.Errorf("firstDiff(%v, %v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCommonFlagsOverride(t *testing.T) {
	var c commonFlags
	fs := newFlagSet("test", &c)
	if err := fs.Parse([]string{"--strict", "--path", "a/*.u", "--path", "b/*.u", "pkg"}); err != nil {
		t.Fatal(err)
	}
	if !c.strict || len(c.paths) != 2 || fs.Arg(0) != "pkg" {
		t.Errorf("flags = %+v args=%v", c, fs.Args())
	}
	if fs.Changed("charset") {
		t.Error("charset should not be marked changed")
	}
}
