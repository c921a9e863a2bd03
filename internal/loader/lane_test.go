package loader

import (
	"errors"
	"sync"
	"testing"
	"time"

	"uepkg/internal/bytecode"
	"uepkg/internal/object"
	"uepkg/internal/property"
	"uepkg/internal/ufmt"
	"uepkg/internal/upkg"
)

func TestGetOrCreate_Concurrent(t *testing.T) {
	w := newWorld(t)
	l := newLoader(t, w, ufmt.ModeBestEffort)
	actor, pawn := w.entry(t, w.actor), w.entry(t, w.pawn)

	const n = 32
	got := make([]*object.Object, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := actor
			if i%2 == 1 {
				e = pawn
			}
			got[i], errs[i] = l.GetOrCreate(e)
		}()
	}
	wg.Wait()

	for i := range n {
		if errs[i] != nil {
			t.Fatalf("GetOrCreate #%d: %v", i, errs[i])
		}
		if got[i] != got[i%2] {
			t.Errorf("GetOrCreate #%d returned a different instance", i)
		}
	}
	if got[0].Entry.FullName != "Engine.Actor" || got[1].Entry.FullName != "Engine.Pawn" {
		t.Errorf("objects = %s, %s", got[0], got[1])
	}
	if len(got[1].Properties) != 2 {
		t.Errorf("Pawn properties = %d, want 2", len(got[1].Properties))
	}
	if p := l.Pending(); len(p) != 0 {
		t.Errorf("Pending = %v, want none", p)
	}
}

func TestLaneNaming(t *testing.T) {
	w := newWorld(t)
	l := newLoader(t, w, ufmt.ModeBestEffort)
	if _, err := l.GetOrCreate(w.entry(t, w.add)); err != nil {
		t.Fatalf("GetOrCreate(Add): %v", err)
	}
	one := &bytecode.Token{Op: bytecode.OpIntOne}
	call := &bytecode.Token{Op: 0x90, Native: 0x90, Args: []bytecode.Arg{{
		Kind: bytecode.ArgParams,
		List: []*bytecode.Token{one, one, {Op: bytecode.OpEndFunctionParms}},
	}}}

	var s string
	done := make(chan error, 1)
	go func() {
		done <- l.submit(func() error {
			s = bytecode.Render(call, l.laneNaming(w.pkg))
			return nil
		})
	}()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("rendering on the lane did not return")
	}
	if s != "1 + 1" {
		t.Errorf("Render = %q, want %q", s, "1 + 1")
	}
}

func TestInvalidate(t *testing.T) {
	w := newWorld(t)
	env := upkg.NewMemEnv(w.pkg)
	l := New(env, Options{Log: quietLog()})
	t.Cleanup(l.Close)

	isClass := upkg.ClassIs(upkg.ClassClass)
	a, err := l.Find("Engine.Actor", isClass)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if _, err := l.GetOrCreate(w.entry(t, w.add)); err != nil {
		t.Fatalf("GetOrCreate(Add): %v", err)
	}
	if _, err := l.PropertyFields("Engine.Pawn"); err != nil {
		t.Fatalf("PropertyFields: %v", err)
	}

	l.Invalidate("Engine")
	if _, err := l.Find("Engine.Actor", isClass); !errors.Is(err, ufmt.ErrNotFound) {
		t.Errorf("Find after Invalidate: err = %v, want ErrNotFound", err)
	}
	if _, ok := l.NativeFunction(0x90); ok {
		t.Error("native still registered after Invalidate")
	}
	if _, ok := l.Object(KeyOf("Engine.Actor", upkg.ClassClass)); ok {
		t.Error("Engine.Actor still cached after Invalidate")
	}

	env.Add(w.pkg)
	b, err := l.Find("Engine.Actor", isClass)
	if err != nil {
		t.Fatalf("Find after re-adding: %v", err)
	}
	if b == a {
		t.Error("Find returned the instance cached before Invalidate")
	}
	if v := property.Lookup(b.Properties, "Health"); v == nil || v.Get(0) != int32(100) {
		t.Errorf("Health = %v, want 100", v)
	}
}
