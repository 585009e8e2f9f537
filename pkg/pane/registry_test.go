package pane

import (
	"testing"

	"github.com/b/mappane/pkg/host"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	a, b, c := &Pane{}, &Pane{}, &Pane{}
	r.Register("w1", a)
	r.Register("w2", b)
	r.Register("w3", c)

	if p, ok := r.Get("w2"); !ok || p != b {
		t.Fatalf("Get(w2) = %p, %v", p, ok)
	}

	removed := r.RetainOnly(func(w host.WindowID) bool { return w != "w1" })
	if len(removed) != 1 || removed[0] != a {
		t.Fatalf("RetainOnly removed %v", removed)
	}
	if _, ok := r.Get("w1"); ok {
		t.Error("w1 should be gone")
	}

	if p, ok := r.Unregister("w2"); !ok || p != b {
		t.Errorf("Unregister(w2) = %p, %v", p, ok)
	}
	if _, ok := r.Unregister("w2"); ok {
		t.Error("double Unregister should report false")
	}

	all := r.ClearAll()
	if len(all) != 1 || all[0] != c || r.Len() != 0 {
		t.Errorf("ClearAll = %v, Len = %d", all, r.Len())
	}
}

func TestRegistryWindowsSorted(t *testing.T) {
	r := NewRegistry()
	for _, w := range []host.WindowID{"w3", "w1", "w2"} {
		r.Register(w, &Pane{})
	}
	got := r.Windows()
	want := []host.WindowID{"w1", "w2", "w3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Windows() = %v, want %v", got, want)
		}
	}
}
