package registry

import "testing"

func TestNewConstructsRegistered(t *testing.T) {
	r := New[int]("widget")
	r.Register("one", func() (int, error) { return 1, nil })

	v, err := r.New("one")
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 {
		t.Fatalf("expected 1, got %d", v)
	}
}

func TestNewUnknownNameErrors(t *testing.T) {
	r := New[int]("widget")
	if _, err := r.New("missing"); err == nil {
		t.Fatal("expected an error for an unregistered name")
	}
}

func TestNewOrDefaultFallsBackOnUnknownName(t *testing.T) {
	r := New[string]("tracker")
	r.Register("simple", func() (string, error) { return "simple-tracker", nil })
	r.Register("hungarian", func() (string, error) { return "hungarian-tracker", nil })

	v, err, usedDefault := r.NewOrDefault("nonsense", "simple")
	if err != nil {
		t.Fatal(err)
	}
	if !usedDefault {
		t.Fatal("expected usedDefault to be true for an unknown name")
	}
	if v != "simple-tracker" {
		t.Fatalf("expected fallback to simple, got %q", v)
	}
}

func TestNewOrDefaultUsesRequestedNameWhenKnown(t *testing.T) {
	r := New[string]("tracker")
	r.Register("simple", func() (string, error) { return "simple-tracker", nil })
	r.Register("hungarian", func() (string, error) { return "hungarian-tracker", nil })

	v, err, usedDefault := r.NewOrDefault("hungarian", "simple")
	if err != nil {
		t.Fatal(err)
	}
	if usedDefault {
		t.Fatal("expected usedDefault to be false for a known name")
	}
	if v != "hungarian-tracker" {
		t.Fatalf("expected hungarian, got %q", v)
	}
}

func TestNamesListsRegisteredKeys(t *testing.T) {
	r := New[int]("widget")
	r.Register("a", func() (int, error) { return 1, nil })
	r.Register("b", func() (int, error) { return 2, nil })

	names := r.Names()
	if len(names) != 2 {
		t.Fatalf("expected 2 names, got %v", names)
	}
}
