package routine_test

import (
	"context"
	"errors"
	"testing"

	"github.com/seantiz/puppilot/internal/routine"
)

// stubRoutine builds a routine that succeeds with its own id as the message.
func stubRoutine(id string) routine.Routine {
	return routine.Func(routine.Meta{ID: id, DisplayName: id, Version: "1.0.0"},
		func(context.Context, routine.Sailer) (routine.Result, error) {
			return routine.Success(id), nil
		})
}

func TestCatalogRegisterAndList(t *testing.T) {
	c := routine.NewCatalog()
	for _, id := range []string{"org.example.zeta", "org.example.alpha"} {
		if err := c.Register(stubRoutine(id)); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}

	list := c.List()
	if len(list) != 2 {
		t.Fatalf("List() returned %d routines, want 2", len(list))
	}
	if list[0].ID != "org.example.alpha" || list[1].ID != "org.example.zeta" {
		t.Errorf("List() not sorted by id: %v, %v", list[0].ID, list[1].ID)
	}
}

func TestCatalogRegisterDuplicate(t *testing.T) {
	c := routine.NewCatalog()
	if err := c.Register(stubRoutine("org.example.a")); err != nil {
		t.Fatalf("Register: %v", err)
	}
	err := c.Register(stubRoutine("org.example.a"))
	if !errors.Is(err, routine.ErrDuplicate) {
		t.Errorf("second Register error = %v, want ErrDuplicate", err)
	}
}

func TestCatalogRegisterInvalidMeta(t *testing.T) {
	c := routine.NewCatalog()
	err := c.Register(stubRoutine("Not A Package"))
	if !errors.Is(err, routine.ErrInvalidMeta) {
		t.Errorf("Register error = %v, want ErrInvalidMeta", err)
	}
	if len(c.List()) != 0 {
		t.Error("invalid routine was registered")
	}
}

func TestCatalogGet(t *testing.T) {
	c := routine.NewCatalog()
	if err := c.Register(stubRoutine("org.example.a")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r, err := c.Get("org.example.a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if r.Meta().ID != "org.example.a" {
		t.Errorf("Get returned %q", r.Meta().ID)
	}

	if _, err := c.Get("org.example.missing"); !errors.Is(err, routine.ErrNotFound) {
		t.Errorf("Get missing error = %v, want ErrNotFound", err)
	}
}

func TestCatalogResolveKeepsOrder(t *testing.T) {
	c := routine.NewCatalog()
	for _, id := range []string{"org.example.a", "org.example.b"} {
		if err := c.Register(stubRoutine(id)); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}

	got, err := c.Resolve([]string{"org.example.b", "org.example.a", "org.example.b"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	want := []string{"org.example.b", "org.example.a", "org.example.b"}
	if len(got) != len(want) {
		t.Fatalf("Resolve returned %d routines, want %d", len(got), len(want))
	}
	for i, r := range got {
		if r.Meta().ID != want[i] {
			t.Errorf("routine[%d] = %q, want %q", i, r.Meta().ID, want[i])
		}
	}
}

func TestCatalogResolveUnknown(t *testing.T) {
	c := routine.NewCatalog()
	if err := c.Register(stubRoutine("org.example.a")); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, err := c.Resolve([]string{"org.example.a", "org.example.nope"})
	if !errors.Is(err, routine.ErrNotFound) {
		t.Fatalf("Resolve error = %v, want ErrNotFound", err)
	}
	if got := err.Error(); got != "routine not found: org.example.nope" {
		t.Errorf("error message = %q", got)
	}
}

func TestFuncDelegates(t *testing.T) {
	r := stubRoutine("org.example.func")
	res, err := r.Start(context.Background(), nil)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if res.Message != "org.example.func" {
		t.Errorf("Message = %q", res.Message)
	}
}
