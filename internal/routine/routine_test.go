package routine_test

import (
	"errors"
	"testing"
	"time"

	"github.com/seantiz/puppilot/internal/model"
	"github.com/seantiz/puppilot/internal/routine"
)

func TestMetaValidate(t *testing.T) {
	valid := routine.Meta{ID: "io.github.user.routine-name", DisplayName: "Routine", Version: "0.1.0"}

	tests := []struct {
		name    string
		mutate  func(m *routine.Meta)
		wantErr bool
	}{
		{"valid", func(*routine.Meta) {}, false},
		{"with time limit", func(m *routine.Meta) { m.TimeLimit = time.Second }, false},
		{"empty id", func(m *routine.Meta) { m.ID = "" }, true},
		{"single segment", func(m *routine.Meta) { m.ID = "routine" }, true},
		{"upper case", func(m *routine.Meta) { m.ID = "IO.github.x" }, true},
		{"spaces", func(m *routine.Meta) { m.ID = "io.github.my routine" }, true},
		{"missing display name", func(m *routine.Meta) { m.DisplayName = "" }, true},
		{"missing version", func(m *routine.Meta) { m.Version = "" }, true},
		{"negative limit", func(m *routine.Meta) { m.TimeLimit = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := valid
			tt.mutate(&m)
			err := m.Validate()
			if tt.wantErr {
				if !errors.Is(err, routine.ErrInvalidMeta) {
					t.Errorf("Validate() = %v, want ErrInvalidMeta", err)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
		})
	}
}

func TestResultHelpers(t *testing.T) {
	if r := routine.Success("ok"); r.Status != model.JobSuccess || r.Message != "ok" {
		t.Errorf("Success = %+v", r)
	}
	if r := routine.Warning("hm"); r.Status != model.JobWarning || r.Message != "hm" {
		t.Errorf("Warning = %+v", r)
	}
}

func TestStoreName(t *testing.T) {
	if got := routine.StoreName("org.example.a"); got != "routine/org.example.a" {
		t.Errorf("StoreName = %q", got)
	}
}
