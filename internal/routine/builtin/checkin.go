package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/seantiz/puppilot/internal/routine"
)

const checkinKey = "count"

// Checkin returns a routine that counts how many times it has run, keeping
// the counter in its own store.
func Checkin() routine.Routine {
	m := meta(CheckinID, "Check in", "Records a check-in and reports the running total.", 10*time.Second)
	m.AltNames = []string{"checkin"}

	return routine.Func(m, func(ctx context.Context, s routine.Sailer) (routine.Result, error) {
		kv, err := s.Store(ctx)
		if err != nil {
			return routine.Result{}, fmt.Errorf("open store: %w", err)
		}
		var count int
		if _, err := kv.Get(ctx, checkinKey, &count); err != nil {
			return routine.Result{}, fmt.Errorf("read %s: %w", checkinKey, err)
		}
		count++
		if err := kv.Set(ctx, checkinKey, count); err != nil {
			return routine.Result{}, fmt.Errorf("write %s: %w", checkinKey, err)
		}
		return routine.Success(fmt.Sprintf("checked in %d times", count)), nil
	})
}
