package builtin

import (
	"context"
	"fmt"
	"time"

	"github.com/seantiz/puppilot/internal/model"
	"github.com/seantiz/puppilot/internal/routine"
)

// Visit returns a routine that opens url in a new page and reports the
// page title. An empty title is reported as a weak warning.
func Visit(url string) routine.Routine {
	m := meta(VisitID, "Visit page", "Opens "+url+" and reports its title.", 30*time.Second)
	m.AltNames = []string{"visit"}

	return routine.Func(m, func(ctx context.Context, s routine.Sailer) (routine.Result, error) {
		page, err := s.Page(ctx)
		if err != nil {
			return routine.Result{}, fmt.Errorf("open page: %w", err)
		}
		if err := page.Navigate(ctx, url); err != nil {
			return routine.Result{}, fmt.Errorf("navigate to %s: %w", url, err)
		}
		title, err := page.Title(ctx)
		if err != nil {
			return routine.Result{}, fmt.Errorf("read title: %w", err)
		}
		if title == "" {
			return routine.Result{Status: model.JobWeakWarning, Message: url + " has no title"}, nil
		}
		return routine.Success(title), nil
	})
}
