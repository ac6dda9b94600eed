package filters

import (
	"context"
	"fmt"
)

// Host manages filters on a named input of the streaming application.
// RemoveFilter must treat a missing filter as success.
type Host interface {
	RemoveFilter(ctx context.Context, input, name string) error
	CreateFilter(ctx context.Context, input, name, kind string, settings map[string]any) error
}

// Result summarises an Apply run.
type Result struct {
	Applied int
	Failed  int
	Errors  []error
}

// Apply installs the filter chain on the given input. Each spec replaces
// any same-named filter from a previous run. A failing stage is recorded
// and the rest of the chain still goes on: the derived parameters don't
// depend on which stages the host ends up accepting.
func Apply(ctx context.Context, host Host, input string, specs []Spec) Result {
	var res Result
	for _, spec := range specs {
		if err := applyOne(ctx, host, input, spec); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, fmt.Errorf("%s: %w", spec.Name, err))
			continue
		}
		res.Applied++
	}
	return res
}

func applyOne(ctx context.Context, host Host, input string, spec Spec) error {
	if err := host.RemoveFilter(ctx, input, spec.Name); err != nil {
		return fmt.Errorf("removing existing filter: %w", err)
	}
	return host.CreateFilter(ctx, input, spec.Name, spec.Kind, spec.Settings)
}
