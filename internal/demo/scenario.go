package demo

import (
	"context"
	"fmt"
	"slices"
)

// Step is one scripted interaction.
type Step struct {
	Name string
	Run  func(ctx context.Context, h *Harness) error
}

// Scenario is a named sequence of steps.
type Scenario struct {
	Name        string
	Description string
	Steps       []Step
}

func click(section, label string) Step {
	return Step{
		Name: fmt.Sprintf("click %q in #%s", label, section),
		Run: func(_ context.Context, h *Harness) error {
			return h.Click(section, label)
		},
	}
}

func settle() Step {
	return Step{
		Name: "wait for resources",
		Run: func(ctx context.Context, h *Harness) error {
			return h.Settle(ctx)
		},
	}
}

var scenarios = []Scenario{
	{
		Name:        "counter",
		Description: "Click the counter and toggle the theme context",
		Steps: []Step{
			click("counter", "Increment"),
			click("counter", "Increment"),
			click("", "Theme: light"),
		},
	},
	{
		Name:        "names",
		Description: "Grow, reverse and clear a keyed list",
		Steps: []Step{
			click("names", "+ Ada"),
			click("names", "+ Alan"),
			click("names", "+ Grace"),
			click("names", "Reverse"),
			click("names", "Clear"),
		},
	},
	{
		Name:        "fetch",
		Description: "Load a resource under Suspense, then reload and cancel",
		Steps: []Step{
			settle(),
			click("fetch", "Reload"),
			settle(),
			click("fetch", "Reload"),
			click("fetch", "Cancel"),
		},
	},
	{
		Name:        "errors",
		Description: "Break a component inside an ErrorBoundary, retry, then fix it",
		Steps: []Step{
			click("errors", "Break"),
			click("errors", "Retry"),
			click("errors", "Fix"),
		},
	},
}

// Scenarios returns the built-in scenarios.
func Scenarios() []Scenario {
	return slices.Clone(scenarios)
}

// Lookup returns the scenario with the given name.
func Lookup(name string) (Scenario, bool) {
	for _, s := range scenarios {
		if s.Name == name {
			return s, true
		}
	}
	return Scenario{}, false
}

// Snapshot is the document after a step.
type Snapshot struct {
	Step string
	HTML string
	Diff []DiffLine
}

// Play runs sc on h, calling fn with the document after the initial
// render and after every step.
func Play(ctx context.Context, h *Harness, sc Scenario, fn func(Snapshot) error) error {
	prev := h.HTML()
	if err := fn(Snapshot{Step: "initial render", HTML: prev}); err != nil {
		return err
	}
	for _, step := range sc.Steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := step.Run(ctx, h); err != nil {
			return fmt.Errorf("%s: step %q: %w", sc.Name, step.Name, err)
		}
		if errs := h.Errors(); len(errs) > 0 {
			return fmt.Errorf("%s: step %q: %w", sc.Name, step.Name, errs[0])
		}
		html := h.HTML()
		if err := fn(Snapshot{Step: step.Name, HTML: html, Diff: LineDiff(prev, html)}); err != nil {
			return err
		}
		prev = html
	}
	return nil
}
