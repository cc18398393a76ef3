package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/vango-dev/vtree/internal/demo"
	"github.com/vango-dev/vtree/internal/errors"
)

func demoCmd(a *app) *cobra.Command {
	var (
		list bool
		full bool
	)

	cmd := &cobra.Command{
		Use:   "demo [name]",
		Short: "Play a demo scenario",
		Long: `Play a built-in scenario against the demo app and print the document
after each step as a diff against the previous one.

Without a name every scenario is played.

Examples:
  vtree demo --list
  vtree demo names
  vtree demo errors --full`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if list {
				listScenarios(w)
				return nil
			}

			scenarios := demo.Scenarios()
			if len(args) == 1 {
				sc, ok := demo.Lookup(args[0])
				if !ok {
					return errors.New("E201").
						WithDetail(fmt.Sprintf("No demo named %q.", args[0])).
						WithSuggestion("Run 'vtree demo --list' to see the available demos")
				}
				scenarios = []demo.Scenario{sc}
			}

			for _, sc := range scenarios {
				if err := a.playScenario(cmd, w, sc, full); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&list, "list", "l", false, "List the available demos")
	cmd.Flags().BoolVar(&full, "full", false, "Print the whole document after every step")

	return cmd
}

func listScenarios(w io.Writer) {
	for _, sc := range demo.Scenarios() {
		fmt.Fprintf(w, "  %-10s %s\n", bold(sc.Name), sc.Description)
	}
}

func (a *app) playScenario(cmd *cobra.Command, w io.Writer, sc demo.Scenario, full bool) error {
	h, err := demo.NewHarness(cmd.Context(), demo.Options{
		Logger:     a.logger,
		FlushLimit: a.cfg.Scheduler.FlushLimit,
	})
	if err != nil {
		return errors.FromError(err, "E401")
	}
	defer h.Close()

	fmt.Fprintf(w, "%s %s\n", bold("▸ "+sc.Name), faint(sc.Description))
	err = demo.Play(cmd.Context(), h, sc, func(s demo.Snapshot) error {
		fmt.Fprintf(w, "\n%s\n", color.CyanString("# %s", s.Step))
		if s.Diff == nil || full {
			fmt.Fprint(w, indent(s.HTML))
			return nil
		}
		printDiff(w, s.Diff)
		return nil
	})
	fmt.Fprintln(w)
	return err
}

func printDiff(w io.Writer, lines []demo.DiffLine) {
	if !demo.Changed(lines) {
		fmt.Fprintln(w, faint("  (no change)"))
		return
	}
	for _, l := range lines {
		switch l.Op {
		case demo.LineInsert:
			fmt.Fprintln(w, color.GreenString("+ %s", l.Text))
		case demo.LineDelete:
			fmt.Fprintln(w, color.RedString("- %s", l.Text))
		}
	}
}

func indent(s string) string {
	var b strings.Builder
	for _, line := range strings.SplitAfter(s, "\n") {
		if line == "" || line == "\n" {
			continue
		}
		b.WriteString("  ")
		b.WriteString(line)
	}
	return b.String()
}
