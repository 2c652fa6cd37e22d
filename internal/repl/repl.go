// Package repl implements the interactive loop: load an environment
// manifest, then infer expressions and entail assertions against it,
// inspecting solutions and evidence after each run.
package repl

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/peterh/liner"

	"github.com/solvent-lang/solvent/internal/envfile"
	"github.com/solvent-lang/solvent/internal/infer"
	"github.com/solvent-lang/solvent/internal/pipeline"
	"github.com/solvent-lang/solvent/internal/reader"
	"github.com/solvent-lang/solvent/internal/solver"
)

// Color functions for pretty output
var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
	dim    = color.New(color.Faint).SprintFunc()
)

// REPL holds the environment shared by successive submissions. Each
// submission is one inference run: a fresh solver over the accumulated
// context.
type REPL struct {
	ctx     *infer.Context
	rd      *reader.Reader
	last    *pipeline.Outcome
	version string
	out     io.Writer
}

// New creates a REPL with an empty environment.
func New(version string) *REPL {
	ctx := infer.NewContext()
	return &REPL{
		ctx:     ctx,
		rd:      reader.New(ctx),
		version: version,
		out:     os.Stdout,
	}
}

// LoadEnv loads a manifest into the environment. Goals in the file are
// run immediately.
func (r *REPL) LoadEnv(path string) error {
	file, err := envfile.Load(path)
	if err != nil {
		return err
	}
	goals, err := envfile.Apply(file, r.ctx, r.rd)
	if err != nil {
		return err
	}
	if len(goals) > 0 {
		r.last = pipeline.Run(r.ctx, goals, 0)
		r.printOutcome(r.last)
	}
	fmt.Fprintf(r.out, "%s %s\n", green("Loaded"), filepath.Base(path))
	return nil
}

// Run starts the interactive loop and blocks until :quit or EOF.
func (r *REPL) Run() {
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	historyPath := filepath.Join(os.TempDir(), ".solvent_history")
	if f, err := os.Open(historyPath); err == nil {
		_, _ = line.ReadHistory(f)
		f.Close()
	}
	defer func() {
		if f, err := os.Create(historyPath); err == nil {
			_, _ = line.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Fprintf(r.out, "%s %s — type %s for help\n",
		bold("solvent"), dim(r.version), cyan(":help"))

	for {
		input, err := line.Prompt("solvent> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Fprintln(r.out)
				return
			}
			fmt.Fprintf(r.out, "%s: %v\n", red("Error"), err)
			return
		}
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		line.AppendHistory(input)

		if r.dispatch(input) {
			return
		}
	}
}

// dispatch handles one submission; reports whether the loop should
// exit.
func (r *REPL) dispatch(input string) bool {
	command, rest := input, ""
	if i := strings.IndexByte(input, ' '); i >= 0 {
		command, rest = input[:i], strings.TrimSpace(input[i+1:])
	}

	switch command {
	case ":quit", ":q":
		return true
	case ":help", ":h":
		r.printHelp()
	case ":load":
		if rest == "" {
			fmt.Fprintf(r.out, "usage: :load <env.yaml>\n")
			break
		}
		if err := r.LoadEnv(rest); err != nil {
			fmt.Fprintf(r.out, "%s: %v\n", red("Error"), err)
		}
	case ":type", ":t":
		r.runInfer(rest)
	case ":entail", ":e":
		r.runEntail(rest)
	case ":solutions":
		r.printSolutions()
	case ":evidence":
		r.printEvidence()
	default:
		if strings.HasPrefix(command, ":") {
			fmt.Fprintf(r.out, "%s: unknown command %s\n", red("Error"), command)
			break
		}
		r.runInfer(input)
	}
	return false
}

func (r *REPL) runInfer(src string) {
	if src == "" {
		fmt.Fprintf(r.out, "usage: :type <expr>\n")
		return
	}
	expr, err := r.rd.ParseExpr(src)
	if err != nil {
		fmt.Fprintf(r.out, "%s: %v\n", red("Parse error"), err)
		return
	}
	goals := []envfile.Goal{{Kind: envfile.GoalInfer, Expr: expr, Source: src}}
	r.last = pipeline.Run(r.ctx, goals, 0)
	r.printOutcome(r.last)
}

func (r *REPL) runEntail(src string) {
	if src == "" {
		fmt.Fprintf(r.out, "usage: :entail <assertion>\n")
		return
	}
	assertion, err := r.rd.ParseAssertion(src)
	if err != nil {
		fmt.Fprintf(r.out, "%s: %v\n", red("Parse error"), err)
		return
	}
	goals := []envfile.Goal{{Kind: envfile.GoalEntail, Assertion: assertion, Source: src}}
	r.last = pipeline.Run(r.ctx, goals, 0)
	r.printOutcome(r.last)
}

func (r *REPL) printOutcome(outcome *pipeline.Outcome) {
	for _, goal := range outcome.Goals {
		switch {
		case goal.Err != nil:
			fmt.Fprintf(r.out, "%s %s: %v\n", red("✗"), goal.Source, goal.Err)
		case goal.Kind == envfile.GoalInfer:
			fmt.Fprintf(r.out, "%s : %s\n", goal.Source, bold(r.ctx.PrettyTy(goal.Ty)))
		case goal.Kind == envfile.GoalEntail:
			if evidence, ok := outcome.Solver.EntailmentEvidence[goal.Marker]; ok {
				resolved := solver.ResolveEvidence(evidence, outcome.Solver.EntailmentEvidence)
				fmt.Fprintf(r.out, "%s %s  %s\n", green("✓"), goal.Source, dim(fmt.Sprint(resolved)))
			} else {
				fmt.Fprintf(r.out, "%s %s: no evidence\n", yellow("?"), goal.Source)
			}
		}
	}
	for _, diagnostic := range outcome.Diagnostics {
		fmt.Fprintf(r.out, "%s: %v\n", red("Error"), diagnostic)
	}
	if len(outcome.Diagnostics) == 0 && outcome.Succeeded() {
		fmt.Fprintf(r.out, "%s\n", dim("no errors, no deferred obligations"))
	}
}

func (r *REPL) printSolutions() {
	if r.last == nil {
		fmt.Fprintf(r.out, "%s\n", dim("nothing solved yet"))
		return
	}
	ids := make([]int, 0, len(r.last.Solver.UnificationSolved))
	for id := range r.last.Solver.UnificationSolved {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		resolved := r.last.Solver.ResolveTy(r.last.Solver.UnificationSolved[id])
		fmt.Fprintf(r.out, "?%d = %s\n", id, r.ctx.PrettyTy(resolved))
	}
	if len(ids) == 0 {
		fmt.Fprintf(r.out, "%s\n", dim("no solutions"))
	}
}

func (r *REPL) printEvidence() {
	if r.last == nil {
		fmt.Fprintf(r.out, "%s\n", dim("nothing solved yet"))
		return
	}
	markers := make([]int, 0, len(r.last.Solver.EntailmentEvidence))
	for marker := range r.last.Solver.EntailmentEvidence {
		markers = append(markers, marker)
	}
	sort.Ints(markers)
	for _, marker := range markers {
		fmt.Fprintf(r.out, "#%d = %s\n", marker, fmt.Sprint(r.last.Solver.EntailmentEvidence[marker]))
	}
	if len(markers) == 0 {
		fmt.Fprintf(r.out, "%s\n", dim("no evidence"))
	}
}

func (r *REPL) printHelp() {
	fmt.Fprintf(r.out, `%s
  <expr>            infer the type of an expression
  :type <expr>      same as above
  :entail <C τ…>    entail a class assertion
  :load <env.yaml>  load an environment manifest
  :solutions        show the last run's unification solutions
  :evidence         show the last run's evidence table
  :help             this text
  :quit             exit
`, bold("Commands"))
}
