package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"

	"github.com/solvent-lang/solvent/internal/diag"
	"github.com/solvent-lang/solvent/internal/envfile"
	"github.com/solvent-lang/solvent/internal/infer"
	"github.com/solvent-lang/solvent/internal/pipeline"
	"github.com/solvent-lang/solvent/internal/reader"
	"github.com/solvent-lang/solvent/internal/repl"
	"github.com/solvent-lang/solvent/internal/solver"
)

var (
	// Version info - set by ldflags during build
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"

	// Color output
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	cyan   = color.New(color.FgCyan).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

func main() {
	var (
		versionFlag = flag.Bool("version", false, "Print version information")
		helpFlag    = flag.Bool("help", false, "Show help")
		jsonFlag    = flag.Bool("json", false, "Emit diagnostics as JSON reports")
		maxSteps    = flag.Int("max-steps", 0, "Solver iteration cap (0 = unbounded)")
	)

	flag.Parse()

	if *versionFlag {
		printVersion()
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		printHelp()
		return
	}

	command := flag.Arg(0)

	switch command {
	case "check":
		if flag.NArg() < 2 {
			fmt.Fprintf(os.Stderr, "%s: missing environment argument\n", red("Error"))
			fmt.Println("Usage: solvent check <env.yaml>")
			os.Exit(1)
		}
		checkEnv(flag.Arg(1), *jsonFlag, *maxSteps)

	case "solve":
		if flag.NArg() < 3 {
			fmt.Fprintf(os.Stderr, "%s: missing arguments\n", red("Error"))
			fmt.Println("Usage: solvent solve <env.yaml> <expr>")
			os.Exit(1)
		}
		solveExpr(flag.Arg(1), flag.Arg(2), *jsonFlag, *maxSteps)

	case "repl":
		r := repl.New(Version)
		if flag.NArg() >= 2 {
			if err := r.LoadEnv(flag.Arg(1)); err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
				os.Exit(1)
			}
		}
		r.Run()

	case "version":
		printVersion()

	default:
		fmt.Fprintf(os.Stderr, "%s: unknown command '%s'\n", red("Error"), command)
		printHelp()
		os.Exit(1)
	}
}

// loadEnv reads a manifest and populates a fresh context.
func loadEnv(path string) (*infer.Context, *reader.Reader, []envfile.Goal, error) {
	ctx := infer.NewContext()
	rd := reader.New(ctx)

	file, err := envfile.Load(path)
	if err != nil {
		return nil, nil, nil, err
	}
	goals, err := envfile.Apply(file, ctx, rd)
	if err != nil {
		return nil, nil, nil, err
	}
	return ctx, rd, goals, nil
}

func checkEnv(path string, asJSON bool, maxSteps int) {
	ctx, rd, goals, err := loadEnv(path)
	if err != nil {
		fail(err, asJSON)
	}

	outcome := pipeline.Run(ctx, goals, maxSteps)
	printOutcome(ctx, rd, outcome, asJSON)

	if !outcome.Succeeded() {
		os.Exit(1)
	}
}

func solveExpr(path, src string, asJSON bool, maxSteps int) {
	ctx, rd, _, err := loadEnv(path)
	if err != nil {
		fail(err, asJSON)
	}

	expr, err := rd.ParseExpr(src)
	if err != nil {
		fail(err, asJSON)
	}

	goals := []envfile.Goal{{Kind: envfile.GoalInfer, Expr: expr, Source: src}}
	outcome := pipeline.Run(ctx, goals, maxSteps)
	printOutcome(ctx, rd, outcome, asJSON)

	if !outcome.Succeeded() {
		os.Exit(1)
	}
}

func printOutcome(ctx *infer.Context, rd *reader.Reader, outcome *pipeline.Outcome, asJSON bool) {
	for _, goal := range outcome.Goals {
		switch {
		case goal.Err != nil:
			fmt.Printf("%s %s: %v\n", red("✗"), goal.Source, goal.Err)
		case goal.Kind == envfile.GoalInfer:
			fmt.Printf("%s %s : %s\n", green("✓"), goal.Source, bold(ctx.PrettyTy(goal.Ty)))
		case goal.Kind == envfile.GoalEntail:
			if evidence, ok := outcome.Solver.EntailmentEvidence[goal.Marker]; ok {
				resolved := solver.ResolveEvidence(evidence, outcome.Solver.EntailmentEvidence)
				fmt.Printf("%s %s  %s\n", green("✓"), goal.Source, cyan(fmt.Sprint(resolved)))
			} else {
				fmt.Printf("%s %s: deferred\n", yellow("?"), goal.Source)
			}
		}
	}

	// Hole solutions give names to what the manifest asked about.
	printHoles(ctx, rd, outcome)

	for _, diagnostic := range outcome.Diagnostics {
		if asJSON {
			report := diag.FromError(diagnostic)
			encoded, err := report.ToJSON(false)
			if err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
				continue
			}
			fmt.Println(encoded)
		} else {
			fmt.Printf("%s: %v\n", red("Error"), diagnostic)
		}
	}
}

func printHoles(ctx *infer.Context, rd *reader.Reader, outcome *pipeline.Outcome) {
	labels := make([]string, 0, len(rd.Holes))
	for label := range rd.Holes {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		resolved := outcome.Solver.ResolveTy(rd.Holes[label])
		fmt.Printf("  ?%s = %s\n", label, ctx.PrettyTy(resolved))
	}
}

func fail(err error, asJSON bool) {
	if asJSON {
		if report, ok := diag.AsReport(err); ok {
			if encoded, encErr := report.ToJSON(false); encErr == nil {
				fmt.Println(encoded)
				os.Exit(1)
			}
		}
	}
	fmt.Fprintf(os.Stderr, "%s: %v\n", red("Error"), err)
	os.Exit(1)
}

func printVersion() {
	fmt.Printf("%s %s\n", bold("solvent"), Version)
	fmt.Printf("  commit: %s\n", Commit)
	fmt.Printf("  built:  %s\n", BuildTime)
}

func printHelp() {
	fmt.Printf(`%s — qualified-type inference core

Usage: solvent [flags] <command> [arguments]

Commands:
  check <env.yaml>          load an environment and run its goals
  solve <env.yaml> <expr>   infer one expression against an environment
  repl [env.yaml]           interactive loop
  version                   print version information

Flags:
  --json                    emit diagnostics as structured JSON reports
  --max-steps N             solver iteration cap (0 = unbounded)
`, bold("solvent"))
}
