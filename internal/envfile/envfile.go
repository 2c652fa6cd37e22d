// Package envfile loads YAML environment manifests: the constructors,
// values, classes, and instances that seed an inference run, plus the
// goals (obligations to entail, expressions to infer) the run should
// pursue. The manifest system keeps checker fixtures declarative and in
// sync with what the CLI and REPL actually execute.
package envfile

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/solvent-lang/solvent/internal/ast"
	"github.com/solvent-lang/solvent/internal/diag"
	"github.com/solvent-lang/solvent/internal/infer"
	"github.com/solvent-lang/solvent/internal/reader"
)

// SchemaVersion is the manifest schema this loader understands.
const SchemaVersion = "solvent.env/v1"

// File mirrors the YAML document structure.
type File struct {
	Schema       string               `yaml:"schema"`
	Constructors map[string]string    `yaml:"constructors"`
	Values       map[string]string    `yaml:"values"`
	Classes      map[string]ClassSpec `yaml:"classes"`
	Instances    []InstanceSpec       `yaml:"instances"`
	Goals        []GoalSpec           `yaml:"goals"`
}

// ClassSpec declares a class: parameter names, optional superclass
// assertions, optional functional dependencies over parameter names.
type ClassSpec struct {
	Parameters   []string     `yaml:"parameters"`
	Superclasses []string     `yaml:"superclasses"`
	FunDeps      []FunDepSpec `yaml:"fundeps"`
}

// FunDepSpec names the domain and codomain parameters of one
// functional dependency.
type FunDepSpec struct {
	From []string `yaml:"from"`
	To   []string `yaml:"to"`
}

// InstanceSpec declares an instance by its head assertion and
// dependency assertions, all in surface syntax.
type InstanceSpec struct {
	Head         string   `yaml:"head"`
	Dependencies []string `yaml:"dependencies"`
}

// GoalSpec is one unit of work: exactly one of Entail or Infer is set.
type GoalSpec struct {
	Entail string `yaml:"entail,omitempty"`
	Infer  string `yaml:"infer,omitempty"`
}

// GoalKind distinguishes applied goals.
type GoalKind int

const (
	GoalEntail GoalKind = iota
	GoalInfer
)

// Goal is a parsed, allocated goal ready for the driver.
type Goal struct {
	Kind      GoalKind
	Assertion ast.Assertion // valid when Kind == GoalEntail
	Expr      ast.ExprIdx   // valid when Kind == GoalInfer
	Source    string
}

// Load reads and decodes a manifest file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}
	return Decode(data)
}

// Decode parses manifest bytes and validates the schema version.
func Decode(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, diag.WrapReport(
			diag.New(diag.ENV002, "envfile", fmt.Sprintf("malformed manifest: %v", err)))
	}
	if file.Schema != SchemaVersion {
		return nil, diag.WrapReport(
			diag.New(diag.ENV001, "envfile",
				fmt.Sprintf("unsupported schema %q, want %q", file.Schema, SchemaVersion)).
				With("schema", file.Schema))
	}
	return &file, nil
}

// Apply populates the context's environment from the manifest and
// returns the parsed goals in declaration order. Terms are parsed with
// the supplied reader so holes in goals stay inspectable by the caller.
func Apply(file *File, ctx *infer.Context, rd *reader.Reader) ([]Goal, error) {
	// Classes first: entailment's fundep precheck consults them, and
	// instance heads refer to them.
	for _, name := range sortedKeys(file.Classes) {
		spec := file.Classes[name]
		class, err := buildClass(name, spec, rd)
		if err != nil {
			return nil, err
		}
		ctx.Environment.InsertClass(class)
	}

	for _, name := range sortedKeys(file.Constructors) {
		ty, err := parseTerm(rd, file.Constructors[name], "constructor "+name)
		if err != nil {
			return nil, err
		}
		ctx.Environment.InsertConstructor(name, ty)
	}

	for _, name := range sortedKeys(file.Values) {
		ty, err := parseTerm(rd, file.Values[name], "value "+name)
		if err != nil {
			return nil, err
		}
		ctx.Environment.InsertValue(name, ty)
	}

	for i, spec := range file.Instances {
		where := fmt.Sprintf("instance %d", i)
		head, err := rd.ParseAssertion(spec.Head)
		if err != nil {
			return nil, termError(where+" head", spec.Head, err)
		}
		dependencies := make([]ast.Assertion, 0, len(spec.Dependencies))
		for _, dep := range spec.Dependencies {
			assertion, err := rd.ParseAssertion(dep)
			if err != nil {
				return nil, termError(where+" dependency", dep, err)
			}
			dependencies = append(dependencies, assertion)
		}
		ctx.Environment.InsertInstance(head.Name, &ast.Instance{
			Assertion:    head,
			Dependencies: dependencies,
		})
	}

	var goals []Goal
	for i, spec := range file.Goals {
		where := fmt.Sprintf("goal %d", i)
		switch {
		case spec.Entail != "" && spec.Infer != "":
			return nil, diag.WrapReport(
				diag.New(diag.ENV004, "envfile", where+" sets both entail and infer"))
		case spec.Entail != "":
			assertion, err := rd.ParseAssertion(spec.Entail)
			if err != nil {
				return nil, termError(where, spec.Entail, err)
			}
			goals = append(goals, Goal{Kind: GoalEntail, Assertion: assertion, Source: spec.Entail})
		case spec.Infer != "":
			expr, err := rd.ParseExpr(spec.Infer)
			if err != nil {
				return nil, termError(where, spec.Infer, err)
			}
			goals = append(goals, Goal{Kind: GoalInfer, Expr: expr, Source: spec.Infer})
		default:
			return nil, diag.WrapReport(
				diag.New(diag.ENV004, "envfile", where+" sets neither entail nor infer"))
		}
	}
	return goals, nil
}

func buildClass(name string, spec ClassSpec, rd *reader.Reader) (*ast.Class, error) {
	position := make(map[string]int, len(spec.Parameters))
	for i, parameter := range spec.Parameters {
		position[parameter] = i
	}

	fundeps := make([]ast.FunDep, 0, len(spec.FunDeps))
	for _, fd := range spec.FunDeps {
		domain, err := resolvePositions(name, fd.From, position)
		if err != nil {
			return nil, err
		}
		codomain, err := resolvePositions(name, fd.To, position)
		if err != nil {
			return nil, err
		}
		fundeps = append(fundeps, ast.FunDep{Domain: domain, Codomain: codomain})
	}

	superclasses := make([]ast.Assertion, 0, len(spec.Superclasses))
	for _, super := range spec.Superclasses {
		assertion, err := rd.ParseAssertion(super)
		if err != nil {
			return nil, termError("superclass of "+name, super, err)
		}
		superclasses = append(superclasses, assertion)
	}

	return &ast.Class{
		Name:         name,
		Parameters:   append([]string(nil), spec.Parameters...),
		Superclasses: superclasses,
		FunDeps:      fundeps,
	}, nil
}

func resolvePositions(class string, names []string, position map[string]int) ([]int, error) {
	out := make([]int, 0, len(names))
	for _, name := range names {
		i, ok := position[name]
		if !ok {
			return nil, diag.WrapReport(
				diag.New(diag.ENV004, "envfile",
					fmt.Sprintf("class %s: functional dependency names unknown parameter %q", class, name)))
		}
		out = append(out, i)
	}
	return out, nil
}

func parseTerm(rd *reader.Reader, src, where string) (ast.TyIdx, error) {
	ty, err := rd.ParseTy(src)
	if err != nil {
		return ast.TyIdx{}, termError(where, src, err)
	}
	return ty, nil
}

func termError(where, src string, err error) error {
	return diag.WrapReport(
		diag.New(diag.ENV003, "envfile",
			fmt.Sprintf("%s: %v", where, err)).
			With("term", src))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
