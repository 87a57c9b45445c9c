// logicbits/tools/rule_gen/main.go

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/brianvoe/gofakeit/v7"
	"gopkg.in/yaml.v3"

	"rgehrsitz/logicbits/pkg/predicate"
	"rgehrsitz/logicbits/pkg/rules"
)

type options struct {
	schemaFile   string
	outputFile   string
	numRules     int
	numPolicies  int
	maxTerms     int
	maxRequired  int
	maxForbidden int
	seed         uint64
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("rule_gen", flag.ContinueOnError)
	fs.StringVar(&o.schemaFile, "schema", "schema.yaml", "Predicate schema to draw names from")
	fs.StringVar(&o.outputFile, "output", "generated_rules.yaml", "Output file name (.json or .yaml)")
	fs.IntVar(&o.numRules, "rules", 100, "Number of rules to generate")
	fs.IntVar(&o.numPolicies, "policies", 0, "Number of policies to generate")
	fs.IntVar(&o.maxTerms, "max-terms", 4, "Maximum terms per rule")
	fs.IntVar(&o.maxRequired, "max-required", 3, "Maximum required predicates per term")
	fs.IntVar(&o.maxForbidden, "max-forbidden", 2, "Maximum forbidden predicates per term")
	fs.Uint64Var(&o.seed, "seed", 0, "Random seed (0 picks one)")
	err := fs.Parse(args)
	return o, err
}

type generator struct {
	faker *gofakeit.Faker
	names []string
	opts  options
}

// pick returns up to k distinct names not in exclude.
func (g *generator) pick(k int, exclude []string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, n := range exclude {
		skip[n] = true
	}
	pool := make([]string, 0, len(g.names))
	for _, n := range g.names {
		if !skip[n] {
			pool = append(pool, n)
		}
	}
	g.faker.ShuffleAnySlice(pool)
	if k > len(pool) {
		k = len(pool)
	}
	if k == 0 {
		return nil
	}
	return pool[:k]
}

func (g *generator) term() rules.TermDef {
	all := g.pick(g.faker.IntRange(1, max(1, g.opts.maxRequired)), nil)
	none := g.pick(g.faker.IntRange(0, max(0, g.opts.maxForbidden)), all)
	return rules.TermDef{All: all, None: none}
}

func (g *generator) rule(index int) rules.RuleDef {
	def := rules.RuleDef{Name: fmt.Sprintf("rule-%d", index)}
	for i := g.faker.IntRange(1, max(1, g.opts.maxTerms)); i > 0; i-- {
		def.Terms = append(def.Terms, g.term())
	}
	return def
}

func (g *generator) policy(index int) rules.Policy {
	t := g.term()
	return rules.Policy{Name: fmt.Sprintf("policy-%d-%s", index, g.faker.Noun()), All: t.All, None: t.None}
}

func generateDocument(names []string, o options) *rules.Document {
	seed := o.seed
	if seed == 0 {
		seed = gofakeit.Uint64()
	}
	g := &generator{faker: gofakeit.New(seed), names: names, opts: o}

	doc := &rules.Document{Rules: make([]rules.RuleDef, o.numRules)}
	for i := range doc.Rules {
		doc.Rules[i] = g.rule(i + 1)
	}
	for i := 0; i < o.numPolicies; i++ {
		doc.Policies = append(doc.Policies, g.policy(i+1))
	}
	return doc
}

func writeDocument(w io.Writer, doc *rules.Document, format string) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

func writeDocumentToFile(doc *rules.Document, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating file: %w", err)
	}
	defer file.Close()
	return writeDocument(file, doc, predicate.FormatFromPath(path))
}

func run(args []string) error {
	o, err := parseFlags(args)
	if err != nil {
		return err
	}
	space, err := predicate.LoadSchema(o.schemaFile)
	if err != nil {
		return err
	}
	if space.Len() == 0 {
		return fmt.Errorf("schema %s declares no predicates", o.schemaFile)
	}

	doc := generateDocument(space.Names(), o)
	// Round-trip through the compiler so only loadable documents are written.
	if _, err := doc.Compile(space); err != nil {
		return err
	}
	if err := writeDocumentToFile(doc, o.outputFile); err != nil {
		return err
	}

	fmt.Printf("Generated %d rules and %d policies. Saved to %s\n", len(doc.Rules), len(doc.Policies), o.outputFile)
	return nil
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
