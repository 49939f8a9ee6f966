// Package main provides the dicetab CLI. It computes the exact outcome
// distribution of a tabletop dice expression and prints it as a table or a
// JSON document, draws a single audited roll, or runs a Lua analysis script.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/cory-johannsen/dicetab/internal/config"
	"github.com/cory-johannsen/dicetab/internal/engine"
	"github.com/cory-johannsen/dicetab/internal/expr"
	"github.com/cory-johannsen/dicetab/internal/observability"
	"github.com/cory-johannsen/dicetab/internal/preset"
	"github.com/cory-johannsen/dicetab/internal/query"
	"github.com/cory-johannsen/dicetab/internal/roll"
	"github.com/cory-johannsen/dicetab/internal/scripting"
)

// jsonRow mirrors query.Row for machine-readable output.
type jsonRow struct {
	Value   int     `json:"value"`
	P       float64 `json:"p"`
	AtLeast float64 `json:"at_least"`
	AtMost  float64 `json:"at_most"`
}

// jsonResult is the document printed by -json.
type jsonResult struct {
	Expression string    `json:"expression"`
	Mean       float64   `json:"mean"`
	Stdev      float64   `json:"stdev"`
	Min        int       `json:"min"`
	Max        int       `json:"max"`
	Outcomes   int       `json:"outcomes"`
	Rows       []jsonRow `json:"rows"`
}

func main() {
	configPath := flag.String("config", "", "path to configuration file; empty = built-in defaults")
	presetName := flag.String("preset", "", "evaluate a named preset instead of an expression")
	presetsDir := flag.String("presets-dir", "content/presets", "path to preset YAML files directory")
	scriptPath := flag.String("script", "", "run a Lua analysis script instead of evaluating an expression")
	jsonOut := flag.Bool("json", false, "print the distribution as JSON instead of a table")
	rollOnce := flag.Bool("roll", false, "sample the expression once instead of analyzing it")
	seed := flag.Int64("seed", 0, "deterministic seed for -roll; 0 uses the crypto source")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = loaded
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		log.Fatalf("initializing logger: %v", err)
	}
	defer logger.Sync()

	eng := engine.New(cfg.Engine.MaxPoolArea, logger)

	if *scriptPath != "" {
		runner := scripting.NewRunner(eng, logger, cfg.Scripting.InstructionLimit)
		if err := runner.Run(*scriptPath); err != nil {
			fail(err)
		}
		return
	}

	input := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if *presetName != "" {
		reg, err := preset.LoadDirectory(*presetsDir)
		if err != nil {
			log.Fatalf("loading presets: %v", err)
		}
		p, ok := reg.Get(strings.ToLower(*presetName))
		if !ok {
			fail(fmt.Errorf("unknown preset %q", *presetName))
		}
		input = p.Canonical
	}
	if input == "" {
		fail(errors.New(`no expression given (try: dicetab "4d6kh3 + 2")`))
	}

	if *rollOnce {
		src := roll.NewCryptoSource()
		if *seed != 0 {
			src = roll.NewSeededSource(*seed)
		}
		roller := roll.NewLoggedRoller(src, logger)
		result, err := roller.RollExpr(input)
		if err != nil {
			fail(err)
		}
		fmt.Println(result)
		return
	}

	node, err := expr.Parse(input)
	if err != nil {
		fail(err)
	}
	d, err := eng.Evaluate(node)
	if err != nil {
		fail(err)
	}
	res := query.New(node.String(), d)

	if *jsonOut {
		printJSON(res)
		return
	}
	fmt.Print(query.RenderTable(res, query.Style{}))
	fmt.Print(query.RenderSummary(res, query.Style{}))
}

func printJSON(res *query.Result) {
	s := res.Summary()
	doc := jsonResult{
		Expression: s.Expression,
		Mean:       s.Mean,
		Stdev:      s.Stdev,
		Min:        s.Min,
		Max:        s.Max,
		Outcomes:   s.Outcomes,
	}
	for _, row := range res.Rows() {
		doc.Rows = append(doc.Rows, jsonRow{
			Value:   row.Value,
			P:       row.Mass,
			AtLeast: row.AtLeast,
			AtMost:  row.AtMost,
		})
	}
	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(out))
}

// fail prints a user-facing error and exits nonzero.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "dicetab: %v\n", err)
	os.Exit(1)
}
