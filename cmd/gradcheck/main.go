// Package main provides the layerkit gradient-check CLI.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/born-ml/layerkit/internal/config"
	"github.com/born-ml/layerkit/internal/suite"
)

const version = "v0.1.0-dev"

func main() {
	log.SetFlags(0)
	log.SetPrefix("gradcheck: ")

	if len(os.Args) < 2 {
		usage(os.Stdout)
		return
	}

	switch os.Args[1] {
	case "version":
		fmt.Printf("layerkit gradcheck %s\n", version)
	case "list":
		for _, name := range suite.Names(config.Default()) {
			fmt.Println(name)
		}
	case "run":
		if !run(os.Args[2:], os.Stdout) {
			os.Exit(1)
		}
	default:
		usage(os.Stderr)
		os.Exit(2)
	}
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "layerkit gradcheck - numerical gradient checks for every layer")
	fmt.Fprintf(w, "Version: %s\n\n", version)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  version    Show version")
	fmt.Fprintln(w, "  list       List available checks")
	fmt.Fprintln(w, "  run        Run checks (run -h for flags)")
}

// run executes the suite and reports whether every check passed.
func run(args []string, out io.Writer) bool {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML suite config (defaults built in)")
	seed := fs.Uint64("seed", 0, "Override PRNG seed")
	workers := fs.Int("workers", 0, "Override number of worker goroutines")
	tolerance := fs.Float64("tolerance", 0, "Override maximum relative error")
	checks := fs.String("checks", "", "Comma-separated checks to run (default all)")
	_ = fs.Parse(args)

	cfg := config.Default()
	if *cfgPath != "" {
		loaded, err := config.Load(*cfgPath)
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = loaded
	}

	var names []string
	if *checks != "" {
		names = strings.Split(*checks, ",")
	}
	cfg.ApplyOverrides(config.Overrides{
		Seed:      *seed,
		Workers:   *workers,
		Tolerance: *tolerance,
		Checks:    names,
	})

	results, err := suite.Run(cfg)
	if err != nil {
		log.Fatalf("run failed: %v", err)
	}
	return report(out, results, cfg.Tolerance)
}

// report prints one line per check and returns true when all passed.
func report(w io.Writer, results []suite.Result, tol float64) bool {
	ok := true
	for _, r := range results {
		status := "PASS"
		if !r.Passed(tol) {
			status = "FAIL"
			ok = false
		}
		if r.Err != nil {
			fmt.Fprintf(w, "%s  %-22s error: %v\n", status, r.Name, r.Err)
			continue
		}

		parts := make([]string, len(r.Gradients))
		for i, g := range r.Gradients {
			parts[i] = fmt.Sprintf("%s=%.2e", g.Name, g.RelError)
		}
		fmt.Fprintf(w, "%s  %-22s %s\n", status, r.Name, strings.Join(parts, " "))
	}
	fmt.Fprintf(w, "\n%d checks, tolerance %.0e\n", len(results), tol)
	return ok
}
