// Package suite runs numerical gradient checks against every layer.
//
// A check builds random inputs, runs a forward and backward pass and
// compares each analytic gradient against centred finite differences. Checks
// are repeated for a configurable number of trials with independent seeds
// and the worst relative error per gradient is reported.
package suite

import (
	"math/rand/v2"
	"sort"

	"github.com/born-ml/layerkit/internal/config"
	"github.com/born-ml/layerkit/internal/parallel"
	"github.com/pkg/errors"
)

// ErrUnknownCheck is returned when a requested check name does not exist.
var ErrUnknownCheck = errors.New("unknown check")

// Gradient is the relative error of one analytic gradient.
type Gradient struct {
	Name     string
	RelError float64
}

// Check is a named gradient check.
type Check struct {
	Name string
	Run  func(e *Env) ([]Gradient, error)
}

// Result aggregates one check over all trials.
type Result struct {
	Name      string
	Gradients []Gradient // worst relative error per gradient across trials
	Err       error
}

// Worst returns the largest relative error in r.
func (r Result) Worst() float64 {
	worst := 0.0
	for _, g := range r.Gradients {
		worst = max(worst, g.RelError)
	}
	return worst
}

// Passed reports whether r ran cleanly and every gradient is within tol.
func (r Result) Passed(tol float64) bool {
	return r.Err == nil && r.Worst() <= tol
}

// Names lists every available check in run order.
func Names(cfg *config.Suite) []string {
	checks := All(cfg)
	names := make([]string, len(checks))
	for i, c := range checks {
		names[i] = c.Name
	}
	return names
}

// Select returns the checks named in names, in run order. An empty names
// selects every check.
func Select(checks []Check, names []string) ([]Check, error) {
	if len(names) == 0 {
		return checks, nil
	}

	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var out []Check
	for _, c := range checks {
		if want[c.Name] {
			out = append(out, c)
			delete(want, c.Name)
		}
	}
	if len(want) > 0 {
		missing := make([]string, 0, len(want))
		for n := range want {
			missing = append(missing, n)
		}
		sort.Strings(missing)
		return nil, errors.Wrapf(ErrUnknownCheck, "%v", missing)
	}
	return out, nil
}

// Run executes the configured checks on cfg.Workers goroutines. Every
// (check, trial) pair gets its own deterministic random stream derived from
// cfg.Seed, so results do not depend on the worker count.
func Run(cfg *config.Suite) ([]Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "suite")
	}
	checks, err := Select(All(cfg), cfg.Checks)
	if err != nil {
		return nil, err
	}

	trials := cfg.Trials
	grads := make([][][]Gradient, len(checks))
	errs := make([][]error, len(checks))
	for i := range checks {
		grads[i] = make([][]Gradient, trials)
		errs[i] = make([]error, trials)
	}

	pcfg := parallel.DefaultConfig().WithWorkers(cfg.Workers)
	parallel.ForBatch(len(checks), trials, func(c, trial int) {
		env := &Env{
			src:  rand.NewPCG(cfg.Seed, uint64(c*trials+trial)),
			step: cfg.Step,
		}
		grads[c][trial], errs[c][trial] = runCheck(checks[c], env)
	}, pcfg)

	results := make([]Result, len(checks))
	for c, chk := range checks {
		results[c] = merge(chk.Name, grads[c], errs[c])
	}
	return results, nil
}

func runCheck(chk Check, env *Env) (grads []Gradient, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%s: panic: %v", chk.Name, r)
		}
	}()
	grads, err = chk.Run(env)
	if err != nil {
		return nil, errors.Wrap(err, chk.Name)
	}
	return grads, nil
}

// merge keeps the worst error per gradient name, preserving first-seen order.
func merge(name string, trials [][]Gradient, errs []error) Result {
	res := Result{Name: name}
	for _, err := range errs {
		if err != nil {
			res.Err = err
			return res
		}
	}

	index := map[string]int{}
	for _, grads := range trials {
		for _, g := range grads {
			i, ok := index[g.Name]
			if !ok {
				index[g.Name] = len(res.Gradients)
				res.Gradients = append(res.Gradients, g)
				continue
			}
			res.Gradients[i].RelError = max(res.Gradients[i].RelError, g.RelError)
		}
	}
	return res
}
