package analysis

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"chartlab/internal/errors"
)

// Result holds the outcome of one analyzer run.
type Result struct {
	Name   string
	Report *Report
	Err    error
}

// Engine runs registered analyzers on a worker pool.
type Engine struct {
	workers   int
	analyzers map[string]Analyzer
	order     []string
	logger    zerolog.Logger
	mu        sync.RWMutex
}

// NewEngine creates a new analysis engine with the specified number of workers.
func NewEngine(workers int, logger zerolog.Logger) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		workers:   workers,
		analyzers: make(map[string]Analyzer),
		logger:    logger,
	}
}

// NewDefaultEngine creates an engine with every built-in analyzer registered.
func NewDefaultEngine(workers int, params Params, logger zerolog.Logger) *Engine {
	e := NewEngine(workers, logger)
	for _, a := range Builtin(params) {
		e.Register(a)
	}
	return e
}

// Builtin returns the built-in analyzers in display order.
func Builtin(params Params) []Analyzer {
	return []Analyzer{
		&Overview{},
		&Trend{Params: params},
		&Comparative{},
		&Ratios{Params: params},
		&Variance{Params: params},
		&Regression{Params: params},
		&MovingAverage{Params: params},
	}
}

// Register adds an analyzer. Registering a name twice replaces the analyzer
// but keeps its position.
func (e *Engine) Register(a Analyzer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.analyzers[a.Name()]; !exists {
		e.order = append(e.order, a.Name())
	}
	e.analyzers[a.Name()] = a
}

// List returns the registered analyzer names in registration order.
func (e *Engine) List() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, len(e.order))
	copy(names, e.order)
	return names
}

// Get returns the analyzer registered under name.
func (e *Engine) Get(name string) (Analyzer, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	a, ok := e.analyzers[name]
	return a, ok
}

// Run executes one analyzer.
func (e *Engine) Run(ctx context.Context, name string, in *Input) (*Report, error) {
	a, ok := e.Get(name)
	if !ok {
		return nil, errors.Wrapf(errors.ErrUnknownAnalyzer, "analyzer %s", name)
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		return e.analyze(a, in)
	}
}

// RunAll executes every registered analyzer in parallel. Results are returned
// in registration order.
func (e *Engine) RunAll(ctx context.Context, in *Input) ([]Result, error) {
	return e.RunSelected(ctx, in, e.List())
}

// RunSelected executes the named analyzers in parallel. Unknown names produce
// a result carrying ErrUnknownAnalyzer.
func (e *Engine) RunSelected(ctx context.Context, in *Input, names []string) ([]Result, error) {
	type job struct {
		idx int
		a   Analyzer
	}

	results := make([]Result, len(names))
	jobs := make([]job, 0, len(names))
	e.mu.RLock()
	for i, name := range names {
		results[i].Name = name
		if a, ok := e.analyzers[name]; ok {
			jobs = append(jobs, job{idx: i, a: a})
		} else {
			results[i].Err = errors.Wrapf(errors.ErrUnknownAnalyzer, "analyzer %s", name)
		}
	}
	e.mu.RUnlock()

	var wg sync.WaitGroup
	work := make(chan job, len(jobs))

	for i := 0; i < e.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range work {
				select {
				case <-ctx.Done():
					results[j.idx].Err = ctx.Err()
				default:
					results[j.idx].Report, results[j.idx].Err = e.analyze(j.a, in)
				}
			}
		}()
	}

	for _, j := range jobs {
		work <- j
	}
	close(work)

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (e *Engine) analyze(a Analyzer, in *Input) (*Report, error) {
	start := time.Now()
	report, err := a.Analyze(in)
	elapsed := time.Since(start)

	event := e.logger.Debug()
	if err != nil {
		event = e.logger.Warn().Err(err)
	}
	event.Str("analyzer", a.Name()).
		Str("symbol", in.Symbol).
		Dur("duration", elapsed).
		Msg("analyzer finished")

	if report != nil {
		report.Duration = elapsed
	}
	return report, err
}
