package steps

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/robotdad/recipe-tool/internal/concurrency"
	"github.com/robotdad/recipe-tool/internal/rcontext"
	"github.com/robotdad/recipe-tool/internal/recipe"
	"github.com/robotdad/recipe-tool/internal/rerrors"
	"github.com/robotdad/recipe-tool/internal/step"
)

type parallelBranch struct {
	name      string
	substeps  []step.Descriptor
	dependsOn []string
}

type parallelStep struct {
	deps           step.Deps
	branches       []parallelBranch
	maxConcurrency int
	delay          float64
	failFast       bool
}

// NewParallel builds the parallel step, plus an additive depends_on
// extension on each substep entry (the entries become named branches,
// checked by concurrency.DependencyGraph, and each branch starts only after
// the branches it names have finished).
func NewParallel(deps step.Deps, cfg map[string]interface{}) (step.Step, error) {
	raw, ok := cfg["substeps"]
	if !ok {
		return nil, rerrors.ConfigError("parallel", "missing required field \"substeps\"")
	}
	rawList, ok := raw.([]interface{})
	if !ok {
		return nil, rerrors.ConfigError("parallel", "substeps must be a list")
	}

	branches := make([]parallelBranch, 0, len(rawList))
	for i, entry := range rawList {
		m, ok := entry.(map[string]interface{})
		if !ok {
			return nil, rerrors.ConfigError("parallel", "substeps[%d] must be a mapping", i)
		}
		name, _ := configString(m, "name")
		if name == "" {
			name = configDefaultBranchName(i)
		}
		var dependsOn []string
		if rawDeps, ok := m["depends_on"]; ok {
			list, ok := rawDeps.([]interface{})
			if !ok {
				return nil, rerrors.ConfigError("parallel", "substeps[%d].depends_on must be a list", i)
			}
			for _, d := range list {
				s, ok := d.(string)
				if !ok {
					return nil, rerrors.ConfigError("parallel", "substeps[%d].depends_on must contain strings", i)
				}
				dependsOn = append(dependsOn, s)
			}
		}

		fragment, err := recipe.FragmentSteps(branchSteps(m))
		if err != nil {
			return nil, rerrors.ConfigError("parallel", "invalid substeps[%d]: %s", i, err)
		}
		branches = append(branches, parallelBranch{name: name, substeps: fragment, dependsOn: dependsOn})
	}

	return &parallelStep{
		deps:           deps,
		branches:       branches,
		maxConcurrency: configInt(cfg, "max_concurrency", 0),
		delay:          configFloat(cfg, "delay", 0),
		failFast:       configBool(cfg, "fail_fast", true),
	}, nil
}

func configDefaultBranchName(i int) string {
	return "branch_" + strconv.Itoa(i)
}

// branchSteps extracts the nested step list from a substeps[i] entry: it
// may be {"steps": [...]} or carry "type"/"config" directly as a single
// step, or a bare list under "steps".
func branchSteps(m map[string]interface{}) interface{} {
	if steps, ok := m["steps"]; ok {
		return steps
	}
	return m
}

func (s *parallelStep) Execute(ctx context.Context, rc *rcontext.Context) error {
	if len(s.branches) == 0 {
		return nil
	}

	hasDeps := false
	for _, b := range s.branches {
		if len(b.dependsOn) > 0 {
			hasDeps = true
			break
		}
	}

	if hasDeps {
		return s.executeWithDependencies(ctx, rc)
	}
	return s.executeUnordered(ctx, rc)
}

func (s *parallelStep) executeUnordered(ctx context.Context, rc *rcontext.Context) error {
	outcomes := concurrency.Run(ctx, len(s.branches), concurrency.Launcher{
		MaxConcurrency: s.maxConcurrency,
		Delay:          time.Duration(s.delay * float64(time.Second)),
		FailFast:       s.failFast,
	}, func(ctx context.Context, i int) error {
		clone := rc.Clone()
		return s.deps.Engine.Run(ctx, clone, s.branches[i].substeps)
	})

	for _, o := range outcomes {
		if o.Err != nil {
			return o.Err
		}
	}
	return nil
}

// executeWithDependencies runs every branch concurrently (bounded by
// max_concurrency) but makes each branch wait for its declared
// dependencies to finish before starting, using concurrency.NewDependencyGraph
// only to validate the declared names and surface cycles up front.
func (s *parallelStep) executeWithDependencies(ctx context.Context, rc *rcontext.Context) error {
	dependsOn := make(map[string][]string, len(s.branches))
	for _, b := range s.branches {
		dependsOn[b.name] = b.dependsOn
	}
	graph, err := concurrency.NewDependencyGraph(dependsOn)
	if err != nil {
		return rerrors.ConfigError("parallel", "%s", err)
	}
	if _, err := graph.TopologicalSort(); err != nil {
		return rerrors.ConfigError("parallel", "%s", err)
	}

	done := make(map[string]chan struct{}, len(s.branches))
	for _, b := range s.branches {
		done[b.name] = make(chan struct{})
	}

	var sem *semaphore.Weighted
	if s.maxConcurrency > 0 {
		sem = semaphore.NewWeighted(int64(s.maxConcurrency))
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error
	var failOnce sync.Once

	for _, b := range s.branches {
		b := b
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(done[b.name])

			for _, dep := range b.dependsOn {
				select {
				case <-done[dep]:
				case <-runCtx.Done():
					return
				}
			}
			if sem != nil {
				if err := sem.Acquire(runCtx, 1); err != nil {
					return
				}
				defer sem.Release(1)
			}
			if runCtx.Err() != nil {
				return
			}

			clone := rc.Clone()
			if err := s.deps.Engine.Run(runCtx, clone, b.substeps); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
				if s.failFast {
					failOnce.Do(cancel)
				}
			}
		}()
	}

	wg.Wait()
	return firstErr
}
