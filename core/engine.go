package core

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	perrors "github.com/irisbuild/iris/pkg/irislang/errors"
)

// TargetState tracks a target through a build
type TargetState int

const (
	StatePending TargetState = iota
	StateUpToDate
	StateBuilding
	StateBuilt
	StateFailed
	StateSkipped
)

// String returns the display name of a state
func (s TargetState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateUpToDate:
		return "up-to-date"
	case StateBuilding:
		return "building"
	case StateBuilt:
		return "built"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// ProgressFunc reports build progress at each command boundary
type ProgressFunc func(task string, current, total int)

// BuildReport summarizes a build invocation
type BuildReport struct {
	States       map[string]TargetState
	Failed       []string
	CommandsRun  int
	FailureLogs  map[string]string // target -> captured output of the failing command
	CacheHits    int
	TotalTargets int
}

// ConfigFileName is the serialized configuration stored in the build
// directory so later invocations can rebuild without re-interpreting
// the build script.
const ConfigFileName = "iris-config.json"

// Engine owns the build configuration and drives backend emission and
// builds. The cache and graph are only touched from the calling
// goroutine; worker parallelism lives entirely inside the runner.
type Engine struct {
	config    *BuildConfig
	buildDir  string
	sourceDir string
	cacheDir  string
	runner    CommandRunner
	hashedEnv []string // KEY=VALUE entries folded into command hashes
	warnings  []string
}

// NewEngine creates an engine without a configuration; attach one with
// SetConfig or LoadFromBuildDir.
func NewEngine() *Engine {
	return &Engine{
		buildDir: "build",
		cacheDir: DefaultCacheDir,
	}
}

// NewEngineWithConfig creates an engine owning the given configuration
func NewEngineWithConfig(config *BuildConfig) *Engine {
	e := NewEngine()
	e.config = config
	return e
}

// SetConfig replaces the engine's configuration
func (e *Engine) SetConfig(config *BuildConfig) { e.config = config }

// Config returns the engine's configuration
func (e *Engine) Config() *BuildConfig { return e.config }

// SetBuildDir sets where artifacts and backend files are placed
func (e *Engine) SetBuildDir(dir string) { e.buildDir = dir }

// SetSourceDir sets the directory source paths are resolved against
func (e *Engine) SetSourceDir(dir string) { e.sourceDir = dir }

// SetCacheDir sets the fingerprint cache location
func (e *Engine) SetCacheDir(dir string) { e.cacheDir = dir }

// SetRunner substitutes the command runner (tests inject recorders)
func (e *Engine) SetRunner(r CommandRunner) { e.runner = r }

// SetHashedEnv declares environment entries ("KEY=VALUE") that influence
// compiler output and therefore participate in command fingerprints.
func (e *Engine) SetHashedEnv(entries []string) { e.hashedEnv = entries }

// Warnings returns non-fatal findings from the last build (dangling
// dependency references and the like).
func (e *Engine) Warnings() []string { return e.warnings }

// LoadFromBuildDir reconstructs the configuration from a previously
// generated build directory.
func (e *Engine) LoadFromBuildDir(dir string) error {
	data, err := os.ReadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return fmt.Errorf("reading %s: %w", ConfigFileName, err)
	}

	var config BuildConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing %s: %w", ConfigFileName, err)
	}

	e.config = &config
	e.buildDir = dir
	return nil
}

// saveConfig serializes the configuration into the build directory
func (e *Engine) saveConfig(dir string) error {
	data, err := json.MarshalIndent(e.config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ConfigFileName), data, 0o644)
}

// GenerateBuildFiles emits the backend manifest (ninja or make) plus the
// serialized configuration into dir.
func (e *Engine) GenerateBuildFiles(dir, backend string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return perrors.New("BACKEND-0002", map[string]any{"Path": dir, "Reason": err.Error()})
	}

	prevBuildDir := e.buildDir
	e.buildDir = dir
	defer func() { e.buildDir = prevBuildDir }()

	if err := e.saveConfig(dir); err != nil {
		return perrors.New("BACKEND-0002", map[string]any{
			"Path":   filepath.Join(dir, ConfigFileName),
			"Reason": err.Error(),
		})
	}

	switch backend {
	case BackendNinja:
		return e.generateNinja(dir)
	case BackendMake:
		return e.generateMakefile(dir)
	default:
		return perrors.New("BACKEND-0001", map[string]any{"Backend": backend})
	}
}

// Build drives a full or single-target build. jobs caps command
// parallelism within a target (0 selects hardware concurrency); verbose
// routes every executed command into the progress callback; progress is
// invoked at each command boundary and may be nil.
func (e *Engine) Build(target string, jobs int, verbose bool, progress ProgressFunc) (*BuildReport, error) {
	if e.config == nil {
		return nil, fmt.Errorf("engine has no configuration")
	}
	if e.runner == nil {
		e.runner = NewShellRunner()
	}
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	e.warnings = nil

	graph := BuildGraph(e.config)
	if graph.HasCycle() {
		return nil, CycleError()
	}
	for name, deps := range graph.DanglingDeps() {
		for _, dep := range deps {
			if e.config.FindDependency(dep) != nil {
				continue // external dependency, resolved at link time
			}
			e.warnings = append(e.warnings,
				perrors.New("GRAPH-0002", map[string]any{"Target": name, "Dep": dep}).Message)
		}
	}

	order := graph.TopologicalSort()

	// A requested target restricts the build to itself and everything
	// it transitively depends on
	selected := map[string]bool{}
	if target != "" {
		if !graph.HasNode(target) {
			return nil, perrors.New("BUILD-0002", map[string]any{"Target": target})
		}
		collectDeps(graph, target, selected)
	}

	cache := NewCache(e.cacheDir)
	defer cache.Save()

	report := &BuildReport{
		States:      make(map[string]TargetState),
		FailureLogs: make(map[string]string),
	}

	// Planning pass: compute fingerprints and decide what will run, so
	// progress totals are known before the first command starts. A
	// target rebuilds when its own fingerprint is stale or any of its
	// dependencies rebuilds.
	plans := make(map[string]*buildPlan)
	willBuild := make(map[string]bool)
	totalCommands := 0

	for _, name := range order {
		if target != "" && !selected[name] {
			continue
		}
		t := e.config.FindTarget(name)
		if t == nil {
			continue
		}
		report.TotalTargets++
		report.States[name] = StatePending

		plan := e.planTarget(t)
		plans[name] = plan

		stale := !cache.IsUpToDate(name, plan.inputHash, plan.commandHash)
		for _, dep := range t.Dependencies {
			if willBuild[dep] {
				stale = true
			}
		}
		willBuild[name] = stale
		if stale {
			totalCommands += len(plan.compileCmds) + 1
		}
	}

	// Execution pass, in dependency order
	current := 0
	for _, name := range order {
		plan, ok := plans[name]
		if !ok {
			continue
		}

		// A failed or skipped dependency poisons its dependents
		poisoned := false
		for _, dep := range plan.target.Dependencies {
			switch report.States[dep] {
			case StateFailed, StateSkipped:
				poisoned = true
			}
		}
		if poisoned {
			report.States[name] = StateSkipped
			if progress != nil {
				progress(name+" (skipped)", current, totalCommands)
			}
			continue
		}

		if !willBuild[name] {
			report.States[name] = StateUpToDate
			report.CacheHits++
			if progress != nil {
				progress(name+" (cached)", current, totalCommands)
			}
			continue
		}

		report.States[name] = StateBuilding
		if err := os.MkdirAll(filepath.Join(e.buildDir, "obj", name), 0o755); err != nil {
			report.States[name] = StateFailed
			report.Failed = append(report.Failed, name)
			report.FailureLogs[name] = err.Error()
			continue
		}

		// Compile commands for distinct sources run in parallel; the
		// link step observes them all
		failed := false
		results := e.runner.RunParallel(plan.compileCmds, jobs)
		for idx, result := range results {
			current++
			report.CommandsRun++
			if progress != nil {
				task := name
				if verbose {
					task = plan.compileCmds[idx]
				}
				progress(task, current, totalCommands)
			}
			if result.ExitCode != 0 {
				failed = true
				if report.FailureLogs[name] == "" {
					report.FailureLogs[name] = commandOutput(result)
				}
			}
		}

		if !failed {
			result := e.runner.Run(plan.linkCmd)
			current++
			report.CommandsRun++
			if progress != nil {
				task := name
				if verbose {
					task = plan.linkCmd
				}
				progress(task, current, totalCommands)
			}
			if result.ExitCode != 0 {
				failed = true
				report.FailureLogs[name] = commandOutput(result)
			}
		}

		if failed {
			report.States[name] = StateFailed
			report.Failed = append(report.Failed, name)
			continue
		}

		report.States[name] = StateBuilt
		outputs := append([]string{plan.artifact}, plan.objects...)
		cache.Store(name, plan.inputHash, plan.commandHash, outputs)
	}

	if len(report.Failed) > 0 {
		return report, perrors.New("BUILD-0001", map[string]any{"Failed": len(report.Failed)})
	}
	return report, nil
}

// collectDeps marks name and its transitive dependencies in set
func collectDeps(graph *Graph, name string, set map[string]bool) {
	if set[name] {
		return
	}
	set[name] = true
	node := graph.Node(name)
	if node == nil {
		return
	}
	for _, dep := range node.Deps {
		collectDeps(graph, dep, set)
	}
}

func commandOutput(result RunResult) string {
	out := strings.TrimSpace(result.Stdout + "\n" + result.Stderr)
	if out == "" {
		return fmt.Sprintf("exit status %d", result.ExitCode)
	}
	return out
}
