package core

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

// fakeRunner records commands and fabricates their outputs so builds
// can be exercised without a compiler.
type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	failOn   string // commands containing this substring exit nonzero
}

func (f *fakeRunner) Run(command string) RunResult {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()

	if f.failOn != "" && strings.Contains(command, f.failOn) {
		return RunResult{ExitCode: 1, Stderr: "simulated failure"}
	}

	if out := outputPath(command); out != "" {
		os.MkdirAll(filepath.Dir(out), 0o755)
		os.WriteFile(out, []byte(command), 0o644)
	}
	return RunResult{ExitCode: 0}
}

func (f *fakeRunner) RunParallel(commands []string, maxParallel int) []RunResult {
	results := make([]RunResult, len(commands))
	for i, cmd := range commands {
		results[i] = f.Run(cmd)
	}
	return results
}

func (f *fakeRunner) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.commands)
}

// outputPath extracts the artifact a command would produce
func outputPath(command string) string {
	fields := strings.Fields(command)
	if len(fields) >= 3 && fields[0] == "ar" {
		return fields[2]
	}
	for i, field := range fields {
		if field == "-o" && i+1 < len(fields) {
			return fields[i+1]
		}
	}
	return ""
}

// newTestProject creates sources on disk and an engine wired to a fake
// runner and private build/cache dirs.
func newTestProject(t *testing.T) (*Engine, *fakeRunner, string) {
	t.Helper()
	dir := t.TempDir()

	srcDir := filepath.Join(dir, "src")
	os.MkdirAll(srcDir, 0o755)
	os.WriteFile(filepath.Join(srcDir, "core.c"), []byte("int core;"), 0o644)
	os.WriteFile(filepath.Join(srcDir, "app.c"), []byte("int main;"), 0o644)

	cfg := &BuildConfig{
		ProjectName: "demo",
		Language:    "c",
		Targets: []Target{
			{
				Name:         "app",
				Kind:         KindExecutable,
				Sources:      []string{filepath.Join(srcDir, "app.c")},
				Dependencies: []string{"core"},
			},
			{
				Name:    "core",
				Kind:    KindStaticLibrary,
				Sources: []string{filepath.Join(srcDir, "core.c")},
			},
		},
	}

	runner := &fakeRunner{}
	engine := NewEngineWithConfig(cfg)
	engine.SetBuildDir(filepath.Join(dir, "build"))
	engine.SetCacheDir(filepath.Join(dir, "cache"))
	engine.SetRunner(runner)

	return engine, runner, dir
}

func TestBuildOrderAndStates(t *testing.T) {
	engine, runner, _ := newTestProject(t)

	report, err := engine.Build("", 2, false, nil)
	if err != nil {
		t.Fatalf("build failed: %v", err)
	}

	if report.States["core"] != StateBuilt || report.States["app"] != StateBuilt {
		t.Errorf("expected both targets built, got %v", report.States)
	}
	// core: compile + ar, app: compile + link
	if report.CommandsRun != 4 || runner.count() != 4 {
		t.Errorf("expected 4 commands, ran %d", runner.count())
	}

	// The library archive command must run before the app link command
	var arIdx, linkIdx int
	for idx, cmd := range runner.commands {
		if strings.HasPrefix(cmd, "ar rcs") {
			arIdx = idx
		}
		if strings.Contains(cmd, "-o ") && strings.Contains(cmd, string(filepath.Separator)+"app") {
			linkIdx = idx
		}
	}
	if arIdx > linkIdx {
		t.Errorf("dependency must build before dependent: %v", runner.commands)
	}
}

func TestIncrementalBuildRunsNothing(t *testing.T) {
	engine, _, dir := newTestProject(t)

	if _, err := engine.Build("", 2, false, nil); err != nil {
		t.Fatal(err)
	}

	// Fresh engine and runner, same cache: everything is up to date
	second := NewEngineWithConfig(engine.Config())
	second.SetBuildDir(filepath.Join(dir, "build"))
	second.SetCacheDir(filepath.Join(dir, "cache"))
	freshRunner := &fakeRunner{}
	second.SetRunner(freshRunner)

	report, err := second.Build("", 2, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	if freshRunner.count() != 0 {
		t.Errorf("expected zero commands on unchanged rebuild, ran %v", freshRunner.commands)
	}
	if report.States["core"] != StateUpToDate || report.States["app"] != StateUpToDate {
		t.Errorf("expected all targets up to date, got %v", report.States)
	}
	if report.CacheHits != 2 {
		t.Errorf("expected 2 cache hits, got %d", report.CacheHits)
	}
}

func TestContentChangeRebuildsDependents(t *testing.T) {
	engine, _, dir := newTestProject(t)

	if _, err := engine.Build("", 2, false, nil); err != nil {
		t.Fatal(err)
	}

	// Change one byte of the library source: the library and its
	// dependent rebuild
	os.WriteFile(filepath.Join(dir, "src", "core.c"), []byte("int core2;"), 0o644)

	second := NewEngineWithConfig(engine.Config())
	second.SetBuildDir(filepath.Join(dir, "build"))
	second.SetCacheDir(filepath.Join(dir, "cache"))
	runner := &fakeRunner{}
	second.SetRunner(runner)

	report, err := second.Build("", 2, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.States["core"] != StateBuilt {
		t.Errorf("expected core rebuilt, got %v", report.States["core"])
	}
	if report.States["app"] != StateBuilt {
		t.Errorf("expected dependent app rebuilt, got %v", report.States["app"])
	}
}

func TestContentChangeLeavesPeersCached(t *testing.T) {
	engine, _, dir := newTestProject(t)

	if _, err := engine.Build("", 2, false, nil); err != nil {
		t.Fatal(err)
	}

	// Change the app source only: core stays cached
	os.WriteFile(filepath.Join(dir, "src", "app.c"), []byte("int main2;"), 0o644)

	second := NewEngineWithConfig(engine.Config())
	second.SetBuildDir(filepath.Join(dir, "build"))
	second.SetCacheDir(filepath.Join(dir, "cache"))
	runner := &fakeRunner{}
	second.SetRunner(runner)

	report, err := second.Build("", 2, false, nil)
	if err != nil {
		t.Fatal(err)
	}
	if report.States["core"] != StateUpToDate {
		t.Errorf("expected core cached, got %v", report.States["core"])
	}
	if report.States["app"] != StateBuilt {
		t.Errorf("expected app rebuilt, got %v", report.States["app"])
	}
	if runner.count() != 2 {
		t.Errorf("expected 2 commands (app compile + link), ran %v", runner.commands)
	}
}

func TestCycleFailsBeforeAnyCommand(t *testing.T) {
	dir := t.TempDir()
	cfg := &BuildConfig{
		Targets: []Target{
			{Name: "a", Dependencies: []string{"b"}},
			{Name: "b", Dependencies: []string{"a"}},
		},
	}

	runner := &fakeRunner{}
	engine := NewEngineWithConfig(cfg)
	engine.SetBuildDir(filepath.Join(dir, "build"))
	engine.SetCacheDir(filepath.Join(dir, "cache"))
	engine.SetRunner(runner)

	_, err := engine.Build("", 1, false, nil)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if !strings.Contains(err.Error(), "cycle") {
		t.Errorf("unexpected error: %v", err)
	}
	if runner.count() != 0 {
		t.Errorf("no command may run on a cyclic graph, ran %v", runner.commands)
	}
}

func TestFailurePoisonsDependents(t *testing.T) {
	engine, runner, _ := newTestProject(t)
	runner.failOn = "core.c"

	report, err := engine.Build("", 1, false, nil)
	if err == nil {
		t.Fatal("expected build error")
	}

	if report.States["core"] != StateFailed {
		t.Errorf("expected core failed, got %v", report.States["core"])
	}
	if report.States["app"] != StateSkipped {
		t.Errorf("expected app skipped, got %v", report.States["app"])
	}
	if report.FailureLogs["core"] == "" {
		t.Error("expected captured failure output")
	}

	// No cache entry may exist for the failed target
	cache := NewCache(engine.cacheDir)
	if _, ok := cache.Get("core"); ok {
		t.Error("failed target must not be cached")
	}
}

func TestSingleTargetRestrictsToAncestors(t *testing.T) {
	engine, runner, _ := newTestProject(t)

	report, err := engine.Build("core", 1, false, nil)
	if err != nil {
		t.Fatal(err)
	}

	if _, ok := report.States["app"]; ok {
		t.Errorf("app must not be scheduled when building core: %v", report.States)
	}
	if report.States["core"] != StateBuilt {
		t.Errorf("expected core built, got %v", report.States)
	}
	if runner.count() != 2 {
		t.Errorf("expected core's 2 commands only, ran %v", runner.commands)
	}
}

func TestUnknownTargetFails(t *testing.T) {
	engine, _, _ := newTestProject(t)
	_, err := engine.Build("ghost", 1, false, nil)
	if err == nil || !strings.Contains(err.Error(), "unknown target") {
		t.Errorf("expected unknown target error, got %v", err)
	}
}

func TestProgressCallback(t *testing.T) {
	engine, _, _ := newTestProject(t)

	var calls int
	var lastCurrent, lastTotal int
	_, err := engine.Build("", 1, false, func(task string, current, total int) {
		calls++
		lastCurrent, lastTotal = current, total
	})
	if err != nil {
		t.Fatal(err)
	}

	if calls != 4 {
		t.Errorf("expected 4 progress calls, got %d", calls)
	}
	if lastCurrent != 4 || lastTotal != 4 {
		t.Errorf("expected final progress 4/4, got %d/%d", lastCurrent, lastTotal)
	}
}

func TestGenerateNinja(t *testing.T) {
	engine, _, dir := newTestProject(t)
	buildDir := filepath.Join(dir, "out")

	if err := engine.GenerateBuildFiles(buildDir, BackendNinja); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(buildDir, "build.ninja"))
	if err != nil {
		t.Fatal(err)
	}
	ninja := string(data)

	for _, want := range []string{
		"rule cc",
		"command = $cc $cflags -c $in -o $out",
		"rule link",
		"rule ar",
		"build ",
		"default ",
	} {
		if !strings.Contains(ninja, want) {
			t.Errorf("build.ninja missing %q:\n%s", want, ninja)
		}
	}

	// The serialized configuration is stored alongside
	if _, err := os.Stat(filepath.Join(buildDir, ConfigFileName)); err != nil {
		t.Error("expected iris-config.json next to build.ninja")
	}
}

func TestGenerateMakefile(t *testing.T) {
	engine, _, dir := newTestProject(t)
	buildDir := filepath.Join(dir, "out")

	if err := engine.GenerateBuildFiles(buildDir, BackendMake); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(buildDir, "Makefile"))
	if err != nil {
		t.Fatal(err)
	}
	makefile := string(data)

	for _, want := range []string{"CC :=", "all:", "clean:", ".PHONY: all clean", "ar rcs"} {
		if !strings.Contains(makefile, want) {
			t.Errorf("Makefile missing %q:\n%s", want, makefile)
		}
	}
}

func TestUnknownBackend(t *testing.T) {
	engine, _, dir := newTestProject(t)
	err := engine.GenerateBuildFiles(filepath.Join(dir, "out"), "bazel")
	if err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("expected unknown backend error, got %v", err)
	}
}

func TestLoadFromBuildDir(t *testing.T) {
	engine, _, dir := newTestProject(t)
	buildDir := filepath.Join(dir, "out")

	if err := engine.GenerateBuildFiles(buildDir, BackendNinja); err != nil {
		t.Fatal(err)
	}

	reloaded := NewEngine()
	if err := reloaded.LoadFromBuildDir(buildDir); err != nil {
		t.Fatal(err)
	}

	cfg := reloaded.Config()
	if cfg.ProjectName != "demo" || len(cfg.Targets) != 2 {
		t.Errorf("reloaded config mismatch: %+v", cfg)
	}
}

func TestDanglingDependencyWarns(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.c")
	os.WriteFile(src, []byte("int a;"), 0o644)

	cfg := &BuildConfig{
		Targets: []Target{
			{Name: "app", Kind: KindExecutable, Sources: []string{src}, Dependencies: []string{"ghost"}},
		},
	}

	engine := NewEngineWithConfig(cfg)
	engine.SetBuildDir(filepath.Join(dir, "build"))
	engine.SetCacheDir(filepath.Join(dir, "cache"))
	engine.SetRunner(&fakeRunner{})

	report, err := engine.Build("", 1, false, nil)
	if err != nil {
		t.Fatalf("dangling deps must not fail the build: %v", err)
	}
	if report.States["app"] != StateBuilt {
		t.Errorf("expected app built despite dangling dep, got %v", report.States)
	}
	if len(engine.Warnings()) == 0 {
		t.Error("expected a dangling-dependency warning")
	}
}

func TestExternalDependencyFlags(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.c")
	os.WriteFile(src, []byte("int a;"), 0o644)

	cfg := &BuildConfig{
		Targets: []Target{
			{Name: "app", Kind: KindExecutable, Sources: []string{src}, Dependencies: []string{"zlib"}},
		},
		Dependencies: []Dependency{
			{Name: "zlib", Type: "system", IncludeDirs: []string{"/opt/z/include"}, LinkDirs: []string{"/opt/z/lib"}, Libraries: []string{"z"}},
		},
	}

	engine := NewEngineWithConfig(cfg)
	engine.SetBuildDir(filepath.Join(dir, "build"))
	engine.SetCacheDir(filepath.Join(dir, "cache"))
	runner := &fakeRunner{}
	engine.SetRunner(runner)

	if _, err := engine.Build("", 1, false, nil); err != nil {
		t.Fatal(err)
	}

	joined := strings.Join(runner.commands, "\n")
	if !strings.Contains(joined, "-I/opt/z/include") {
		t.Errorf("expected dependency include dir in compile command:\n%s", joined)
	}
	if !strings.Contains(joined, "-L/opt/z/lib") || !strings.Contains(joined, "-lz") {
		t.Errorf("expected dependency link flags in link command:\n%s", joined)
	}
}
