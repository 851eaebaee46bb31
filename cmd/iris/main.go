// Command iris is a build orchestrator for C/C++ projects driven by an
// iris.build script.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/irisbuild/iris/config"
	"github.com/irisbuild/iris/core"
	"github.com/irisbuild/iris/pkg/irislang/evaluator"
	"github.com/irisbuild/iris/pkg/irislang/parser"
	"github.com/irisbuild/iris/pkg/irislang/repl"
	"github.com/irisbuild/iris/watch"
)

// Version information, set at build time via -ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

// BuildFileName is the conventional build script name
const BuildFileName = "iris.build"

func main() {
	ctx := context.Background()
	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr, os.Getenv); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run is the main entry point, designed for testability
func run(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	if len(args) == 0 {
		printUsage(stdout)
		return nil
	}

	switch args[0] {
	case "setup":
		return runSetup(args[1:], stdout, getenv)
	case "build":
		return runBuild(args[1:], stdout, stderr, getenv)
	case "clean":
		return runClean(args[1:], stdout, getenv)
	case "init":
		return runInit(args[1:], stdout)
	case "run":
		return runRun(args[1:], stdout, stderr, getenv)
	case "info":
		return runInfo(args[1:], stdout)
	case "graph":
		return runGraph(args[1:], stdout)
	case "watch":
		return runWatch(ctx, args[1:], stdout, stderr, getenv)
	case "repl":
		repl.Start(stdout, Version)
		return nil
	case "version", "-version", "--version":
		fmt.Fprintf(stdout, "iris version %s (%s)\n", Version, Commit)
		return nil
	case "help", "-h", "-help", "--help":
		printUsage(stdout)
		return nil
	default:
		printUsage(stderr)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func printUsage(out io.Writer) {
	fmt.Fprint(out, `iris - a build orchestrator for C/C++ projects

Usage:
  iris <command> [options]

Commands:
  init      Create a new project with an iris.build template
  setup     Evaluate iris.build and generate backend build files
  build     Build targets incrementally
  run       Build, then execute a target
  clean     Remove build artifacts
  info      Show project information from iris.build
  graph     Export the target dependency graph (dot or json)
  watch     Rebuild automatically when sources change
  repl      Interactive console for the build language
  version   Show version

Run 'iris <command> -h' for command options.
`)
}

// loadScript parses and interprets the build script in sourceDir,
// injecting the caller-provided variables. Script print/warning output
// goes to the given writer, never straight to the process stdout.
func loadScript(sourceDir string, vars map[string]string, stdout io.Writer) (*core.BuildConfig, error) {
	scriptPath := filepath.Join(sourceDir, BuildFileName)
	data, err := os.ReadFile(scriptPath)
	if err != nil {
		return nil, fmt.Errorf("no %s found in %s (run 'iris init' to create a project)", BuildFileName, sourceDir)
	}

	program, err := parser.Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scriptPath, err)
	}

	interp := evaluator.NewWithLogger(evaluator.WriterLogger(stdout))
	for key, value := range vars {
		interp.SetVariable(key, value)
	}

	cfg, err := interp.Execute(program)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scriptPath, err)
	}
	return cfg, nil
}

func runSetup(args []string, stdout io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("setup", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	toolCfg, err := config.Load(".", getenv)
	if err != nil {
		return err
	}

	var (
		buildDir  = flags.String("builddir", toolCfg.BuildDir, "Build directory")
		buildType = flags.String("buildtype", "debug", "Build type (debug or release)")
		prefix    = flags.String("prefix", toolCfg.Prefix, "Install prefix")
		backend   = flags.String("backend", toolCfg.Backend, "Backend (ninja or make)")
	)
	if err := parseFlags(flags, args, stdout); err != nil {
		if errors.Is(err, errHelpShown) {
			return nil
		}
		return err
	}

	sourceDir := "."
	if flags.NArg() > 0 {
		sourceDir = flags.Arg(0)
	}

	fmt.Fprintf(stdout, "Configuring project\n")
	fmt.Fprintf(stdout, "  source dir: %s\n", sourceDir)
	fmt.Fprintf(stdout, "  build dir:  %s\n", *buildDir)
	fmt.Fprintf(stdout, "  build type: %s\n", *buildType)

	cfg, err := loadScript(sourceDir, map[string]string{
		"builddir":  *buildDir,
		"buildtype": *buildType,
		"prefix":    *prefix,
	}, stdout)
	if err != nil {
		return err
	}
	cfg.BuildType = *buildType
	if toolCfg.Compiler != "" {
		cfg.Compiler = toolCfg.Compiler
	}

	engine := core.NewEngineWithConfig(cfg)
	engine.SetSourceDir(sourceDir)
	if err := engine.GenerateBuildFiles(*buildDir, *backend); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "\nConfiguration complete. Run 'iris build' to compile.\n")
	return nil
}

func runBuild(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("build", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	toolCfg, err := config.Load(".", getenv)
	if err != nil {
		return err
	}

	var (
		buildDir = flags.String("builddir", toolCfg.BuildDir, "Build directory")
		jobs     = flags.Int("jobs", toolCfg.Jobs, "Parallel jobs (0 = all cores)")
		target   = flags.String("target", "", "Build a single target")
		verbose  = flags.Bool("verbose", false, "Print executed commands")
	)
	if err := parseFlags(flags, args, stdout); err != nil {
		if errors.Is(err, errHelpShown) {
			return nil
		}
		return err
	}

	if _, err := os.Stat(*buildDir); err != nil {
		return fmt.Errorf("build directory not found (run 'iris setup .' first)")
	}

	engine := core.NewEngine()
	if err := engine.LoadFromBuildDir(*buildDir); err != nil {
		return err
	}
	engine.SetCacheDir(toolCfg.CacheDir)

	start := time.Now()
	report, buildErr := engine.Build(*target, *jobs, *verbose, func(task string, current, total int) {
		if total == 0 {
			fmt.Fprintf(stdout, "  %s\n", task)
			return
		}
		fmt.Fprintf(stdout, "  [%d/%d] %s\n", current, total, task)
	})

	for _, warning := range engine.Warnings() {
		fmt.Fprintf(stderr, "warning: %s\n", warning)
	}

	if report != nil {
		for _, name := range report.Failed {
			fmt.Fprintf(stderr, "\n%s failed:\n%s\n", name, report.FailureLogs[name])
		}
	}
	if buildErr != nil {
		return buildErr
	}

	elapsed := time.Since(start).Seconds()
	if report.CommandsRun == 0 {
		fmt.Fprintf(stdout, "All %d target(s) up to date.\n", report.TotalTargets)
	} else {
		fmt.Fprintf(stdout, "Build completed in %.2fs (%d commands, %d cached).\n",
			elapsed, report.CommandsRun, report.CacheHits)
	}
	return nil
}

func runClean(args []string, stdout io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("clean", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	toolCfg, err := config.Load(".", getenv)
	if err != nil {
		return err
	}

	var (
		buildDir = flags.String("builddir", toolCfg.BuildDir, "Build directory")
		all      = flags.Bool("all", false, "Also remove the build configuration and cache")
	)
	if err := parseFlags(flags, args, stdout); err != nil {
		if errors.Is(err, errHelpShown) {
			return nil
		}
		return err
	}

	if *all {
		for _, dir := range []string{*buildDir, toolCfg.CacheDir} {
			if _, err := os.Stat(dir); err == nil {
				fmt.Fprintf(stdout, "removing %s\n", dir)
				os.RemoveAll(dir)
			}
		}
		fmt.Fprintln(stdout, "Clean complete.")
		return nil
	}

	// Keep the configuration so 'iris build' still works after a clean
	entries, err := os.ReadDir(*buildDir)
	if err != nil {
		fmt.Fprintln(stdout, "Nothing to clean.")
		return nil
	}
	for _, entry := range entries {
		if entry.Name() == core.ConfigFileName {
			continue
		}
		path := filepath.Join(*buildDir, entry.Name())
		fmt.Fprintf(stdout, "removing %s\n", path)
		os.RemoveAll(path)
	}

	fmt.Fprintln(stdout, "Clean complete.")
	return nil
}

func runRun(args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("run", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	toolCfg, err := config.Load(".", getenv)
	if err != nil {
		return err
	}

	var (
		buildDir = flags.String("builddir", toolCfg.BuildDir, "Build directory")
		target   = flags.String("target", "", "Target to execute")
	)
	if err := parseFlags(flags, args, stdout); err != nil {
		if errors.Is(err, errHelpShown) {
			return nil
		}
		return err
	}

	if err := runBuild([]string{"-builddir", *buildDir}, stdout, stderr, getenv); err != nil {
		return err
	}

	engine := core.NewEngine()
	if err := engine.LoadFromBuildDir(*buildDir); err != nil {
		return err
	}

	exePath := ""
	if *target != "" {
		exePath = filepath.Join(*buildDir, *target)
	} else {
		// Default to the first executable target
		for _, t := range engine.Config().Targets {
			if t.Kind == core.KindExecutable {
				exePath = filepath.Join(*buildDir, t.Name)
				break
			}
		}
	}
	if exePath == "" {
		return fmt.Errorf("no executable target found (use -target=<name>)")
	}
	if _, err := os.Stat(exePath); err != nil {
		return fmt.Errorf("executable %s not found", exePath)
	}

	fmt.Fprintf(stdout, "\nExecuting %s\n\n", exePath)

	runner := core.NewShellRunner()
	result := runner.Run("./" + filepath.ToSlash(exePath) + " " + strings.Join(flags.Args(), " "))
	fmt.Fprint(stdout, result.Stdout)
	fmt.Fprint(stderr, result.Stderr)

	if result.ExitCode != 0 {
		return fmt.Errorf("process exited with code %d", result.ExitCode)
	}
	return nil
}

func runInfo(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("info", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		showTargets = flags.Bool("targets", false, "List targets")
		showDeps    = flags.Bool("deps", false, "List external dependencies")
	)
	if err := parseFlags(flags, args, stdout); err != nil {
		if errors.Is(err, errHelpShown) {
			return nil
		}
		return err
	}

	cfg, err := loadScript(".", nil, stdout)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Name:     %s\n", cfg.ProjectName)
	fmt.Fprintf(stdout, "Version:  %s\n", cfg.Version)
	fmt.Fprintf(stdout, "Language: %s\n", cfg.Language)

	if *showTargets {
		fmt.Fprintln(stdout, "\nTargets:")
		for _, target := range cfg.Targets {
			fmt.Fprintf(stdout, "  %s (%s)\n", target.Name, target.Kind)
		}
	}
	if *showDeps {
		fmt.Fprintln(stdout, "\nDependencies:")
		for _, dep := range cfg.Dependencies {
			if dep.Version != "" {
				fmt.Fprintf(stdout, "  %s %s\n", dep.Name, dep.Version)
			} else {
				fmt.Fprintf(stdout, "  %s\n", dep.Name)
			}
		}
	}

	return nil
}

func runGraph(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("graph", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var (
		format = flags.String("format", "dot", "Output format (dot or json)")
		output = flags.String("output", "", "Output file (default stdout)")
	)
	if err := parseFlags(flags, args, stdout); err != nil {
		if errors.Is(err, errHelpShown) {
			return nil
		}
		return err
	}

	cfg, err := loadScript(".", nil, stdout)
	if err != nil {
		return err
	}

	graph := core.BuildGraph(cfg)

	var rendered string
	switch *format {
	case "dot":
		rendered = graph.ToDOT()
	case "json":
		rendered = graph.ToJSON()
	default:
		return fmt.Errorf("unknown graph format %q (want dot or json)", *format)
	}

	if *output == "" {
		fmt.Fprint(stdout, rendered)
		return nil
	}
	if err := os.WriteFile(*output, []byte(rendered), 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Graph written to %s\n", *output)
	return nil
}

func runWatch(ctx context.Context, args []string, stdout, stderr io.Writer, getenv func(string) string) error {
	flags := flag.NewFlagSet("watch", flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	if err := parseFlags(flags, args, stdout); err != nil {
		if errors.Is(err, errHelpShown) {
			return nil
		}
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rebuild := func() {
		if err := runSetup(nil, stdout, getenv); err != nil {
			fmt.Fprintf(stderr, "setup: %v\n", err)
			return
		}
		if err := runBuild(nil, stdout, stderr, getenv); err != nil {
			fmt.Fprintf(stderr, "build: %v\n", err)
		}
	}

	rebuild()

	cfg, err := loadScript(".", nil, stdout)
	if err != nil {
		return err
	}

	watcher, err := watch.NewWatcher(BuildFileName, cfg, func(path string) {
		fmt.Fprintf(stdout, "\nchanged: %s\n", path)
		rebuild()
	}, stdout, stderr)
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, "\nWatching for changes. Ctrl+C to stop.")
	return watcher.Start(ctx)
}

// errHelpShown signals that -h was handled and the command should stop
var errHelpShown = errors.New("help shown")

// parseFlags wraps flag parsing with -h handling
func parseFlags(flags *flag.FlagSet, args []string, stdout io.Writer) error {
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			flags.SetOutput(stdout)
			flags.PrintDefaults()
			return errHelpShown
		}
		return err
	}
	return nil
}
