package core

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/irisbuild/iris/internal/fsutil"
	"github.com/irisbuild/iris/internal/hashutil"
)

// buildPlan is the per-target command plan computed before execution
type buildPlan struct {
	target      *Target
	sources     []string
	objects     []string
	compileCmds []string
	linkCmd     string
	artifact    string
	inputHash   string
	commandHash string
}

// compilerFor picks the compiler binary: an explicit configuration wins,
// otherwise the project language decides between cc and c++.
func (e *Engine) compilerFor() string {
	if e.config.Compiler != "" {
		return e.config.Compiler
	}
	switch strings.ToLower(e.config.Language) {
	case "c":
		return "gcc"
	default:
		return "g++"
	}
}

// resolveSources expands each declared source: glob patterns expand
// against the filesystem, plain paths pass through.
func (e *Engine) resolveSources(target *Target) []string {
	var sources []string
	for _, src := range target.Sources {
		pattern := e.inSourceDir(src)
		if strings.ContainsAny(pattern, "*?") {
			matches, err := fsutil.Glob(pattern)
			if err == nil {
				sources = append(sources, matches...)
			}
			continue
		}
		sources = append(sources, pattern)
	}
	return sources
}

func (e *Engine) inSourceDir(path string) string {
	if e.sourceDir == "" || e.sourceDir == "." || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.sourceDir, path)
}

// objectPath maps a source file to its object file under the build
// directory, flattening the directory structure into the file name
func (e *Engine) objectPath(target *Target, source string) string {
	flat := strings.NewReplacer("/", "_", "\\", "_", "..", "__").Replace(source)
	ext := filepath.Ext(flat)
	if ext != "" {
		flat = flat[:len(flat)-len(ext)]
	}
	return filepath.Join(e.buildDir, "obj", target.Name, flat+".o")
}

// artifactPath returns the output file a target produces
func (e *Engine) artifactPath(target *Target) string {
	switch target.Kind {
	case KindStaticLibrary:
		return filepath.Join(e.buildDir, "lib"+target.Name+".a")
	case KindSharedLibrary:
		return filepath.Join(e.buildDir, "lib"+target.Name+".so")
	default:
		return filepath.Join(e.buildDir, target.Name)
	}
}

// compileFlags assembles the flag string shared by every compile command
// of a target: global flags, the language standard, per-target flags,
// include directories, and defines, in that order.
func (e *Engine) compileFlags(target *Target) string {
	var parts []string

	parts = append(parts, e.config.GlobalFlags...)
	if e.config.Standard != "" {
		parts = append(parts, "-std="+e.config.Standard)
	}
	parts = append(parts, target.Flags...)
	if target.Kind == KindSharedLibrary {
		parts = append(parts, "-fPIC")
	}

	for _, inc := range e.config.GlobalIncludes {
		parts = append(parts, "-I"+e.inSourceDir(inc))
	}
	for _, inc := range target.Includes {
		parts = append(parts, "-I"+e.inSourceDir(inc))
	}
	for _, dep := range target.Dependencies {
		if ext := e.config.FindDependency(dep); ext != nil {
			for _, inc := range ext.IncludeDirs {
				parts = append(parts, "-I"+inc)
			}
		}
	}

	parts = append(parts, defineFlags(e.config.GlobalDefines)...)
	parts = append(parts, defineFlags(target.Defines)...)

	return strings.Join(parts, " ")
}

func defineFlags(defines map[string]string) []string {
	if len(defines) == 0 {
		return nil
	}
	keys := make([]string, 0, len(defines))
	for key := range defines {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	flags := make([]string, 0, len(keys))
	for _, key := range keys {
		if value := defines[key]; value != "" {
			flags = append(flags, "-D"+key+"="+value)
		} else {
			flags = append(flags, "-D"+key)
		}
	}
	return flags
}

// linkInputs returns the library arguments contributed by a target's
// dependencies: built artifacts for sibling targets, -L/-l pairs for
// external dependencies.
func (e *Engine) linkInputs(target *Target) []string {
	var parts []string
	for _, dep := range target.Dependencies {
		if sibling := e.config.FindTarget(dep); sibling != nil {
			parts = append(parts, e.artifactPath(sibling))
			continue
		}
		if ext := e.config.FindDependency(dep); ext != nil {
			for _, dir := range ext.LinkDirs {
				parts = append(parts, "-L"+dir)
			}
			for _, lib := range ext.Libraries {
				parts = append(parts, "-l"+lib)
			}
		}
	}
	return parts
}

// linkCommand builds the final link, archive, or shared-link command
func (e *Engine) linkCommand(target *Target, objects []string) string {
	artifact := e.artifactPath(target)
	objs := strings.Join(objects, " ")

	switch target.Kind {
	case KindStaticLibrary:
		return "ar rcs " + artifact + " " + objs
	case KindSharedLibrary:
		parts := []string{e.compilerFor(), "-shared", objs, "-o", artifact}
		parts = append(parts, target.LinkFlags...)
		return strings.Join(parts, " ")
	default:
		parts := []string{e.compilerFor(), objs, "-o", artifact}
		parts = append(parts, e.linkInputs(target)...)
		parts = append(parts, target.LinkFlags...)
		return strings.Join(parts, " ")
	}
}

// planTarget computes the full command plan and fingerprint for a target
func (e *Engine) planTarget(target *Target) *buildPlan {
	plan := &buildPlan{target: target}
	plan.sources = e.resolveSources(target)
	plan.artifact = e.artifactPath(target)

	flags := e.compileFlags(target)
	compiler := e.compilerFor()

	for _, src := range plan.sources {
		obj := e.objectPath(target, src)
		plan.objects = append(plan.objects, obj)
		cmd := compiler + " " + flags + " -c " + src + " -o " + obj
		plan.compileCmds = append(plan.compileCmds, cmd)
	}
	plan.linkCmd = e.linkCommand(target, plan.objects)

	plan.inputHash = e.inputHash(plan.sources)
	plan.commandHash = e.commandHash(plan)
	return plan
}

// inputHash digests the ordered (path, content hash) pairs of all
// sources, sorted by path, so renames and edits both invalidate.
func (e *Engine) inputHash(sources []string) string {
	sorted := make([]string, len(sources))
	copy(sorted, sources)
	sort.Strings(sorted)

	var sb strings.Builder
	for _, src := range sorted {
		sb.WriteString("in:")
		sb.WriteString(src)
		sb.WriteString(":")
		sb.WriteString(hashutil.HashFile(src))
		sb.WriteString("\n")
	}
	return hashutil.HashString(sb.String())
}

// commandHash digests the exact commands that will run, the environment
// entries that influence their output, and the compiler path.
func (e *Engine) commandHash(plan *buildPlan) string {
	var sb strings.Builder
	for _, cmd := range plan.compileCmds {
		sb.WriteString("cmd:")
		sb.WriteString(cmd)
		sb.WriteString("\n")
	}
	sb.WriteString("cmd:")
	sb.WriteString(plan.linkCmd)
	sb.WriteString("\n")

	env := make([]string, len(e.hashedEnv))
	copy(env, e.hashedEnv)
	sort.Strings(env)
	for _, entry := range env {
		sb.WriteString("env:")
		sb.WriteString(entry)
		sb.WriteString("\n")
	}

	sb.WriteString("compiler:")
	sb.WriteString(e.compilerFor())
	sb.WriteString("\n")

	return hashutil.HashString(sb.String())
}
