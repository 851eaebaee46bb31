package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	perrors "github.com/irisbuild/iris/pkg/irislang/errors"
)

// Backend names accepted by GenerateBuildFiles
const (
	BackendNinja = "ninja"
	BackendMake  = "make"
)

// generateNinja writes build.ninja for the current configuration.
// Paths are relative to the project root; run ninja with
// -f <builddir>/build.ninja from there.
func (e *Engine) generateNinja(dir string) error {
	var sb strings.Builder

	sb.WriteString("# Generated by iris. Do not edit.\n\n")
	fmt.Fprintf(&sb, "cc = %s\n", e.compilerFor())
	sb.WriteString("\n")

	sb.WriteString("rule cc\n")
	sb.WriteString("  command = $cc $cflags -c $in -o $out\n")
	sb.WriteString("  description = CC $out\n\n")

	sb.WriteString("rule link\n")
	sb.WriteString("  command = $cc $in -o $out $ldflags\n")
	sb.WriteString("  description = LINK $out\n\n")

	sb.WriteString("rule ar\n")
	sb.WriteString("  command = ar rcs $out $in\n")
	sb.WriteString("  description = AR $out\n\n")

	sb.WriteString("rule solink\n")
	sb.WriteString("  command = $cc -shared $in -o $out $ldflags\n")
	sb.WriteString("  description = SOLINK $out\n\n")

	for idx := range e.config.Targets {
		target := &e.config.Targets[idx]
		flags := e.compileFlags(target)

		var objects []string
		for _, src := range e.resolveSources(target) {
			obj := e.objectPath(target, src)
			objects = append(objects, obj)
			fmt.Fprintf(&sb, "build %s: cc %s\n", obj, src)
			fmt.Fprintf(&sb, "  cflags = %s\n", flags)
		}

		artifact := e.artifactPath(target)
		var deps []string
		for _, dep := range target.Dependencies {
			if sibling := e.config.FindTarget(dep); sibling != nil {
				deps = append(deps, e.artifactPath(sibling))
			}
		}

		rule := "link"
		switch target.Kind {
		case KindStaticLibrary:
			rule = "ar"
		case KindSharedLibrary:
			rule = "solink"
		}

		fmt.Fprintf(&sb, "build %s: %s %s", artifact, rule, strings.Join(objects, " "))
		if len(deps) > 0 {
			fmt.Fprintf(&sb, " | %s", strings.Join(deps, " "))
		}
		sb.WriteString("\n")

		if rule == "link" {
			ldflags := append(e.linkInputs(target), target.LinkFlags...)
			fmt.Fprintf(&sb, "  ldflags = %s\n", strings.Join(ldflags, " "))
		} else if rule == "solink" {
			fmt.Fprintf(&sb, "  ldflags = %s\n", strings.Join(target.LinkFlags, " "))
		}
		sb.WriteString("\n")
	}

	// A default statement so bare ninja builds everything
	var artifacts []string
	for idx := range e.config.Targets {
		artifacts = append(artifacts, e.artifactPath(&e.config.Targets[idx]))
	}
	if len(artifacts) > 0 {
		fmt.Fprintf(&sb, "default %s\n", strings.Join(artifacts, " "))
	}

	return e.writeBackendFile(filepath.Join(dir, "build.ninja"), sb.String())
}

// generateMakefile writes a Makefile equivalent of the ninja manifest
func (e *Engine) generateMakefile(dir string) error {
	var sb strings.Builder

	sb.WriteString("# Generated by iris. Do not edit.\n\n")
	fmt.Fprintf(&sb, "CC := %s\n\n", e.compilerFor())

	var artifacts []string
	for idx := range e.config.Targets {
		artifacts = append(artifacts, e.artifactPath(&e.config.Targets[idx]))
	}

	fmt.Fprintf(&sb, "all: %s\n\n", strings.Join(artifacts, " "))

	for idx := range e.config.Targets {
		target := &e.config.Targets[idx]
		flags := e.compileFlags(target)

		var objects []string
		for _, src := range e.resolveSources(target) {
			obj := e.objectPath(target, src)
			objects = append(objects, obj)
			fmt.Fprintf(&sb, "%s: %s\n", obj, src)
			fmt.Fprintf(&sb, "\t@mkdir -p $(dir $@)\n")
			fmt.Fprintf(&sb, "\t$(CC) %s -c $< -o $@\n\n", flags)
		}

		artifact := e.artifactPath(target)
		prereqs := make([]string, len(objects))
		copy(prereqs, objects)
		for _, dep := range target.Dependencies {
			if sibling := e.config.FindTarget(dep); sibling != nil {
				prereqs = append(prereqs, e.artifactPath(sibling))
			}
		}

		fmt.Fprintf(&sb, "%s: %s\n", artifact, strings.Join(prereqs, " "))
		switch target.Kind {
		case KindStaticLibrary:
			fmt.Fprintf(&sb, "\tar rcs $@ %s\n\n", strings.Join(objects, " "))
		case KindSharedLibrary:
			ldflags := strings.Join(target.LinkFlags, " ")
			fmt.Fprintf(&sb, "\t$(CC) -shared %s -o $@ %s\n\n", strings.Join(objects, " "), ldflags)
		default:
			extra := append(e.linkInputs(target), target.LinkFlags...)
			fmt.Fprintf(&sb, "\t$(CC) %s -o $@ %s\n\n", strings.Join(objects, " "), strings.Join(extra, " "))
		}
	}

	sb.WriteString("clean:\n")
	fmt.Fprintf(&sb, "\trm -rf %s %s\n\n", filepath.Join(e.buildDir, "obj"), strings.Join(artifacts, " "))
	sb.WriteString(".PHONY: all clean\n")

	return e.writeBackendFile(filepath.Join(dir, "Makefile"), sb.String())
}

func (e *Engine) writeBackendFile(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return perrors.New("BACKEND-0002", map[string]any{"Path": path, "Reason": err.Error()})
	}
	return nil
}
