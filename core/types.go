// Package core implements the build model: configuration records, the
// target dependency graph, the content-addressed cache, backend file
// emission, command execution, and the engine that drives a build.
package core

// TargetKind classifies the artifact a target produces
type TargetKind string

const (
	KindExecutable    TargetKind = "executable"
	KindStaticLibrary TargetKind = "static_library"
	KindSharedLibrary TargetKind = "shared_library"
	KindObject        TargetKind = "object"
	KindCustom        TargetKind = "custom"
)

// Target is a declared build artifact with its sources, flags, and
// dependencies. Dependencies are names of other targets (or declared
// external dependencies) within the same configuration.
type Target struct {
	Name         string            `json:"name"`
	Kind         TargetKind        `json:"kind"`
	Sources      []string          `json:"sources,omitempty"`
	Includes     []string          `json:"includes,omitempty"`
	Flags        []string          `json:"flags,omitempty"`
	LinkFlags    []string          `json:"link_flags,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Defines      map[string]string `json:"defines,omitempty"`
}

// Dependency is an external library reference
type Dependency struct {
	Name        string   `json:"name"`
	Version     string   `json:"version,omitempty"`
	Type        string   `json:"type,omitempty"` // system, pkg-config, cmake, subproject
	IncludeDirs []string `json:"include_dirs,omitempty"`
	LinkDirs    []string `json:"link_dirs,omitempty"`
	Libraries   []string `json:"libraries,omitempty"`
}

// BuildConfig is the evaluated form of a build script: everything the
// engine needs to emit backend files and drive a build.
type BuildConfig struct {
	ProjectName string `json:"project_name"`
	Version     string `json:"version,omitempty"`
	Language    string `json:"language,omitempty"`
	Standard    string `json:"standard,omitempty"`
	BuildType   string `json:"build_type,omitempty"`
	Compiler    string `json:"compiler,omitempty"`

	GlobalFlags    []string          `json:"global_flags,omitempty"`
	GlobalIncludes []string          `json:"global_includes,omitempty"`
	GlobalDefines  map[string]string `json:"global_defines,omitempty"`

	Targets      []Target     `json:"targets,omitempty"`
	Dependencies []Dependency `json:"dependencies,omitempty"`

	Variables map[string]string `json:"variables,omitempty"`
}

// FindTarget returns the named target, or nil if the configuration does
// not declare it.
func (c *BuildConfig) FindTarget(name string) *Target {
	for i := range c.Targets {
		if c.Targets[i].Name == name {
			return &c.Targets[i]
		}
	}
	return nil
}

// FindDependency returns the named external dependency, or nil.
func (c *BuildConfig) FindDependency(name string) *Dependency {
	for i := range c.Dependencies {
		if c.Dependencies[i].Name == name {
			return &c.Dependencies[i]
		}
	}
	return nil
}
