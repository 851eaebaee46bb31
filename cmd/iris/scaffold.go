package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// runInit scaffolds a new project: an iris.build template, a hello-world
// source file, and a .gitignore.
func runInit(args []string, stdout io.Writer) error {
	flags := flag.NewFlagSet("init", flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	cwd, _ := os.Getwd()
	var (
		name  = flags.String("name", filepath.Base(cwd), "Project name")
		lang  = flags.String("lang", "cpp", "Language (c or cpp)")
		isLib = flags.Bool("lib", false, "Create a library project")
	)
	if err := parseFlags(flags, args, stdout); err != nil {
		if err == errHelpShown {
			return nil
		}
		return err
	}

	if _, err := os.Stat(BuildFileName); err == nil {
		return fmt.Errorf("%s already exists in this directory", BuildFileName)
	}

	if err := os.MkdirAll("src", 0o755); err != nil {
		return err
	}
	if err := os.MkdirAll("include", 0o755); err != nil {
		return err
	}

	srcExt := "cpp"
	std := "c++20"
	if *lang == "c" {
		srcExt = "c"
		std = "c17"
	}

	script := fmt.Sprintf(`# Iris build configuration
# Generated by iris init

project %q do
    version = "0.1.0"
    license = "MIT"

    # Supported: :c, :cpp, :mixed
    lang = :%s

    # C/C++ standard
    std = %q
end

# Compiler configuration
compiler do
    if buildtype == "debug" do
        flags = ["-g", "-O0", "-DDEBUG"]
    end

    if buildtype == "release" do
        flags = ["-O3", "-DNDEBUG", "-march=native"]
    end

    warnings = ["-Wall", "-Wextra", "-Wpedantic"]
end

`, *name, *lang, std)

	if *isLib {
		script += fmt.Sprintf(`# Library target
library %q do
    sources = glob("src/**/*.%s")
    includes = ["include/"]
end
`, *name, srcExt)
	} else {
		script += fmt.Sprintf(`# Executable target
executable %q do
    sources = glob("src/**/*.%s")
    includes = ["include/"]
end
`, *name, srcExt)
	}

	if err := os.WriteFile(BuildFileName, []byte(script), 0o644); err != nil {
		return err
	}

	var source string
	if *lang == "c" {
		source = fmt.Sprintf(`#include <stdio.h>

int main(void) {
    printf("Hello from %s!\n");
    return 0;
}
`, *name)
	} else {
		source = fmt.Sprintf(`#include <iostream>

int main() {
    std::cout << "Hello from %s!" << std::endl;
    return 0;
}
`, *name)
	}
	srcPath := filepath.Join("src", "main."+srcExt)
	if err := os.WriteFile(srcPath, []byte(source), 0o644); err != nil {
		return err
	}

	gitignore := `# Build directories
build/
.iris-cache/

# Compiled
*.o
*.a
*.so
*.dylib
`
	if err := os.WriteFile(".gitignore", []byte(gitignore), 0o644); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "Project %q initialized.\n\n", *name)
	fmt.Fprintln(stdout, "Created files:")
	fmt.Fprintf(stdout, "  %s\n", BuildFileName)
	fmt.Fprintf(stdout, "  %s\n", srcPath)
	fmt.Fprintln(stdout, "  .gitignore")
	fmt.Fprintln(stdout, "\nRun 'iris setup . && iris build' to compile.")

	return nil
}
