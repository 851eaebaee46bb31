package evaluator

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/irisbuild/iris/internal/fsutil"
)

// registerBuiltins installs the native function table. Builtins close
// over the interpreter so print and friends reach the injected logger.
func (i *Interpreter) registerBuiltins() {
	reg := func(name string, fn NativeFn) {
		i.natives[name] = &Builtin{Name: name, Fn: fn}
	}

	// glob finds files matching a pattern
	reg("glob", func(args ...Object) Object {
		pattern, ok := argString(args, 0)
		if !ok {
			return &Array{}
		}
		files, err := fsutil.Glob(pattern)
		if err != nil {
			return &Array{}
		}
		elements := make([]Object, len(files))
		for idx, f := range files {
			elements[idx] = &String{Value: f}
		}
		return &Array{Elements: elements}
	})

	// find_package locates a system package via pkg-config
	reg("find_package", func(args ...Object) Object {
		name, ok := argString(args, 0)
		if !ok {
			return NULL
		}
		cmd := exec.Command("pkg-config", "--exists", name)
		if err := cmd.Run(); err != nil {
			return NULL
		}
		return &Hash{Pairs: map[string]Object{
			"name":  &String{Value: name},
			"found": TRUE,
		}}
	})

	// find_library searches the usual system library directories
	reg("find_library", func(args ...Object) Object {
		name, ok := argString(args, 0)
		if !ok {
			return NULL
		}
		searchPaths := []string{
			"/usr/lib",
			"/usr/local/lib",
			"/usr/lib/x86_64-linux-gnu",
			"/lib",
			"/lib64",
		}
		for _, dir := range searchPaths {
			shared := filepath.Join(dir, "lib"+name+".so")
			static := filepath.Join(dir, "lib"+name+".a")
			if fsutil.FileExists(shared) || fsutil.FileExists(static) {
				return &Hash{Pairs: map[string]Object{
					"name":  &String{Value: name},
					"found": TRUE,
					"path":  &String{Value: dir},
				}}
			}
		}
		return NULL
	})

	reg("print", func(args ...Object) Object {
		parts := make([]any, len(args))
		for idx, arg := range args {
			parts[idx] = toDisplayString(arg)
		}
		i.logger.LogLine(parts...)
		return NULL
	})

	// error aborts evaluation with a user-provided message
	reg("error", func(args ...Object) Object {
		msg := "Build error"
		if len(args) > 0 {
			msg = toDisplayString(args[0])
		}
		return newError("EVAL-0005", map[string]any{"Message": msg})
	})

	reg("warning", func(args ...Object) Object {
		if len(args) > 0 {
			i.logger.LogLine("warning: " + toDisplayString(args[0]))
		}
		return NULL
	})

	// shell runs a command and captures its combined output with the
	// trailing newline stripped
	reg("shell", func(args ...Object) Object {
		cmdStr, ok := argString(args, 0)
		if !ok {
			return NULL
		}
		out, _ := exec.Command("sh", "-c", cmdStr).CombinedOutput()
		return &String{Value: strings.TrimSuffix(string(out), "\n")}
	})

	// run runs a command and returns its exit code
	reg("run", func(args ...Object) Object {
		cmdStr, ok := argString(args, 0)
		if !ok {
			return &Number{Value: -1}
		}
		cmd := exec.Command("sh", "-c", cmdStr)
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			if exitErr, isExit := err.(*exec.ExitError); isExit {
				return &Number{Value: float64(exitErr.ExitCode())}
			}
			return &Number{Value: -1}
		}
		return &Number{Value: 0}
	})

	reg("env", func(args ...Object) Object {
		name, ok := argString(args, 0)
		if !ok {
			return &String{Value: ""}
		}
		return &String{Value: os.Getenv(name)}
	})

	reg("platform", func(args ...Object) Object {
		return &String{Value: HostPlatform()}
	})

	reg("arch", func(args ...Object) Object {
		return &String{Value: HostArch()}
	})

	// join concatenates array elements with a separator
	reg("join", func(args ...Object) Object {
		if len(args) < 2 {
			return &String{Value: ""}
		}
		arr, isArr := args[0].(*Array)
		sep, isStr := args[1].(*String)
		if !isArr || !isStr {
			return &String{Value: ""}
		}
		parts := make([]string, len(arr.Elements))
		for idx, elem := range arr.Elements {
			parts[idx] = toDisplayString(elem)
		}
		return &String{Value: strings.Join(parts, sep.Value)}
	})

	// split breaks a string into an array on a delimiter
	reg("split", func(args ...Object) Object {
		if len(args) < 2 {
			return &Array{}
		}
		str, isStr := args[0].(*String)
		delim, isDelim := args[1].(*String)
		if !isStr || !isDelim {
			return &Array{}
		}
		parts := strings.Split(str.Value, delim.Value)
		// A trailing empty segment is dropped; interior ones are kept
		if len(parts) > 0 && parts[len(parts)-1] == "" {
			parts = parts[:len(parts)-1]
		}
		elements := make([]Object, len(parts))
		for idx, part := range parts {
			elements[idx] = &String{Value: part}
		}
		return &Array{Elements: elements}
	})

	// contains checks whether an array holds a value, compared as strings
	reg("contains", func(args ...Object) Object {
		if len(args) < 2 {
			return FALSE
		}
		arr, ok := args[0].(*Array)
		if !ok {
			return FALSE
		}
		needle := toDisplayString(args[1])
		for _, elem := range arr.Elements {
			if toDisplayString(elem) == needle {
				return TRUE
			}
		}
		return FALSE
	})

	// len returns the length of a string or array
	reg("len", func(args ...Object) Object {
		if len(args) == 0 {
			return &Number{Value: 0}
		}
		switch arg := args[0].(type) {
		case *String:
			return &Number{Value: float64(len(arg.Value))}
		case *Array:
			return &Number{Value: float64(len(arg.Elements))}
		default:
			return &Number{Value: 0}
		}
	})

	reg("file_exists", func(args ...Object) Object {
		path, ok := argString(args, 0)
		if !ok {
			return FALSE
		}
		return nativeBoolToBooleanObject(fsutil.FileExists(path))
	})

	reg("read_file", func(args ...Object) Object {
		path, ok := argString(args, 0)
		if !ok {
			return &String{Value: ""}
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return &String{Value: ""}
		}
		return &String{Value: string(data)}
	})

	reg("write_file", func(args ...Object) Object {
		if len(args) < 2 {
			return FALSE
		}
		path, isPath := args[0].(*String)
		content, isContent := args[1].(*String)
		if !isPath || !isContent {
			return FALSE
		}
		if err := os.WriteFile(path.Value, []byte(content.Value), 0o644); err != nil {
			return FALSE
		}
		return TRUE
	})

	reg("dirname", func(args ...Object) Object {
		path, ok := argString(args, 0)
		if !ok {
			return &String{Value: ""}
		}
		dir := filepath.Dir(path)
		if dir == "." {
			dir = ""
		}
		return &String{Value: dir}
	})

	reg("basename", func(args ...Object) Object {
		path, ok := argString(args, 0)
		if !ok {
			return &String{Value: ""}
		}
		return &String{Value: filepath.Base(path)}
	})

	reg("extension", func(args ...Object) Object {
		path, ok := argString(args, 0)
		if !ok {
			return &String{Value: ""}
		}
		return &String{Value: filepath.Ext(path)}
	})
}

// argString fetches a positional string argument
func argString(args []Object, idx int) (string, bool) {
	if idx >= len(args) {
		return "", false
	}
	str, ok := args[idx].(*String)
	if !ok {
		return "", false
	}
	return str.Value, true
}
