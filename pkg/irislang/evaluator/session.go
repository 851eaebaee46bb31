package evaluator

import (
	"github.com/irisbuild/iris/core"
	"github.com/irisbuild/iris/pkg/irislang/ast"
)

// EnsureConfig returns the configuration under construction, creating
// an empty one for interactive sessions that never call Execute.
func (i *Interpreter) EnsureConfig() *core.BuildConfig {
	if i.config == nil {
		i.config = &core.BuildConfig{
			GlobalDefines: make(map[string]string),
			Variables:     make(map[string]string),
		}
		i.globalEnv.Define("platform", &String{Value: HostPlatform()})
		i.globalEnv.Define("arch", &String{Value: HostArch()})
	}
	return i.config
}

// EvalProgram evaluates statements against the interpreter's persistent
// state and returns the value of the last one. Unlike Execute it does
// not reset the configuration, so an interactive session accumulates
// targets and bindings across inputs.
func (i *Interpreter) EvalProgram(program *ast.Program) (Object, error) {
	i.EnsureConfig()

	var result Object = NULL
	for _, stmt := range program.Statements {
		result = i.evalStatement(stmt)
		if err, ok := result.(*Error); ok {
			return NULL, err.ToIrisError()
		}
		if ret, ok := result.(*ReturnValue); ok {
			return ret.Value, nil
		}
	}
	if result == nil {
		result = NULL
	}
	return result, nil
}
