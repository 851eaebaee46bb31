// Package evaluator implements the tree-walking interpreter that turns a
// parsed build script into a core.BuildConfig.
package evaluator

import (
	"runtime"
	"strings"

	"github.com/irisbuild/iris/core"
	"github.com/irisbuild/iris/pkg/irislang/ast"
)

// Interpreter evaluates an AST against a chain of scope frames and
// materializes the build configuration from the conventional variables
// of each block.
type Interpreter struct {
	globalEnv *Environment
	env       *Environment
	natives   map[string]*Builtin
	config    *core.BuildConfig
	vars      map[string]string
	logger    Logger
}

// New creates an interpreter writing print/warning output to stdout
func New() *Interpreter {
	return NewWithLogger(DefaultLogger)
}

// NewWithLogger creates an interpreter with an injected output sink
func NewWithLogger(logger Logger) *Interpreter {
	i := &Interpreter{
		globalEnv: NewEnvironment(),
		natives:   make(map[string]*Builtin),
		vars:      make(map[string]string),
		logger:    logger,
	}
	i.env = i.globalEnv
	i.registerBuiltins()
	return i
}

// SetVariable injects a caller-provided variable (builddir, buildtype,
// prefix, ...) into the global environment before evaluation.
func (i *Interpreter) SetVariable(name, value string) {
	i.vars[name] = value
	i.globalEnv.Define(name, &String{Value: value})
}

// GetVariable reads a global variable back as a string
func (i *Interpreter) GetVariable(name string) string {
	if val, ok := i.globalEnv.Get(name); ok {
		return toDisplayString(val)
	}
	return ""
}

// HostPlatform returns the platform name the interpreter was compiled for
func HostPlatform() string {
	switch runtime.GOOS {
	case "linux":
		return "linux"
	case "darwin":
		return "macos"
	case "windows":
		return "windows"
	case "freebsd":
		return "freebsd"
	default:
		return "unix"
	}
}

// HostArch returns the architecture name the interpreter was compiled for
func HostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	case "386":
		return "x86"
	case "arm64":
		return "arm64"
	case "arm":
		return "arm"
	default:
		return "unknown"
	}
}

// Execute evaluates a program and returns the build configuration it
// describes. Any evaluation failure discards the partial configuration.
func (i *Interpreter) Execute(program *ast.Program) (*core.BuildConfig, error) {
	i.config = &core.BuildConfig{
		GlobalDefines: make(map[string]string),
		Variables:     make(map[string]string),
	}
	for k, v := range i.vars {
		i.config.Variables[k] = v
	}

	i.globalEnv.Define("platform", &String{Value: HostPlatform()})
	i.globalEnv.Define("arch", &String{Value: HostArch()})

	for _, stmt := range program.Statements {
		result := i.evalStatement(stmt)
		if err, ok := result.(*Error); ok {
			return nil, err.ToIrisError()
		}
	}

	return i.config, nil
}

// evalStatement evaluates a single statement. Error and ReturnValue
// objects are significant to callers; anything else is discarded.
func (i *Interpreter) evalStatement(stmt ast.Statement) Object {
	switch stmt := stmt.(type) {
	case *ast.ProjectBlock:
		return i.evalProjectBlock(stmt)
	case *ast.TargetBlock:
		return i.evalTargetBlock(stmt)
	case *ast.CompilerBlock:
		return i.evalCompilerBlock(stmt)
	case *ast.DependencyBlock:
		return i.evalDependencyBlock(stmt)
	case *ast.TaskBlock:
		return i.evalTaskBlock(stmt)
	case *ast.IfStatement:
		return i.evalIfStatement(stmt)
	case *ast.UnlessStatement:
		return i.evalUnlessStatement(stmt)
	case *ast.ForStatement:
		return i.evalForStatement(stmt)
	case *ast.FunctionStatement:
		return i.evalFunctionStatement(stmt)
	case *ast.AssignStatement:
		value := i.evalExpression(stmt.Value)
		if isError(value) {
			return value
		}
		i.env.Set(stmt.Name, value)
		return NULL
	case *ast.ReturnStatement:
		if stmt.Value == nil {
			return &ReturnValue{Value: NULL}
		}
		value := i.evalExpression(stmt.Value)
		if isError(value) {
			return value
		}
		return &ReturnValue{Value: value}
	case *ast.ExpressionStatement:
		return i.evalExpression(stmt.Expression)
	case *ast.BlockStatement:
		return i.evalBlock(stmt)
	default:
		return NULL
	}
}

// evalBlock evaluates statements in order, stopping on error or return
func (i *Interpreter) evalBlock(block *ast.BlockStatement) Object {
	var result Object = NULL
	for _, stmt := range block.Statements {
		result = i.evalStatement(stmt)
		if result != nil {
			t := result.Type()
			if t == ERROR_OBJ || t == RETURN_OBJ {
				return result
			}
		}
	}
	return result
}

// pushScope enters a child environment; the returned function restores
// the previous one
func (i *Interpreter) pushScope() func() {
	prev := i.env
	i.env = NewEnclosedEnvironment(prev)
	return func() { i.env = prev }
}

// localString reads a conventional variable from the current scope only
func (i *Interpreter) localString(name string) (string, bool) {
	if val, ok := i.env.store[name]; ok {
		return toDisplayString(val), true
	}
	return "", false
}

// localStringList reads a conventional variable as a string list: arrays
// become one string per element, a scalar becomes a single-entry list
func (i *Interpreter) localStringList(name string) []string {
	val, ok := i.env.store[name]
	if !ok {
		return nil
	}
	return valueToStringList(val)
}

func valueToStringList(val Object) []string {
	switch val := val.(type) {
	case *Array:
		out := make([]string, 0, len(val.Elements))
		for _, elem := range val.Elements {
			out = append(out, toDisplayString(elem))
		}
		return out
	case *Nil:
		return nil
	default:
		return []string{toDisplayString(val)}
	}
}

// parseDefines splits "KEY=VAL" and bare "KEY" entries into a map
func parseDefines(entries []string) map[string]string {
	if len(entries) == 0 {
		return nil
	}
	defines := make(map[string]string, len(entries))
	for _, entry := range entries {
		if key, value, found := strings.Cut(entry, "="); found {
			defines[key] = value
		} else {
			defines[entry] = ""
		}
	}
	return defines
}

func (i *Interpreter) evalProjectBlock(block *ast.ProjectBlock) Object {
	i.config.ProjectName = block.Name

	pop := i.pushScope()
	defer pop()

	if result := i.evalBlock(block.Body); isError(result) {
		return result
	}

	if version, ok := i.localString("version"); ok {
		i.config.Version = version
	}
	if lang, ok := i.localString("lang"); ok {
		i.config.Language = lang
	}
	if std, ok := i.localString("std"); ok {
		i.config.Standard = std
	}

	return NULL
}

func (i *Interpreter) evalTargetBlock(block *ast.TargetBlock) Object {
	target := core.Target{Name: block.Name}

	switch block.Kind {
	case "executable":
		target.Kind = core.KindExecutable
	case "library", "static_library":
		target.Kind = core.KindStaticLibrary
	case "shared_library":
		target.Kind = core.KindSharedLibrary
	default:
		target.Kind = core.KindExecutable
	}

	pop := i.pushScope()
	defer pop()

	if result := i.evalBlock(block.Body); isError(result) {
		return result
	}

	target.Sources = i.localStringList("sources")
	target.Includes = i.localStringList("includes")
	target.Flags = i.localStringList("flags")
	target.LinkFlags = i.localStringList("link_flags")
	target.Dependencies = i.localStringList("deps")
	target.Defines = parseDefines(i.localStringList("defines"))

	i.config.Targets = append(i.config.Targets, target)
	return NULL
}

func (i *Interpreter) evalCompilerBlock(block *ast.CompilerBlock) Object {
	pop := i.pushScope()
	defer pop()

	if result := i.evalBlock(block.Body); isError(result) {
		return result
	}

	i.config.GlobalFlags = append(i.config.GlobalFlags, i.localStringList("flags")...)
	i.config.GlobalFlags = append(i.config.GlobalFlags, i.localStringList("warnings")...)
	i.config.GlobalIncludes = append(i.config.GlobalIncludes, i.localStringList("includes")...)
	for key, value := range parseDefines(i.localStringList("defines")) {
		i.config.GlobalDefines[key] = value
	}
	if cc, ok := i.localString("cc"); ok {
		i.config.Compiler = cc
	}
	if cxx, ok := i.localString("cxx"); ok {
		i.config.Compiler = cxx
	}

	return NULL
}

func (i *Interpreter) evalDependencyBlock(block *ast.DependencyBlock) Object {
	dep := core.Dependency{Name: block.Name}

	pop := i.pushScope()
	defer pop()

	if result := i.evalBlock(block.Body); isError(result) {
		return result
	}

	if version, ok := i.localString("version"); ok {
		dep.Version = version
	}
	if depType, ok := i.localString("type"); ok {
		dep.Type = depType
	}
	dep.IncludeDirs = i.localStringList("include_dirs")
	dep.LinkDirs = i.localStringList("link_dirs")
	dep.Libraries = i.localStringList("libraries")

	i.config.Dependencies = append(i.config.Dependencies, dep)
	return NULL
}

func (i *Interpreter) evalTaskBlock(block *ast.TaskBlock) Object {
	body := block.Body

	i.natives["task_"+block.Name] = &Builtin{
		Name: "task_" + block.Name,
		Fn: func(args ...Object) Object {
			pop := i.pushScope()
			defer pop()

			result := i.evalBlock(body)
			if isError(result) {
				return result
			}
			return NULL
		},
	}

	// Sentinel binding so scripts can discover registered tasks
	i.globalEnv.Define("__task_"+block.Name, &String{Value: block.Name})
	return NULL
}

// evalIfStatement runs a branch in the current scope: conditionals do
// not open a merging frame, so assignments inside them land in the
// enclosing block's scope.
func (i *Interpreter) evalIfStatement(stmt *ast.IfStatement) Object {
	condition := i.evalExpression(stmt.Condition)
	if isError(condition) {
		return condition
	}

	if isTruthy(condition) {
		return i.evalBlock(stmt.Then)
	}
	if stmt.Else != nil {
		return i.evalBlock(stmt.Else)
	}
	return NULL
}

func (i *Interpreter) evalUnlessStatement(stmt *ast.UnlessStatement) Object {
	condition := i.evalExpression(stmt.Condition)
	if isError(condition) {
		return condition
	}

	if !isTruthy(condition) {
		return i.evalBlock(stmt.Body)
	}
	return NULL
}

func (i *Interpreter) evalForStatement(stmt *ast.ForStatement) Object {
	iterable := i.evalExpression(stmt.Iterable)
	if isError(iterable) {
		return iterable
	}

	arr, ok := iterable.(*Array)
	if !ok {
		return newError("EVAL-0004", map[string]any{"Type": string(iterable.Type())})
	}

	pop := i.pushScope()
	defer pop()

	for _, elem := range arr.Elements {
		i.env.Define(stmt.Variable, elem)
		result := i.evalBlock(stmt.Body)
		if result != nil {
			t := result.Type()
			if t == ERROR_OBJ || t == RETURN_OBJ {
				return result
			}
		}
	}

	return NULL
}

// evalFunctionStatement registers a user function in the native table.
// Calls push a child of the global environment, never the caller's: the
// language has no closures over local scopes.
func (i *Interpreter) evalFunctionStatement(stmt *ast.FunctionStatement) Object {
	params := stmt.Parameters
	body := stmt.Body

	i.natives[stmt.Name] = &Builtin{
		Name: stmt.Name,
		Fn: func(args ...Object) Object {
			prev := i.env
			i.env = NewEnclosedEnvironment(i.globalEnv)
			defer func() { i.env = prev }()

			for idx, param := range params {
				if idx < len(args) {
					i.env.Define(param, args[idx])
				} else {
					i.env.Define(param, NULL)
				}
			}

			result := i.evalBlock(body)
			if isError(result) {
				return result
			}
			if ret, ok := result.(*ReturnValue); ok {
				return ret.Value
			}
			return NULL
		},
	}

	return NULL
}

// ---------------------------------------------------------------------------
// Expressions

func (i *Interpreter) evalExpression(expr ast.Expression) Object {
	switch expr := expr.(type) {
	case *ast.StringLiteral:
		return &String{Value: expr.Value}
	case *ast.NumberLiteral:
		return &Number{Value: expr.Value}
	case *ast.BooleanLiteral:
		return nativeBoolToBooleanObject(expr.Value)
	case *ast.NilLiteral:
		return NULL
	case *ast.SymbolLiteral:
		// Symbols read like enums but evaluate to plain strings
		return &String{Value: expr.Name}
	case *ast.Identifier:
		return i.evalIdentifier(expr)
	case *ast.ArrayLiteral:
		return i.evalArrayLiteral(expr)
	case *ast.HashLiteral:
		return i.evalHashLiteral(expr)
	case *ast.PrefixExpression:
		return i.evalPrefixExpression(expr)
	case *ast.InfixExpression:
		return i.evalInfixExpression(expr)
	case *ast.CallExpression:
		return i.evalCallExpression(expr)
	case *ast.MemberExpression:
		return i.evalMemberExpression(expr)
	case *ast.IndexExpression:
		return i.evalIndexExpression(expr)
	default:
		return NULL
	}
}

func (i *Interpreter) evalIdentifier(expr *ast.Identifier) Object {
	if val, ok := i.env.Get(expr.Name); ok {
		return val
	}

	// Identifiers naming a native function evaluate to a tag value so
	// function names can flow as data
	if _, ok := i.natives[expr.Name]; ok {
		return &String{Value: "__func:" + expr.Name}
	}

	return NULL
}

func (i *Interpreter) evalArrayLiteral(expr *ast.ArrayLiteral) Object {
	elements := make([]Object, 0, len(expr.Elements))
	for _, elem := range expr.Elements {
		value := i.evalExpression(elem)
		if isError(value) {
			return value
		}
		elements = append(elements, value)
	}
	return &Array{Elements: elements}
}

func (i *Interpreter) evalHashLiteral(expr *ast.HashLiteral) Object {
	pairs := make(map[string]Object, len(expr.Pairs))

	for _, pair := range expr.Pairs {
		key := i.hashKey(pair.Key)
		value := i.evalExpression(pair.Value)
		if isError(value) {
			return value
		}
		pairs[key] = value
	}

	return &Hash{Pairs: pairs}
}

// hashKey resolves a hash-literal key. A bare identifier that is not
// bound anywhere keys by its own name, so '{a: 1}' means {"a": 1}.
func (i *Interpreter) hashKey(expr ast.Expression) string {
	if ident, ok := expr.(*ast.Identifier); ok {
		if val, bound := i.env.Get(ident.Name); bound {
			return toDisplayString(val)
		}
		return ident.Name
	}
	return toDisplayString(i.evalExpression(expr))
}

func (i *Interpreter) evalPrefixExpression(expr *ast.PrefixExpression) Object {
	operand := i.evalExpression(expr.Right)
	if isError(operand) {
		return operand
	}

	switch expr.Operator {
	case "-":
		return &Number{Value: -toNumber(operand)}
	case "not", "!":
		return nativeBoolToBooleanObject(!isTruthy(operand))
	default:
		return newError("EVAL-0007", map[string]any{"Operator": expr.Operator})
	}
}

func (i *Interpreter) evalInfixExpression(expr *ast.InfixExpression) Object {
	// 'and' and 'or' short-circuit: the right operand is only evaluated
	// when the left does not decide the result
	if expr.Operator == "and" || expr.Operator == "or" {
		left := i.evalExpression(expr.Left)
		if isError(left) {
			return left
		}
		if expr.Operator == "and" && !isTruthy(left) {
			return FALSE
		}
		if expr.Operator == "or" && isTruthy(left) {
			return TRUE
		}
		right := i.evalExpression(expr.Right)
		if isError(right) {
			return right
		}
		return nativeBoolToBooleanObject(isTruthy(right))
	}

	left := i.evalExpression(expr.Left)
	if isError(left) {
		return left
	}
	right := i.evalExpression(expr.Right)
	if isError(right) {
		return right
	}

	switch expr.Operator {
	case "+":
		if left.Type() == STRING_OBJ || right.Type() == STRING_OBJ {
			return &String{Value: toDisplayString(left) + toDisplayString(right)}
		}
		return &Number{Value: toNumber(left) + toNumber(right)}
	case "-":
		return &Number{Value: toNumber(left) - toNumber(right)}
	case "*":
		return &Number{Value: toNumber(left) * toNumber(right)}
	case "/":
		divisor := toNumber(right)
		if divisor == 0 {
			return newError("EVAL-0002", nil)
		}
		return &Number{Value: toNumber(left) / divisor}
	case "%":
		divisor := int64(toNumber(right))
		if divisor == 0 {
			return newError("EVAL-0003", nil)
		}
		return &Number{Value: float64(int64(toNumber(left)) % divisor)}
	case "==":
		return nativeBoolToBooleanObject(objectsEqual(left, right))
	case "!=":
		return nativeBoolToBooleanObject(!objectsEqual(left, right))
	case "<":
		return nativeBoolToBooleanObject(toNumber(left) < toNumber(right))
	case ">":
		return nativeBoolToBooleanObject(toNumber(left) > toNumber(right))
	case "<=":
		return nativeBoolToBooleanObject(toNumber(left) <= toNumber(right))
	case ">=":
		return nativeBoolToBooleanObject(toNumber(left) >= toNumber(right))
	default:
		return newError("EVAL-0007", map[string]any{"Operator": expr.Operator})
	}
}

// objectsEqual compares like-typed values directly; mixed types fall
// back to display-string equality
func objectsEqual(left, right Object) bool {
	switch l := left.(type) {
	case *String:
		if r, ok := right.(*String); ok {
			return l.Value == r.Value
		}
	case *Number:
		if r, ok := right.(*Number); ok {
			return l.Value == r.Value
		}
	case *Boolean:
		if r, ok := right.(*Boolean); ok {
			return l.Value == r.Value
		}
	case *Nil:
		if _, ok := right.(*Nil); ok {
			return true
		}
	}
	return toDisplayString(left) == toDisplayString(right)
}

func (i *Interpreter) evalCallExpression(expr *ast.CallExpression) Object {
	args := make([]Object, 0, len(expr.Arguments))
	for _, arg := range expr.Arguments {
		value := i.evalExpression(arg)
		if isError(value) {
			return value
		}
		args = append(args, value)
	}

	builtin, ok := i.natives[expr.Name]
	if !ok {
		err := newError("EVAL-0001", map[string]any{"Name": expr.Name})
		err.Line = expr.Token.Line
		err.Column = expr.Token.Column
		return err
	}

	return builtin.Fn(args...)
}

func (i *Interpreter) evalMemberExpression(expr *ast.MemberExpression) Object {
	object := i.evalExpression(expr.Object)
	if isError(object) {
		return object
	}

	switch object := object.(type) {
	case *Hash:
		if val, ok := object.Pairs[expr.Member]; ok {
			return val
		}
	case *Array:
		switch expr.Member {
		case "length", "size":
			return &Number{Value: float64(len(object.Elements))}
		case "empty":
			return nativeBoolToBooleanObject(len(object.Elements) == 0)
		case "first":
			if len(object.Elements) > 0 {
				return object.Elements[0]
			}
		case "last":
			if len(object.Elements) > 0 {
				return object.Elements[len(object.Elements)-1]
			}
		}
	case *String:
		switch expr.Member {
		case "length", "size":
			return &Number{Value: float64(len(object.Value))}
		case "empty":
			return nativeBoolToBooleanObject(object.Value == "")
		case "upper":
			return &String{Value: strings.ToUpper(object.Value)}
		case "lower":
			return &String{Value: strings.ToLower(object.Value)}
		}
	}

	return NULL
}

func (i *Interpreter) evalIndexExpression(expr *ast.IndexExpression) Object {
	object := i.evalExpression(expr.Left)
	if isError(object) {
		return object
	}
	index := i.evalExpression(expr.Index)
	if isError(index) {
		return index
	}

	switch object := object.(type) {
	case *Array:
		num, ok := index.(*Number)
		if !ok {
			return NULL
		}
		idx := int(num.Value)
		if idx < 0 {
			idx += len(object.Elements)
		}
		if idx >= 0 && idx < len(object.Elements) {
			return object.Elements[idx]
		}
	case *Hash:
		if key, ok := index.(*String); ok {
			if val, found := object.Pairs[key.Value]; found {
				return val
			}
		}
	case *String:
		num, ok := index.(*Number)
		if !ok {
			return NULL
		}
		idx := int(num.Value)
		if idx < 0 {
			idx += len(object.Value)
		}
		if idx >= 0 && idx < len(object.Value) {
			return &String{Value: string(object.Value[idx])}
		}
	}

	return NULL
}
