package eval

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"strings"

	"sona/pkg/ast"
	sonaerrors "sona/pkg/errors"
	"sona/pkg/token"
)

const DefaultMaxCallDepth = 10000

// ImportRequest asks the importer for a module. Chain lists the modules
// being loaded on behalf of this request, outermost first; the importer
// uses it to detect cycles.
type ImportRequest struct {
	Path  string
	Chain []string
}

// Importer resolves import statements. The module loader implements it.
type Importer interface {
	Import(req ImportRequest) (*Module, error)
}

type Options struct {
	Importer Importer
	Out      io.Writer
	Logger   *slog.Logger
	Globals  *Environment
	MaxDepth int

	// Module is the import path of the code being run ("" for a script)
	// and Chain the import chain that led to it.
	Module string
	Chain  []string
}

// Evaluator runs statements and expressions. One Evaluator runs one
// script or one module body; it is not safe for concurrent use.
type Evaluator struct {
	importer Importer
	out      io.Writer
	logger   *slog.Logger
	globals  *Environment
	maxDepth int
	depth    int
	module   string
	chain    []string
}

func New(opts Options) *Evaluator {
	e := &Evaluator{
		importer: opts.Importer,
		out:      opts.Out,
		logger:   opts.Logger,
		globals:  opts.Globals,
		maxDepth: opts.MaxDepth,
		module:   opts.Module,
		chain:    opts.Chain,
	}
	if e.out == nil {
		e.out = io.Discard
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if e.globals == nil {
		e.globals = NewGlobals(e.out)
	}
	if e.maxDepth <= 0 {
		e.maxDepth = DefaultMaxCallDepth
	}
	return e
}

// NewScope returns a fresh module-level namespace enclosed by the globals.
func (e *Evaluator) NewScope() *Environment {
	return NewEnclosedEnvironment(e.globals)
}

// Globals returns the builtin scope shared by every namespace of a session.
func (e *Evaluator) Globals() *Environment { return e.globals }

// Run executes a program in env and returns the value of the last
// expression statement. A top-level return stops execution early.
func (e *Evaluator) Run(program *ast.Program, env *Environment) (Object, error) {
	var result Object = NULL
	for _, stmt := range program.Statements {
		sig, err := e.execStatement(stmt, env)
		if err != nil {
			return nil, err
		}
		switch sig.Kind {
		case Return:
			return valueOrNull(sig.Value), nil
		case Break, Continue:
			return nil, sonaerrors.Runtime("%s outside loop", sig.Kind)
		}
		if sig.Value != nil {
			result = sig.Value
		}
	}
	return result, nil
}

func (e *Evaluator) execStatement(stmt ast.Statement, env *Environment) (Signal, error) {
	switch node := stmt.(type) {
	case *ast.ExpressionStatement:
		val, err := e.Eval(node.Expression, env)
		if err != nil {
			return normal, err
		}
		return Signal{Kind: Normal, Value: val}, nil

	case *ast.LetStatement:
		val, err := e.Eval(node.Value, env)
		if err != nil {
			return normal, err
		}
		nameFunction(val, node.Name.Value, e.module)
		if node.Const {
			return normal, env.DefineConst(node.Name.Value, val)
		}
		return normal, env.Define(node.Name.Value, val)

	case *ast.AssignStatement:
		return normal, e.execAssign(node, env)

	case *ast.ReturnStatement:
		if node.ReturnValue == nil {
			return Signal{Kind: Return, Value: NULL}, nil
		}
		val, err := e.Eval(node.ReturnValue, env)
		if err != nil {
			return normal, err
		}
		return Signal{Kind: Return, Value: val}, nil

	case *ast.FunctionStatement:
		fn := &Function{
			Name:       node.Name.Value,
			Parameters: node.Parameters,
			Body:       node.Body,
			Env:        env,
			Module:     e.module,
		}
		return normal, env.Define(node.Name.Value, fn)

	case *ast.BlockStatement:
		return e.execBlock(node, env)

	case *ast.IfStatement:
		return e.execIf(node, env)

	case *ast.WhileStatement:
		return e.execWhile(node, env)

	case *ast.ForStatement:
		return e.execFor(node, env)

	case *ast.BreakStatement:
		return Signal{Kind: Break}, nil

	case *ast.ContinueStatement:
		return Signal{Kind: Continue}, nil

	case *ast.ImportStatement:
		return normal, e.execImport(node, env)

	case *ast.FromImportStatement:
		return normal, e.execFromImport(node, env)
	}
	return normal, sonaerrors.Runtime("unsupported statement %T", stmt)
}

// execBlock runs statements in order and stops at the first signal that
// is not Normal, handing it to the caller unchanged.
func (e *Evaluator) execBlock(block *ast.BlockStatement, env *Environment) (Signal, error) {
	for _, stmt := range block.Statements {
		sig, err := e.execStatement(stmt, env)
		if err != nil {
			return normal, err
		}
		if sig.Kind != Normal {
			return sig, nil
		}
	}
	return normal, nil
}

func (e *Evaluator) execIf(node *ast.IfStatement, env *Environment) (Signal, error) {
	cond, err := e.Eval(node.Condition, env)
	if err != nil {
		return normal, err
	}
	if isTruthy(cond) {
		return e.execBlock(node.Consequence, env)
	}
	if node.Alternative != nil {
		return e.execStatement(node.Alternative, env)
	}
	return normal, nil
}

func (e *Evaluator) execWhile(node *ast.WhileStatement, env *Environment) (Signal, error) {
	for {
		cond, err := e.Eval(node.Condition, env)
		if err != nil {
			return normal, err
		}
		if !isTruthy(cond) {
			return normal, nil
		}
		// Each pass gets its own scope so a const in the body binds afresh.
		sig, err := e.execBlock(node.Body, NewEnclosedEnvironment(env))
		if err != nil {
			return normal, err
		}
		switch sig.Kind {
		case Break:
			return normal, nil
		case Return:
			return sig, nil
		}
	}
}

func (e *Evaluator) execFor(node *ast.ForStatement, env *Environment) (Signal, error) {
	iterable, err := e.Eval(node.Value, env)
	if err != nil {
		return normal, err
	}

	var items []Object
	switch it := iterable.(type) {
	case *Array:
		// Snapshot so the body may push to the array it iterates.
		items = append([]Object(nil), it.Elements...)
	case *Dict:
		items = it.Keys()
	case *String:
		for _, r := range it.Value {
			items = append(items, NewString(string(r)))
		}
	default:
		return normal, sonaerrors.Runtime("for-loop value must be ARRAY, DICT or STRING, got %s", iterable.Kind())
	}

	for _, item := range items {
		iterEnv := NewEnclosedEnvironment(env)
		iterEnv.bind(node.Iterator.Value, item)
		sig, err := e.execBlock(node.Body, iterEnv)
		if err != nil {
			return normal, err
		}
		switch sig.Kind {
		case Break:
			return normal, nil
		case Return:
			return sig, nil
		}
	}
	return normal, nil
}

func (e *Evaluator) execAssign(node *ast.AssignStatement, env *Environment) error {
	val, err := e.Eval(node.Value, env)
	if err != nil {
		return err
	}

	switch target := node.Target.(type) {
	case *ast.Identifier:
		nameFunction(val, target.Value, e.module)
		return env.Assign(target.Value, val)

	case *ast.MemberExpression:
		recv, err := e.Eval(target.Object, env)
		if err != nil {
			return err
		}
		return e.SetMember(recv, target.Property.Value, val)

	case *ast.IndexExpression:
		left, err := e.Eval(target.Left, env)
		if err != nil {
			return err
		}
		index, err := e.Eval(target.Index, env)
		if err != nil {
			return err
		}
		return setIndex(left, index, val)
	}
	return sonaerrors.Runtime("cannot assign to %s", node.Target.String())
}

func (e *Evaluator) execImport(node *ast.ImportStatement, env *Environment) error {
	for _, spec := range node.Specs {
		mod, err := e.importModule(spec.Path)
		if err != nil {
			return err
		}
		if err := env.Define(spec.Binding(), mod); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) execFromImport(node *ast.FromImportStatement, env *Environment) error {
	mod, err := e.importModule(node.Path)
	if err != nil {
		return err
	}
	for _, name := range node.Names {
		val, ok := mod.Export(name.Value)
		if !ok {
			return sonaerrors.UndefinedExport(mod.Path, name.Value)
		}
		if err := env.Define(name.Value, val); err != nil {
			return err
		}
	}
	return nil
}

func (e *Evaluator) importModule(path string) (*Module, error) {
	if e.importer == nil {
		return nil, sonaerrors.Runtime("cannot import %q: no module loader configured", path)
	}
	return e.importer.Import(ImportRequest{Path: path, Chain: e.chain})
}

// Eval evaluates an expression.
func (e *Evaluator) Eval(node ast.Expression, env *Environment) (Object, error) {
	switch node := node.(type) {
	case *ast.Identifier:
		val, ok := env.Get(node.Value)
		if !ok {
			if token.IsNative(node.Value) {
				return nil, sonaerrors.UnresolvedNativeBridge(e.module, node.Value)
			}
			return nil, newError(node.Token, "identifier not found: %s", node.Value)
		}
		return val, nil

	case *ast.IntegerLiteral:
		return NewInteger(node.Value), nil

	case *ast.FloatLiteral:
		return NewFloat(node.Value), nil

	case *ast.StringLiteral:
		return NewString(node.Value), nil

	case *ast.Boolean:
		return nativeBoolToBooleanObject(node.Value), nil

	case *ast.NullLiteral:
		return NULL, nil

	case *ast.PrefixExpression:
		right, err := e.Eval(node.Right, env)
		if err != nil {
			return nil, err
		}
		return evalPrefixExpression(node.Operator, right)

	case *ast.InfixExpression:
		return e.evalInfix(node, env)

	case *ast.IndexExpression:
		left, err := e.Eval(node.Left, env)
		if err != nil {
			return nil, err
		}
		index, err := e.Eval(node.Index, env)
		if err != nil {
			return nil, err
		}
		return evalIndexExpression(left, index)

	case *ast.MemberExpression:
		recv, err := e.Eval(node.Object, env)
		if err != nil {
			return nil, err
		}
		return e.Member(recv, node.Property.Value)

	case *ast.CallExpression:
		return e.evalCall(node, env)

	case *ast.ArrayLiteral:
		elements, err := e.evalExpressions(node.Elements, env)
		if err != nil {
			return nil, err
		}
		return NewArray(elements...), nil

	case *ast.DictLiteral:
		dict := NewDict()
		for i, keyNode := range node.Keys {
			key, err := e.Eval(keyNode, env)
			if err != nil {
				return nil, err
			}
			val, err := e.Eval(node.Values[i], env)
			if err != nil {
				return nil, err
			}
			if err := dict.Set(key, val); err != nil {
				return nil, err
			}
		}
		return dict, nil

	case *ast.FunctionLiteral:
		return &Function{
			Parameters: node.Parameters,
			Body:       node.Body,
			Env:        env,
			Module:     e.module,
		}, nil
	}
	return nil, sonaerrors.Runtime("unsupported expression %T", node)
}

func (e *Evaluator) evalCall(node *ast.CallExpression, env *Environment) (Object, error) {
	// receiver.member(args) goes through dispatch so the receiver can be
	// injected; everything else is a plain call.
	if member, ok := node.Function.(*ast.MemberExpression); ok {
		recv, err := e.Eval(member.Object, env)
		if err != nil {
			return nil, err
		}
		args, err := e.evalExpressions(node.Arguments, env)
		if err != nil {
			return nil, err
		}
		return e.CallMember(recv, member.Property.Value, args)
	}

	fn, err := e.Eval(node.Function, env)
	if err != nil {
		return nil, err
	}
	args, err := e.evalExpressions(node.Arguments, env)
	if err != nil {
		return nil, err
	}
	return e.Call(fn, args)
}

func (e *Evaluator) evalExpressions(exps []ast.Expression, env *Environment) ([]Object, error) {
	result := make([]Object, 0, len(exps))
	for _, exp := range exps {
		val, err := e.Eval(exp, env)
		if err != nil {
			return nil, err
		}
		result = append(result, val)
	}
	return result, nil
}

func (e *Evaluator) evalInfix(node *ast.InfixExpression, env *Environment) (Object, error) {
	left, err := e.Eval(node.Left, env)
	if err != nil {
		return nil, err
	}

	switch node.Operator {
	case "and":
		if !isTruthy(left) {
			return left, nil
		}
		return e.Eval(node.Right, env)
	case "or":
		if isTruthy(left) {
			return left, nil
		}
		return e.Eval(node.Right, env)
	}

	right, err := e.Eval(node.Right, env)
	if err != nil {
		return nil, err
	}
	return evalInfixExpression(node.Operator, left, right)
}

func evalPrefixExpression(operator string, right Object) (Object, error) {
	switch operator {
	case "-":
		switch r := right.(type) {
		case *Integer:
			return NewInteger(-r.Value), nil
		case *Float:
			return NewFloat(-r.Value), nil
		}
		return nil, sonaerrors.Runtime("unknown operator: -%s", right.Kind())
	case "!":
		return nativeBoolToBooleanObject(!isTruthy(right)), nil
	}
	return nil, sonaerrors.Runtime("unknown operator: %s%s", operator, right.Kind())
}

func evalInfixExpression(operator string, left, right Object) (Object, error) {
	switch {
	case left.Kind() == KindInteger && right.Kind() == KindInteger:
		return evalIntegerInfixExpression(operator, left.(*Integer).Value, right.(*Integer).Value)
	case isNumber(left) && isNumber(right):
		return evalFloatInfixExpression(operator, toFloat(left), toFloat(right))
	case left.Kind() == KindString && right.Kind() == KindString:
		return evalStringInfixExpression(operator, left.(*String).Value, right.(*String).Value)
	case left.Kind() == KindArray && right.Kind() == KindArray && operator == "+":
		l, r := left.(*Array).Elements, right.(*Array).Elements
		joined := make([]Object, 0, len(l)+len(r))
		return NewArray(append(append(joined, l...), r...)...), nil
	case operator == "==":
		return nativeBoolToBooleanObject(objectsEqual(left, right)), nil
	case operator == "!=":
		return nativeBoolToBooleanObject(!objectsEqual(left, right)), nil
	case left.Kind() != right.Kind():
		return nil, sonaerrors.Runtime("type mismatch: %s %s %s", left.Kind(), operator, right.Kind())
	}
	return nil, sonaerrors.Runtime("unknown operator: %s %s %s", left.Kind(), operator, right.Kind())
}

func evalIntegerInfixExpression(operator string, l, r int64) (Object, error) {
	switch operator {
	case "+":
		return NewInteger(l + r), nil
	case "-":
		return NewInteger(l - r), nil
	case "*":
		return NewInteger(l * r), nil
	case "/":
		if r == 0 {
			return nil, sonaerrors.Runtime("division by zero")
		}
		return NewInteger(l / r), nil
	case "%":
		if r == 0 {
			return nil, sonaerrors.Runtime("division by zero")
		}
		return NewInteger(l % r), nil
	case "<":
		return nativeBoolToBooleanObject(l < r), nil
	case ">":
		return nativeBoolToBooleanObject(l > r), nil
	case "<=":
		return nativeBoolToBooleanObject(l <= r), nil
	case ">=":
		return nativeBoolToBooleanObject(l >= r), nil
	case "==":
		return nativeBoolToBooleanObject(l == r), nil
	case "!=":
		return nativeBoolToBooleanObject(l != r), nil
	}
	return nil, sonaerrors.Runtime("unknown operator: INTEGER %s INTEGER", operator)
}

func evalFloatInfixExpression(operator string, l, r float64) (Object, error) {
	switch operator {
	case "+":
		return NewFloat(l + r), nil
	case "-":
		return NewFloat(l - r), nil
	case "*":
		return NewFloat(l * r), nil
	case "/":
		if r == 0 {
			return nil, sonaerrors.Runtime("division by zero")
		}
		return NewFloat(l / r), nil
	case "%":
		if r == 0 {
			return nil, sonaerrors.Runtime("division by zero")
		}
		return NewFloat(math.Mod(l, r)), nil
	case "<":
		return nativeBoolToBooleanObject(l < r), nil
	case ">":
		return nativeBoolToBooleanObject(l > r), nil
	case "<=":
		return nativeBoolToBooleanObject(l <= r), nil
	case ">=":
		return nativeBoolToBooleanObject(l >= r), nil
	case "==":
		return nativeBoolToBooleanObject(l == r), nil
	case "!=":
		return nativeBoolToBooleanObject(l != r), nil
	}
	return nil, sonaerrors.Runtime("unknown operator: FLOAT %s FLOAT", operator)
}

func evalStringInfixExpression(operator string, l, r string) (Object, error) {
	switch operator {
	case "+":
		return NewString(l + r), nil
	case "==":
		return nativeBoolToBooleanObject(l == r), nil
	case "!=":
		return nativeBoolToBooleanObject(l != r), nil
	case "<":
		return nativeBoolToBooleanObject(l < r), nil
	case ">":
		return nativeBoolToBooleanObject(l > r), nil
	case "<=":
		return nativeBoolToBooleanObject(l <= r), nil
	case ">=":
		return nativeBoolToBooleanObject(l >= r), nil
	}
	return nil, sonaerrors.Runtime("unknown operator: STRING %s STRING", operator)
}

func evalIndexExpression(left, index Object) (Object, error) {
	switch l := left.(type) {
	case *Array:
		i, err := indexFor(index, len(l.Elements))
		if err != nil {
			return nil, err
		}
		return l.Elements[i], nil
	case *String:
		runes := []rune(l.Value)
		i, err := indexFor(index, len(runes))
		if err != nil {
			return nil, err
		}
		return NewString(string(runes[i])), nil
	case *Dict:
		val, ok, err := l.Get(index)
		if err != nil {
			return nil, err
		}
		if !ok {
			return NULL, nil
		}
		return val, nil
	}
	return nil, sonaerrors.Runtime("index operator not supported: %s", left.Kind())
}

func setIndex(left, index, val Object) error {
	switch l := left.(type) {
	case *Array:
		i, err := indexFor(index, len(l.Elements))
		if err != nil {
			return err
		}
		l.Elements[i] = val
		return nil
	case *Dict:
		return l.Set(index, val)
	}
	return sonaerrors.Runtime("index assignment not supported: %s", left.Kind())
}

// indexFor validates an index against length n. Negative indexes count
// from the end.
func indexFor(index Object, n int) (int, error) {
	idx, ok := index.(*Integer)
	if !ok {
		return 0, sonaerrors.Runtime("index must be INTEGER, got %s", index.Kind())
	}
	i := int(idx.Value)
	if i < 0 {
		i += n
	}
	if i < 0 || i >= n {
		return 0, sonaerrors.Runtime("index %d out of range (length %d)", idx.Value, n)
	}
	return i, nil
}

func objectsEqual(a, b Object) bool {
	return equalSeen(a, b, make(map[[2]Object]bool))
}

// equalSeen compares structurally. A pair of containers already being
// compared further up counts as equal, so cyclic graphs terminate.
func equalSeen(a, b Object, seen map[[2]Object]bool) bool {
	if isNumber(a) && isNumber(b) {
		if ai, ok := a.(*Integer); ok {
			if bi, ok := b.(*Integer); ok {
				return ai.Value == bi.Value
			}
		}
		return toFloat(a) == toFloat(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case *String:
		return av.Value == b.(*String).Value
	case *Boolean:
		return av.Value == b.(*Boolean).Value
	case *Null:
		return true
	case *Array:
		bv := b.(*Array)
		if av == bv {
			return true
		}
		if len(av.Elements) != len(bv.Elements) {
			return false
		}
		pair := [2]Object{av, bv}
		if seen[pair] {
			return true
		}
		seen[pair] = true
		defer delete(seen, pair)
		for i := range av.Elements {
			if !equalSeen(av.Elements[i], bv.Elements[i], seen) {
				return false
			}
		}
		return true
	case *Dict:
		bv := b.(*Dict)
		if av == bv {
			return true
		}
		if av.Len() != bv.Len() {
			return false
		}
		pair := [2]Object{av, bv}
		if seen[pair] {
			return true
		}
		seen[pair] = true
		defer delete(seen, pair)
		for _, p := range av.Pairs() {
			other, ok, _ := bv.Get(p.Key)
			if !ok || !equalSeen(p.Value, other, seen) {
				return false
			}
		}
		return true
	}
	return a == b
}

func isNumber(obj Object) bool {
	k := obj.Kind()
	return k == KindInteger || k == KindFloat
}

func toFloat(obj Object) float64 {
	switch o := obj.(type) {
	case *Integer:
		return float64(o.Value)
	case *Float:
		return o.Value
	}
	return 0
}

func isTruthy(obj Object) bool {
	switch o := obj.(type) {
	case *Null:
		return false
	case *Boolean:
		return o.Value
	case *Integer:
		return o.Value != 0
	case *Float:
		return o.Value != 0
	case *String:
		return o.Value != ""
	case *Array:
		return len(o.Elements) > 0
	case *Dict:
		return o.Len() > 0
	}
	return true
}

func valueOrNull(obj Object) Object {
	if obj == nil {
		return NULL
	}
	return obj
}

// nameFunction gives an anonymous function literal the name it is first
// bound to, so error messages can refer to it.
func nameFunction(val Object, name, module string) {
	if fn, ok := val.(*Function); ok && fn.Name == "" {
		fn.Name = name
		fn.Module = module
	}
}

func newError(tok token.Token, format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...)
	if tok.Line > 0 {
		msg = fmt.Sprintf("line %d:%d: %s", tok.Line, tok.Column, msg)
	}
	return sonaerrors.Runtime("%s", strings.TrimSpace(msg))
}
