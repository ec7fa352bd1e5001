package main

import (
	"fmt"
	"strings"

	"sona/pkg/ast"
	"sona/pkg/token"
)

type ProgramInsights struct {
	Imports   []ImportInfo
	Functions []FunctionInfo
	Natives   []string
}

type ImportInfo struct {
	Path  string
	Alias string
	Names []string // from-imports only
}

type FunctionInfo struct {
	Name       string
	Parameters []string
	Private    bool
}

func analyzeProgram(program *ast.Program) ProgramInsights {
	insights := ProgramInsights{}
	seen := make(map[string]bool)
	walk(program, func(node ast.Node) {
		switch n := node.(type) {
		case *ast.ImportStatement:
			for _, spec := range n.Specs {
				imp := ImportInfo{Path: spec.Path}
				if spec.Alias != nil {
					imp.Alias = spec.Alias.Value
				}
				insights.Imports = append(insights.Imports, imp)
			}
		case *ast.FromImportStatement:
			names := make([]string, 0, len(n.Names))
			for _, id := range n.Names {
				names = append(names, id.Value)
			}
			insights.Imports = append(insights.Imports, ImportInfo{Path: n.Path, Names: names})
		case *ast.FunctionStatement:
			params := make([]string, 0, len(n.Parameters))
			for _, p := range n.Parameters {
				params = append(params, p.Value)
			}
			insights.Functions = append(insights.Functions, FunctionInfo{
				Name:       n.Name.Value,
				Parameters: params,
				Private:    strings.HasPrefix(n.Name.Value, "_"),
			})
		case *ast.Identifier:
			if token.IsNative(n.Value) && !seen[n.Value] {
				seen[n.Value] = true
				insights.Natives = append(insights.Natives, n.Value)
			}
		}
	})
	return insights
}

func walk(node ast.Node, visitor func(ast.Node)) {
	if node == nil {
		return
	}

	visitor(node)

	switch n := node.(type) {
	case *ast.Program:
		for _, stmt := range n.Statements {
			walk(stmt, visitor)
		}
	case *ast.BlockStatement:
		for _, stmt := range n.Statements {
			walk(stmt, visitor)
		}
	case *ast.ExpressionStatement:
		walkExpr(n.Expression, visitor)
	case *ast.LetStatement:
		walkExpr(n.Value, visitor)
	case *ast.AssignStatement:
		walkExpr(n.Target, visitor)
		walkExpr(n.Value, visitor)
	case *ast.ReturnStatement:
		walkExpr(n.ReturnValue, visitor)
	case *ast.FunctionStatement:
		walk(n.Body, visitor)
	case *ast.IfStatement:
		walkExpr(n.Condition, visitor)
		walk(n.Consequence, visitor)
		if n.Alternative != nil {
			walk(n.Alternative, visitor)
		}
	case *ast.WhileStatement:
		walkExpr(n.Condition, visitor)
		walk(n.Body, visitor)
	case *ast.ForStatement:
		walkExpr(n.Value, visitor)
		walk(n.Body, visitor)
	case *ast.PrefixExpression:
		walkExpr(n.Right, visitor)
	case *ast.InfixExpression:
		walkExpr(n.Left, visitor)
		walkExpr(n.Right, visitor)
	case *ast.CallExpression:
		walkExpr(n.Function, visitor)
		for _, arg := range n.Arguments {
			walkExpr(arg, visitor)
		}
	case *ast.MemberExpression:
		walkExpr(n.Object, visitor)
	case *ast.IndexExpression:
		walkExpr(n.Left, visitor)
		walkExpr(n.Index, visitor)
	case *ast.ArrayLiteral:
		for _, el := range n.Elements {
			walkExpr(el, visitor)
		}
	case *ast.DictLiteral:
		for i := range n.Keys {
			walkExpr(n.Keys[i], visitor)
			walkExpr(n.Values[i], visitor)
		}
	case *ast.FunctionLiteral:
		walk(n.Body, visitor)
	}
}

// walkExpr skips nil expressions, which arrive as typed nils otherwise.
func walkExpr(expr ast.Expression, visitor func(ast.Node)) {
	if expr == nil {
		return
	}
	walk(expr, visitor)
}

func describeImport(imp ImportInfo) string {
	if imp.Names != nil {
		return fmt.Sprintf("from %s import %s", imp.Path, strings.Join(imp.Names, ", "))
	}
	if imp.Alias != "" {
		return fmt.Sprintf("import %s as %s", imp.Path, imp.Alias)
	}
	return "import " + imp.Path
}
