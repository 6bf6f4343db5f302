package hclcell

import (
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// rootNames returns the distinct root variable names expr reads, sorted.
func rootNames(expr hcl.Expression) []string {
	var names []string
	for _, traversal := range expr.Variables() {
		name := traversal.RootName()
		if !slices.Contains(names, name) {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// calledFunctions walks expr and records every function it calls.
func calledFunctions(expr hclsyntax.Expression, calls map[string]*hclsyntax.FunctionCallExpr) {
	if expr == nil {
		return
	}
	switch e := expr.(type) {
	case *hclsyntax.FunctionCallExpr:
		if _, seen := calls[e.Name]; !seen {
			calls[e.Name] = e
		}
		for _, arg := range e.Args {
			calledFunctions(arg, calls)
		}
	case *hclsyntax.BinaryOpExpr:
		calledFunctions(e.LHS, calls)
		calledFunctions(e.RHS, calls)
	case *hclsyntax.ConditionalExpr:
		calledFunctions(e.Condition, calls)
		calledFunctions(e.TrueResult, calls)
		calledFunctions(e.FalseResult, calls)
	case *hclsyntax.UnaryOpExpr:
		calledFunctions(e.Val, calls)
	case *hclsyntax.TemplateExpr:
		for _, part := range e.Parts {
			calledFunctions(part, calls)
		}
	case *hclsyntax.TemplateWrapExpr:
		calledFunctions(e.Wrapped, calls)
	case *hclsyntax.TupleConsExpr:
		for _, item := range e.Exprs {
			calledFunctions(item, calls)
		}
	case *hclsyntax.ObjectConsExpr:
		for _, item := range e.Items {
			calledFunctions(item.KeyExpr, calls)
			calledFunctions(item.ValueExpr, calls)
		}
	case *hclsyntax.ObjectConsKeyExpr:
		calledFunctions(e.Wrapped, calls)
	case *hclsyntax.ForExpr:
		calledFunctions(e.CollExpr, calls)
		calledFunctions(e.KeyExpr, calls)
		calledFunctions(e.ValExpr, calls)
		calledFunctions(e.CondExpr, calls)
	case *hclsyntax.IndexExpr:
		calledFunctions(e.Collection, calls)
		calledFunctions(e.Key, calls)
	case *hclsyntax.SplatExpr:
		calledFunctions(e.Source, calls)
		calledFunctions(e.Each, calls)
	case *hclsyntax.RelativeTraversalExpr:
		calledFunctions(e.Source, calls)
	case *hclsyntax.ParenthesesExpr:
		calledFunctions(e.Expression, calls)
	}
}
