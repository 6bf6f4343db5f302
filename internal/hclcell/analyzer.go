package hclcell

import (
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/cellgrid/internal/model"
)

const filename = "cell.hcl"

// escapeNames are the attribute names that mark a top-level escape.
var escapeNames = []string{"return", "break"}

// Analyzer extracts produced and consumed names from HCL cell source. It is
// stateless and safe for concurrent use.
type Analyzer struct{}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer() *Analyzer {
	return &Analyzer{}
}

// Analyze parses source and reports the names it exports and reads. The
// result is not normalized; the analysis cache does that.
func (a *Analyzer) Analyze(source string) (model.Defines, error) {
	attrs, diags := parse(source)
	if diags.HasErrors() {
		return model.Defines{}, diags
	}

	var d model.Defines
	for _, attr := range attrs {
		if slices.Contains(escapeNames, attr.Name) {
			d.HasTopLevelEscape = true
		} else {
			d.Produced = append(d.Produced, attr.Name)
		}
		d.Consumed = append(d.Consumed, rootNames(attr.Expr)...)
	}
	return d, nil
}

// parse returns the cell's attributes in source order. Blocks, the reserved
// default binding and calls to unknown functions are rejected.
func parse(source string) ([]*hclsyntax.Attribute, hcl.Diagnostics) {
	file, diags := hclsyntax.ParseConfig([]byte(source), filename, hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, diags
	}
	body, ok := file.Body.(*hclsyntax.Body)
	if !ok {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Unsupported cell body",
			Detail:   fmt.Sprintf("Expected native HCL syntax, got %T.", file.Body),
		}}
	}

	for _, block := range body.Blocks {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Blocks are not allowed in cells",
			Detail:   fmt.Sprintf("Cells hold attributes only; found a %q block.", block.Type),
			Subject:  block.DefRange().Ptr(),
		})
	}

	attrs := make([]*hclsyntax.Attribute, 0, len(body.Attributes))
	for _, attr := range body.Attributes {
		attrs = append(attrs, attr)
	}
	slices.SortFunc(attrs, func(a, b *hclsyntax.Attribute) int {
		return a.SrcRange.Start.Byte - b.SrcRange.Start.Byte
	})

	known := Functions()
	for _, attr := range attrs {
		if attr.Name == model.DefaultBinding {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Reserved name",
				Detail:   fmt.Sprintf("The name %q is reserved for the displayed value.", model.DefaultBinding),
				Subject:  attr.NameRange.Ptr(),
			})
		}
		calls := make(map[string]*hclsyntax.FunctionCallExpr)
		calledFunctions(attr.Expr, calls)
		for _, name := range sortedKeys(calls) {
			if _, ok := known[name]; ok {
				continue
			}
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Call to unknown function",
				Detail:   fmt.Sprintf("There is no function named %q.", name),
				Subject:  calls[name].NameRange.Ptr(),
			})
		}
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return attrs, diags
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
