package hclcell

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/cellgrid/internal/ctxlog"
	"github.com/vk/cellgrid/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// Runner evaluates HCL cells. It is stateless and safe for concurrent use.
type Runner struct{}

// NewRunner creates a Runner.
func NewRunner() *Runner {
	return &Runner{}
}

// Run evaluates the attributes of code in source order. Each attribute sees
// the inputs and the attributes above it. Cancellation is checked between
// attributes.
func (r *Runner) Run(ctx context.Context, code string, inputs map[string]model.Value) (model.Outcome, error) {
	attrs, diags := parse(code)
	if diags.HasErrors() {
		return model.Outcome{}, diags
	}
	logger := ctxlog.FromContext(ctx)

	evalCtx := &hcl.EvalContext{
		Variables: maps.Clone(inputs),
		Functions: Functions(),
	}
	if evalCtx.Variables == nil {
		evalCtx.Variables = make(map[string]cty.Value)
	}

	out := model.Outcome{Values: make(map[string]model.Value, len(attrs)+1)}
	last := cty.NullVal(cty.DynamicPseudoType)
	for _, attr := range attrs {
		if err := ctx.Err(); err != nil {
			return model.Outcome{}, err
		}
		if slices.Contains(escapeNames, attr.Name) {
			return model.Outcome{}, fmt.Errorf("%s: top-level %s is not allowed", attr.SrcRange, attr.Name)
		}

		v, valDiags := attr.Expr.Value(evalCtx)
		if valDiags.HasErrors() {
			return model.Outcome{}, valDiags
		}
		logger.Debug("Evaluated attribute.", "name", attr.Name, "type", v.Type().FriendlyName())

		evalCtx.Variables[attr.Name] = v
		out.Values[attr.Name] = v
		out.DisplayName = attr.Name
		last = v
	}
	out.Values[model.DefaultBinding] = last
	return out, nil
}
