package app

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/vk/cellgrid/internal/model"
	"github.com/zclconf/go-cty/cty"
)

func (a *App) setLatest(nb model.Notebook) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latest = nb
}

func (a *App) getLatest() model.Notebook {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latest
}

// report prints one line per cell of nb with its current result.
func (a *App) report(nb model.Notebook) {
	a.outMu.Lock()
	defer a.outMu.Unlock()

	shadow := a.engine.Shadow()
	tw := tabwriter.NewWriter(a.outW, 0, 4, 2, ' ', 0)
	for _, id := range nb.LiveOrder() {
		cell := nb.Cells[id]
		v, ok := shadow.Cylinder(id)
		switch {
		case cell.Kind == model.KindText:
			fmt.Fprintf(tw, "%s\ttext\t\n", id)
		case !ok:
			fmt.Fprintf(tw, "%s\tpending\t\n", id)
		case v.Result.IsThrow():
			fmt.Fprintf(tw, "%s\terror\t%s\n", id, oneLine(v.Result.Err.Error()))
		case v.Result.IsReturn():
			fmt.Fprintf(tw, "%s\tok\t%s\n", id, FormatResult(v.Result))
		default:
			fmt.Fprintf(tw, "%s\tpending\t\n", id)
		}
	}
	_ = tw.Flush()
}

// FormatResult renders a successful result as "name = value" in HCL syntax.
func FormatResult(r model.Result) string {
	value := FormatValue(r.Value)
	if r.Name == "" {
		return value
	}
	return r.Name + " = " + value
}

// FormatValue renders v in HCL syntax on one line.
func FormatValue(v cty.Value) string {
	if !v.IsWhollyKnown() {
		return "(unknown)"
	}
	return oneLine(string(hclwrite.TokensForValue(v).Bytes()))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
