package mathdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/alnah/go-mathdown/internal/dom"
	"github.com/alnah/go-mathdown/internal/typeset"
	"golang.org/x/net/html"
)

// RenderStatic renders input and typesets its math in one pass, without a
// View or timers. It is what batch and export paths use: the engine is
// available up front, so there is nothing to wait for.
//
// A nil engine leaves the math as source text and adds a
// DiagTypesetUnavailable diagnostic. Typesetting failures are diagnostics,
// as in Render.
func (r *Renderer) RenderStatic(ctx context.Context, input Input, engine Engine) (*Result, error) {
	res, err := r.Render(ctx, input)
	if err != nil {
		return nil, err
	}

	if engine == nil {
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    DiagTypesetUnavailable,
			Message: "no typesetting engine, math left as source text",
			Err:     ErrTypesetUnavailable,
		})
		return res, nil
	}

	container := dom.NewContainer()
	if err := container.Replace(res.HTML); err != nil {
		return nil, err
	}

	var report Report
	err = container.Mutate(func(root *html.Node) error {
		rep, err := engine.Typeset(ctx, root, typeset.DefaultDelimiters)
		report = rep
		return err
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		r.logger.Error("typesetting failed", slog.Any("error", err))
		res.Diagnostics = append(res.Diagnostics, Diagnostic{
			Kind:    DiagTypesetUnavailable,
			Message: "typesetting failed, math left as source text",
			Err:     err,
		})
		return res, nil
	}

	res.Diagnostics = append(res.Diagnostics, expressionDiagnostics(report)...)
	res.HTML = container.HTML()
	return res, nil
}

// expressionDiagnostics turns per-expression failures into diagnostics.
func expressionDiagnostics(r Report) []Diagnostic {
	if len(r.Failures) == 0 {
		return nil
	}
	diags := make([]Diagnostic, 0, len(r.Failures))
	for _, f := range r.Failures {
		err := f.Err
		if !errors.Is(err, ErrTypesetExpression) {
			err = fmt.Errorf("%w: %v", ErrTypesetExpression, err)
		}
		diags = append(diags, Diagnostic{
			Kind:    DiagTypesetExpression,
			Message: fmt.Sprintf("expression %q left as source text", f.Source),
			Err:     err,
		})
	}
	return diags
}
