package mathdown

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// hasPrivateUse reports whether s still carries a placeholder code point.
func hasPrivateUse(s string) bool {
	for _, r := range s {
		if r >= '\uE000' && r <= '\uF8FF' {
			return true
		}
	}
	return false
}

// failingConverter always fails, forcing the escaped-text fallback.
type failingConverter struct{}

func (failingConverter) ToHTML(context.Context, string) (string, error) {
	return "", errors.New("converter exploded")
}

func TestRender_EmptyInput(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "\n\t\n"} {
		_, err := NewRenderer().Render(context.Background(), Input{Markdown: in})
		if !errors.Is(err, ErrEmptyMarkdown) {
			t.Errorf("Render(%q) error = %v, want ErrEmptyMarkdown", in, err)
		}
	}
}

func TestRender_MathSpans(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantMath int
		contains []string
	}{
		{
			name:     "no math",
			input:    "Just **text**.",
			wantMath: 0,
			contains: []string{"<strong>text</strong>"},
		},
		{
			name:     "one inline span keeps its source",
			input:    "Area is $a_1 + b_1$ here.",
			wantMath: 1,
			contains: []string{"$a_1 + b_1$"},
		},
		{
			name:     "several spans",
			input:    "Let $x$ and $y$ with $x+y=1$.",
			wantMath: 3,
			contains: []string{"$x$", "$y$", "$x+y=1$"},
		},
		{
			name:     "math inside code is not a span",
			input:    "Shell: `echo $HOME $PATH`",
			wantMath: 0,
			contains: []string{"<code>echo $HOME $PATH</code>"},
		},
		{
			name:     "all four delimiter classes",
			input:    `a $x$ b $$y$$ c \[z\] d \(w\)`,
			wantMath: 4,
			contains: []string{"$x$", "$$y$$", `\[z\]`, `\(w\)`},
		},
		{
			name:     "dollar span nested in bracket span",
			input:    `Block \[ x + $y$ \] end`,
			wantMath: 1,
			contains: []string{`Block \[ x + $y$ \] end`},
		},
		{
			name:     "display block on its own lines",
			input:    "Before\n\n$$\n\\int_0^1 x\\,dx\n$$\n\nAfter",
			wantMath: 1,
			contains: []string{`\int_0^1 x\,dx`},
		},
		{
			name:     "dollars in a link destination are not math",
			input:    "See [link]($x$) here and $y$",
			wantMath: 1,
			contains: []string{"link", "$y$"},
		},
		{
			name:     "math in link text",
			input:    "[$x$](https://example.com/a^b)",
			wantMath: 1,
			contains: []string{">$x$</a>", `href="https://example.com/a`},
		},
	}

	r := NewRenderer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res, err := r.Render(context.Background(), Input{Markdown: tt.input})
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}
			if res.Math != tt.wantMath {
				t.Errorf("Math = %d, want %d", res.Math, tt.wantMath)
			}
			if hasPrivateUse(res.HTML) || strings.Contains(strings.ToUpper(res.HTML), "%EE%80") {
				t.Errorf("placeholder left in output: %q", res.HTML)
			}
			for _, want := range tt.contains {
				if !strings.Contains(res.HTML, want) {
					t.Errorf("HTML missing %q:\n%s", want, res.HTML)
				}
			}
			if len(res.Diagnostics) != 0 {
				t.Errorf("unexpected diagnostics: %v", res.Diagnostics)
			}
		})
	}
}

func TestRender_Sanitizes(t *testing.T) {
	t.Parallel()

	input := "Hi <script>alert(1)</script> [x](javascript:alert(2)) <img src=x onerror=alert(3)>"
	res, err := NewRenderer().Render(context.Background(), Input{Markdown: input})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	for _, bad := range []string{"<script", `href="javascript`, "<img"} {
		if strings.Contains(res.HTML, bad) {
			t.Errorf("HTML contains %q:\n%s", bad, res.HTML)
		}
	}
}

func TestRender_ConversionFailureDegrades(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	r.htmlConverter = failingConverter{}

	res, err := r.Render(context.Background(), Input{Markdown: "a < b and $x$"})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !strings.HasPrefix(res.HTML, "<p>") {
		t.Errorf("HTML = %q, want escaped paragraph", res.HTML)
	}
	if !strings.Contains(res.HTML, "a &lt; b") {
		t.Errorf("text not escaped: %q", res.HTML)
	}
	if !strings.Contains(res.HTML, "$x$") || res.Math != 1 {
		t.Errorf("math not restored: Math=%d HTML=%q", res.Math, res.HTML)
	}
	if hasPrivateUse(res.HTML) {
		t.Errorf("placeholder left in output: %q", res.HTML)
	}
	if len(res.Diagnostics) != 1 || res.Diagnostics[0].Kind != DiagParseFailure {
		t.Fatalf("Diagnostics = %v, want one parse failure", res.Diagnostics)
	}
}

func TestRender_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewRenderer().Render(ctx, Input{Markdown: "text"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Render() error = %v, want context.Canceled", err)
	}
}

func TestRender_Tables(t *testing.T) {
	t.Parallel()

	input := "| a | b |\n|---|---|\n| 1 | $x$ |\n"

	t.Run("default classes", func(t *testing.T) {
		t.Parallel()

		res, err := NewRenderer().Render(context.Background(), Input{Markdown: input})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		for _, want := range []string{`class="md-table"`, `class="md-table-head"`, `class="md-table-cell"`, "$x$"} {
			if !strings.Contains(res.HTML, want) {
				t.Errorf("HTML missing %q:\n%s", want, res.HTML)
			}
		}
	})

	t.Run("custom classes keep unset defaults", func(t *testing.T) {
		t.Parallel()

		r := NewRenderer(WithTableClasses(TableClasses{Table: "grid"}))
		res, err := r.Render(context.Background(), Input{Markdown: input})
		if err != nil {
			t.Fatalf("Render() error = %v", err)
		}
		if !strings.Contains(res.HTML, `class="grid"`) {
			t.Errorf("custom table class missing:\n%s", res.HTML)
		}
		if !strings.Contains(res.HTML, `class="md-table-row"`) {
			t.Errorf("default row class missing:\n%s", res.HTML)
		}
	})
}

func TestRender_Options(t *testing.T) {
	t.Parallel()

	t.Run("markup normalization", func(t *testing.T) {
		t.Parallel()

		input := "**Step 1: add"
		on, err := NewRenderer().Render(context.Background(), Input{Markdown: input})
		if err != nil {
			t.Fatal(err)
		}
		off, err := NewRenderer(WithoutMarkupNormalization()).Render(context.Background(), Input{Markdown: input})
		if err != nil {
			t.Fatal(err)
		}
		if strings.Contains(on.HTML, "**") {
			t.Errorf("normalized HTML kept marker: %q", on.HTML)
		}
		if !strings.Contains(off.HTML, "**") {
			t.Errorf("unnormalized HTML lost marker: %q", off.HTML)
		}
	})

	t.Run("highlights", func(t *testing.T) {
		t.Parallel()

		res, err := NewRenderer().Render(context.Background(), Input{Markdown: "the ==key== idea"})
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(res.HTML, "<mark>key</mark>") {
			t.Errorf("HTML = %q, want <mark>", res.HTML)
		}
	})
}

func TestRender_Concurrent(t *testing.T) {
	t.Parallel()

	r := NewRenderer()
	done := make(chan error, 8)
	for i := 0; i < 8; i++ {
		go func() {
			res, err := r.Render(context.Background(), Input{Markdown: "Sum $a+b$ and $c$"})
			if err == nil && res.Math != 2 {
				err = errors.New("wrong math count")
			}
			done <- err
		}()
	}
	for i := 0; i < 8; i++ {
		if err := <-done; err != nil {
			t.Errorf("concurrent Render: %v", err)
		}
	}
}
