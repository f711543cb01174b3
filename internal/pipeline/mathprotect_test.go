package pipeline

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestProtect_AllClasses(t *testing.T) {
	t.Parallel()

	input := `a $x$ b $$y$$ c \[z\] d \(w\)`
	protected, reg := Protect(input)

	if reg.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", reg.Len())
	}
	for _, delim := range []string{"$", `\[`, `\(`} {
		if strings.Contains(protected, delim) {
			t.Errorf("protected text still contains %q: %q", delim, protected)
		}
	}

	want := []MathSpan{
		{Class: DollarBlock, Index: 0, Source: "$$y$$"},
		{Class: DollarInline, Index: 1, Source: "$x$"},
		{Class: BracketBlock, Index: 2, Source: `\[z\]`},
		{Class: BracketInline, Index: 3, Source: `\(w\)`},
	}
	if diff := cmp.Diff(want, reg.Spans()); diff != "" {
		t.Errorf("Spans() mismatch (-want +got):\n%s", diff)
	}

	restored, n := Restore(protected, reg)
	if restored != input {
		t.Errorf("Restore() = %q, want %q", restored, input)
	}
	if n != 4 {
		t.Errorf("Restore() count = %d, want 4", n)
	}
}

func TestProtect_Multiline(t *testing.T) {
	t.Parallel()

	input := "before\n$$\n\\int_0^1 x\\,dx\n$$\nafter"
	protected, reg := Protect(input)
	if reg.Len() != 1 || !reg.Spans()[0].Class.Display() {
		t.Fatalf("expected one display span, got %+v", reg.Spans())
	}
	if strings.Contains(protected, `\int`) {
		t.Errorf("body not protected: %q", protected)
	}
}

func TestProtect_SkipsCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "inline code", input: "`echo $HOME$` and $y$", want: 1},
		{name: "fenced code", input: "```sh\necho $PATH $HOME\n```\n$z$", want: 1},
		{name: "only code", input: "`$a$`", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			protected, reg := Protect(tt.input)
			if reg.Len() != tt.want {
				t.Errorf("Len() = %d, want %d", reg.Len(), tt.want)
			}
			if restored, _ := Restore(protected, reg); restored != tt.input {
				t.Errorf("round trip = %q, want %q", restored, tt.input)
			}
		})
	}
}

func TestProtect_NestedDelimiters(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []MathSpan
	}{
		{
			name:  "dollar inside bracket block",
			input: `Block \[ x + $y$ \] end`,
			want:  []MathSpan{{Class: BracketBlock, Index: 1, Source: `\[ x + $y$ \]`}},
		},
		{
			name:  "dollar inside bracket inline",
			input: `so \(a = $b$\) and $c$`,
			want: []MathSpan{
				{Class: DollarInline, Index: 1, Source: "$c$"},
				{Class: BracketInline, Index: 2, Source: `\(a = $b$\)`},
			},
		},
		{
			name:  "display dollars inside bracket block",
			input: "\\[\n$$z$$\n\\]",
			want:  []MathSpan{{Class: BracketBlock, Index: 1, Source: "\\[\n$$z$$\n\\]"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			protected, reg := Protect(tt.input)
			if diff := cmp.Diff(tt.want, reg.Spans()); diff != "" {
				t.Errorf("Spans() mismatch (-want +got):\n%s", diff)
			}
			if reg.Len() != len(tt.want) {
				t.Errorf("Len() = %d, want %d", reg.Len(), len(tt.want))
			}

			restored, n := Restore(protected, reg)
			if restored != tt.input {
				t.Errorf("Restore() = %q, want %q", restored, tt.input)
			}
			if n != reg.Len() {
				t.Errorf("Restore() count = %d, want %d", n, reg.Len())
			}
		})
	}
}

func TestProtect_SkipsLinkAddresses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{name: "inline link destination", input: "See [link]($x$) here", want: 0},
		{name: "angle destination", input: "See [link](<$a b$>) and $c$", want: 1},
		{name: "math in link text", input: "[$x$](https://example.com/$y$)", want: 1},
		{name: "autolink", input: "<https://example.com/$q$>", want: 0},
		{name: "bare url", input: "https://example.com/$q$ and $r$", want: 1},
		{name: "escaped bracket still math", input: `\[f\](x) and $y$`, want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			protected, reg := Protect(tt.input)
			if reg.Len() != tt.want {
				t.Errorf("Len() = %d, want %d (spans %+v)", reg.Len(), tt.want, reg.Spans())
			}
			if restored, _ := Restore(protected, reg); restored != tt.input {
				t.Errorf("round trip = %q, want %q", restored, tt.input)
			}
		})
	}
}

func TestProtect_NoMath(t *testing.T) {
	t.Parallel()

	protected, reg := Protect("plain text, $5 only")
	if protected != "plain text, $5 only" {
		t.Errorf("Protect() changed text: %q", protected)
	}
	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	if out, n := Restore(protected, reg); out != protected || n != 0 {
		t.Errorf("Restore() = %q, %d", out, n)
	}
}

func TestProtect_MarkerCollision(t *testing.T) {
	t.Parallel()

	input := "stray \uE010 then $x$"
	protected, reg := Protect(input)
	if reg.marker == mathOpen {
		t.Fatalf("marker was not extended despite collision")
	}

	restored, n := Restore(protected, reg)
	if restored != input || n != 1 {
		t.Errorf("Restore() = %q, %d; want %q, 1", restored, n, input)
	}
}

func TestRestore_EscapesMarkup(t *testing.T) {
	t.Parallel()

	protected, reg := Protect("$a<b & c>d$")
	restored, _ := Restore("<p>"+protected+"</p>", reg)

	want := "<p>$a&lt;b &amp; c&gt;d$</p>"
	if restored != want {
		t.Errorf("Restore() = %q, want %q", restored, want)
	}
}

func TestRestore_CountsDistinctSpans(t *testing.T) {
	t.Parallel()

	protected, reg := Protect("$a$ $b$")
	ph := reg.Placeholder(0)

	// Placeholder duplicated by a downstream stage, second one lost.
	doubled := strings.Replace(protected, reg.Placeholder(1), ph, 1)
	_, n := Restore(doubled, reg)
	if n != 1 {
		t.Errorf("Restore() count = %d, want 1", n)
	}
}

func TestStripPlaceholders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "math placeholder", input: "x\uE010A0\uE011y", want: "xy"},
		{name: "nonce placeholder", input: "x\uE010n0B12\uE011y", want: "xy"},
		{name: "stash placeholder", input: "x\uE0203\uE021y", want: "xy"},
		{name: "percent-encoded placeholder", input: `href="%EE%80%90B0%EE%80%91"`, want: `href=""`},
		{name: "lowercase encoding", input: "a%ee%80%a07%ee%80%a1b", want: "ab"},
		{name: "other escapes kept", input: "a%20b%EE%80%90", want: "a%20b%EE%80%90"},
		{name: "clean text", input: "xy", want: "xy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := StripPlaceholders(tt.input); got != tt.want {
				t.Errorf("StripPlaceholders(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestMathClass_String(t *testing.T) {
	t.Parallel()

	if got := BracketInline.String(); got != "bracket-inline" {
		t.Errorf("String() = %q", got)
	}
	if got := MathClass(9).String(); got != "MathClass(9)" {
		t.Errorf("String() = %q", got)
	}
}
