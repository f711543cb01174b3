package pipeline

import (
	"context"
	"strings"
	"testing"
)

func TestSanitizeCSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty string", input: "", expected: ""},
		{name: "no escape needed", input: ".md-table { width: 100%; }", expected: ".md-table { width: 100%; }"},
		{name: "escapes style close", input: "</style>", expected: `<\/style>`},
		{name: "escapes script close", input: "</script>", expected: `<\/script>`},
		{name: "nested sequences", input: "</</style>", expected: `<\/<\/style>`},
		{name: "case variation", input: "</STYLE>", expected: `<\/STYLE>`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := sanitizeCSS(tt.input)
			if got != tt.expected {
				t.Errorf("sanitizeCSS(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestInjectCSS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		html     string
		css      string
		expected string
	}{
		{
			name:     "empty CSS returns HTML unchanged",
			html:     "<html><head></head><body>Hello</body></html>",
			css:      "",
			expected: "<html><head></head><body>Hello</body></html>",
		},
		{
			name:     "injects before </head>",
			html:     "<html><head></head><body>Hello</body></html>",
			css:      "pre { margin: 0; }",
			expected: "<html><head><style>pre { margin: 0; }</style></head><body>Hello</body></html>",
		},
		{
			name:     "injects after <body> with attributes",
			html:     `<html><body class="main">Hello</body></html>`,
			css:      "pre { margin: 0; }",
			expected: `<html><body class="main"><style>pre { margin: 0; }</style>Hello</body></html>`,
		},
		{
			name:     "prepends to bare fragment",
			html:     "<p>x</p>",
			css:      "p { color: blue; }",
			expected: "<style>p { color: blue; }</style><p>x</p>",
		},
		{
			name:     "sanitizes CSS with closing tags",
			html:     "<html><head></head><body>Hello</body></html>",
			css:      "</style><script>alert('xss')</script>",
			expected: `<html><head><style><\/style><script>alert('xss')<\/script></style></head><body>Hello</body></html>`,
		},
	}

	injector := &CSSInjection{}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := injector.InjectCSS(context.Background(), tt.html, tt.css)
			if got != tt.expected {
				t.Errorf("InjectCSS() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInjectCSS_ContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	html := "<html><head></head><body>Hello</body></html>"
	got := (&CSSInjection{}).InjectCSS(ctx, html, "body { color: red; }")
	if got != html {
		t.Errorf("InjectCSS() with cancelled context should return HTML unchanged, got %q", got)
	}
}

func TestWrapDocument(t *testing.T) {
	t.Parallel()

	t.Run("escapes title", func(t *testing.T) {
		t.Parallel()

		got := WrapDocument("<b>Answer</b>", "<p>x</p>")
		if !strings.Contains(got, "<title>&lt;b&gt;Answer&lt;/b&gt;</title>") {
			t.Errorf("title not escaped: %q", got)
		}
		if !strings.Contains(got, "<p>x</p>") {
			t.Errorf("fragment missing: %q", got)
		}
	})

	t.Run("default title", func(t *testing.T) {
		t.Parallel()

		got := WrapDocument("", "")
		if !strings.Contains(got, "<title>Document</title>") {
			t.Errorf("expected default title, got %q", got)
		}
	})
}
