package pipeline

import "testing"

func TestCanonicalizeMath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "sqrt call",
			input:    "sqrt(27) * 3",
			expected: `$\sqrt{27}$ * 3`,
		},
		{
			name:     "coefficient radical",
			input:    "x = 2√3",
			expected: `x = $2\sqrt{3}$`,
		},
		{
			name:     "bare radical with group",
			input:    "√(x+1)",
			expected: `$\sqrt{x+1}$`,
		},
		{
			name:     "powers",
			input:    "x^2 + y^2",
			expected: "$x^{2}$ + $y^{2}$",
		},
		{
			name:     "parenthesized exponent",
			input:    "e^(i*pi)",
			expected: "$e^{i*pi}$",
		},
		{
			name:     "large numerator fraction",
			input:    "about 13/2 cups",
			expected: `about $\frac{13}{2}$ cups`,
		},
		{
			name:     "large denominator fraction",
			input:    "1/32 inch",
			expected: `$\frac{1}{32}$ inch`,
		},
		{
			name:     "small fraction may be a date",
			input:    "due 7/3",
			expected: "due 7/3",
		},
		{
			name:     "full date untouched",
			input:    "on 12/25/2024",
			expected: "on 12/25/2024",
		},
		{
			name:     "path segment untouched",
			input:    "GET /api/13/40",
			expected: "GET /api/13/40",
		},
		{
			name:     "existing inline math untouched",
			input:    "$x^2$ and sqrt(2)",
			expected: `$x^2$ and $\sqrt{2}$`,
		},
		{
			name:     "existing display math untouched",
			input:    "$$\\frac{13}{2}$$",
			expected: "$$\\frac{13}{2}$$",
		},
		{
			name:     "inline code untouched",
			input:    "run `x^2` now",
			expected: "run `x^2` now",
		},
		{
			name:     "fenced code untouched",
			input:    "```\nsqrt(4) 13/2\n```",
			expected: "```\nsqrt(4) 13/2\n```",
		},
		{
			name:     "no math",
			input:    "just words",
			expected: "just words",
		},
		{
			name:     "bare url untouched",
			input:    "https://x.com/a^b",
			expected: "https://x.com/a^b",
		},
		{
			name:     "www url untouched",
			input:    "www.example.com/a^b/13/40",
			expected: "www.example.com/a^b/13/40",
		},
		{
			name:     "autolink untouched",
			input:    "<https://x.com/2^10>",
			expected: "<https://x.com/2^10>",
		},
		{
			name:     "link destination untouched, prose rewritten",
			input:    "see [docs](/v2^3/x) and x^2",
			expected: "see [docs](/v2^3/x) and $x^{2}$",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := CanonicalizeMath(tt.input)
			if got != tt.expected {
				t.Errorf("CanonicalizeMath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestCanonicalizeMath_Stable(t *testing.T) {
	t.Parallel()

	inputs := []string{"sqrt(27) * 3", "x^2", "13/2", "2√3"}
	for _, in := range inputs {
		once := CanonicalizeMath(in)
		if twice := CanonicalizeMath(once); twice != once {
			t.Errorf("rewrite of %q not stable: %q then %q", in, once, twice)
		}
	}
}

func TestIsLikelyFraction(t *testing.T) {
	t.Parallel()

	tests := []struct {
		num, den int
		want     bool
	}{
		{7, 3, false},
		{12, 31, false},
		{13, 2, true},
		{1, 32, true},
		{12, 25, false},
	}

	for _, tt := range tests {
		if got := isLikelyFraction(tt.num, tt.den); got != tt.want {
			t.Errorf("isLikelyFraction(%d, %d) = %v, want %v", tt.num, tt.den, got, tt.want)
		}
	}
}
