package typeset

// Delimiter marks the start and end of a math expression in text.
type Delimiter struct {
	Left    string
	Right   string
	Display bool
}

// DefaultDelimiters covers the four conventions the renderer protects.
// Longer openers come first so "$$" is never read as two "$".
var DefaultDelimiters = []Delimiter{
	{Left: "$$", Right: "$$", Display: true},
	{Left: `\[`, Right: `\]`, Display: true},
	{Left: `\(`, Right: `\)`, Display: false},
	{Left: "$", Right: "$", Display: false},
}
