package assets

// DefaultStyleName is the built-in stylesheet used when none is configured.
const DefaultStyleName = "default"

// StyleLoader loads a CSS stylesheet by name, without the .css extension.
// Implementations return ErrStyleNotFound for unknown names and
// ErrInvalidAssetName for names that are not plain identifiers.
type StyleLoader interface {
	LoadStyle(name string) (string, error)
}
