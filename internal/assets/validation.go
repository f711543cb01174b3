package assets

import (
	"fmt"
	"strings"
)

// ValidateAssetName rejects names that could select another file: empty
// names and names containing a separator or a dot.
func ValidateAssetName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidAssetName)
	}
	if strings.ContainsAny(name, "/\\.") {
		return fmt.Errorf("%w: %q", ErrInvalidAssetName, name)
	}
	return nil
}
