package mathdown

import (
	"context"

	"github.com/alnah/go-mathdown/internal/assets"
	"github.com/alnah/go-mathdown/internal/pipeline"
)

// DefaultStyle is the name of the embedded stylesheet used by Document.
const DefaultStyle = assets.DefaultStyleName

// Document wraps a rendered fragment in a standalone HTML5 page with css
// in its head. The title is escaped; fragment must come from Render,
// RenderStatic or View.HTML.
func Document(title, fragment, css string) string {
	page := pipeline.WrapDocument(title, fragment)
	return (&pipeline.CSSInjection{}).InjectCSS(context.Background(), page, css)
}

// LoadStyle returns the stylesheet called name. When dir is not empty,
// dir/styles/NAME.css takes precedence over the embedded styles.
func LoadStyle(name, dir string) (string, error) {
	if name == "" {
		name = DefaultStyle
	}
	resolver, err := assets.NewResolver(dir)
	if err != nil {
		return "", err
	}
	return resolver.LoadStyle(name)
}

// Styles lists the embedded stylesheet names.
func Styles() []string {
	return assets.NewEmbeddedLoader().Styles()
}
