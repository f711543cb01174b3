// Package assets provides the stylesheets used for standalone HTML and PDF
// output.
//
// Styles come from one of three loaders behind the StyleLoader interface:
//
//	StyleLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - built-in styles compiled into the binary
//	    ├── FilesystemLoader  - {basePath}/styles/{name}.css on disk
//	    └── Resolver          - filesystem first, embedded on not-found
//
// Style names are plain identifiers. FilesystemLoader resolves symlinks and
// refuses any path that leaves its base directory.
package assets
