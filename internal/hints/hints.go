// Package hints appends actionable advice to CLI errors. Every hint reads
// "\n  hint: <text>" so it can follow the error on its own line.
package hints

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/alnah/go-mathdown/internal/fileutil"
)

// ciVars are set by the CI services whose runners lack a Chrome sandbox.
var ciVars = []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "JENKINS_URL"}

// Env is what environment-dependent hints inspect.
type Env struct {
	Getenv      func(key string) string
	InContainer func() bool
}

// System reads the process environment. A container is detected by the
// /.dockerenv file Docker creates.
func System() Env {
	return Env{
		Getenv:      os.Getenv,
		InContainer: func() bool { return fileutil.FileExists("/.dockerenv") },
	}
}

func (e Env) inCI() bool {
	for _, k := range ciVars {
		if e.Getenv(k) != "" {
			return true
		}
	}
	return false
}

// BrowserConnect returns hints for a browser that failed to start.
func (e Env) BrowserConnect() string {
	var hints []string

	if (e.inCI() || e.InContainer()) && e.Getenv("ROD_NO_SANDBOX") != "1" {
		hints = append(hints, "set ROD_NO_SANDBOX=1 in Docker or CI")
	}
	if e.Getenv("ROD_BROWSER_BIN") == "" {
		hints = append(hints, "set ROD_BROWSER_BIN to an installed Chrome")
	}
	hints = append(hints, "--format html needs no browser")

	return formatHints(hints)
}

// ForBrowserConnect is System().BrowserConnect().
func ForBrowserConnect() string {
	return System().BrowserConnect()
}

// ForTimeout returns a hint for a page that did not load in time.
func ForTimeout() string {
	return format("raise the limit, e.g. --timeout 2m")
}

// ForMathExpression returns hints for expressions the engine rejected.
func ForMathExpression() string {
	return format("check the TeX syntax; define missing commands under typeset.macros in the config")
}

// ForConfigNotFound suggests --config, and the user config location when
// searchedPaths includes one.
func ForConfigNotFound(searchedPaths []string) string {
	hint := "use --config /path/to/file.yaml"

	// Relative entries are the working directory; the first absolute one
	// is the per-user location.
	for _, p := range searchedPaths {
		if filepath.IsAbs(p) {
			hint += " or create " + p
			break
		}
	}

	return format(hint)
}

// ForOutputDirectory returns hints for output directory creation errors.
func ForOutputDirectory() string {
	return format("check that the parent directory exists and is writable")
}

// ForStyleNotFound lists the embedded styles.
func ForStyleNotFound(available []string) string {
	if len(available) == 0 {
		return format("pass a CSS file path with --style")
	}
	return formatHints([]string{
		"available: " + strings.Join(available, ", "),
		"or add styles/NAME.css under --asset-path",
	})
}

// ForNoInput returns hints for a missing Markdown input.
func ForNoInput() string {
	return format("pass a .md file or directory, or pipe the model output on stdin")
}

func format(hint string) string {
	if hint == "" {
		return ""
	}
	return "\n  hint: " + hint
}

func formatHints(hints []string) string {
	if len(hints) == 0 {
		return ""
	}
	return format(strings.Join(hints, "; "))
}
