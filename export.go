package mathdown

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/alnah/go-mathdown/internal/fileutil"
	"github.com/alnah/go-mathdown/internal/process"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// DefaultExportTimeout bounds page loading when the context has no deadline.
const DefaultExportTimeout = 30 * time.Second

// pdfRenderer renders a local HTML file to PDF.
type pdfRenderer interface {
	RenderFromFile(ctx context.Context, filePath string, page *PageSettings) ([]byte, error)
	Close() error
}

// Compile-time interface check.
var _ pdfRenderer = (*rodRenderer)(nil)

// Paper dimensions in inches, portrait.
var paperSizes = map[string][2]float64{
	PageSizeLetter: {8.5, 11},
	PageSizeA4:     {8.27, 11.69},
	PageSizeLegal:  {8.5, 14},
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithExportTimeout sets the page load timeout.
func WithExportTimeout(d time.Duration) ExporterOption {
	return func(e *Exporter) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithPageSettings sets paper size, orientation and margins.
func WithPageSettings(p *PageSettings) ExporterOption {
	return func(e *Exporter) {
		if p != nil {
			e.page = p
		}
	}
}

// withRenderer replaces the browser, for tests.
func withRenderer(r pdfRenderer) ExporterOption {
	return func(e *Exporter) {
		e.renderer = r
	}
}

// Exporter prints HTML documents to PDF with headless Chrome. The browser
// is started on first use; rod downloads Chromium if none is found.
// Exports on one Exporter run one at a time; use ExporterPool for
// parallelism.
type Exporter struct {
	timeout  time.Duration
	page     *PageSettings
	renderer pdfRenderer

	mu sync.Mutex
}

// NewExporter creates an Exporter. It fails only on invalid page settings.
func NewExporter(opts ...ExporterOption) (*Exporter, error) {
	e := &Exporter{
		timeout: DefaultExportTimeout,
		page:    DefaultPageSettings(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.page.Validate(); err != nil {
		return nil, err
	}
	if e.renderer == nil {
		e.renderer = newRodRenderer(e.timeout)
	}
	return e, nil
}

// ExportPDF prints document, a complete HTML page such as the one Document
// returns, and returns the PDF bytes.
func (e *Exporter) ExportPDF(ctx context.Context, document string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	tmpPath, cleanup, err := fileutil.WriteTempFile(document, "html")
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return e.renderer.RenderFromFile(ctx, tmpPath, e.page)
}

// Close releases browser resources.
func (e *Exporter) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.renderer.Close()
}

// rodRenderer implements pdfRenderer using go-rod.
type rodRenderer struct {
	browser  *rod.Browser
	launcher *launcher.Launcher
	timeout  time.Duration
}

func newRodRenderer(timeout time.Duration) *rodRenderer {
	return &rodRenderer{timeout: timeout}
}

// ensureBrowser lazily starts and connects to the browser.
func (r *rodRenderer) ensureBrowser() error {
	if r.browser != nil {
		return nil
	}

	l := launcher.New()

	// Pre-installed browser (Docker/containerized environments)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}

	// NoSandbox required for CI and containerized environments
	if os.Getenv("CI") == "true" || os.Getenv("ROD_BROWSER_BIN") != "" || os.Getenv("ROD_NO_SANDBOX") == "1" {
		l = l.NoSandbox(true)
	}

	u, err := l.Launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}

	r.browser = browser
	r.launcher = l
	return nil
}

// Close shuts the browser down and kills any Chrome child left behind.
func (r *rodRenderer) Close() error {
	var err error
	if r.browser != nil {
		err = r.browser.Close()
		r.browser = nil
	}
	if r.launcher != nil {
		// launcher.Kill only reaches the browser itself.
		_ = process.KillTree(r.launcher.PID())
		r.launcher.Kill()
		r.launcher = nil
	}
	return err
}

// RenderFromFile opens a local HTML file in headless Chrome and prints it.
func (r *rodRenderer) RenderFromFile(ctx context.Context, filePath string, page *PageSettings) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := r.ensureBrowser(); err != nil {
		return nil, err
	}

	p, err := r.browser.Page(proto.TargetCreateTarget{URL: "file://" + filePath})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	defer p.Close()

	timeout := r.timeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}

	if err := p.Timeout(timeout).WaitLoad(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageLoad, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := p.PDF(buildPDFOptions(page))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFGeneration, err)
	}

	pdfBuf, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: reading PDF stream: %v", ErrPDFGeneration, err)
	}
	return pdfBuf, nil
}

// buildPDFOptions maps page settings to Chrome print options. Nil means
// defaults.
func buildPDFOptions(page *PageSettings) *proto.PagePrintToPDF {
	if page == nil {
		page = DefaultPageSettings()
	}

	size, ok := paperSizes[strings.ToLower(page.Size)]
	if !ok {
		size = paperSizes[PageSizeLetter]
	}
	width, height := size[0], size[1]
	landscape := strings.ToLower(page.Orientation) == OrientationLandscape
	if landscape {
		width, height = height, width
	}

	return &proto.PagePrintToPDF{
		PaperWidth:      floatPtr(width),
		PaperHeight:     floatPtr(height),
		MarginTop:       floatPtr(page.Margin),
		MarginBottom:    floatPtr(page.Margin),
		MarginLeft:      floatPtr(page.Margin),
		MarginRight:     floatPtr(page.Margin),
		PrintBackground: true,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}
