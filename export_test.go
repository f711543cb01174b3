package mathdown

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestBuildPDFOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		page       *PageSettings
		wantWidth  float64
		wantHeight float64
		wantMargin float64
	}{
		{name: "nil uses letter portrait", page: nil, wantWidth: 8.5, wantHeight: 11, wantMargin: DefaultMargin},
		{name: "a4 portrait", page: &PageSettings{Size: PageSizeA4, Orientation: OrientationPortrait, Margin: 1}, wantWidth: 8.27, wantHeight: 11.69, wantMargin: 1},
		{name: "legal landscape swaps sides", page: &PageSettings{Size: PageSizeLegal, Orientation: OrientationLandscape, Margin: 0.75}, wantWidth: 14, wantHeight: 8.5, wantMargin: 0.75},
		{name: "case insensitive", page: &PageSettings{Size: "A4", Orientation: "LANDSCAPE", Margin: 0.5}, wantWidth: 11.69, wantHeight: 8.27, wantMargin: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			opts := buildPDFOptions(tt.page)
			if *opts.PaperWidth != tt.wantWidth || *opts.PaperHeight != tt.wantHeight {
				t.Errorf("paper = %vx%v, want %vx%v", *opts.PaperWidth, *opts.PaperHeight, tt.wantWidth, tt.wantHeight)
			}
			for _, m := range []*float64{opts.MarginTop, opts.MarginBottom, opts.MarginLeft, opts.MarginRight} {
				if *m != tt.wantMargin {
					t.Errorf("margin = %v, want %v", *m, tt.wantMargin)
				}
			}
			if !opts.PrintBackground {
				t.Error("PrintBackground should be set")
			}
		})
	}
}

func TestNewExporter(t *testing.T) {
	t.Parallel()

	t.Run("invalid page settings", func(t *testing.T) {
		t.Parallel()

		_, err := NewExporter(WithPageSettings(&PageSettings{Size: "tabloid", Orientation: OrientationPortrait, Margin: 1}))
		if !errors.Is(err, ErrInvalidPageSize) {
			t.Errorf("NewExporter() error = %v, want ErrInvalidPageSize", err)
		}
	})

	t.Run("options", func(t *testing.T) {
		t.Parallel()

		page := &PageSettings{Size: PageSizeA4, Orientation: OrientationLandscape, Margin: 1}
		e, err := NewExporter(WithExportTimeout(5*time.Second), WithPageSettings(page), WithExportTimeout(0))
		if err != nil {
			t.Fatalf("NewExporter() error = %v", err)
		}
		if e.timeout != 5*time.Second {
			t.Errorf("timeout = %v, want 5s", e.timeout)
		}
		if e.page != page {
			t.Error("page settings not applied")
		}
	})

	t.Run("browser starts lazily", func(t *testing.T) {
		t.Parallel()

		e, err := NewExporter()
		if err != nil {
			t.Fatalf("NewExporter() error = %v", err)
		}
		rr, ok := e.renderer.(*rodRenderer)
		if !ok {
			t.Fatalf("renderer = %T, want *rodRenderer", e.renderer)
		}
		if rr.browser != nil {
			t.Error("browser started before first export")
		}
		if err := e.Close(); err != nil {
			t.Errorf("Close() on unused exporter error = %v", err)
		}
	})
}

func TestExporter_ExportPDF(t *testing.T) {
	t.Parallel()

	t.Run("prints the document", func(t *testing.T) {
		t.Parallel()

		fake := &fakePDFRenderer{pdf: []byte("%PDF-1.7")}
		e, err := NewExporter(withRenderer(fake))
		if err != nil {
			t.Fatal(err)
		}

		doc := Document("Answer", "<p>$x$</p>", "")
		pdf, err := e.ExportPDF(context.Background(), doc)
		if err != nil {
			t.Fatalf("ExportPDF() error = %v", err)
		}
		if string(pdf) != "%PDF-1.7" {
			t.Errorf("ExportPDF() = %q", pdf)
		}
		if len(fake.html) != 1 || fake.html[0] != doc {
			t.Errorf("renderer saw %q, want the document", fake.html)
		}
		if fake.pages[0].Size != PageSizeLetter {
			t.Errorf("page = %+v, want defaults", fake.pages[0])
		}
	})

	t.Run("renderer error", func(t *testing.T) {
		t.Parallel()

		fake := &fakePDFRenderer{err: ErrPageLoad}
		e, err := NewExporter(withRenderer(fake))
		if err != nil {
			t.Fatal(err)
		}
		if _, err := e.ExportPDF(context.Background(), "<html></html>"); !errors.Is(err, ErrPageLoad) {
			t.Errorf("ExportPDF() error = %v, want ErrPageLoad", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		t.Parallel()

		fake := &fakePDFRenderer{}
		e, err := NewExporter(withRenderer(fake))
		if err != nil {
			t.Fatal(err)
		}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := e.ExportPDF(ctx, "<html></html>"); !errors.Is(err, context.Canceled) {
			t.Errorf("ExportPDF() error = %v, want context.Canceled", err)
		}
		if len(fake.html) != 0 {
			t.Error("renderer called with cancelled context")
		}
	})

	t.Run("close delegates", func(t *testing.T) {
		t.Parallel()

		fake := &fakePDFRenderer{closeErr: errors.New("still running")}
		e, err := NewExporter(withRenderer(fake))
		if err != nil {
			t.Fatal(err)
		}
		if err := e.Close(); err == nil || !strings.Contains(err.Error(), "still running") {
			t.Errorf("Close() error = %v", err)
		}
		if fake.closed != 1 {
			t.Errorf("closed = %d, want 1", fake.closed)
		}
	})
}
