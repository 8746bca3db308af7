// Package export renders transcripts to PDF and manages the export directory.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/xiaot623/pairtalk/internal/domain"
	"github.com/xiaot623/pairtalk/internal/pairing"
)

// HeaderLines is the number of metadata lines above the transcript.
const HeaderLines = 2

const (
	lineHeight   = 8.0
	columnWidth  = 120.0
	headerHeight = 10.0
)

// Exporter writes documents into dir and moves them to archiveDir.
type Exporter struct {
	dir        string
	archiveDir string
	catalogues pairing.Catalogues
	now        func() time.Time
}

// NewExporter creates both directories if needed.
func NewExporter(dir, archiveDir string, catalogues pairing.Catalogues) (*Exporter, error) {
	for _, d := range []string{dir, archiveDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", d, err)
		}
	}
	if catalogues == nil {
		catalogues = pairing.DefaultCatalogues()
	}
	return &Exporter{dir: dir, archiveDir: archiveDir, catalogues: catalogues, now: time.Now}, nil
}

// Dir returns the export directory.
func (e *Exporter) Dir() string { return e.dir }

// ArchiveDir returns the archive directory.
func (e *Exporter) ArchiveDir() string { return e.archiveDir }

// Header returns the localised topic and participant lines for pair.
func (e *Exporter) Header(pair domain.Pair) []string {
	cat, err := e.catalogues.Get(pair.Language)
	if err != nil {
		cat, _ = e.catalogues.Get(string(domain.LanguageGerman))
	}
	return []string{
		cat.TopicLabel + ": " + pair.Topic,
		cat.ParticipantsLabel + ": " + pair.Name(),
	}
}

// RenderPDF writes <dir>/<pair key>.pdf. Lines authored by viewer are placed
// on the left, all others on the right.
func (e *Exporter) RenderPDF(pair domain.Pair, raw []string, viewer string) (*domain.Document, error) {
	if len(raw) == 0 {
		return nil, domain.ErrNoTranscript
	}
	header := e.Header(pair)
	view := domain.Project(raw, pair, viewer)

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(pair.Name(), true)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 12)

	for _, h := range header {
		pdf.CellFormat(0, headerHeight, tr(h), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)

	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	for _, line := range view {
		if line.Side == domain.SideLeft {
			pdf.SetX(left)
			pdf.MultiCell(columnWidth, lineHeight, tr(line.Raw), "", "L", false)
			continue
		}
		pdf.SetX(pageWidth - right - columnWidth)
		pdf.MultiCell(columnWidth, lineHeight, tr(line.Raw), "", "R", false)
	}

	path := filepath.Join(e.dir, pair.Key()+".pdf")
	if err := pdf.OutputFileAndClose(path); err != nil {
		return nil, domain.NewStorageError("write pdf", err)
	}

	lines := make([]string, 0, len(header)+len(view))
	lines = append(lines, header...)
	for _, l := range view {
		lines = append(lines, l.Raw)
	}
	return &domain.Document{
		Name:  filepath.Base(path),
		Path:  path,
		Lines: lines,
	}, nil
}
