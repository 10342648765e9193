// Package pdf renders aggregated datasets into fixed-layout paginated
// documents. The layout reproduces the historical reports exactly:
// landscape A4, bordered cells, amounts with zero decimal places.
package pdf

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"noctambul/internal/report"
)

// noDataLine is the explicit empty-state placeholder, part of the
// visual contract.
const noDataLine = "Aucune donnée disponible pour ce rapport."

// Section is one labeled table of the document. A nil Data renders the
// empty-state placeholder under the section label.
type Section struct {
	Label string
	Data  *report.Dataset
}

type Renderer struct {
	dir string
	now func() time.Time
}

// NewRenderer writes documents into dir, creating it on first use.
func NewRenderer(dir string) *Renderer {
	return &Renderer{dir: dir, now: time.Now}
}

// Slug normalizes a report title for use in a filename: spaces become
// underscores, letters are lowercased.
func Slug(title string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(title), " ", "_"))
}

// Filename builds the timestamped name for a report, second precision.
// Two generations within the same second collide; single-operator usage
// makes that acceptable.
func (r *Renderer) Filename(title string) string {
	return fmt.Sprintf("%s_%s.pdf", Slug(title), r.now().Format("20060102_150405"))
}

// Render produces the document bytes for a titled set of sections.
func (r *Renderer) Render(title string, sections []Section) ([]byte, error) {
	doc := fpdf.New("L", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.AddPage()

	doc.SetFont("Arial", "B", 16)
	banner := fmt.Sprintf("%s - %s", title, r.now().Format("02/01/2006 15:04"))
	doc.CellFormat(0, 10, tr(banner), "", 1, "C", false, 0, "")
	doc.Ln(10)

	pageWidth, _ := doc.GetPageSize()
	for i, section := range sections {
		if i > 0 {
			doc.Ln(8)
		}
		if section.Label != "" && section.Label != title {
			doc.SetFont("Arial", "B", 12)
			doc.CellFormat(0, 8, tr(section.Label), "", 1, "L", false, 0, "")
		}
		if section.Data == nil {
			doc.SetFont("Arial", "I", 12)
			doc.CellFormat(0, 10, tr(noDataLine), "", 1, "C", false, 0, "")
			continue
		}
		renderDataset(doc, tr, pageWidth, section.Data)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func renderDataset(doc *fpdf.Fpdf, tr func(string) string, pageWidth float64, ds *report.Dataset) {
	colWidth := pageWidth / (float64(len(ds.Columns)) + 0.5)

	doc.SetFont("Arial", "B", 10)
	for _, col := range ds.Columns {
		doc.CellFormat(colWidth, 10, tr(col), "1", 0, "C", false, 0, "")
	}
	doc.Ln(-1)

	if len(ds.Groups) > 0 {
		for _, g := range ds.Groups {
			doc.SetFont("Arial", "B", 9)
			doc.CellFormat(colWidth*float64(len(ds.Columns)), 8, tr(g.Key), "1", 1, "L", false, 0, "")
			doc.SetFont("Arial", "", 9)
			for _, row := range g.Rows {
				renderRow(doc, tr, colWidth, row)
			}
			doc.SetFont("Arial", "B", 9)
			renderRow(doc, tr, colWidth, g.Totals)
		}
		return
	}

	doc.SetFont("Arial", "", 9)
	for _, row := range ds.Rows {
		renderRow(doc, tr, colWidth, row)
	}

	if ds.TotalColumn >= 0 {
		totals := make(report.Row, len(ds.Columns))
		totals[0] = report.Cell{Text: "TOTAL"}
		totals[ds.TotalColumn] = report.Cell{Text: fmt.Sprintf("%.0f", float64(ds.Total)), Numeric: true}
		doc.SetFont("Arial", "B", 9)
		renderRow(doc, tr, colWidth, totals)
	}
}

func renderRow(doc *fpdf.Fpdf, tr func(string) string, colWidth float64, row report.Row) {
	for _, cell := range row {
		align := "L"
		if cell.Numeric {
			align = "R"
		}
		doc.CellFormat(colWidth, 10, tr(cell.Text), "1", 0, align, false, 0, "")
	}
	doc.Ln(-1)
}

// WriteFile renders the document and writes it under the reports
// directory, returning the full path.
func (r *Renderer) WriteFile(title string, sections []Section) (string, error) {
	data, err := r.Render(title, sections)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	path := filepath.Join(r.dir, r.Filename(title))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return path, nil
}

// Bundle zips the given report files under the reports directory and
// returns the archive path. Entries are stored by basename.
func (r *Renderer) Bundle(name string, paths []string) (string, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", fmt.Errorf("create reports directory: %w", err)
	}
	zipPath := filepath.Join(r.dir, fmt.Sprintf("%s_%s.zip", name, r.now().Format("20060102_150405")))

	f, err := os.Create(zipPath)
	if err != nil {
		return "", fmt.Errorf("create archive: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	for _, path := range paths {
		src, err := os.Open(path)
		if err != nil {
			zw.Close()
			return "", fmt.Errorf("open report %s: %w", path, err)
		}
		entry, err := zw.Create(filepath.Base(path))
		if err != nil {
			src.Close()
			zw.Close()
			return "", fmt.Errorf("create archive entry: %w", err)
		}
		if _, err := io.Copy(entry, src); err != nil {
			src.Close()
			zw.Close()
			return "", fmt.Errorf("write archive entry: %w", err)
		}
		src.Close()
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("close archive: %w", err)
	}
	return zipPath, nil
}
