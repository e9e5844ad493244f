package legend

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/rmitchellscott/diamondperls/internal/apperr"
	"github.com/rmitchellscott/diamondperls/internal/locales"
	"github.com/rmitchellscott/diamondperls/internal/logging"
)

// Page geometry in millimeters.
const (
	pageWidth    = 210.0
	pageHeight   = 297.0
	pageMargin   = 15.0
	rowHeight    = 8.0
	titleHeight  = 10.0
	subtitleGap  = 8.0
	footerHeight = 10.0
	swatchSize   = 6.0
	fontFamily   = "Helvetica"
)

// Table columns: number, swatch, id, name, rgb, count.
var columnWidths = [...]float64{14, 14, 32, 62, 38, 20}

// PDFOptions controls report wording and metadata.
type PDFOptions struct {
	Locale  string
	Title   string // overrides the localized title when set
	Source  string // input file name shown in the document metadata
	Created time.Time
}

// rowsPerPage is the number of legend rows that fit below the page header.
func rowsPerPage() int {
	usable := pageHeight - 2*pageMargin - titleHeight - subtitleGap - rowHeight - footerHeight
	return int(usable / rowHeight)
}

// WritePDF renders l as a paginated A4 table with a color swatch per row.
// An empty legend still yields a valid single-page document.
func WritePDF(w io.Writer, l *Legend, opts PDFOptions) error {
	pdf, err := buildPDF(l, opts)
	if err != nil {
		return err
	}
	if err := pdf.Output(w); err != nil {
		return apperr.New(apperr.KindIO, "write legend pdf", "", err)
	}
	logging.DebugWithComponent(logging.ComponentLegend, "Legend PDF written",
		"entries", l.Len(), "pages", pdf.PageNo(), "locale", opts.Locale)
	return nil
}

func buildPDF(l *Legend, opts PDFOptions) (*gofpdf.Fpdf, error) {
	lm, err := locales.Default()
	if err != nil {
		return nil, fmt.Errorf("failed to load report translations: %w", err)
	}
	t := func(key string) string { return lm.T(opts.Locale, key) }

	title := opts.Title
	if title == "" {
		title = t("legend.title")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(false, pageMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("diamondperls", false)
	if opts.Source != "" {
		pdf.SetSubject(opts.Source, true)
	}
	if !opts.Created.IsZero() {
		pdf.SetCreationDate(opts.Created)
	}
	pdf.AliasNbPages("")

	entries := l.entries
	subtitle := fmt.Sprintf(t("legend.subtitle"), len(entries), l.Cells())

	pdf.SetHeaderFunc(func() {
		pdf.SetXY(pageMargin, pageMargin)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFont(fontFamily, "B", 16)
		pdf.CellFormat(0, titleHeight, tr(title), "", 1, "L", false, 0, "")
		pdf.SetFont(fontFamily, "", 9)
		pdf.SetTextColor(90, 90, 90)
		pdf.CellFormat(0, subtitleGap, tr(subtitle), "", 1, "L", false, 0, "")
		if len(entries) == 0 {
			return
		}
		pdf.SetFont(fontFamily, "B", 9)
		pdf.SetTextColor(0, 0, 0)
		pdf.SetFillColor(230, 230, 230)
		headers := []string{t("legend.number"), t("legend.color"), t("legend.id"), t("legend.name"), t("legend.rgb"), t("legend.count")}
		for i, h := range headers {
			align := "L"
			if i == 0 || i == len(headers)-1 {
				align = "R"
			}
			pdf.CellFormat(columnWidths[i], rowHeight, tr(h), "B", 0, align, true, 0, "")
		}
		pdf.Ln(rowHeight)
	})
	pdf.SetFooterFunc(func() {
		pdf.SetY(-pageMargin - footerHeight/2)
		pdf.SetFont(fontFamily, "", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, footerHeight/2, tr(fmt.Sprintf(t("legend.page"), pdf.PageNo())), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	if len(entries) == 0 {
		pdf.SetFont(fontFamily, "I", 10)
		pdf.SetTextColor(60, 60, 60)
		pdf.CellFormat(0, rowHeight, tr(t("legend.empty")), "", 1, "L", false, 0, "")
	}

	perPage := rowsPerPage()
	for i, e := range entries {
		if i > 0 && i%perPage == 0 {
			pdf.AddPage()
		}
		drawRow(pdf, tr, e)
	}

	if err := pdf.Error(); err != nil {
		return nil, apperr.New(apperr.KindIO, "build legend pdf", "", err)
	}
	return pdf, nil
}

func drawRow(pdf *gofpdf.Fpdf, tr func(string) string, e Entry) {
	x, y := pdf.GetXY()
	number := strconv.Itoa(e.Number)

	pdf.SetFont(fontFamily, "", 9)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(columnWidths[0], rowHeight, number, "", 0, "R", false, 0, "")

	// Swatch with the number in a contrasting color.
	sx := x + columnWidths[0] + (columnWidths[1]-swatchSize)/2
	sy := y + (rowHeight-swatchSize)/2
	pdf.SetFillColor(int(e.RGB.R), int(e.RGB.G), int(e.RGB.B))
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.2)
	pdf.Rect(sx, sy, swatchSize, swatchSize, "FD")
	if e.RGB.IsLight() {
		pdf.SetTextColor(0, 0, 0)
	} else {
		pdf.SetTextColor(255, 255, 255)
	}
	pdf.SetFont(fontFamily, "B", 7)
	pdf.SetXY(sx, sy)
	pdf.CellFormat(swatchSize, swatchSize, number, "", 0, "C", false, 0, "")
	pdf.SetXY(x+columnWidths[0]+columnWidths[1], y)

	pdf.SetFont(fontFamily, "", 9)
	pdf.SetTextColor(60, 60, 60)
	pdf.CellFormat(columnWidths[2], rowHeight, tr(e.ID), "", 0, "L", false, 0, "")
	pdf.CellFormat(columnWidths[3], rowHeight, truncate(pdf, tr(e.Name), columnWidths[3]-1), "", 0, "L", false, 0, "")
	pdf.CellFormat(columnWidths[4], rowHeight, fmt.Sprintf("%d, %d, %d", e.RGB.R, e.RGB.G, e.RGB.B), "", 0, "L", false, 0, "")
	pdf.CellFormat(columnWidths[5], rowHeight, strconv.Itoa(e.Count), "", 1, "R", false, 0, "")
}

// truncate shortens an already translated single-byte string with an
// ellipsis until it fits width.
func truncate(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 0 && pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
