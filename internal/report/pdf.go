package report

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"example.com/milbus/internal/rules"
)

// PDFOptions tunes the rendered document.
type PDFOptions struct {
	Title       string
	MaxFindings int
	SkipQR      bool
}

const defaultMaxFindings = 200

// SavePDF renders the scan report into a PDF document. The first page carries
// a QR code of the capture digest unless SkipQR is set.
func SavePDF(rep ScanReport, out string, opts PDFOptions) error {
	title := emptyFallback(opts.Title, "1553 Bus Scan Report")
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetAuthor("milbusctl", false)
	pdf.SetCreator("milbusctl", false)
	pdf.SetMargins(15, 20, 15)
	pdf.SetAutoPageBreak(true, 20)
	pdf.AddPage()

	addPDFTitle(pdf, title)
	if !opts.SkipQR && rep.Input.SHA256 != "" {
		if err := addDigestQR(pdf, rep.Input.SHA256); err != nil {
			return err
		}
	}
	addInputSection(pdf, rep)
	addTrafficSection(pdf, rep.Traffic)
	addSummarySection(pdf, rep.Acceptance)
	addGateMatrixSection(pdf, rep.Acceptance.GateMatrix)
	addTerminalSection(pdf, rep.Terminals)
	limit := opts.MaxFindings
	if limit <= 0 {
		limit = defaultMaxFindings
	}
	addFindingsSection(pdf, actionable(rep.Acceptance.Findings), limit)

	if pdf.Err() {
		return pdf.Error()
	}
	return pdf.OutputFileAndClose(out)
}

func addPDFTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)
}

func addDigestQR(pdf *gofpdf.Fpdf, digest string) error {
	png, err := DigestToQR(digest, 256)
	if err != nil {
		return fmt.Errorf("digest qr: %w", err)
	}
	opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: false}
	pdf.RegisterImageOptionsReader("digest-qr", opts, bytes.NewReader(png))
	pageW, _ := pdf.GetPageSize()
	_, _, right, _ := pdf.GetMargins()
	pdf.ImageOptions("digest-qr", pageW-right-30, 15, 30, 30, false, opts, 0, "")
	return nil
}

func addKeyValues(pdf *gofpdf.Fpdf, heading string, items [][2]string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, heading)
	pdf.Ln(8)

	pdf.SetFont("Helvetica", "", 11)
	for _, item := range items {
		pdf.CellFormat(50, 6, item[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, item[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addInputSection(pdf *gofpdf.Fpdf, rep ScanReport) {
	addKeyValues(pdf, "Capture", [][2]string{
		{"Report ID", emptyFallback(rep.ID, "-")},
		{"Generated", rep.Generated.Format(time.RFC3339)},
		{"File", emptyFallback(rep.Input.Path, "-")},
		{"Size", strconv.FormatInt(rep.Input.Size, 10) + " bytes"},
		{"SHA-256", emptyFallback(shortDigest(rep.Input.SHA256), "-")},
		{"Dictionary", emptyFallback(rep.Dictionary, "none")},
	})
}

func addTrafficSection(pdf *gofpdf.Fpdf, t Traffic) {
	addKeyValues(pdf, "Traffic", [][2]string{
		{"Packets", strconv.Itoa(t.Packets)},
		{"1553 Packets", strconv.Itoa(t.BusPackets)},
		{"Messages", strconv.Itoa(t.Messages)},
		{"Bus A / B", fmt.Sprintf("%d / %d", t.BusA, t.BusB)},
		{"Incomplete", strconv.Itoa(t.Incomplete)},
		{"Decode Failures", strconv.Itoa(t.DecodeFailures)},
	})
}

func addSummarySection(pdf *gofpdf.Fpdf, rep rules.AcceptanceReport) {
	addKeyValues(pdf, "Summary", [][2]string{
		{"Total Diagnostics", strconv.Itoa(rep.Summary.Total)},
		{"Errors", strconv.Itoa(rep.Summary.Errors)},
		{"Warnings", strconv.Itoa(rep.Summary.Warnings)},
		{"Overall", passLabel(rep.Summary.Pass)},
	})
}

func addGateMatrixSection(pdf *gofpdf.Fpdf, rows []rules.GateResult) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Gate Matrix")
	pdf.Ln(9)

	headers := []string{"Rule", "Severity", "Pass", "Findings"}
	widths := []float64{50, 40, 40, 50}
	addTableHeader(pdf, headers, widths)
	for _, row := range rows {
		values := []string{
			row.RuleId,
			severityLabel(row.Severity),
			passLabel(row.Pass),
			strconv.Itoa(row.Findings),
		}
		renderTableRow(pdf, widths, values, 5)
	}
	pdf.Ln(4)
}

func addTerminalSection(pdf *gofpdf.Fpdf, rows []TerminalStats) {
	if len(rows) == 0 {
		return
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Terminals")
	pdf.Ln(9)

	headers := []string{"RT", "SA", "T/R", "Messages", "Errors"}
	widths := []float64{30, 30, 30, 45, 45}
	addTableHeader(pdf, headers, widths)
	for _, row := range rows {
		values := []string{
			strconv.Itoa(int(row.RT)),
			strconv.Itoa(int(row.SA)),
			row.Direction,
			strconv.Itoa(row.Messages),
			strconv.Itoa(row.Errors),
		}
		renderTableRow(pdf, widths, values, 5)
	}
	pdf.Ln(4)
}

func addTableHeader(pdf *gofpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 10)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
}

func addFindingsSection(pdf *gofpdf.Fpdf, findings []rules.Diagnostic, limit int) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, "Findings")
	pdf.Ln(9)

	if len(findings) == 0 {
		pdf.SetFont("Helvetica", "", 11)
		pdf.MultiCell(0, 6, "No findings recorded.", "", "L", false)
		return
	}

	for i, d := range findings {
		if i == limit {
			pdf.SetFont("Helvetica", "I", 10)
			pdf.MultiCell(0, 5, fmt.Sprintf("%d more findings omitted.", len(findings)-limit), "", "L", false)
			return
		}
		pdf.SetFont("Helvetica", "B", 10)
		header := fmt.Sprintf("%d. %s (%s)", i+1, d.RuleId, severityLabel(d.Severity))
		pdf.MultiCell(0, 5, header, "", "L", false)

		if msg := strings.TrimSpace(d.Message); msg != "" {
			pdf.SetFont("Helvetica", "", 10)
			pdf.MultiCell(0, 5, msg, "", "L", false)
		}

		if meta := findingMetadata(d); meta != "" {
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 4, meta, "", "L", false)
		}

		if len(d.Refs) > 0 {
			pdf.SetFont("Helvetica", "", 9)
			pdf.MultiCell(0, 4, "Refs: "+strings.Join(d.Refs, ", "), "", "L", false)
		}

		pdf.Ln(2)
	}
}

func renderTableRow(pdf *gofpdf.Fpdf, widths []float64, values []string, lineHeight float64) {
	xStart := pdf.GetX()
	yStart := pdf.GetY()
	maxLines := 1
	splitCols := make([][]string, len(values))
	for i, val := range values {
		text := strings.TrimSpace(val)
		if text == "" {
			text = "-"
		}
		lines := pdf.SplitText(text, widths[i]-2)
		if len(lines) == 0 {
			lines = []string{""}
		}
		splitCols[i] = lines
		if len(lines) > maxLines {
			maxLines = len(lines)
		}
	}
	rowHeight := float64(maxLines) * lineHeight
	x := xStart
	for i, lines := range splitCols {
		pdf.SetXY(x, yStart)
		pdf.MultiCell(widths[i], lineHeight, strings.Join(lines, "\n"), "1", "L", false)
		x += widths[i]
	}
	pdf.SetXY(xStart, yStart+rowHeight)
}

// actionable drops the per-rule "ok" lines.
func actionable(diags []rules.Diagnostic) []rules.Diagnostic {
	out := make([]rules.Diagnostic, 0, len(diags))
	for _, d := range diags {
		if d.Severity != rules.INFO {
			out = append(out, d)
		}
	}
	return out
}

func passLabel(pass bool) string {
	if pass {
		return "PASS"
	}
	return "FAIL"
}

func severityLabel(sev rules.Severity) string {
	if s := strings.TrimSpace(string(sev)); s != "" {
		return s
	}
	return "UNKNOWN"
}

func emptyFallback(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}

func shortDigest(d string) string {
	if len(d) <= 16 {
		return d
	}
	return d[:16] + "..."
}

func findingMetadata(d rules.Diagnostic) string {
	parts := make([]string, 0, 6)
	if d.ChannelId != 0 {
		parts = append(parts, fmt.Sprintf("Channel %d", d.ChannelId))
	}
	if d.PacketIndex != 0 {
		parts = append(parts, fmt.Sprintf("Packet %d", d.PacketIndex))
	}
	if d.Offset != "" {
		parts = append(parts, "Offset "+d.Offset)
	}
	if d.Bus != "" {
		parts = append(parts, "Bus "+d.Bus)
	}
	if d.Command != "" {
		parts = append(parts, d.Command)
	}
	if d.TimestampUs != nil {
		parts = append(parts, fmt.Sprintf("Timestamp %dus", *d.TimestampUs))
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, " | ")
}
