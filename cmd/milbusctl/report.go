package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"example.com/milbus/internal/report"
)

// runReport re-renders a saved scan report, JSON or CBOR, as PDF.
func runReport(args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("report")
	in := fs.String("in", "", "scan report (.json or .cbor)")
	pdfPath := fs.String("pdf", "", "PDF output")
	noQR := fs.Bool("no-qr", false, "omit the capture digest QR code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" || *pdfPath == "" {
		return errors.New("required: --in and --pdf")
	}
	cfg, closer, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	var rep report.ScanReport
	if strings.EqualFold(filepath.Ext(*in), ".cbor") {
		rep, err = report.LoadCBOR(*in)
	} else {
		rep, err = report.LoadJSON(*in)
	}
	if err != nil {
		return fmt.Errorf("load report: %w", err)
	}
	opts := report.PDFOptions{Title: cfg.Report.Title, MaxFindings: cfg.Report.MaxFindings, SkipQR: *noQR}
	if err := report.SavePDF(rep, *pdfPath, opts); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "PDF written to %s\n", *pdfPath)
	return nil
}
