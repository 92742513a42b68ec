package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"example.com/milbus/internal/common"
	"example.com/milbus/internal/config"
	"example.com/milbus/internal/dict"
	"example.com/milbus/internal/report"
	"example.com/milbus/internal/rules"
)

type scanOutputs struct {
	json        string
	cbor        string
	pdf         string
	diagnostics string
	acceptance  string
}

func runScan(args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("scan")
	in := fs.String("in", "", "input .ch10 capture")
	dictPath := fs.String("dict", "", "dictionary file (.json, .yaml)")
	rulesPath := fs.String("rules", "", "rule pack JSON (default: built-in checks)")
	var outs scanOutputs
	fs.StringVar(&outs.json, "out", "", "scan report JSON output")
	fs.StringVar(&outs.cbor, "cbor", "", "scan report CBOR output")
	fs.StringVar(&outs.pdf, "pdf", "", "scan report PDF output")
	fs.StringVar(&outs.diagnostics, "diagnostics", "", "diagnostics NDJSON output")
	fs.StringVar(&outs.acceptance, "acceptance", "", "acceptance report JSON output")
	progressFlag := fs.Bool("progress", false, "display scan progress updates")
	metricsFlag := fs.Bool("metrics", false, "print scan throughput metrics")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *in == "" {
		return errors.New("required: --in")
	}

	cfg, closer, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	if *dictPath != "" {
		cfg.Dictionary = *dictPath
	}
	if *rulesPath != "" {
		cfg.RulePack = *rulesPath
	}
	outs = outs.withDefaults(cfg, *in)

	rp := rules.DefaultRulePack()
	if cfg.RulePack != "" {
		if rp, err = rules.LoadRulePack(cfg.RulePack); err != nil {
			return fmt.Errorf("load rule pack: %w", err)
		}
	}
	engine := rules.NewEngine(rp)
	engine.RegisterBuiltins()
	engine.SetConfigValue("diag.include_timestamps", *cfg.Report.IncludeTimestamps)

	var metrics *common.Metrics
	if *metricsFlag || *progressFlag {
		metrics = common.NewMetrics()
	}
	ctx := &rules.Context{InputFile: *in, Metrics: metrics}
	if cfg.Dictionary != "" {
		store, err := dict.EnsureLoaded(cfg.Dictionary)
		if err != nil {
			return fmt.Errorf("load dictionary %s: %w", cfg.Dictionary, err)
		}
		ctx.Dict = store
		common.Logf("dictionary %s: %d entries", cfg.Dictionary, store.Len())
	}

	if metrics != nil {
		metrics.Start()
	}
	var stopProgress func()
	if metrics != nil && *progressFlag {
		stopProgress = common.StartProgressPrinter(os.Stderr, metrics, 500*time.Millisecond)
	}
	diags, err := engine.Eval(ctx)
	if stopProgress != nil {
		stopProgress()
	}
	if metrics != nil {
		metrics.Stop()
	}
	if err != nil {
		return fmt.Errorf("eval: %w", err)
	}

	acc := engine.MakeAcceptance()
	rep, err := report.Build(ctx, acc, cfg.Dictionary)
	if err != nil {
		return err
	}
	if err := writeScanOutputs(engine, rep, outs, cfg); err != nil {
		return err
	}

	fmt.Fprintf(stdout, "PASS=%v, errors=%d, warnings=%d, diagnostics=%d, messages=%d\n",
		acc.Summary.Pass, acc.Summary.Errors, acc.Summary.Warnings, len(diags), rep.Traffic.Messages)
	if metrics != nil && *metricsFlag {
		snap := metrics.Snapshot()
		fmt.Fprintf(stdout, "Metrics: duration=%s packets=%d resyncs=%d messages=%d failed=%d processed=%s throughput=%.2f MB/s\n",
			snap.Duration.Round(10*time.Millisecond),
			snap.Packets,
			snap.Resyncs,
			snap.Messages,
			snap.Failures,
			common.FormatBytes(snap.Bytes),
			snap.ThroughputBytesPerSecond()/1_000_000,
		)
	}
	return nil
}

// withDefaults fills outputs not given on the command line from the report
// directory and formats of the configuration.
func (o scanOutputs) withDefaults(cfg config.Config, input string) scanOutputs {
	if cfg.Report.Directory == "" {
		return o
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	path := func(ext string) string {
		return filepath.Join(cfg.Report.Directory, base+ext)
	}
	if o.json == "" && cfg.WantsFormat("json") {
		o.json = path(".report.json")
	}
	if o.cbor == "" && cfg.WantsFormat("cbor") {
		o.cbor = path(".report.cbor")
	}
	if o.pdf == "" && cfg.WantsFormat("pdf") {
		o.pdf = path(".report.pdf")
	}
	if o.diagnostics == "" && cfg.WantsFormat("ndjson") {
		o.diagnostics = path(".diagnostics.jsonl")
	}
	return o
}

func writeScanOutputs(engine *rules.Engine, rep report.ScanReport, outs scanOutputs, cfg config.Config) error {
	for _, p := range []string{outs.json, outs.cbor, outs.pdf, outs.diagnostics, outs.acceptance} {
		if p == "" {
			continue
		}
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	if outs.diagnostics != "" {
		if err := engine.WriteDiagnosticsNDJSON(outs.diagnostics); err != nil {
			return fmt.Errorf("write diagnostics: %w", err)
		}
	}
	if outs.acceptance != "" {
		if err := report.SaveAcceptanceJSON(rep.Acceptance, outs.acceptance); err != nil {
			return fmt.Errorf("write acceptance: %w", err)
		}
	}
	if outs.json != "" {
		if err := report.SaveJSON(rep, outs.json); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if outs.cbor != "" {
		if err := report.SaveCBOR(rep, outs.cbor); err != nil {
			return fmt.Errorf("write cbor report: %w", err)
		}
	}
	if outs.pdf != "" {
		opts := report.PDFOptions{Title: cfg.Report.Title, MaxFindings: cfg.Report.MaxFindings}
		if err := report.SavePDF(rep, outs.pdf, opts); err != nil {
			return fmt.Errorf("write pdf report: %w", err)
		}
	}
	return nil
}
