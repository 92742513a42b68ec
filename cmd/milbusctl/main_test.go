package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"example.com/milbus/internal/ch10"
	"example.com/milbus/internal/report"
	"example.com/milbus/internal/rules"
	"example.com/milbus/pkg/mil1553"
)

func TestDecodeCommandHex(t *testing.T) {
	// RT3 receive SA1, two data words carrying "OK" and "!!"
	var out bytes.Buffer
	err := runDecode([]string{"--hex", "1822 4F4B 2121"}, &out)
	if err != nil {
		t.Fatalf("runDecode: %v", err)
	}
	var s decodeSummary
	if err := json.Unmarshal(out.Bytes(), &s); err != nil {
		t.Fatalf("Unmarshal: %v\n%s", err, out.String())
	}
	if s.Kind != "command" || s.Header != "RT3-R-SA1-2" {
		t.Fatalf("header = %s %s, want command RT3-R-SA1-2", s.Kind, s.Header)
	}
	if !s.Full || s.DataCount != 2 {
		t.Fatalf("full/count = %v/%d, want true/2", s.Full, s.DataCount)
	}
	if s.Text != "OK!!" {
		t.Fatalf("Text = %q, want OK!!", s.Text)
	}
}

func TestDecodeStatusPartial(t *testing.T) {
	var out bytes.Buffer
	// RT4 status with the busy bit, one data word and a dangling byte
	if err := runDecode([]string{"--status", "--hex", "2008 0001 FF"}, &out); err != nil {
		t.Fatalf("runDecode: %v", err)
	}
	var s decodeSummary
	if err := json.Unmarshal(out.Bytes(), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Kind != "status" || s.DataCount != 1 || s.Data[0] != "0x0001" {
		t.Fatalf("summary = %+v", s)
	}
	if !strings.Contains(s.Header, "BUSY") {
		t.Fatalf("Header = %q, want BUSY flag", s.Header)
	}
}

func TestDecodeWithDictionary(t *testing.T) {
	dir := t.TempDir()
	icd := filepath.Join(dir, "icd.yaml")
	body := "mil1553:\n  - rt: 3\n    sa: 1\n    name: nav\n    direction: R\n    wc: 4\n"
	if err := os.WriteFile(icd, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	var out bytes.Buffer
	if err := runDecode([]string{"--hex", "1822 4F4B 2121", "--dict", icd}, &out); err != nil {
		t.Fatalf("runDecode: %v", err)
	}
	var s decodeSummary
	if err := json.Unmarshal(out.Bytes(), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(s.Findings) != 1 || !strings.HasPrefix(s.Findings[0], "wc_mismatch") {
		t.Fatalf("Findings = %v, want one wc_mismatch", s.Findings)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{name: "no input", args: nil},
		{name: "both inputs", args: []string{"--hex", "00", "--in", "x"}},
		{name: "bad hex", args: []string{"--hex", "zz"}},
		{name: "empty buffer", args: []string{"--hex", "18"}},
		{name: "capacity", args: []string{"--hex", "1822", "--capacity", "40"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := runDecode(tc.args, &bytes.Buffer{}); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	var out bytes.Buffer
	if err := runEncode([]string{"--rt", "3", "--sa", "1", "--text", "OK!"}, &out); err != nil {
		t.Fatalf("runEncode: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("output = %q", out.String())
	}
	if lines[1] != "18224F4B2120" {
		t.Fatalf("hex = %s, want 18224F4B2120", lines[1])
	}

	var dec bytes.Buffer
	if err := runDecode([]string{"--hex", lines[1]}, &dec); err != nil {
		t.Fatalf("runDecode: %v", err)
	}
	var s decodeSummary
	if err := json.Unmarshal(dec.Bytes(), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Text != "OK! " {
		t.Fatalf("Text = %q, want %q", s.Text, "OK! ")
	}
}

func TestEncodePackedDecodes(t *testing.T) {
	var out bytes.Buffer
	if err := runEncode([]string{"--rt", "5", "--sa", "2", "--tr", "--data", "ABCD,0x1234", "--packed"}, &out); err != nil {
		t.Fatalf("runEncode: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	var dec bytes.Buffer
	if err := runDecode([]string{"--packed", "--hex", lines[1]}, &dec); err != nil {
		t.Fatalf("runDecode: %v", err)
	}
	var s decodeSummary
	if err := json.Unmarshal(dec.Bytes(), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Header != "RT5-T-SA2-2" || len(s.Data) != 2 || s.Data[0] != "0xABCD" || s.Data[1] != "0x1234" {
		t.Fatalf("summary = %+v", s)
	}
}

func TestEncodeModeCode(t *testing.T) {
	var out bytes.Buffer
	if err := runEncode([]string{"--rt", "2", "--tr", "--mode", "2"}, &out); err != nil {
		t.Fatalf("runEncode: %v", err)
	}
	if !strings.Contains(out.String(), "mc=2") {
		t.Fatalf("output = %q, want mode code 2", out.String())
	}
	if err := runEncode([]string{"--rt", "2", "--sa", "4", "--mode", "2"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for mode code on SA4")
	}
}

func writeScanCapture(t *testing.T, dir string) string {
	t.Helper()
	cmd, err := mil1553.NewCommandWord().WithAddress(3).WithSubaddress(1).WithWordCount(1).Build()
	if err != nil {
		t.Fatalf("command: %v", err)
	}
	st, err := mil1553.NewStatusWord().WithAddress(3).Build()
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	tr, err := ch10.ReceiveTransaction(cmd, []mil1553.DataWord{mil1553.NewDataWord(7)}, &st)
	if err != nil {
		t.Fatalf("ReceiveTransaction: %v", err)
	}
	timePkt, err := ch10.BuildTimePacket("106-15", 1, 0, 1_000_000)
	if err != nil {
		t.Fatalf("BuildTimePacket: %v", err)
	}
	busPkt, err := ch10.Build1553Packet("106-15", 2, 0, []ch10.MIL1553Message{ch10.NewMIL1553Message(5, 'A', 0, tr)})
	if err != nil {
		t.Fatalf("Build1553Packet: %v", err)
	}
	path := filepath.Join(dir, "flight.ch10")
	if err := os.WriteFile(path, append(timePkt, busPkt...), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestScanWritesConfiguredReports(t *testing.T) {
	dir := t.TempDir()
	capture := writeScanCapture(t, dir)
	cfgPath := filepath.Join(dir, "milbus.toml")
	cfgBody := "[report]\ndirectory = \"out\"\nformats = [\"json\", \"cbor\", \"ndjson\"]\n"
	if err := os.WriteFile(cfgPath, []byte(cfgBody), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var out bytes.Buffer
	accPath := filepath.Join(dir, "acceptance.json")
	if err := runScan([]string{"--config", cfgPath, "--in", capture, "--acceptance", accPath}, &out); err != nil {
		t.Fatalf("runScan: %v", err)
	}
	if !strings.HasPrefix(out.String(), "PASS=true") {
		t.Fatalf("output = %q", out.String())
	}

	outDir := filepath.Join(dir, "out")
	rep, err := report.LoadJSON(filepath.Join(outDir, "flight.report.json"))
	if err != nil {
		t.Fatalf("LoadJSON: %v", err)
	}
	if rep.Traffic.Messages != 1 || !rep.Acceptance.Summary.Pass {
		t.Fatalf("report traffic/pass = %d/%v", rep.Traffic.Messages, rep.Acceptance.Summary.Pass)
	}
	fromCBOR, err := report.LoadCBOR(filepath.Join(outDir, "flight.report.cbor"))
	if err != nil {
		t.Fatalf("LoadCBOR: %v", err)
	}
	if fromCBOR.ID != rep.ID {
		t.Fatalf("CBOR ID = %s, want %s", fromCBOR.ID, rep.ID)
	}
	if _, err := os.Stat(filepath.Join(outDir, "flight.diagnostics.jsonl")); err != nil {
		t.Fatalf("diagnostics missing: %v", err)
	}
	accBody, err := os.ReadFile(accPath)
	if err != nil {
		t.Fatalf("acceptance missing: %v", err)
	}
	var acc rules.AcceptanceReport
	if err := json.Unmarshal(accBody, &acc); err != nil {
		t.Fatalf("Unmarshal acceptance: %v", err)
	}
	if len(acc.GateMatrix) != len(rules.DefaultRulePack().Rules) {
		t.Fatalf("gate matrix has %d rows, want %d", len(acc.GateMatrix), len(rules.DefaultRulePack().Rules))
	}

	pdfPath := filepath.Join(dir, "flight.pdf")
	if err := runReport([]string{"--in", filepath.Join(outDir, "flight.report.cbor"), "--pdf", pdfPath}, &bytes.Buffer{}); err != nil {
		t.Fatalf("runReport: %v", err)
	}
	if info, err := os.Stat(pdfPath); err != nil || info.Size() == 0 {
		t.Fatalf("pdf missing: %v", err)
	}
}

func TestScanRequiresInput(t *testing.T) {
	if err := runScan(nil, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error without --in")
	}
}
