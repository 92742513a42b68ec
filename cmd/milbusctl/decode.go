package main

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"example.com/milbus/internal/dict"
	"example.com/milbus/pkg/mil1553"
)

type decodeSummary struct {
	Kind         string   `json:"kind"`
	Header       string   `json:"header"`
	HeaderValue  string   `json:"headerValue"`
	DataExpected int      `json:"dataExpected"`
	DataCount    int      `json:"dataCount"`
	Full         bool     `json:"full"`
	Data         []string `json:"data"`
	Text         string   `json:"text,omitempty"`
	Findings     []string `json:"findings,omitempty"`
}

func runDecode(args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("decode")
	hexIn := fs.String("hex", "", "message bytes as hex (spaces allowed)")
	in := fs.String("in", "", "binary file holding the message bytes")
	status := fs.Bool("status", false, "buffer starts with a status word")
	packed := fs.Bool("packed", false, "20-bit packed framing")
	capacity := fs.Int("capacity", -1, "message capacity 1..33 (0 = 33, default from config)")
	dictPath := fs.String("dict", "", "dictionary file (.json, .yaml)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if (*hexIn == "") == (*in == "") {
		return errors.New("exactly one of --hex or --in is required")
	}

	cfg, closer, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer closer.Close()
	if *packed {
		cfg.Framing = mil1553.FramingPacked.String()
	}
	if *capacity >= 0 {
		cfg.Capacity = *capacity
	}
	if *dictPath != "" {
		cfg.Dictionary = *dictPath
	}
	parser, err := cfg.Parser()
	if err != nil {
		return err
	}

	var buf []byte
	if *hexIn != "" {
		buf, err = parseHex(*hexIn)
	} else {
		buf, err = os.ReadFile(*in)
	}
	if err != nil {
		return err
	}

	var msg mil1553.Message
	if *status {
		msg, err = parser.ReadStatus(buf)
	} else {
		msg, err = parser.ReadCommand(buf)
	}
	if err != nil {
		return err
	}

	summary := summarize(msg)
	if cfg.Dictionary != "" {
		store, err := dict.EnsureLoaded(cfg.Dictionary)
		if err != nil {
			return fmt.Errorf("dictionary: %w", err)
		}
		for _, f := range store.Check(msg) {
			summary.Findings = append(summary.Findings, f.Code+": "+f.Message)
		}
	}
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}

func summarize(msg mil1553.Message) decodeSummary {
	s := decodeSummary{
		Kind:         msg.Kind().String(),
		DataExpected: msg.DataExpected(),
		DataCount:    msg.DataCount(),
		Full:         msg.IsFull(),
		Data:         []string{},
	}
	if h := msg.Header(); h != nil {
		s.Header = fmt.Sprint(h)
		s.HeaderValue = fmt.Sprintf("0x%04X", h.Value())
	}
	var text strings.Builder
	printable := msg.DataCount() > 0
	for i := 0; i < msg.DataCount(); i++ {
		d, _ := msg.Data(i)
		s.Data = append(s.Data, d.String())
		if str, err := d.AsString(); err == nil {
			text.WriteString(str)
		} else {
			printable = false
		}
	}
	if printable {
		s.Text = text.String()
	}
	return s
}

func parseHex(s string) ([]byte, error) {
	clean := strings.NewReplacer(" ", "", ",", "", "0x", "", "0X", "", "\n", "", "\t", "").Replace(s)
	b, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("parse hex: %w", err)
	}
	return b, nil
}
