package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"example.com/milbus/internal/common"
	"example.com/milbus/internal/rules"
)

// ScanReport summarises one capture scan: where the bytes came from, how much
// bus traffic they held, and what the rule pack found.
type ScanReport struct {
	ID         string                 `json:"id"`
	Generated  time.Time              `json:"generated"`
	Input      InputInfo              `json:"input"`
	Dictionary string                 `json:"dictionary,omitempty"`
	Traffic    Traffic                `json:"traffic"`
	Terminals  []TerminalStats        `json:"terminals,omitempty"`
	Acceptance rules.AcceptanceReport `json:"acceptance"`
}

type InputInfo struct {
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	SHA256 string `json:"sha256"`
}

type Traffic struct {
	Packets        int `json:"packets"`
	BusPackets     int `json:"busPackets"`
	Messages       int `json:"messages"`
	DecodeFailures int `json:"decodeFailures"`
	Incomplete     int `json:"incomplete"`
	BusA           int `json:"busA"`
	BusB           int `json:"busB"`
}

// TerminalStats counts messages per command destination.
type TerminalStats struct {
	RT        uint8  `json:"rt"`
	SA        uint8  `json:"sa"`
	Direction string `json:"direction"`
	Messages  int    `json:"messages"`
	Errors    int    `json:"errors"`
}

var ErrNoIndex = errors.New("report: capture has not been indexed")

// Build assembles the report for an evaluated rules context.
func Build(ctx *rules.Context, acc rules.AcceptanceReport, dictPath string) (ScanReport, error) {
	if ctx == nil || ctx.Index == nil {
		return ScanReport{}, ErrNoIndex
	}
	rep := ScanReport{
		ID:         uuid.NewString(),
		Generated:  time.Now().UTC(),
		Input:      InputInfo{Path: ctx.InputFile},
		Dictionary: dictPath,
		Acceptance: acc,
	}
	if ctx.InputFile != "" {
		sum, size, err := common.Sha256OfFile(ctx.InputFile)
		if err != nil {
			return ScanReport{}, fmt.Errorf("digest input: %w", err)
		}
		rep.Input.SHA256 = sum
		rep.Input.Size = size
	}

	rep.Traffic.Packets = len(ctx.Index.Packets)
	for _, pkt := range ctx.Index.Packets {
		if pkt.MIL1553 != nil {
			rep.Traffic.BusPackets++
		}
	}

	type key struct {
		rt, sa uint8
		dir    string
	}
	stats := map[key]*TerminalStats{}
	for _, ref := range ctx.Messages() {
		msg := ref.Message
		rep.Traffic.Messages++
		if msg.Bus() == 'B' {
			rep.Traffic.BusB++
		} else {
			rep.Traffic.BusA++
		}
		if msg.DecodeError != "" || len(msg.Words) == 0 {
			rep.Traffic.DecodeFailures++
			continue
		}
		tr := msg.Transaction
		if !tr.Complete() {
			rep.Traffic.Incomplete++
		}
		cmd := tr.Command
		k := key{rt: uint8(cmd.Address()), sa: uint8(cmd.Subaddress()), dir: cmd.TransmitReceive().String()}
		st, ok := stats[k]
		if !ok {
			st = &TerminalStats{RT: k.rt, SA: k.sa, Direction: k.dir}
			stats[k] = st
		}
		st.Messages++
		if !tr.Complete() || (tr.HasStatus && tr.Status.HasError()) {
			st.Errors++
		}
	}
	for _, st := range stats {
		rep.Terminals = append(rep.Terminals, *st)
	}
	sort.Slice(rep.Terminals, func(i, j int) bool {
		a, b := rep.Terminals[i], rep.Terminals[j]
		if a.RT != b.RT {
			return a.RT < b.RT
		}
		if a.SA != b.SA {
			return a.SA < b.SA
		}
		return a.Direction < b.Direction
	})
	return rep, nil
}

func SaveJSON(rep ScanReport, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadJSON(path string) (ScanReport, error) {
	var rep ScanReport
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	err = json.Unmarshal(b, &rep)
	return rep, err
}

func SaveAcceptanceJSON(rep rules.AcceptanceReport, out string) error {
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}
