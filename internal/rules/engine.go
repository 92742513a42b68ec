package rules

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"example.com/milbus/internal/ch10"
	"example.com/milbus/internal/common"
	"example.com/milbus/internal/dict"
)

type Severity string

const (
	ERROR Severity = "ERROR"
	WARN  Severity = "WARN"
	INFO  Severity = "INFO"
)

type Rule struct {
	RuleId   string         `json:"ruleId"`
	Name     string         `json:"name,omitempty"`
	Scope    string         `json:"scope"` // message|packet|file
	Severity Severity       `json:"severity"`
	Func     string         `json:"function"`
	Refs     []string       `json:"refs"`
	Params   map[string]any `json:"params,omitempty"`
	Message  string         `json:"message"`
}

type RulePack struct {
	RulePackId string `json:"rulePackId"`
	Version    string `json:"version"`
	Rules      []Rule `json:"rules"`
}

type Diagnostic struct {
	Ts              time.Time `json:"ts"`
	File            string    `json:"file"`
	ChannelId       int       `json:"channelId,omitempty"`
	PacketIndex     int       `json:"packetIndex,omitempty"`
	MessageIndex    int       `json:"messageIndex,omitempty"`
	Offset          string    `json:"offset,omitempty"`
	Bus             string    `json:"bus,omitempty"`
	Command         string    `json:"command,omitempty"`
	RuleId          string    `json:"ruleId"`
	Severity        Severity  `json:"severity"`
	Message         string    `json:"message"`
	Refs            []string  `json:"refs"`
	TimestampUs     *int64    `json:"timestamp_us"`
	TimestampSource *string   `json:"timestamp_source"`
}

type GateResult struct {
	RuleId   string   `json:"ruleId"`
	Severity Severity `json:"severity"`
	Findings int      `json:"findings"`
	Pass     bool     `json:"pass"`
}

type AcceptanceReport struct {
	Summary struct {
		Total    int  `json:"total"`
		Errors   int  `json:"errors"`
		Warnings int  `json:"warnings"`
		Pass     bool `json:"pass"`
	} `json:"summary"`
	GateMatrix []GateResult `json:"gateMatrix"`
	Findings   []Diagnostic `json:"findings,omitempty"`
}

// Context is the capture a rule pack runs against. Index is filled from
// InputFile on first use when the caller did not scan the file already.
type Context struct {
	InputFile string
	Dict      *dict.Store
	Metrics   *common.Metrics

	PrimaryHeader *ch10.PacketHeader
	Index         *ch10.FileIndex
}

func (ctx *Context) EnsureFileIndex() error {
	if ctx == nil {
		return errors.New("nil context")
	}
	if ctx.Index != nil || ctx.InputFile == "" {
		return nil
	}
	hdr, idx, err := ch10.ScanFile(ctx.InputFile, ctx.Metrics)
	if err != nil {
		return err
	}
	ctx.Index = &idx
	ctx.PrimaryHeader = &hdr
	return nil
}

// MessageRef locates one recorded bus message inside the file index.
type MessageRef struct {
	PacketIndex  int
	MessageIndex int
	Packet       *ch10.PacketIndex
	Message      *ch10.MIL1553Message
}

// Messages lists every 1553 message of the indexed capture in file order.
func (ctx *Context) Messages() []MessageRef {
	if ctx == nil || ctx.Index == nil {
		return nil
	}
	var out []MessageRef
	for p := range ctx.Index.Packets {
		pkt := &ctx.Index.Packets[p]
		if pkt.MIL1553 == nil {
			continue
		}
		for m := range pkt.MIL1553.Messages {
			out = append(out, MessageRef{
				PacketIndex:  p,
				MessageIndex: m,
				Packet:       pkt,
				Message:      &pkt.MIL1553.Messages[m],
			})
		}
	}
	return out
}

type Engine struct {
	rulePack               RulePack
	registry               map[string]CheckFunc
	diagnostics            []Diagnostic
	gates                  []GateResult
	includeTimestampFields bool
}

func NewEngine(rp RulePack) *Engine {
	return &Engine{
		rulePack:               rp,
		registry:               make(map[string]CheckFunc),
		includeTimestampFields: true,
	}
}

// CheckFunc evaluates one rule and returns its findings. An empty result
// means the rule passed.
type CheckFunc func(ctx *Context, rule Rule) ([]Diagnostic, error)

func (e *Engine) Register(name string, f CheckFunc) {
	e.registry[name] = f
}

func (e *Engine) Eval(ctx *Context) ([]Diagnostic, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	if err := ctx.EnsureFileIndex(); err != nil {
		return nil, err
	}
	var diags []Diagnostic
	var gates []GateResult
	for _, r := range e.rulePack.Rules {
		if r.Func == "" {
			continue
		}
		fn, ok := e.registry[r.Func]
		if !ok {
			diags = append(diags, Diagnostic{
				Ts: time.Now(), File: ctx.InputFile, RuleId: r.RuleId, Severity: WARN,
				Message: "no function for rule", Refs: r.Refs,
			})
			gates = append(gates, GateResult{RuleId: r.RuleId, Severity: WARN, Findings: 1, Pass: true})
			continue
		}
		found, err := fn(ctx, r)
		if err != nil {
			found = append(found, Diagnostic{
				Ts: time.Now(), File: ctx.InputFile, RuleId: r.RuleId, Severity: ERROR,
				Message: fmt.Sprintf("%s (%v)", r.Message, err), Refs: r.Refs,
			})
		}
		gate := GateResult{RuleId: r.RuleId, Severity: r.Severity, Findings: len(found), Pass: true}
		for _, d := range found {
			if d.Severity == ERROR {
				gate.Pass = false
			}
		}
		gates = append(gates, gate)
		if len(found) == 0 {
			found = []Diagnostic{{
				Ts: time.Now(), File: ctx.InputFile, RuleId: r.RuleId, Severity: INFO,
				Message: r.Message + ": ok", Refs: r.Refs,
			}}
		}
		diags = append(diags, found...)
	}
	e.diagnostics = diags
	e.gates = gates
	return diags, nil
}

func (e *Engine) WriteDiagnosticsNDJSON(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)
	for _, d := range e.diagnostics {
		var b []byte
		if e.includeTimestampFields {
			b, err = json.Marshal(d)
		} else {
			b, err = json.Marshal(d.toNoTimestamp())
		}
		if err != nil {
			return err
		}
		w.Write(b)
		w.WriteString("\n")
	}
	return w.Flush()
}

type diagnosticNoTimestamp struct {
	Ts           time.Time `json:"ts"`
	File         string    `json:"file"`
	ChannelId    int       `json:"channelId,omitempty"`
	PacketIndex  int       `json:"packetIndex,omitempty"`
	MessageIndex int       `json:"messageIndex,omitempty"`
	Offset       string    `json:"offset,omitempty"`
	Bus          string    `json:"bus,omitempty"`
	Command      string    `json:"command,omitempty"`
	RuleId       string    `json:"ruleId"`
	Severity     Severity  `json:"severity"`
	Message      string    `json:"message"`
	Refs         []string  `json:"refs"`
}

func (d Diagnostic) toNoTimestamp() diagnosticNoTimestamp {
	return diagnosticNoTimestamp{
		Ts:           d.Ts,
		File:         d.File,
		ChannelId:    d.ChannelId,
		PacketIndex:  d.PacketIndex,
		MessageIndex: d.MessageIndex,
		Offset:       d.Offset,
		Bus:          d.Bus,
		Command:      d.Command,
		RuleId:       d.RuleId,
		Severity:     d.Severity,
		Message:      d.Message,
		Refs:         d.Refs,
	}
}

func (e *Engine) SetConfigValue(key string, value any) {
	if e == nil {
		return
	}
	switch key {
	case "diag.include_timestamps":
		switch v := value.(type) {
		case bool:
			e.includeTimestampFields = v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				e.includeTimestampFields = b
			}
		default:
			if s, ok := value.(fmt.Stringer); ok {
				if b, err := strconv.ParseBool(s.String()); err == nil {
					e.includeTimestampFields = b
				}
			}
		}
	}
}

func (e *Engine) MakeAcceptance() AcceptanceReport {
	var rep AcceptanceReport
	var errs, warns int
	for _, d := range e.diagnostics {
		switch d.Severity {
		case ERROR:
			errs++
		case WARN:
			warns++
		}
	}
	rep.Summary.Total = len(e.diagnostics)
	rep.Summary.Errors = errs
	rep.Summary.Warnings = warns
	rep.Summary.Pass = errs == 0
	rep.GateMatrix = e.gates
	rep.Findings = e.diagnostics
	return rep
}

func LoadRulePack(path string) (RulePack, error) {
	var rp RulePack
	b, err := os.ReadFile(path)
	if err != nil {
		return rp, err
	}
	err = json.Unmarshal(b, &rp)
	return rp, err
}
