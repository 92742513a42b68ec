package rules

import (
	"fmt"
	"strings"
	"time"

	"example.com/milbus/internal/ch10"
	"example.com/milbus/pkg/mil1553"
)

func int64Ptr(v int64) *int64 { return &v }

func stringPtr(s string) *string { return &s }

func (e *Engine) RegisterBuiltins() {
	e.Register("CheckDecode", CheckDecode)
	e.Register("CheckBlockStatus", CheckBlockStatus)
	e.Register("CheckStatusAddress", CheckStatusAddress)
	e.Register("CheckStatusReserved", CheckStatusReserved)
	e.Register("WarnStatusFlags", WarnStatusFlags)
	e.Register("CheckComplete", CheckComplete)
	e.Register("CheckBroadcastResponse", CheckBroadcastResponse)
	e.Register("WarnNoResponse", WarnNoResponse)
	e.Register("CheckDictionary", CheckDictionary)
}

// DefaultRulePack wires every built-in check with its default severity.
func DefaultRulePack() RulePack {
	return RulePack{
		RulePackId: "milbus-default",
		Version:    "1.0.0",
		Rules: []Rule{
			{RuleId: "BUS-001", Name: "decode", Scope: "message", Severity: ERROR, Func: "CheckDecode",
				Refs: []string{"IRIG-106 Ch10 1553 F1"}, Message: "bus message decode"},
			{RuleId: "BUS-002", Name: "block status", Scope: "message", Severity: WARN, Func: "CheckBlockStatus",
				Refs: []string{"IRIG-106 Ch10 1553 F1 BSW"}, Message: "recorder block status"},
			{RuleId: "BUS-003", Name: "status address", Scope: "message", Severity: ERROR, Func: "CheckStatusAddress",
				Refs: []string{"MIL-STD-1553B 4.3.3.5.3"}, Message: "status address matches command"},
			{RuleId: "BUS-004", Name: "reserved status bits", Scope: "message", Severity: ERROR, Func: "CheckStatusReserved",
				Refs: []string{"MIL-STD-1553B 4.3.3.5.3.6"}, Message: "reserved status bits clear"},
			{RuleId: "BUS-005", Name: "status flags", Scope: "message", Severity: WARN, Func: "WarnStatusFlags",
				Refs: []string{"MIL-STD-1553B 4.3.3.5.3"}, Message: "status error flags"},
			{RuleId: "BUS-006", Name: "complete", Scope: "message", Severity: ERROR, Func: "CheckComplete",
				Refs: []string{"MIL-STD-1553B 4.3.3.5.1.7"}, Message: "data word count"},
			{RuleId: "BUS-007", Name: "broadcast response", Scope: "message", Severity: ERROR, Func: "CheckBroadcastResponse",
				Refs: []string{"MIL-STD-1553B 4.3.3.6.7"}, Message: "no status after broadcast"},
			{RuleId: "BUS-008", Name: "no response", Scope: "message", Severity: WARN, Func: "WarnNoResponse",
				Refs: []string{"MIL-STD-1553B 4.3.3.8"}, Message: "terminal response"},
			{RuleId: "ICD-001", Name: "dictionary", Scope: "message", Severity: WARN, Func: "CheckDictionary",
				Refs: []string{"ICD"}, Message: "dictionary conformance"},
		},
	}
}

func severityOr(rule Rule, def Severity) Severity {
	if rule.Severity != "" {
		return rule.Severity
	}
	return def
}

func packetDiagnostic(ctx *Context, rule Rule, p int, pkt *ch10.PacketIndex, sev Severity, msg string) Diagnostic {
	d := Diagnostic{
		Ts:          time.Now(),
		File:        ctx.InputFile,
		ChannelId:   int(pkt.ChannelID),
		PacketIndex: p,
		Offset:      fmt.Sprintf("0x%X", pkt.Offset),
		RuleId:      rule.RuleId,
		Severity:    severityOr(rule, sev),
		Message:     msg,
		Refs:        rule.Refs,
	}
	if pkt.TimeStampUs >= 0 {
		d.TimestampUs = int64Ptr(pkt.TimeStampUs)
		d.TimestampSource = stringPtr(string(pkt.Source))
	}
	return d
}

func messageDiagnostic(ctx *Context, rule Rule, ref MessageRef, sev Severity, msg string) Diagnostic {
	d := packetDiagnostic(ctx, rule, ref.PacketIndex, ref.Packet, sev, msg)
	d.MessageIndex = ref.MessageIndex
	d.Bus = string(ref.Message.Bus())
	if len(ref.Message.Words) > 0 {
		d.Command = ref.Message.Transaction.Command.String()
	}
	return d
}

// decoded skips messages whose words never formed a transaction.
func decoded(ref MessageRef) bool {
	return ref.Message.DecodeError == "" && len(ref.Message.Words) > 0
}

func CheckDecode(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if ctx.Index == nil {
		return nil, nil
	}
	var out []Diagnostic
	for p := range ctx.Index.Packets {
		pkt := &ctx.Index.Packets[p]
		if pkt.MIL1553 != nil && pkt.MIL1553.ParseError != "" {
			out = append(out, packetDiagnostic(ctx, rule, p, pkt, ERROR, pkt.MIL1553.ParseError))
		}
	}
	for _, ref := range ctx.Messages() {
		if ref.Message.DecodeError != "" {
			out = append(out, messageDiagnostic(ctx, rule, ref, ERROR, ref.Message.DecodeError))
		}
	}
	return out, nil
}

var blockStatusLabels = []struct {
	bit   uint16
	label string
}{
	{ch10.BlockStatusMessageError, "message error"},
	{ch10.BlockStatusFormatError, "format error"},
	{ch10.BlockStatusTimeout, "response timeout"},
	{ch10.BlockStatusWordCountErr, "word count error"},
	{ch10.BlockStatusSyncTypeError, "sync type error"},
	{ch10.BlockStatusInvalidWord, "invalid word"},
}

func CheckBlockStatus(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for _, ref := range ctx.Messages() {
		var flags []string
		for _, l := range blockStatusLabels {
			if ref.Message.BlockStatusWord&l.bit != 0 {
				flags = append(flags, l.label)
			}
		}
		if len(flags) > 0 {
			msg := fmt.Sprintf("block status 0x%04X: %s", ref.Message.BlockStatusWord, strings.Join(flags, ", "))
			out = append(out, messageDiagnostic(ctx, rule, ref, WARN, msg))
		}
	}
	return out, nil
}

type response struct {
	cmd    mil1553.CommandWord
	status mil1553.StatusWord
}

// responses pairs every status word of a transaction with the command it
// answers.
func responses(tr ch10.Transaction) []response {
	var out []response
	if tr.HasTx {
		out = append(out, response{tr.TxCommand, tr.TxStatus})
	}
	if tr.HasStatus {
		out = append(out, response{tr.Command, tr.Status})
	}
	return out
}

func CheckStatusAddress(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for _, ref := range ctx.Messages() {
		if !decoded(ref) {
			continue
		}
		for _, r := range responses(ref.Message.Transaction) {
			if r.cmd.Address().IsBroadcast() {
				continue
			}
			if r.status.Address() != r.cmd.Address() {
				msg := fmt.Sprintf("status from %s answers command to %s", r.status.Address(), r.cmd.Address())
				out = append(out, messageDiagnostic(ctx, rule, ref, ERROR, msg))
			}
		}
	}
	return out, nil
}

func CheckStatusReserved(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for _, ref := range ctx.Messages() {
		if !decoded(ref) {
			continue
		}
		for _, r := range responses(ref.Message.Transaction) {
			if v := r.status.Reserved(); v != 0 {
				msg := fmt.Sprintf("%s: reserved bits set (%d)", r.status, v)
				out = append(out, messageDiagnostic(ctx, rule, ref, ERROR, msg))
			}
		}
	}
	return out, nil
}

func WarnStatusFlags(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for _, ref := range ctx.Messages() {
		if !decoded(ref) {
			continue
		}
		for _, r := range responses(ref.Message.Transaction) {
			if r.status.HasError() || r.status.Busy() {
				out = append(out, messageDiagnostic(ctx, rule, ref, WARN, r.status.String()))
			}
		}
	}
	return out, nil
}

// dataSourceAnswered reports whether the terminal that sends the data words
// responded. Silent transmitters are reported by WarnNoResponse instead.
func dataSourceAnswered(tr ch10.Transaction) bool {
	switch {
	case tr.RTToRT:
		return tr.HasTx
	case tr.Command.IsTransmit():
		return tr.HasStatus
	}
	return true
}

func CheckComplete(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for _, ref := range ctx.Messages() {
		if !decoded(ref) {
			continue
		}
		tr := ref.Message.Transaction
		if !tr.Complete() && dataSourceAnswered(tr) {
			msg := fmt.Sprintf("%d of %d data words recorded", tr.DataCount(), tr.DataExpected())
			out = append(out, messageDiagnostic(ctx, rule, ref, ERROR, msg))
		}
	}
	return out, nil
}

func CheckBroadcastResponse(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for _, ref := range ctx.Messages() {
		if !decoded(ref) {
			continue
		}
		tr := ref.Message.Transaction
		// the receiving side of a broadcast RT-to-RT transfer stays silent too
		if tr.Broadcast() && tr.HasStatus {
			msg := fmt.Sprintf("%s answered a broadcast command", tr.Status.Address())
			out = append(out, messageDiagnostic(ctx, rule, ref, ERROR, msg))
		}
	}
	return out, nil
}

func WarnNoResponse(ctx *Context, rule Rule) ([]Diagnostic, error) {
	var out []Diagnostic
	for _, ref := range ctx.Messages() {
		if !decoded(ref) {
			continue
		}
		tr := ref.Message.Transaction
		switch {
		case tr.RTToRT && !tr.HasTx:
			out = append(out, messageDiagnostic(ctx, rule, ref, WARN,
				fmt.Sprintf("transmitter %s did not respond", tr.TxCommand.Address())))
		case !tr.Broadcast() && !tr.HasStatus:
			out = append(out, messageDiagnostic(ctx, rule, ref, WARN,
				fmt.Sprintf("%s did not respond", tr.Command.Address())))
		}
	}
	return out, nil
}

func CheckDictionary(ctx *Context, rule Rule) ([]Diagnostic, error) {
	if ctx.Dict.IsEmpty() {
		return nil, nil
	}
	var out []Diagnostic
	for _, ref := range ctx.Messages() {
		if !decoded(ref) {
			continue
		}
		tr := ref.Message.Transaction
		findings := ctx.Dict.CheckCommand(tr.Command)
		if tr.RTToRT {
			findings = append(findings, ctx.Dict.CheckCommand(tr.TxCommand)...)
		}
		for _, f := range findings {
			out = append(out, messageDiagnostic(ctx, rule, ref, WARN, f.Code+": "+f.Message))
		}
	}
	return out, nil
}
