package mil1553

import (
	"fmt"
	"strings"
)

// StatusWord is the remote terminal's reply to a command.
type StatusWord struct {
	value  uint16
	parity uint8
}

func (s StatusWord) Value() uint16  { return s.value }
func (s StatusWord) Parity() uint8  { return s.parity }
func (s StatusWord) Bytes() [2]byte { return ValueToBytes(s.value) }

func (s StatusWord) flag(f Field) bool { return f.Get(s.value) != 0 }

func (s StatusWord) Address() Address {
	return Address(StatusAddressField.Get(s.value))
}

func (s StatusWord) MessageError() bool      { return s.flag(StatusMessageErrorField) }
func (s StatusWord) Instrumentation() bool   { return s.flag(StatusInstrumentationField) }
func (s StatusWord) ServiceRequest() bool    { return s.flag(StatusServiceRequestField) }
func (s StatusWord) Reserved() uint8         { return StatusReservedField.Get(s.value) }
func (s StatusWord) BroadcastReceived() bool { return s.flag(StatusBroadcastReceivedField) }
func (s StatusWord) Busy() bool              { return s.flag(StatusBusyField) }
func (s StatusWord) SubsystemFlag() bool     { return s.flag(StatusSubsystemFlagField) }
func (s StatusWord) DynamicBusAcceptance() bool {
	return s.flag(StatusDynamicBusAcceptField)
}
func (s StatusWord) TerminalFlag() bool { return s.flag(StatusTerminalFlagField) }

// HasError reports any of the conditions a bus controller treats as a failed
// transaction.
func (s StatusWord) HasError() bool {
	return s.MessageError() || s.SubsystemFlag() || s.TerminalFlag()
}

func (s StatusWord) String() string {
	var flags []string
	named := []struct {
		set  bool
		name string
	}{
		{s.MessageError(), "ME"},
		{s.Instrumentation(), "INS"},
		{s.ServiceRequest(), "SR"},
		{s.BroadcastReceived(), "BCR"},
		{s.Busy(), "BUSY"},
		{s.SubsystemFlag(), "SSF"},
		{s.DynamicBusAcceptance(), "DBCA"},
		{s.TerminalFlag(), "TF"},
	}
	for _, n := range named {
		if n.set {
			flags = append(flags, n.name)
		}
	}
	if r := s.Reserved(); r != 0 {
		flags = append(flags, fmt.Sprintf("RSV=%d", r))
	}
	if len(flags) == 0 {
		return fmt.Sprintf("%s status", s.Address())
	}
	return fmt.Sprintf("%s status [%s]", s.Address(), strings.Join(flags, ","))
}

// DecodeStatusWord checks parity before accepting the value.
func DecodeStatusWord(v uint16, parity uint8) (StatusWord, error) {
	if !VerifyParity(v, parity) {
		return StatusWord{}, &ParityError{Index: 0}
	}
	return StatusWord{value: v, parity: parity}, nil
}

// ParseStatusWord reads the first two bytes of b and attaches calculated parity.
func ParseStatusWord(b []byte) (StatusWord, error) {
	if len(b) < 2 {
		return StatusWord{}, ErrBufferTooShort
	}
	v := ValueFromBytes([2]byte{b[0], b[1]})
	return StatusWord{value: v, parity: ParityOf(v)}, nil
}

// StatusWordBuilder collects fields in call order and keeps the first error.
type StatusWordBuilder struct {
	value     uint16
	parity    uint8
	hasParity bool
	err       error
}

func NewStatusWord() *StatusWordBuilder {
	return &StatusWordBuilder{}
}

func (b *StatusWordBuilder) set(f Field, v int) *StatusWordBuilder {
	if b.err != nil {
		return b
	}
	if v < 0 || v > f.Max() {
		b.err = &FieldError{Field: f.Name, Value: v}
		return b
	}
	b.value = f.Set(b.value, uint8(v))
	return b
}

func (b *StatusWordBuilder) setFlag(f Field, on bool) *StatusWordBuilder {
	if on {
		return b.set(f, 1)
	}
	return b.set(f, 0)
}

func (b *StatusWordBuilder) WithAddress(a int) *StatusWordBuilder {
	return b.set(StatusAddressField, a)
}

func (b *StatusWordBuilder) WithMessageError(on bool) *StatusWordBuilder {
	return b.setFlag(StatusMessageErrorField, on)
}

func (b *StatusWordBuilder) WithInstrumentation(on bool) *StatusWordBuilder {
	return b.setFlag(StatusInstrumentationField, on)
}

func (b *StatusWordBuilder) WithServiceRequest(on bool) *StatusWordBuilder {
	return b.setFlag(StatusServiceRequestField, on)
}

// WithReserved sets the three reserved bits. Compliant terminals leave them 0.
func (b *StatusWordBuilder) WithReserved(v int) *StatusWordBuilder {
	return b.set(StatusReservedField, v)
}

func (b *StatusWordBuilder) WithBroadcastReceived(on bool) *StatusWordBuilder {
	return b.setFlag(StatusBroadcastReceivedField, on)
}

func (b *StatusWordBuilder) WithBusy(on bool) *StatusWordBuilder {
	return b.setFlag(StatusBusyField, on)
}

func (b *StatusWordBuilder) WithSubsystemFlag(on bool) *StatusWordBuilder {
	return b.setFlag(StatusSubsystemFlagField, on)
}

func (b *StatusWordBuilder) WithDynamicBusAcceptance(on bool) *StatusWordBuilder {
	return b.setFlag(StatusDynamicBusAcceptField, on)
}

func (b *StatusWordBuilder) WithTerminalFlag(on bool) *StatusWordBuilder {
	return b.setFlag(StatusTerminalFlagField, on)
}

func (b *StatusWordBuilder) WithValue(v uint16) *StatusWordBuilder {
	if b.err == nil {
		b.value = v
	}
	return b
}

func (b *StatusWordBuilder) WithBytes(raw [2]byte) *StatusWordBuilder {
	return b.WithValue(ValueFromBytes(raw))
}

func (b *StatusWordBuilder) WithParity(p uint8) *StatusWordBuilder {
	if b.err != nil {
		return b
	}
	if p > 1 {
		b.err = &FieldError{Field: "parity", Value: int(p)}
		return b
	}
	b.parity = p
	b.hasParity = true
	return b
}

func (b *StatusWordBuilder) WithCalculatedParity() *StatusWordBuilder {
	b.hasParity = false
	return b
}

func (b *StatusWordBuilder) Build() (StatusWord, error) {
	if b.err != nil {
		return StatusWord{}, b.err
	}
	p := ParityOf(b.value)
	if b.hasParity && b.parity != p {
		return StatusWord{}, ErrParityMismatch
	}
	return StatusWord{value: b.value, parity: p}, nil
}
