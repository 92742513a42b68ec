package mil1553

import "fmt"

// CommandWord is sent by the bus controller to open a transaction.
type CommandWord struct {
	value  uint16
	parity uint8
}

func (c CommandWord) Value() uint16  { return c.value }
func (c CommandWord) Parity() uint8  { return c.parity }
func (c CommandWord) Bytes() [2]byte { return ValueToBytes(c.value) }

func (c CommandWord) Address() Address {
	return Address(CommandAddressField.Get(c.value))
}

func (c CommandWord) TransmitReceive() TransmitReceive {
	return TransmitReceive(CommandTransmitField.Get(c.value))
}

func (c CommandWord) IsTransmit() bool {
	return c.TransmitReceive() == Transmit
}

func (c CommandWord) Subaddress() SubAddress {
	return SubAddress(CommandSubaddressField.Get(c.value))
}

// WordCount is the raw five-bit count field. For mode-code commands the same
// bits hold the mode code.
func (c CommandWord) WordCount() uint8 {
	return CommandWordCountField.Get(c.value)
}

func (c CommandWord) IsModeCode() bool {
	return c.Subaddress().IsModeCode()
}

// ModeCode returns the mode code when the subaddress selects one.
func (c CommandWord) ModeCode() (ModeCode, bool) {
	if !c.IsModeCode() {
		return 0, false
	}
	return ModeCode(CommandModeCodeField.Get(c.value)), true
}

// DataExpected is the number of data words announced by the command. The
// count field is taken literally: 0 means no data words.
func (c CommandWord) DataExpected() int {
	return int(c.WordCount())
}

// TransferCount is the number of data words that move on the bus for this
// command. It equals DataExpected except for mode codes, which move one data
// word when the code carries data and none otherwise.
func (c CommandWord) TransferCount() int {
	if mc, ok := c.ModeCode(); ok {
		if mc.HasData() {
			return 1
		}
		return 0
	}
	return c.DataExpected()
}

func (c CommandWord) String() string {
	if mc, ok := c.ModeCode(); ok {
		return fmt.Sprintf("%s-%s %s mc=%d", c.Address(), c.TransmitReceive(), c.Subaddress(), uint8(mc))
	}
	return fmt.Sprintf("%s-%s-%s-%d", c.Address(), c.TransmitReceive(), c.Subaddress(), c.WordCount())
}

// DecodeCommandWord checks parity before accepting the value.
func DecodeCommandWord(v uint16, parity uint8) (CommandWord, error) {
	if !VerifyParity(v, parity) {
		return CommandWord{}, &ParityError{Index: 0}
	}
	return CommandWord{value: v, parity: parity}, nil
}

// ParseCommandWord reads the first two bytes of b and attaches calculated parity.
func ParseCommandWord(b []byte) (CommandWord, error) {
	if len(b) < 2 {
		return CommandWord{}, ErrBufferTooShort
	}
	v := ValueFromBytes([2]byte{b[0], b[1]})
	return CommandWord{value: v, parity: ParityOf(v)}, nil
}

// CommandWordBuilder collects fields in call order and keeps the first error.
type CommandWordBuilder struct {
	value     uint16
	parity    uint8
	hasParity bool
	err       error
}

func NewCommandWord() *CommandWordBuilder {
	return &CommandWordBuilder{}
}

func (b *CommandWordBuilder) set(f Field, v int) *CommandWordBuilder {
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

func (b *CommandWordBuilder) WithAddress(a int) *CommandWordBuilder {
	return b.set(CommandAddressField, a)
}

func (b *CommandWordBuilder) WithTransmitReceive(tr TransmitReceive) *CommandWordBuilder {
	return b.set(CommandTransmitField, int(tr))
}

func (b *CommandWordBuilder) WithSubaddress(sa int) *CommandWordBuilder {
	return b.set(CommandSubaddressField, sa)
}

func (b *CommandWordBuilder) WithWordCount(n int) *CommandWordBuilder {
	return b.set(CommandWordCountField, n)
}

func (b *CommandWordBuilder) WithModeCode(mc ModeCode) *CommandWordBuilder {
	return b.set(CommandModeCodeField, int(mc))
}

// WithValue replaces every field at once.
func (b *CommandWordBuilder) WithValue(v uint16) *CommandWordBuilder {
	if b.err == nil {
		b.value = v
	}
	return b
}

func (b *CommandWordBuilder) WithBytes(raw [2]byte) *CommandWordBuilder {
	return b.WithValue(ValueFromBytes(raw))
}

func (b *CommandWordBuilder) WithParity(p uint8) *CommandWordBuilder {
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

// WithCalculatedParity drops any explicit parity set earlier.
func (b *CommandWordBuilder) WithCalculatedParity() *CommandWordBuilder {
	b.hasParity = false
	return b
}

func (b *CommandWordBuilder) Build() (CommandWord, error) {
	if b.err != nil {
		return CommandWord{}, b.err
	}
	p := ParityOf(b.value)
	if b.hasParity && b.parity != p {
		return CommandWord{}, ErrParityMismatch
	}
	return CommandWord{value: b.value, parity: p}, nil
}
