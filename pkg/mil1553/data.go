package mil1553

import "fmt"

// DataWord carries 16 bits of payload with no protocol structure.
type DataWord struct {
	value  uint16
	parity uint8
}

func NewDataWord(v uint16) DataWord {
	return DataWord{value: v, parity: ParityOf(v)}
}

func DataWordFromBytes(b [2]byte) DataWord {
	return NewDataWord(ValueFromBytes(b))
}

// DataWordFromString packs exactly two printable ASCII characters, first
// character in the high byte.
func DataWordFromString(s string) (DataWord, error) {
	if len(s) != 2 || !printable(s[0]) || !printable(s[1]) {
		return DataWord{}, fmt.Errorf("%q: %w", s, ErrInvalidStringEncoding)
	}
	return DataWordFromBytes([2]byte{s[0], s[1]}), nil
}

// DecodeDataWord checks parity before accepting the value.
func DecodeDataWord(v uint16, parity uint8) (DataWord, error) {
	if !VerifyParity(v, parity) {
		return DataWord{}, &ParityError{Index: 0}
	}
	return DataWord{value: v, parity: parity}, nil
}

func (d DataWord) Value() uint16  { return d.value }
func (d DataWord) Parity() uint8  { return d.parity }
func (d DataWord) Bytes() [2]byte { return ValueToBytes(d.value) }

// Equal compares payloads only.
func (d DataWord) Equal(o DataWord) bool {
	return d.value == o.value
}

// AsString decodes the word as two printable ASCII characters.
func (d DataWord) AsString() (string, error) {
	b := d.Bytes()
	if !printable(b[0]) || !printable(b[1]) {
		return "", fmt.Errorf("0x%04X: %w", d.value, ErrInvalidStringEncoding)
	}
	return string(b[:]), nil
}

func (d DataWord) String() string {
	return fmt.Sprintf("0x%04X", d.value)
}

func printable(c byte) bool {
	return c >= 0x20 && c <= 0x7E
}
