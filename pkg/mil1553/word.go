package mil1553

import "fmt"

// Word is the contract shared by every word kind, including kinds defined
// outside this package: 16 data bits plus one odd-parity bit.
type Word interface {
	Value() uint16
	Parity() uint8
}

// Bytes returns the two-byte wire form of any word.
func Bytes(w Word) [2]byte {
	return ValueToBytes(w.Value())
}

// CheckParity reports whether the stored parity bit of w is valid.
func CheckParity(w Word) bool {
	return VerifyParity(w.Value(), w.Parity())
}

// DataAs reinterprets the i-th data word of m as a caller-defined word kind.
// decode receives the stored value and parity bit.
func DataAs[W Word](m Message, i int, decode func(value uint16, parity uint8) (W, error)) (W, error) {
	var zero W
	dw, ok := m.Data(i)
	if !ok {
		return zero, fmt.Errorf("data word %d: %w", i, ErrBufferTooShort)
	}
	return decode(dw.Value(), dw.Parity())
}

// Kind tags the word kinds a Message can hold.
type Kind uint8

const (
	KindNone Kind = iota
	KindCommand
	KindStatus
	KindData
)

func (k Kind) String() string {
	switch k {
	case KindCommand:
		return "command"
	case KindStatus:
		return "status"
	case KindData:
		return "data"
	default:
		return "none"
	}
}

// Address is a five-bit terminal address. 31 is reserved for broadcast.
type Address uint8

const (
	MaxAddress       Address = 30
	BroadcastAddress Address = 31
)

func (a Address) IsBroadcast() bool {
	return a == BroadcastAddress
}

func (a Address) String() string {
	if a.IsBroadcast() {
		return "broadcast"
	}
	return fmt.Sprintf("RT%d", uint8(a))
}

// SubAddress is the five-bit subaddress field. 0 and 31 flag a mode-code command.
type SubAddress uint8

const (
	ModeCodeSubAddress    SubAddress = 0
	ModeCodeSubAddressAlt SubAddress = 31
)

func (s SubAddress) IsModeCode() bool {
	return s == ModeCodeSubAddress || s == ModeCodeSubAddressAlt
}

func (s SubAddress) String() string {
	if s.IsModeCode() {
		return fmt.Sprintf("mode(%d)", uint8(s))
	}
	return fmt.Sprintf("SA%d", uint8(s))
}

// TransmitReceive is the command direction, seen from the remote terminal.
type TransmitReceive uint8

const (
	Receive  TransmitReceive = 0
	Transmit TransmitReceive = 1
)

func (tr TransmitReceive) String() string {
	if tr == Transmit {
		return "T"
	}
	return "R"
}
