package mil1553

import (
	"encoding/binary"
	"math/bits"
)

// ParityOf returns the bit that makes the number of set bits across v and the
// parity bit odd.
func ParityOf(v uint16) uint8 {
	if bits.OnesCount16(v)%2 == 0 {
		return 1
	}
	return 0
}

// VerifyParity reports whether parity is the odd-parity bit for v.
func VerifyParity(v uint16, parity uint8) bool {
	return parity == ParityOf(v)
}

// ValueFromBytes joins two transmitted bytes into a word value. The first byte
// carries bit-times 4-11 and lands in the most significant half.
func ValueFromBytes(b [2]byte) uint16 {
	return binary.BigEndian.Uint16(b[:])
}

func ValueToBytes(v uint16) [2]byte {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	return b
}
