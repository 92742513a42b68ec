package mil1553

// PackedWordBits is the width of one word in a packed bit stream: three sync
// bit-times, 16 data bits and the parity bit.
const PackedWordBits = 20

const packedSyncBits = 3

// packedWords reads words laid back to back in a bit stream, first bit in the
// most significant bit of the first byte. Sync bits are skipped unchecked.
type packedWords []byte

func (p packedWords) count() int {
	return len(p) * 8 / PackedWordBits
}

func (p packedWords) word(i int) (uint16, uint8) {
	off := i*PackedWordBits + packedSyncBits
	v := uint16(p.bits(off, 16))
	return v, uint8(p.bits(off+16, 1))
}

func (p packedWords) bits(off, n int) uint32 {
	var out uint32
	for k := 0; k < n; k++ {
		bit := off + k
		out = out<<1 | uint32(p[bit/8]>>(7-bit%8)&1)
	}
	return out
}

// AppendPacked appends the packed form of words to dst. The sync field is
// written as 110 for the first word and 001 for the rest.
func AppendPacked(dst []byte, words ...Word) []byte {
	start := len(dst)
	total := len(words) * PackedWordBits
	dst = append(dst, make([]byte, (total+7)/8)...)
	out := dst[start:]
	put := func(off int, v uint32, n int) {
		for k := 0; k < n; k++ {
			if v>>(n-1-k)&1 == 1 {
				bit := off + k
				out[bit/8] |= 1 << (7 - bit%8)
			}
		}
	}
	for i, w := range words {
		off := i * PackedWordBits
		sync := uint32(0b001)
		if i == 0 {
			sync = 0b110
		}
		put(off, sync, packedSyncBits)
		put(off+packedSyncBits, uint32(w.Value()), 16)
		put(off+packedSyncBits+16, uint32(w.Parity()), 1)
	}
	return dst
}
