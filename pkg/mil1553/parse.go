package mil1553

import (
	"fmt"
	"strings"
)

// Framing selects how words are laid out in a buffer.
type Framing uint8

const (
	// FramingWords is two bytes per word, parity calculated on read.
	FramingWords Framing = iota
	// FramingPacked is 20 bits per word with the parity bit carried in-stream.
	FramingPacked
)

func (f Framing) String() string {
	if f == FramingPacked {
		return "packed"
	}
	return "words"
}

// ParseFraming accepts "words" (or "") and "packed".
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "words":
		return FramingWords, nil
	case "packed":
		return FramingPacked, nil
	}
	return 0, fmt.Errorf("unknown framing %q", s)
}

type wordSource interface {
	count() int
	word(i int) (uint16, uint8)
}

type byteWords []byte

func (b byteWords) count() int { return len(b) / 2 }

func (b byteWords) word(i int) (uint16, uint8) {
	v := ValueFromBytes([2]byte{b[2*i], b[2*i+1]})
	return v, ParityOf(v)
}

// Parser decodes buffers into messages. Capacity 0 means MaxWords.
type Parser struct {
	Capacity int
	Framing  Framing
}

func (p Parser) capacity() int {
	if p.Capacity == 0 {
		return MaxWords
	}
	checkCapacity(p.Capacity)
	return p.Capacity
}

func (p Parser) source(buf []byte) wordSource {
	if p.Framing == FramingPacked {
		return packedWords(buf)
	}
	return byteWords(buf)
}

func checkedWord(src wordSource, i int) (uint16, uint8, error) {
	v, par := src.word(i)
	if !VerifyParity(v, par) {
		return 0, 0, &ParityError{Index: i}
	}
	return v, par, nil
}

// ReadCommand decodes a command word and as many of its announced data words
// as buf holds. A short buffer gives a message that is not full.
func (p Parser) ReadCommand(buf []byte) (Message, error) {
	src := p.source(buf)
	n := src.count()
	if n < 1 {
		return Message{}, ErrBufferTooShort
	}
	v, par, err := checkedWord(src, 0)
	if err != nil {
		return Message{}, err
	}
	msg := NewMessage(p.capacity())
	if err := msg.setCommand(CommandWord{value: v, parity: par}); err != nil {
		return Message{}, err
	}
	take := min(msg.expected, n-1)
	for i := 1; i <= take; i++ {
		v, par, err := checkedWord(src, i)
		if err != nil {
			return Message{}, err
		}
		if err := msg.addData(DataWord{value: v, parity: par}); err != nil {
			return Message{}, err
		}
	}
	return msg, nil
}

// ReadStatus decodes a status word and every complete word after it as data.
func (p Parser) ReadStatus(buf []byte) (Message, error) {
	src := p.source(buf)
	n := src.count()
	if n < 1 {
		return Message{}, ErrBufferTooShort
	}
	capacity := p.capacity()
	if n > capacity {
		return Message{}, fmt.Errorf("%d words for capacity %d: %w", n, capacity, ErrCapacityExceeded)
	}
	v, par, err := checkedWord(src, 0)
	if err != nil {
		return Message{}, err
	}
	msg := NewMessage(capacity)
	if err := msg.setStatus(StatusWord{value: v, parity: par}); err != nil {
		return Message{}, err
	}
	for i := 1; i < n; i++ {
		v, par, err := checkedWord(src, i)
		if err != nil {
			return Message{}, err
		}
		if err := msg.addData(DataWord{value: v, parity: par}); err != nil {
			return Message{}, err
		}
	}
	return msg, nil
}

// ReadCommand parses two-byte words with room for a full transaction.
func ReadCommand(buf []byte) (Message, error) {
	return Parser{}.ReadCommand(buf)
}

// ReadStatus parses two-byte words with room for a full transaction.
func ReadStatus(buf []byte) (Message, error) {
	return Parser{}.ReadStatus(buf)
}
