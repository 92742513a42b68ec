package mil1553

import "fmt"

// MaxWords is the largest transaction the standard allows: one header word
// followed by up to 32 data words.
const MaxWords = 33

// Message is one header word (command or status) followed by data words,
// stored in a fixed array. Capacity bounds the slots in use, header included.
type Message struct {
	kind     Kind
	command  CommandWord
	status   StatusWord
	data     [MaxWords - 1]DataWord
	count    int
	expected int
	capacity int
}

// NewMessage returns an empty message. It panics if capacity is not in 1..MaxWords.
func NewMessage(capacity int) Message {
	checkCapacity(capacity)
	return Message{capacity: capacity}
}

func checkCapacity(capacity int) {
	if capacity < 1 || capacity > MaxWords {
		panic(fmt.Sprintf("mil1553: capacity %d outside 1..%d", capacity, MaxWords))
	}
}

func (m *Message) setCommand(c CommandWord) error {
	if m.kind != KindNone {
		return ErrDuplicateHeader
	}
	if c.DataExpected() > m.capacity-1 {
		return fmt.Errorf("command expects %d data words, capacity allows %d: %w",
			c.DataExpected(), m.capacity-1, ErrCapacityExceeded)
	}
	m.kind = KindCommand
	m.command = c
	m.expected = c.DataExpected()
	return nil
}

func (m *Message) setStatus(s StatusWord) error {
	if m.kind != KindNone {
		return ErrDuplicateHeader
	}
	m.kind = KindStatus
	m.status = s
	return nil
}

func (m *Message) addData(d DataWord) error {
	switch {
	case m.kind == KindNone:
		return ErrMissingHeader
	case m.kind == KindCommand && m.count >= m.expected:
		return fmt.Errorf("command expects %d data words: %w", m.expected, ErrCapacityExceeded)
	case m.count >= m.capacity-1:
		return fmt.Errorf("capacity %d reached: %w", m.capacity, ErrCapacityExceeded)
	}
	m.data[m.count] = d
	m.count++
	return nil
}

func (m Message) IsCommand() bool { return m.kind == KindCommand }
func (m Message) IsStatus() bool  { return m.kind == KindStatus }
func (m Message) Kind() Kind      { return m.kind }
func (m Message) Capacity() int   { return m.capacity }
func (m Message) DataCount() int  { return m.count }

// Len counts the header plus stored data words. An empty message has length 0.
func (m Message) Len() int {
	if m.kind == KindNone {
		return 0
	}
	return 1 + m.count
}

func (m Message) WordCount() int { return m.Len() }

// DataExpected is the command's announced count. Status messages have no
// announced count and report what they hold.
func (m Message) DataExpected() int {
	if m.kind == KindStatus {
		return m.count
	}
	return m.expected
}

func (m Message) IsFull() bool {
	return m.kind != KindNone && m.count == m.DataExpected()
}

// Header returns the header word, or nil when none is set.
func (m Message) Header() Word {
	switch m.kind {
	case KindCommand:
		return m.command
	case KindStatus:
		return m.status
	}
	return nil
}

func (m Message) Command() (CommandWord, bool) {
	return m.command, m.kind == KindCommand
}

func (m Message) Status() (StatusWord, bool) {
	return m.status, m.kind == KindStatus
}

// Data returns the i-th data word, counting from 0 after the header.
func (m Message) Data(i int) (DataWord, bool) {
	if i < 0 || i >= m.count {
		return DataWord{}, false
	}
	return m.data[i], true
}

// At returns the word at position i, where 0 is the header.
func (m Message) At(i int) (Word, bool) {
	if i == 0 {
		h := m.Header()
		return h, h != nil
	}
	d, ok := m.Data(i - 1)
	if !ok {
		return nil, false
	}
	return d, true
}

// AppendBytes appends the two-byte wire form of every stored word to dst.
func (m Message) AppendBytes(dst []byte) []byte {
	for i := 0; i < m.Len(); i++ {
		w, _ := m.At(i)
		b := Bytes(w)
		dst = append(dst, b[0], b[1])
	}
	return dst
}

func (m Message) Bytes() []byte {
	return m.AppendBytes(make([]byte, 0, 2*m.Len()))
}

func (m Message) String() string {
	switch m.kind {
	case KindCommand:
		return fmt.Sprintf("%s data=%d/%d", m.command, m.count, m.expected)
	case KindStatus:
		return fmt.Sprintf("%s data=%d", m.status, m.count)
	}
	return "empty"
}
