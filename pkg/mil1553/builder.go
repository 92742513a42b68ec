package mil1553

// MessageBuilder assembles a Message. The first error stops further changes
// and is returned by Build.
type MessageBuilder struct {
	msg Message
	err error
}

// NewMessageBuilder panics if capacity is not in 1..MaxWords.
func NewMessageBuilder(capacity int) *MessageBuilder {
	return &MessageBuilder{msg: NewMessage(capacity)}
}

func (b *MessageBuilder) WithCommand(c CommandWord) *MessageBuilder {
	if b.err == nil {
		b.err = b.msg.setCommand(c)
	}
	return b
}

func (b *MessageBuilder) WithStatus(s StatusWord) *MessageBuilder {
	if b.err == nil {
		b.err = b.msg.setStatus(s)
	}
	return b
}

func (b *MessageBuilder) WithData(d DataWord) *MessageBuilder {
	if b.err == nil {
		b.err = b.msg.addData(d)
	}
	return b
}

func (b *MessageBuilder) WithDataWords(ds ...DataWord) *MessageBuilder {
	for _, d := range ds {
		b.WithData(d)
	}
	return b
}

// WithString packs s two characters at a time. An odd trailing character is
// padded with a space.
func (b *MessageBuilder) WithString(s string) *MessageBuilder {
	for i := 0; i < len(s) && b.err == nil; i += 2 {
		pair := s[i:min(i+2, len(s))]
		if len(pair) == 1 {
			pair += " "
		}
		d, err := DataWordFromString(pair)
		if err != nil {
			b.err = err
			break
		}
		b.WithData(d)
	}
	return b
}

// Build returns the message whether or not it is full.
func (b *MessageBuilder) Build() (Message, error) {
	if b.err != nil {
		return Message{}, b.err
	}
	if b.msg.kind == KindNone {
		return Message{}, ErrMissingHeader
	}
	return b.msg, nil
}
