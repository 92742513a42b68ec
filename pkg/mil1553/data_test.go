package mil1553

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDataWordAsString(t *testing.T) {
	dw := DataWordFromBytes([2]byte{0b01001000, 0b01001001})
	s, err := dw.AsString()
	require.NoError(t, err)
	assert.Equal(t, "HI", s)
}

func TestDataWordStringRoundTrip(t *testing.T) {
	for a := byte(0x20); a <= 0x7E; a++ {
		for b := byte(0x20); b <= 0x7E; b++ {
			in := string([]byte{a, b})
			dw, err := DataWordFromString(in)
			require.NoError(t, err)
			out, err := dw.AsString()
			require.NoError(t, err)
			if out != in {
				t.Fatalf("AsString() = %q, want %q", out, in)
			}
		}
	}
}

func TestDataWordInvalidString(t *testing.T) {
	for _, in := range []string{"", "A", "ABC", "\x00A", "A\x7F", "é"} {
		_, err := DataWordFromString(in)
		assert.ErrorIsf(t, err, ErrInvalidStringEncoding, "input %q", in)
	}
	_, err := NewDataWord(0x0041).AsString()
	assert.ErrorIs(t, err, ErrInvalidStringEncoding)
}

func TestDataWordEqualIgnoresParity(t *testing.T) {
	a := NewDataWord(0xBEEF)
	b := DataWord{value: 0xBEEF, parity: a.Parity() ^ 1}
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(NewDataWord(0xBEEE)))
	assert.Equal(t, "0xBEEF", a.String())
}

type temperature struct {
	raw    uint16
	parity uint8
}

func (t temperature) Value() uint16 { return t.raw }
func (t temperature) Parity() uint8 { return t.parity }
func (t temperature) Celsius() int  { return int(int16(t.raw)) / 16 }

func decodeTemperature(v uint16, p uint8) (temperature, error) {
	if !VerifyParity(v, p) {
		return temperature{}, &ParityError{}
	}
	return temperature{raw: v, parity: p}, nil
}

func TestDataAsCustomWord(t *testing.T) {
	cw, err := NewCommandWord().WithAddress(1).WithSubaddress(2).WithWordCount(1).Build()
	require.NoError(t, err)
	msg, err := NewMessageBuilder(MaxWords).
		WithCommand(cw).
		WithData(NewDataWord(uint16(25 * 16))).
		Build()
	require.NoError(t, err)

	temp, err := DataAs(msg, 0, decodeTemperature)
	require.NoError(t, err)
	assert.Equal(t, 25, temp.Celsius())

	_, err = DataAs(msg, 1, decodeTemperature)
	assert.ErrorIs(t, err, ErrBufferTooShort)
}
