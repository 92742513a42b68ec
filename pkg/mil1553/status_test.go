package mil1553

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusWordFlags(t *testing.T) {
	tests := []struct {
		name  string
		build func(*StatusWordBuilder) *StatusWordBuilder
		value uint16
		check func(StatusWord) bool
	}{
		{"message error", func(b *StatusWordBuilder) *StatusWordBuilder { return b.WithMessageError(true) }, 0x0400, StatusWord.MessageError},
		{"instrumentation", func(b *StatusWordBuilder) *StatusWordBuilder { return b.WithInstrumentation(true) }, 0x0200, StatusWord.Instrumentation},
		{"service request", func(b *StatusWordBuilder) *StatusWordBuilder { return b.WithServiceRequest(true) }, 0x0100, StatusWord.ServiceRequest},
		{"broadcast received", func(b *StatusWordBuilder) *StatusWordBuilder { return b.WithBroadcastReceived(true) }, 0x0010, StatusWord.BroadcastReceived},
		{"busy", func(b *StatusWordBuilder) *StatusWordBuilder { return b.WithBusy(true) }, 0x0008, StatusWord.Busy},
		{"subsystem flag", func(b *StatusWordBuilder) *StatusWordBuilder { return b.WithSubsystemFlag(true) }, 0x0004, StatusWord.SubsystemFlag},
		{"dynamic bus acceptance", func(b *StatusWordBuilder) *StatusWordBuilder { return b.WithDynamicBusAcceptance(true) }, 0x0002, StatusWord.DynamicBusAcceptance},
		{"terminal flag", func(b *StatusWordBuilder) *StatusWordBuilder { return b.WithTerminalFlag(true) }, 0x0001, StatusWord.TerminalFlag},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sw, err := tc.build(NewStatusWord().WithAddress(9)).Build()
			require.NoError(t, err)
			assert.Equal(t, uint16(9<<11)|tc.value, sw.Value())
			assert.True(t, tc.check(sw))
			assert.Equal(t, Address(9), sw.Address())
			assert.True(t, CheckParity(sw))

			got, err := DecodeStatusWord(sw.Value(), sw.Parity())
			require.NoError(t, err)
			assert.Equal(t, sw, got)
		})
	}
}

func TestStatusWordClearFlag(t *testing.T) {
	sw, err := NewStatusWord().WithBusy(true).WithBusy(false).Build()
	require.NoError(t, err)
	assert.False(t, sw.Busy())
	assert.Equal(t, uint16(0), sw.Value())
	assert.Equal(t, uint8(1), sw.Parity())
}

func TestStatusWordReserved(t *testing.T) {
	sw, err := NewStatusWord().WithReserved(5).Build()
	require.NoError(t, err)
	assert.Equal(t, uint8(5), sw.Reserved())
	assert.Equal(t, uint16(0x00A0), sw.Value())

	_, err = NewStatusWord().WithReserved(8).Build()
	assert.ErrorIs(t, err, ErrInvalidFieldValue)
}

func TestStatusWordString(t *testing.T) {
	sw, err := NewStatusWord().WithAddress(4).WithBusy(true).WithTerminalFlag(true).Build()
	require.NoError(t, err)
	assert.Equal(t, "RT4 status [BUSY,TF]", sw.String())
	assert.True(t, sw.HasError())

	sw, err = NewStatusWord().WithAddress(4).Build()
	require.NoError(t, err)
	assert.Equal(t, "RT4 status", sw.String())
	assert.False(t, sw.HasError())
}
