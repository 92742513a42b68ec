package mil1553

import "math/bits"

// Field is a contiguous run of bits inside a 16-bit word, addressed by mask.
type Field struct {
	Name string
	Mask uint16
}

func (f Field) shift() int {
	return bits.TrailingZeros16(f.Mask)
}

// Max is the largest value the field can hold.
func (f Field) Max() int {
	return int(f.Mask >> f.shift())
}

func (f Field) Get(v uint16) uint8 {
	return uint8((v & f.Mask) >> f.shift())
}

// Set writes value into the field. Bits of value that do not fit are dropped.
func (f Field) Set(v uint16, value uint8) uint16 {
	return (v &^ f.Mask) | ((uint16(value) << f.shift()) & f.Mask)
}

// Masks follow the standard's bit-time order: the first transmitted data bit
// (bit-time 4, offset 0) is the most significant bit of the value, so the
// terminal address at offsets 0-4 occupies the top five bits.
var (
	CommandAddressField          = Field{Name: "address", Mask: 0xF800}
	CommandTransmitField         = Field{Name: "transmit_receive", Mask: 0x0400}
	CommandSubaddressField       = Field{Name: "subaddress", Mask: 0x03E0}
	CommandWordCountField        = Field{Name: "word_count", Mask: 0x001F}
	CommandModeCodeField         = Field{Name: "mode_code", Mask: 0x001F}
	StatusAddressField           = Field{Name: "address", Mask: 0xF800}
	StatusMessageErrorField      = Field{Name: "message_error", Mask: 0x0400}
	StatusInstrumentationField   = Field{Name: "instrumentation", Mask: 0x0200}
	StatusServiceRequestField    = Field{Name: "service_request", Mask: 0x0100}
	StatusReservedField          = Field{Name: "reserved", Mask: 0x00E0}
	StatusBroadcastReceivedField = Field{Name: "broadcast_received", Mask: 0x0010}
	StatusBusyField              = Field{Name: "busy", Mask: 0x0008}
	StatusSubsystemFlagField     = Field{Name: "subsystem_flag", Mask: 0x0004}
	StatusDynamicBusAcceptField  = Field{Name: "dynamic_bus_acceptance", Mask: 0x0002}
	StatusTerminalFlagField      = Field{Name: "terminal_flag", Mask: 0x0001}
)
