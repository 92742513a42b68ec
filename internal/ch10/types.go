package ch10

import "example.com/milbus/pkg/mil1553"

type PacketHeader struct {
	Sync         uint16
	ChannelID    uint16
	PacketLength uint32
	DataLength   uint32
	DataType     uint16
	SeqNum       uint8
	Flags        uint8
	Checksum     uint16
}

type TimestampSource string

const (
	TimestampSourceUnknown         TimestampSource = "unknown"
	TimestampSourceSecondaryHeader TimestampSource = "secondary_header"
	TimestampSourceTimePacket      TimestampSource = "time_packet"
	TimestampSourceIPTS            TimestampSource = "ipts"
)

type SecondaryHeader struct {
	HasSecHdr   bool
	TimeFormat  uint8
	Seconds     uint32
	Subsecond   uint32
	TimeStampUs int64
}

type PacketIndex struct {
	Offset       int64
	ChannelID    uint16
	DataType     uint16
	SeqNum       uint8
	Flags        uint8
	PacketLength uint32
	DataLength   uint32
	HasSecHdr    bool
	SecHdrBytes  bool
	SecHdrValid  bool
	TimeFormat   uint8
	TimeStampUs  int64
	Source       TimestampSource
	IsTimePacket bool
	MIL1553      *MIL1553Info
}

type FileIndex struct {
	Packets               []PacketIndex
	HasTimePacket         bool
	TimeSeenBeforeDynamic bool
}

// MIL1553Info describes one MIL-STD-1553 format 1 packet body.
type MIL1553Info struct {
	CSDW         uint32
	TTB          uint8
	MessageCount uint32
	Messages     []MIL1553Message
	ParseError   string
}

// MIL1553Message is one bus transaction as recorded, with its intra-packet
// header and the decoded words.
type MIL1553Message struct {
	IPTS            uint64
	BlockStatusWord uint16
	GapTimeWord     uint16
	LengthWord      uint16
	Words           []uint16
	Transaction     Transaction
	DecodeError     string
}

// Block status word bits of the 1553 intra-packet data header.
const (
	BlockStatusBusB          uint16 = 1 << 13
	BlockStatusMessageError  uint16 = 1 << 12
	BlockStatusRTToRT        uint16 = 1 << 11
	BlockStatusFormatError   uint16 = 1 << 10
	BlockStatusTimeout       uint16 = 1 << 9
	BlockStatusWordCountErr  uint16 = 1 << 5
	BlockStatusSyncTypeError uint16 = 1 << 4
	BlockStatusInvalidWord   uint16 = 1 << 3
)

func (m MIL1553Message) Bus() byte {
	if m.BlockStatusWord&BlockStatusBusB != 0 {
		return 'B'
	}
	return 'A'
}

// Gaps returns the two response gaps in tenths of a microsecond.
func (m MIL1553Message) Gaps() (gap1, gap2 uint8) {
	return uint8(m.GapTimeWord & 0xFF), uint8(m.GapTimeWord >> 8)
}

// Transaction is a decoded bus exchange. Payload holds the data words, framed
// by the command for receive transfers and by the responding status word for
// transmit and RT-to-RT transfers.
type Transaction struct {
	RTToRT    bool
	Command   mil1553.CommandWord
	TxCommand mil1553.CommandWord
	Payload   mil1553.Message
	Status    mil1553.StatusWord
	HasStatus bool
	TxStatus  mil1553.StatusWord
	HasTx     bool
}
