package ch10

import (
	"encoding/binary"
	"fmt"
)

// BuildPacket assembles a packet from its parts and fills in the header
// checksum for profile. secondary must be empty or a full secondary header.
func BuildPacket(profile string, channelID, dataType uint16, seq, flags uint8, secondary, payload []byte) ([]byte, error) {
	if len(secondary) != 0 && len(secondary) != secondaryHeaderSize {
		return nil, fmt.Errorf("secondary header len %d, want %d", len(secondary), secondaryHeaderSize)
	}
	if len(secondary) != 0 {
		flags |= packetFlagSecondaryHdr
	}
	totalLen := primaryHeaderSize + len(secondary) + len(payload)
	packet := make([]byte, totalLen)
	header := packet[:primaryHeaderSize]
	binary.BigEndian.PutUint16(header[0:2], syncPattern)
	binary.BigEndian.PutUint16(header[2:4], channelID)
	binary.BigEndian.PutUint32(header[4:8], uint32(totalLen-4))
	binary.BigEndian.PutUint32(header[8:12], uint32(len(secondary)+len(payload)))
	binary.BigEndian.PutUint16(header[12:14], dataType)
	header[14] = seq
	header[15] = flags
	checksum, err := ComputeHeaderChecksum(profile, header)
	if err != nil {
		return nil, err
	}
	binary.BigEndian.PutUint16(header[16:18], checksum)
	copy(packet[primaryHeaderSize:], secondary)
	copy(packet[primaryHeaderSize+len(secondary):], payload)
	return packet, nil
}

// BuildTimePacket constructs a minimal time packet carrying timestampUs.
func BuildTimePacket(profile string, channelID uint16, timeFormat uint8, timestampUs int64) ([]byte, error) {
	payload, err := encodeTime(timeFormat, timestampUs)
	if err != nil {
		return nil, err
	}
	return BuildPacket(profile, channelID, DataTypeTime, 0, timeFormat&packetFlagTimeFormatMask, nil, payload)
}

// BuildSecondaryHeader encodes timestampUs followed by the secondary header
// checksum.
func BuildSecondaryHeader(timeFormat uint8, timestampUs int64) ([]byte, error) {
	field, err := encodeTime(timeFormat, timestampUs)
	if err != nil {
		return nil, err
	}
	secondary := make([]byte, secondaryHeaderSize)
	copy(secondary, field)
	var sum uint32
	for i := 0; i < secondaryHeaderSize-2; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(secondary[i : i+2]))
		sum = (sum & 0xFFFF) + (sum >> 16)
	}
	binary.BigEndian.PutUint16(secondary[secondaryHeaderSize-2:], uint16(sum))
	return secondary, nil
}

func encodeTime(tf uint8, timestampUs int64) ([]byte, error) {
	if timestampUs < 0 {
		return nil, fmt.Errorf("negative timestamp %d", timestampUs)
	}
	buf := make([]byte, secondaryTimeFieldLen)
	seconds := timestampUs / 1_000_000
	fractional := timestampUs % 1_000_000
	switch tf {
	case timeFormatIRIG106:
		totalHundredths := uint64(seconds*100 + fractional/10_000)
		binary.BigEndian.PutUint16(buf[0:2], uint16(totalHundredths>>16))
		binary.BigEndian.PutUint16(buf[2:4], uint16(totalHundredths))
		binary.BigEndian.PutUint16(buf[4:6], uint16(fractional%10_000))
	case timeFormatIEEE1588:
		binary.BigEndian.PutUint32(buf[0:4], uint32(fractional*1000))
		binary.BigEndian.PutUint32(buf[4:8], uint32(seconds))
	default:
		return nil, ErrUnsupportedTimeFormat
	}
	return buf, nil
}

// NewMIL1553Message records tr as it would appear on bus 'A' or 'B'. gap is
// the raw gap time word.
func NewMIL1553Message(ipts uint64, bus byte, gap uint16, tr Transaction) MIL1553Message {
	msg := MIL1553Message{
		IPTS:        ipts,
		GapTimeWord: gap,
		Words:       tr.Words(),
		Transaction: tr,
	}
	if bus == 'B' {
		msg.BlockStatusWord |= BlockStatusBusB
	}
	if tr.RTToRT {
		msg.BlockStatusWord |= BlockStatusRTToRT
	}
	if !tr.Complete() {
		msg.BlockStatusWord |= BlockStatusWordCountErr
	}
	msg.LengthWord = uint16(2 * len(msg.Words))
	return msg
}

// Build1553Packet writes msgs as one MIL-STD-1553 format 1 packet.
func Build1553Packet(profile string, channelID uint16, seq uint8, msgs []MIL1553Message) ([]byte, error) {
	size := 4
	for _, m := range msgs {
		size += 8 + ipdhSize + 2*len(m.Words)
	}
	payload := make([]byte, size)
	binary.BigEndian.PutUint32(payload[0:4], uint32(len(msgs))&0x00FFFFFF)
	cursor := 4
	for i, m := range msgs {
		if len(m.Words) > 0xFFFF/2 {
			return nil, fmt.Errorf("mil1553[%d]: %d words do not fit the length word", i, len(m.Words))
		}
		binary.BigEndian.PutUint64(payload[cursor:], m.IPTS)
		binary.BigEndian.PutUint16(payload[cursor+8:], m.BlockStatusWord)
		binary.BigEndian.PutUint16(payload[cursor+10:], m.GapTimeWord)
		binary.BigEndian.PutUint16(payload[cursor+12:], uint16(2*len(m.Words)))
		cursor += 8 + ipdhSize
		for _, w := range m.Words {
			binary.BigEndian.PutUint16(payload[cursor:], w)
			cursor += 2
		}
	}
	return BuildPacket(profile, channelID, DataTypeMIL1553Fmt1, seq, 0, nil, payload)
}
