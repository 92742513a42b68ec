package ch10

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"example.com/milbus/internal/common"
)

const (
	syncPattern           = 0xEB25
	primaryHeaderSize     = 20
	secondaryHeaderSize   = 12
	secondaryTimeFieldLen = 8
	defaultResyncWindow   = 64 * 1024

	packetFlagTimeFormatMask = 0x0C
	packetFlagSecondaryHdr   = 0x80

	timeFormatIRIG106  = 0x00
	timeFormatIEEE1588 = 0x04

	DataTypeTime        uint16 = 0x11
	DataTypeMIL1553Fmt1 uint16 = 0x18

	ipdhSize = 6
)

var (
	ErrNoSync                = errors.New("sync pattern 0xEB25 not found at expected position")
	ErrUnsupportedProfile    = errors.New("unsupported Chapter 10 profile")
	ErrUnsupportedTimeFormat = errors.New("unsupported secondary header time format")
)

func ParsePrimaryHeader(buf []byte) (PacketHeader, error) {
	var hdr PacketHeader
	if len(buf) < primaryHeaderSize {
		return hdr, io.ErrUnexpectedEOF
	}
	hdr.Sync = binary.BigEndian.Uint16(buf[0:2])
	hdr.ChannelID = binary.BigEndian.Uint16(buf[2:4])
	hdr.PacketLength = binary.BigEndian.Uint32(buf[4:8])
	hdr.DataLength = binary.BigEndian.Uint32(buf[8:12])
	hdr.DataType = binary.BigEndian.Uint16(buf[12:14])
	hdr.SeqNum = buf[14]
	hdr.Flags = buf[15]
	hdr.Checksum = binary.BigEndian.Uint16(buf[16:18])
	return hdr, nil
}

func parseSecHdrFlags(hdr *PacketHeader) (bool, uint8) {
	if hdr == nil {
		return false, 0
	}
	has := hdr.Flags&packetFlagSecondaryHdr != 0
	tf := hdr.Flags & packetFlagTimeFormatMask
	return has, tf
}

func isTimePacket(hdr *PacketHeader) bool {
	return hdr != nil && hdr.DataType == DataTypeTime
}

const minDataBlockSize = 1 << 20

// blockSource serves byte ranges of a file through one reusable window.
type blockSource struct {
	file      *os.File
	size      int64
	blockSize int
	buf       []byte
	bufStart  int64
	bufLen    int
}

func newBlockSource(f *os.File, size int64) *blockSource {
	return &blockSource{file: f, size: size, blockSize: minDataBlockSize}
}

func (bs *blockSource) Close() error {
	if bs.file == nil {
		return nil
	}
	err := bs.file.Close()
	bs.file = nil
	bs.buf = nil
	bs.bufLen = 0
	return err
}

func (bs *blockSource) fill(offset int64, length int) error {
	if bs.file == nil {
		return io.EOF
	}
	if offset >= bs.bufStart && offset+int64(length) <= bs.bufStart+int64(bs.bufLen) {
		return nil
	}
	for bs.blockSize < length {
		bs.blockSize *= 2
	}
	if len(bs.buf) < bs.blockSize {
		bs.buf = make([]byte, bs.blockSize)
	}
	toRead := int64(bs.blockSize)
	if remain := bs.size - offset; remain < toRead {
		toRead = remain
	}
	if toRead <= 0 {
		bs.bufLen = 0
		return io.EOF
	}
	n, err := bs.file.ReadAt(bs.buf[:toRead], offset)
	bs.bufStart = offset
	bs.bufLen = n
	if err != nil && !errors.Is(err, io.EOF) {
		bs.bufLen = 0
		return err
	}
	if n == 0 {
		return io.EOF
	}
	return nil
}

// Slice returns a view of up to length bytes at offset. The view is valid
// until the next call.
func (bs *blockSource) Slice(offset int64, length int) ([]byte, error) {
	if length <= 0 {
		return []byte{}, nil
	}
	if offset < 0 {
		return nil, io.ErrUnexpectedEOF
	}
	if offset >= bs.size {
		return nil, io.EOF
	}
	if err := bs.fill(offset, length); err != nil {
		return nil, err
	}
	start := int(offset - bs.bufStart)
	end := min(start+length, bs.bufLen)
	view := bs.buf[start:end]
	if len(view) < length {
		return view, io.EOF
	}
	return view, nil
}

func sliceExact(src *blockSource, offset int64, length int) ([]byte, error) {
	view, err := src.Slice(offset, length)
	if len(view) < length {
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return nil, io.ErrUnexpectedEOF
	}
	return view[:length], nil
}

func decodeIPTSToMicros(tf uint8, raw []byte) (int64, SecondaryHeader, error) {
	secondary := SecondaryHeader{HasSecHdr: true, TimeFormat: tf, TimeStampUs: -1}
	if len(raw) < secondaryTimeFieldLen {
		return -1, secondary, fmt.Errorf("timestamp too short: %d bytes", len(raw))
	}
	switch tf {
	case timeFormatIRIG106:
		high := binary.BigEndian.Uint16(raw[0:2])
		low := binary.BigEndian.Uint16(raw[2:4])
		usec := binary.BigEndian.Uint16(raw[4:6])
		totalHundredths := uint64(high)<<16 | uint64(low)
		seconds := totalHundredths / 100
		fractionalMicros := (totalHundredths%100)*10_000 + uint64(usec)
		seconds += fractionalMicros / 1_000_000
		fractionalMicros %= 1_000_000
		secondary.Seconds = uint32(seconds)
		secondary.Subsecond = uint32(fractionalMicros)
		secondary.TimeStampUs = int64(seconds*1_000_000 + fractionalMicros)
		return secondary.TimeStampUs, secondary, nil
	case timeFormatIEEE1588:
		nanos := binary.BigEndian.Uint32(raw[0:4])
		secs := binary.BigEndian.Uint32(raw[4:8])
		secondary.Seconds = secs
		secondary.Subsecond = nanos
		secondary.TimeStampUs = int64(secs)*1_000_000 + int64(nanos)/1_000
		return secondary.TimeStampUs, secondary, nil
	default:
		return -1, secondary, ErrUnsupportedTimeFormat
	}
}

// Reader walks a Chapter 10 file packet by packet, decoding 1553 bus traffic
// and building an index as it goes.
type Reader struct {
	source       *blockSource
	size         int64
	offset       int64
	resyncWindow int64
	resyncBuf    []byte

	metrics *common.Metrics

	primary    PacketHeader
	primarySet bool
	index      FileIndex

	lastTimeRefUs int64
	timeSeen      bool
	dynamicSeen   bool
}

// NewReader opens the file at path.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &Reader{
		source:        newBlockSource(f, info.Size()),
		size:          info.Size(),
		resyncWindow:  defaultResyncWindow,
		lastTimeRefUs: -1,
		index:         FileIndex{TimeSeenBeforeDynamic: true},
	}, nil
}

func (r *Reader) Close() error {
	if r.source == nil {
		return nil
	}
	err := r.source.Close()
	r.source = nil
	return err
}

// SetMetrics attaches a metrics recorder to the reader.
func (r *Reader) SetMetrics(m *common.Metrics) {
	r.metrics = m
	if r.metrics != nil {
		r.metrics.SetTotalBytes(r.size)
	}
}

// PrimaryHeader returns the first successfully parsed packet header.
func (r *Reader) PrimaryHeader() (PacketHeader, bool) {
	return r.primary, r.primarySet
}

// Index returns a copy of the accumulated file index.
func (r *Reader) Index() FileIndex {
	out := r.index
	out.Packets = append([]PacketIndex(nil), r.index.Packets...)
	return out
}

// Next advances to the next packet. It returns io.EOF at the end of the file.
func (r *Reader) Next() (PacketHeader, PacketIndex, error) {
	if r.source == nil {
		return PacketHeader{}, PacketIndex{}, io.EOF
	}
	for {
		if r.offset+primaryHeaderSize > r.size {
			if r.offset >= r.size {
				return PacketHeader{}, PacketIndex{}, io.EOF
			}
			return PacketHeader{}, PacketIndex{}, io.ErrUnexpectedEOF
		}
		headerView, err := sliceExact(r.source, r.offset, primaryHeaderSize)
		if err != nil {
			return PacketHeader{}, PacketIndex{}, err
		}
		hdr, err := ParsePrimaryHeader(headerView)
		if err != nil {
			return PacketHeader{}, PacketIndex{}, err
		}
		if hdr.Sync != syncPattern {
			if err := r.resync("sync pattern"); err != nil {
				return PacketHeader{}, PacketIndex{}, err
			}
			continue
		}
		totalLen := int64(hdr.PacketLength) + 4
		if totalLen < primaryHeaderSize {
			if err := r.resync("packet length too small"); err != nil {
				return PacketHeader{}, PacketIndex{}, err
			}
			continue
		}
		nextOffset := r.offset + totalLen
		if nextOffset > r.size {
			if err := r.resync("packet length beyond file"); err != nil {
				return PacketHeader{}, PacketIndex{}, err
			}
			continue
		}
		if !r.primarySet {
			r.primary = hdr
			r.primarySet = true
		}

		idx := r.indexPacket(hdr, nextOffset)
		r.index.Packets = append(r.index.Packets, idx)
		if r.metrics != nil {
			r.metrics.AddPacket(totalLen)
		}
		r.offset = nextOffset
		return hdr, idx, nil
	}
}

func (r *Reader) indexPacket(hdr PacketHeader, nextOffset int64) PacketIndex {
	hasSecHdr, timeFmt := parseSecHdrFlags(&hdr)
	isTime := isTimePacket(&hdr)
	idx := PacketIndex{
		Offset:       r.offset,
		ChannelID:    hdr.ChannelID,
		DataType:     hdr.DataType,
		SeqNum:       hdr.SeqNum,
		Flags:        hdr.Flags,
		PacketLength: hdr.PacketLength,
		DataLength:   hdr.DataLength,
		HasSecHdr:    hasSecHdr,
		TimeStampUs:  -1,
		TimeFormat:   timeFmt,
		Source:       TimestampSourceUnknown,
		IsTimePacket: isTime,
	}

	secOffset := r.offset + primaryHeaderSize
	if hasSecHdr {
		if secOffset+secondaryHeaderSize <= nextOffset {
			idx.SecHdrBytes = true
			if buf, err := sliceExact(r.source, secOffset, secondaryTimeFieldLen); err == nil {
				ts, _, err := decodeIPTSToMicros(timeFmt, buf)
				if err != nil {
					common.Logf("packet at offset %d timestamp decode failed: %v", r.offset, err)
				} else {
					idx.TimeStampUs = ts
					idx.SecHdrValid = true
					idx.Source = TimestampSourceSecondaryHeader
				}
			} else {
				common.Logf("packet at offset %d timestamp read failed: %v", r.offset, err)
			}
		} else {
			common.Logf("packet at offset %d missing secondary header bytes", r.offset)
		}
	}

	payloadOffset := secOffset
	payloadLen := int64(hdr.DataLength)
	if hasSecHdr {
		payloadOffset += secondaryHeaderSize
		payloadLen = max(payloadLen-secondaryHeaderSize, 0)
	}
	payloadLen = max(min(payloadLen, nextOffset-payloadOffset), 0)

	switch {
	case isTime:
		r.index.HasTimePacket = true
		if idx.TimeStampUs < 0 && payloadLen >= secondaryTimeFieldLen {
			if buf, err := sliceExact(r.source, payloadOffset, secondaryTimeFieldLen); err == nil {
				if ts, _, err := decodeIPTSToMicros(timeFmt, buf); err == nil {
					idx.TimeStampUs = ts
				}
			}
		}
		if idx.TimeStampUs >= 0 {
			r.lastTimeRefUs = idx.TimeStampUs
			r.timeSeen = true
			idx.Source = TimestampSourceTimePacket
		}
	default:
		if !r.dynamicSeen {
			r.dynamicSeen = true
			r.index.TimeSeenBeforeDynamic = r.timeSeen
		}
	}

	if hdr.DataType == DataTypeMIL1553Fmt1 {
		info, err := parseMIL1553Payload(r.source, payloadOffset, payloadLen)
		if err != nil {
			common.Logf("1553 parse error at offset %d: %v", r.offset, err)
		} else {
			if info.ParseError != "" {
				common.Logf("1553 parse warning at offset %d: %s", r.offset, info.ParseError)
			}
			r.countMessages(info)
			idx.MIL1553 = info
			if idx.TimeStampUs < 0 && len(info.Messages) > 0 && r.lastTimeRefUs >= 0 {
				idx.TimeStampUs = r.lastTimeRefUs + int64(info.Messages[0].IPTS)
				idx.Source = TimestampSourceIPTS
			}
		}
	}
	return idx
}

func (r *Reader) countMessages(info *MIL1553Info) {
	if r.metrics == nil {
		return
	}
	for _, msg := range info.Messages {
		if msg.DecodeError != "" {
			r.metrics.IncDecodeFailure()
			continue
		}
		r.metrics.IncMessage()
	}
}

func (r *Reader) resync(reason string) error {
	common.Logf("resync at offset %d: %s", r.offset, reason)
	if r.metrics != nil {
		r.metrics.IncResync()
	}
	origOffset := r.offset
	defer func() {
		if r.metrics != nil && r.offset > origOffset {
			r.metrics.AddBytes(r.offset - origOffset)
		}
	}()
	start := r.offset + 1
	limit := min(start+r.resyncWindow, r.size)
	if limit-start < 2 {
		r.offset = r.size
		return io.EOF
	}
	window := int(limit - start)
	if len(r.resyncBuf) < window {
		r.resyncBuf = make([]byte, window)
	}
	buf := r.resyncBuf[:window]
	n, err := r.source.file.ReadAt(buf, start)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	for i := 0; i < n-1; i++ {
		if buf[i] == 0xEB && buf[i+1] == 0x25 {
			r.offset = start + int64(i)
			common.Logf("resync successful, new offset %d", r.offset)
			return nil
		}
	}
	r.offset = limit
	if limit >= r.size {
		return io.EOF
	}
	return ErrNoSync
}

// ScanFile reads every packet of the file at path and returns the index.
func ScanFile(path string, m *common.Metrics) (PacketHeader, FileIndex, error) {
	reader, err := NewReader(path)
	if err != nil {
		return PacketHeader{}, FileIndex{}, err
	}
	defer reader.Close()
	reader.SetMetrics(m)

	for {
		_, _, err := reader.Next()
		if err == nil {
			continue
		}
		if errors.Is(err, io.EOF) {
			break
		}
		return PacketHeader{}, FileIndex{}, err
	}
	idx := reader.Index()
	hdr, ok := reader.PrimaryHeader()
	if !ok {
		return PacketHeader{}, idx, ErrNoSync
	}
	return hdr, idx, nil
}

func parseMIL1553Payload(src *blockSource, offset int64, payloadLen int64) (*MIL1553Info, error) {
	info := &MIL1553Info{}
	if payloadLen < 4 {
		info.ParseError = "payload shorter than CSDW"
		return info, nil
	}
	buf, err := sliceExact(src, offset, 4)
	if err != nil {
		return info, err
	}
	info.CSDW = binary.BigEndian.Uint32(buf)
	info.TTB = uint8((info.CSDW >> 30) & 0x3)
	info.MessageCount = info.CSDW & 0x00FFFFFF
	cursor := offset + 4
	end := offset + payloadLen

	for msgIdx := uint32(0); msgIdx < info.MessageCount; msgIdx++ {
		if cursor+8+ipdhSize > end {
			info.ParseError = fmt.Sprintf("message %d missing intra-packet header", msgIdx+1)
			break
		}
		hdrBuf, err := sliceExact(src, cursor, 8+ipdhSize)
		if err != nil {
			return info, err
		}
		msg := MIL1553Message{
			IPTS:            binary.BigEndian.Uint64(hdrBuf[0:8]),
			BlockStatusWord: binary.BigEndian.Uint16(hdrBuf[8:10]),
			GapTimeWord:     binary.BigEndian.Uint16(hdrBuf[10:12]),
			LengthWord:      binary.BigEndian.Uint16(hdrBuf[12:14]),
		}
		cursor += 8 + ipdhSize
		msgLen := int64(msg.LengthWord)
		if cursor+msgLen > end {
			info.ParseError = fmt.Sprintf("message %d extends past payload", msgIdx+1)
			break
		}
		body, err := sliceExact(src, cursor, int(msgLen))
		if err != nil {
			return info, err
		}
		decodeMessageBody(&msg, body)
		info.Messages = append(info.Messages, msg)
		cursor += msgLen
	}

	if info.ParseError == "" && info.MessageCount != uint32(len(info.Messages)) {
		info.ParseError = fmt.Sprintf("message count mismatch: expected %d, parsed %d", info.MessageCount, len(info.Messages))
	}
	return info, nil
}

func decodeMessageBody(msg *MIL1553Message, body []byte) {
	if len(body)%2 != 0 {
		msg.DecodeError = fmt.Sprintf("odd message length %d", len(body))
		return
	}
	msg.Words = bytesToWords(body)
	tr, err := DecodeTransaction(msg.Words, msg.BlockStatusWord&BlockStatusRTToRT != 0)
	msg.Transaction = tr
	if err != nil {
		msg.DecodeError = err.Error()
	}
}

// ComputeHeaderChecksum calculates the primary header checksum for profile.
func ComputeHeaderChecksum(profile string, header []byte) (uint16, error) {
	if len(header) < primaryHeaderSize {
		return 0, fmt.Errorf("header too short: %d bytes", len(header))
	}
	switch profile {
	case "106-15":
		var sum uint32
		// first 16 bytes, through the flags field
		for i := 0; i < 16; i += 2 {
			sum += uint32(binary.BigEndian.Uint16(header[i : i+2]))
			sum = (sum & 0xFFFF) + (sum >> 16)
		}
		return ^uint16(sum & 0xFFFF), nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnsupportedProfile, profile)
	}
}
