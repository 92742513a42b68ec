package ch10

import (
	"encoding/binary"
	"errors"
	"fmt"

	"example.com/milbus/pkg/mil1553"
)

var ErrEmptyTransaction = errors.New("bus transaction has no words")

// DecodeTransaction splits the recorded words of one bus exchange into its
// command, data and status words. Recorded words carry no parity, so every
// word is taken with calculated parity. Missing trailing words (a terminal
// that never answered, a truncated record) leave the matching fields unset.
func DecodeTransaction(words []uint16, rtToRT bool) (Transaction, error) {
	var tr Transaction
	if len(words) == 0 {
		return tr, ErrEmptyTransaction
	}
	raw := wordBytes(words)
	cmd, err := mil1553.ParseCommandWord(raw)
	if err != nil {
		return tr, err
	}
	tr.Command = cmd

	switch {
	case rtToRT:
		tr.RTToRT = true
		if len(words) < 2 {
			return tr, fmt.Errorf("rt-to-rt transfer without transmit command: %w", mil1553.ErrBufferTooShort)
		}
		tr.TxCommand, _ = mil1553.ParseCommandWord(raw[2:])
		rest := words[2:]
		if len(rest) == 0 {
			return tr, nil
		}
		end := min(len(rest), 1+tr.TxCommand.TransferCount())
		payload, err := mil1553.ReadStatus(wordBytes(rest[:end]))
		if err != nil {
			return tr, fmt.Errorf("transmitter response: %w", err)
		}
		tr.Payload = payload
		tr.TxStatus, tr.HasTx = payload.Status()
		if len(rest) > end {
			tr.Status, _ = mil1553.ParseStatusWord(wordBytes(rest[end : end+1]))
			tr.HasStatus = true
		}
	case cmd.IsTransmit():
		if len(words) == 1 {
			return tr, nil
		}
		end := min(len(words), 2+cmd.TransferCount())
		payload, err := mil1553.ReadStatus(wordBytes(words[1:end]))
		if err != nil {
			return tr, fmt.Errorf("transmit response: %w", err)
		}
		tr.Payload = payload
		tr.Status, tr.HasStatus = payload.Status()
	default:
		end := min(len(words), 1+cmd.TransferCount())
		payload, err := mil1553.ReadCommand(raw[:2*end])
		if err != nil {
			return tr, fmt.Errorf("receive data: %w", err)
		}
		tr.Payload = payload
		if len(words) > end {
			tr.Status, _ = mil1553.ParseStatusWord(raw[2*end:])
			tr.HasStatus = true
		}
	}
	return tr, nil
}

// ReceiveTransaction assembles a controller-to-terminal transfer. A nil
// status records a broadcast or a terminal that did not answer.
func ReceiveTransaction(cmd mil1553.CommandWord, data []mil1553.DataWord, status *mil1553.StatusWord) (Transaction, error) {
	if cmd.IsTransmit() {
		return Transaction{}, fmt.Errorf("%s is a transmit command", cmd)
	}
	payload, err := mil1553.NewMessageBuilder(mil1553.MaxWords).
		WithCommand(cmd).
		WithDataWords(data...).
		Build()
	if err != nil {
		return Transaction{}, err
	}
	tr := Transaction{Command: cmd, Payload: payload}
	if status != nil {
		tr.Status, tr.HasStatus = *status, true
	}
	return tr, nil
}

// TransmitTransaction assembles a terminal-to-controller transfer.
func TransmitTransaction(cmd mil1553.CommandWord, status mil1553.StatusWord, data []mil1553.DataWord) (Transaction, error) {
	if !cmd.IsTransmit() {
		return Transaction{}, fmt.Errorf("%s is a receive command", cmd)
	}
	payload, err := statusPayload(status, data)
	if err != nil {
		return Transaction{}, err
	}
	return Transaction{Command: cmd, Payload: payload, Status: status, HasStatus: true}, nil
}

// RTToRTTransaction assembles a terminal-to-terminal transfer. A nil rxStatus
// records a broadcast receive command.
func RTToRTTransaction(rx, tx mil1553.CommandWord, txStatus mil1553.StatusWord, data []mil1553.DataWord, rxStatus *mil1553.StatusWord) (Transaction, error) {
	payload, err := statusPayload(txStatus, data)
	if err != nil {
		return Transaction{}, err
	}
	tr := Transaction{
		RTToRT:    true,
		Command:   rx,
		TxCommand: tx,
		Payload:   payload,
		TxStatus:  txStatus,
		HasTx:     true,
	}
	if rxStatus != nil {
		tr.Status, tr.HasStatus = *rxStatus, true
	}
	return tr, nil
}

func statusPayload(status mil1553.StatusWord, data []mil1553.DataWord) (mil1553.Message, error) {
	return mil1553.NewMessageBuilder(mil1553.MaxWords).
		WithStatus(status).
		WithDataWords(data...).
		Build()
}

// DataExpected is the number of data words the command moves on the bus.
func (t Transaction) DataExpected() int {
	if t.RTToRT {
		return t.TxCommand.TransferCount()
	}
	return t.Command.TransferCount()
}

func (t Transaction) DataCount() int {
	return t.Payload.DataCount()
}

// Complete reports whether every data word the command asked for was seen.
func (t Transaction) Complete() bool {
	return t.DataCount() == t.DataExpected()
}

func (t Transaction) Broadcast() bool {
	return t.Command.Address().IsBroadcast()
}

func (t Transaction) Data() []mil1553.DataWord {
	out := make([]mil1553.DataWord, 0, t.DataCount())
	for i := 0; i < t.DataCount(); i++ {
		d, _ := t.Payload.Data(i)
		out = append(out, d)
	}
	return out
}

// Words returns the transaction in bus order.
func (t Transaction) Words() []uint16 {
	var out []uint16
	payload := bytesToWords(t.Payload.Bytes())
	switch {
	case t.RTToRT:
		out = append(out, t.Command.Value(), t.TxCommand.Value())
		out = append(out, payload...)
	case t.Command.IsTransmit():
		out = append(out, t.Command.Value())
		out = append(out, payload...)
		return out
	default:
		out = append(out, payload...)
	}
	if t.HasStatus {
		out = append(out, t.Status.Value())
	}
	return out
}

func wordBytes(words []uint16) []byte {
	buf := make([]byte, 2*len(words))
	for i, w := range words {
		binary.BigEndian.PutUint16(buf[2*i:], w)
	}
	return buf
}

func bytesToWords(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(b[2*i:])
	}
	return out
}
