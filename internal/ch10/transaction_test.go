package ch10

import (
	"errors"
	"reflect"
	"testing"

	"example.com/milbus/pkg/mil1553"
)

func mustCommand(t *testing.T, rt, sa, wc int, tr mil1553.TransmitReceive) mil1553.CommandWord {
	t.Helper()
	cw, err := mil1553.NewCommandWord().
		WithAddress(rt).
		WithTransmitReceive(tr).
		WithSubaddress(sa).
		WithWordCount(wc).
		Build()
	if err != nil {
		t.Fatalf("build command: %v", err)
	}
	return cw
}

func mustStatus(t *testing.T, rt int) mil1553.StatusWord {
	t.Helper()
	sw, err := mil1553.NewStatusWord().WithAddress(rt).Build()
	if err != nil {
		t.Fatalf("build status: %v", err)
	}
	return sw
}

func TestDecodeTransaction(t *testing.T) {
	rx := mustCommand(t, 3, 4, 2, mil1553.Receive).Value()
	tx := mustCommand(t, 7, 9, 2, mil1553.Transmit).Value()
	bcast := mustCommand(t, 31, 4, 1, mil1553.Receive).Value()
	rxRT := mustCommand(t, 3, 4, 2, mil1553.Receive).Value()
	mode := mustCommand(t, 3, 0, int(mil1553.TransmitVectorWord), mil1553.Transmit).Value()
	sync := mustCommand(t, 3, 31, int(mil1553.Synchronize), mil1553.Receive).Value()
	st3 := mustStatus(t, 3).Value()
	st7 := mustStatus(t, 7).Value()

	tests := []struct {
		name      string
		words     []uint16
		rtToRT    bool
		expected  int
		count     int
		complete  bool
		hasStatus bool
		hasTx     bool
	}{
		{name: "receive", words: []uint16{rx, 0xA, 0xB, st3}, expected: 2, count: 2, complete: true, hasStatus: true},
		{name: "receive no response", words: []uint16{rx, 0xA, 0xB}, expected: 2, count: 2, complete: true},
		{name: "receive truncated", words: []uint16{rx, 0xA}, expected: 2, count: 1},
		{name: "transmit", words: []uint16{tx, st7, 0xA, 0xB}, expected: 2, count: 2, complete: true, hasStatus: true},
		{name: "transmit no response", words: []uint16{tx}, expected: 2, count: 0},
		{name: "broadcast", words: []uint16{bcast, 0xC}, expected: 1, count: 1, complete: true},
		{name: "rt to rt", words: []uint16{rxRT, tx, st7, 0xA, 0xB, st3}, rtToRT: true, expected: 2, count: 2, complete: true, hasStatus: true, hasTx: true},
		{name: "rt to rt no receiver status", words: []uint16{rxRT, tx, st7, 0xA, 0xB}, rtToRT: true, expected: 2, count: 2, complete: true, hasTx: true},
		{name: "mode code with data", words: []uint16{mode, st3, 0x1234}, expected: 1, count: 1, complete: true, hasStatus: true},
		{name: "mode code without data", words: []uint16{sync, st3}, expected: 0, count: 0, complete: true, hasStatus: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tr, err := DecodeTransaction(tc.words, tc.rtToRT)
			if err != nil {
				t.Fatalf("DecodeTransaction: %v", err)
			}
			if tr.DataExpected() != tc.expected {
				t.Fatalf("DataExpected = %d, want %d", tr.DataExpected(), tc.expected)
			}
			if tr.DataCount() != tc.count {
				t.Fatalf("DataCount = %d, want %d", tr.DataCount(), tc.count)
			}
			if tr.Complete() != tc.complete {
				t.Fatalf("Complete = %v, want %v", tr.Complete(), tc.complete)
			}
			if tr.HasStatus != tc.hasStatus {
				t.Fatalf("HasStatus = %v, want %v", tr.HasStatus, tc.hasStatus)
			}
			if tr.HasTx != tc.hasTx {
				t.Fatalf("HasTx = %v, want %v", tr.HasTx, tc.hasTx)
			}
			if got := tr.Words(); !reflect.DeepEqual(got, tc.words) {
				t.Fatalf("Words = %04X, want %04X", got, tc.words)
			}
		})
	}
}

func TestDecodeTransactionErrors(t *testing.T) {
	if _, err := DecodeTransaction(nil, false); !errors.Is(err, ErrEmptyTransaction) {
		t.Fatalf("expected ErrEmptyTransaction, got %v", err)
	}
	rx := mustCommand(t, 3, 4, 2, mil1553.Receive).Value()
	if _, err := DecodeTransaction([]uint16{rx}, true); !errors.Is(err, mil1553.ErrBufferTooShort) {
		t.Fatalf("expected ErrBufferTooShort, got %v", err)
	}
}

func TestTransactionConstructors(t *testing.T) {
	rx := mustCommand(t, 3, 4, 1, mil1553.Receive)
	tx := mustCommand(t, 7, 9, 1, mil1553.Transmit)
	data := []mil1553.DataWord{mil1553.NewDataWord(0x55AA)}

	if _, err := ReceiveTransaction(tx, data, nil); err == nil {
		t.Fatalf("ReceiveTransaction accepted a transmit command")
	}
	if _, err := TransmitTransaction(rx, mustStatus(t, 3), data); err == nil {
		t.Fatalf("TransmitTransaction accepted a receive command")
	}
	extra := append(data, mil1553.NewDataWord(1))
	if _, err := ReceiveTransaction(rx, extra, nil); !errors.Is(err, mil1553.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}

	rxStatus := mustStatus(t, 3)
	tr, err := RTToRTTransaction(rx, tx, mustStatus(t, 7), data, &rxStatus)
	if err != nil {
		t.Fatalf("RTToRTTransaction: %v", err)
	}
	words := tr.Words()
	if len(words) != 5 {
		t.Fatalf("RT-RT words = %d, want 5", len(words))
	}
	back, err := DecodeTransaction(words, true)
	if err != nil {
		t.Fatalf("DecodeTransaction: %v", err)
	}
	if !back.Complete() || back.TxStatus.Address() != 7 || back.Status.Address() != 3 {
		t.Fatalf("decoded RT-RT = %+v", back)
	}
	if got := back.Data(); len(got) != 1 || !got[0].Equal(data[0]) {
		t.Fatalf("Data = %v, want %v", got, data)
	}
	if back.Broadcast() {
		t.Fatalf("Broadcast = true, want false")
	}
}
