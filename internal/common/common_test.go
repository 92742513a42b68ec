package common

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.Start()
	m.SetTotalBytes(100)
	m.AddPacket(40)
	m.AddPacket(0)
	m.IncResync()
	m.IncMessage()
	m.IncMessage()
	m.IncDecodeFailure()
	m.Stop()

	s := m.Snapshot()
	if s.Packets != 1 {
		t.Fatalf("Packets = %d, want 1", s.Packets)
	}
	if s.Bytes != 40 {
		t.Fatalf("Bytes = %d, want 40", s.Bytes)
	}
	if s.Messages != 2 || s.Failures != 1 {
		t.Fatalf("Messages/Failures = %d/%d, want 2/1", s.Messages, s.Failures)
	}
	if got := s.Completion(); got != 0.4 {
		t.Fatalf("Completion = %v, want 0.4", got)
	}
	if line := formatProgressLine(s); !strings.Contains(line, "2 msgs, 1 failed") {
		t.Fatalf("progress line %q missing message counts", line)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{512, "512 B"},
		{2048, "2.00 KiB"},
		{3 * 1024 * 1024, "3.00 MiB"},
	}
	for _, tc := range tests {
		if got := FormatBytes(tc.in); got != tc.want {
			t.Fatalf("FormatBytes(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestStartProgressPrinter(t *testing.T) {
	var buf bytes.Buffer
	m := NewMetrics()
	m.Start()
	m.AddBytes(10)
	stop := StartProgressPrinter(&buf, m, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	stop()
	if !strings.Contains(buf.String(), "Processed:") {
		t.Fatalf("progress output = %q, want Processed line", buf.String())
	}
}

func TestSha256OfFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}
	sum, size, err := Sha256OfFile(path)
	if err != nil {
		t.Fatalf("Sha256OfFile: %v", err)
	}
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if sum != want || size != 3 {
		t.Fatalf("Sha256OfFile = %s/%d, want %s/3", sum, size, want)
	}
}

func TestSetupLogging(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	closer, err := SetupLogging(LogConfig{Directory: dir, MaxSizeMB: 1}, "milbusctl")
	if err != nil {
		t.Fatalf("SetupLogging: %v", err)
	}
	defer SetLogOutput(os.Stderr)
	Logf("hello %d", 1)
	if err := closer.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "milbusctl.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "[milbus] ") || !strings.Contains(string(data), "hello 1") {
		t.Fatalf("log file = %q", data)
	}

	closer, err = SetupLogging(LogConfig{}, "none")
	if err != nil || closer == nil {
		t.Fatalf("SetupLogging without dir = %v, %v", closer, err)
	}
}
