package dict

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"example.com/milbus/pkg/mil1553"
)

func intPtr(v int) *int { return &v }

func TestFromFileValidation(t *testing.T) {
	tests := []struct {
		name    string
		entry   FileEntry
		wantErr string
	}{
		{name: "rt out of range", entry: FileEntry{RT: 31, SA: 1}, wantErr: "rt out of range"},
		{name: "sa out of range", entry: FileEntry{RT: 1, SA: 32}, wantErr: "sa out of range"},
		{name: "wc out of range", entry: FileEntry{RT: 1, SA: 1, WordCount: intPtr(33)}, wantErr: "wc out of range"},
		{name: "direction", entry: FileEntry{RT: 1, SA: 1, Direction: "X"}, wantErr: "direction"},
		{name: "mode codes on data subaddress", entry: FileEntry{RT: 1, SA: 4, ModeCodes: []int{2}}, wantErr: "mode codes"},
		{name: "mode code out of range", entry: FileEntry{RT: 1, SA: 0, ModeCodes: []int{40}}, wantErr: "mode code out of range"},
		{name: "valid", entry: FileEntry{RT: 1, SA: 0, ModeCodes: []int{2, 17}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FromFile(File{MIL1553: []FileEntry{tc.entry}})
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("FromFile: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want %q", err, tc.wantErr)
			}
		})
	}

	_, err := FromFile(File{MIL1553: []FileEntry{{RT: 1, SA: 1}, {RT: 1, SA: 1}}})
	if err == nil || !strings.Contains(err.Error(), "duplicate rt/sa") {
		t.Fatalf("duplicate error = %v", err)
	}
}

const sampleYAML = `mil1553:
  - rt: 5
    sa: 1
    name: NAV_DATA
    direction: r
    wc: 2
    broadcast: true
  - rt: 5
    sa: 0
    name: RT5_MODE
    modeCodes: [1, 2, 17]
`

func TestLoadYAMLAndJSON(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "icd.yaml")
	if err := os.WriteFile(yamlPath, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	jsonPath := filepath.Join(dir, "icd.json")
	if err := os.WriteFile(jsonPath, []byte(`{"mil1553":[{"rt":5,"sa":1,"name":"NAV_DATA","direction":"R","wc":2,"broadcast":true},{"rt":5,"sa":0,"name":"RT5_MODE","modeCodes":[1,2,17]}]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{yamlPath, jsonPath} {
		store, err := EnsureLoaded(path)
		if err != nil {
			t.Fatalf("EnsureLoaded(%s): %v", path, err)
		}
		if store.Len() != 2 {
			t.Fatalf("%s: Len = %d, want 2", path, store.Len())
		}
		entry, ok := store.Lookup(5, 1)
		if !ok || entry.Name != "NAV_DATA" || entry.Direction != "R" || !entry.Broadcast {
			t.Fatalf("%s: Lookup(5,1) = %+v, %v", path, entry, ok)
		}
		if wc, ok := entry.WordCountValue(); !ok || wc != 2 {
			t.Fatalf("%s: WordCountValue = %d, %v", path, wc, ok)
		}
	}
	if _, err := EnsureLoaded(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
	if _, err := EnsureLoaded(dir); err == nil {
		t.Fatalf("expected error for directory path")
	}
}

func TestMarshalYAMLRoundTrip(t *testing.T) {
	var file File
	if err := yaml.Unmarshal([]byte(sampleYAML), &file); err != nil {
		t.Fatal(err)
	}
	store, err := FromFile(file)
	if err != nil {
		t.Fatal(err)
	}
	out, err := yaml.Marshal(store)
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}
	var back File
	if err := yaml.Unmarshal(out, &back); err != nil {
		t.Fatal(err)
	}
	again, err := FromFile(back)
	if err != nil {
		t.Fatalf("FromFile(marshalled): %v", err)
	}
	if got := again.Entries(); len(got) != 2 || got[0].SA != 0 || got[1].SA != 1 {
		t.Fatalf("Entries = %+v", got)
	}
}

func mustCommand(t *testing.T, rt, sa, wc int, tr mil1553.TransmitReceive) mil1553.CommandWord {
	t.Helper()
	cw, err := mil1553.NewCommandWord().WithAddress(rt).WithTransmitReceive(tr).WithSubaddress(sa).WithWordCount(wc).Build()
	if err != nil {
		t.Fatal(err)
	}
	return cw
}

func TestCheckCommand(t *testing.T) {
	var file File
	if err := yaml.Unmarshal([]byte(sampleYAML), &file); err != nil {
		t.Fatal(err)
	}
	store, err := FromFile(file)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		name string
		cw   mil1553.CommandWord
		want []string
	}{
		{name: "match", cw: mustCommand(t, 5, 1, 2, mil1553.Receive)},
		{name: "word count", cw: mustCommand(t, 5, 1, 3, mil1553.Receive), want: []string{FindingWordCount}},
		{name: "direction", cw: mustCommand(t, 5, 1, 2, mil1553.Transmit), want: []string{FindingDirection}},
		{name: "unknown", cw: mustCommand(t, 6, 1, 2, mil1553.Receive), want: []string{FindingUnknown}},
		{name: "broadcast allowed", cw: mustCommand(t, 31, 1, 2, mil1553.Receive)},
		{name: "broadcast denied", cw: mustCommand(t, 31, 2, 2, mil1553.Receive), want: []string{FindingBroadcastDisabled}},
		{name: "mode code allowed", cw: mustCommand(t, 5, 0, int(mil1553.TransmitStatusWord), mil1553.Transmit)},
		{name: "mode code denied", cw: mustCommand(t, 5, 0, int(mil1553.ResetRemoteTerminal), mil1553.Transmit), want: []string{FindingModeCode}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			findings := store.CheckCommand(tc.cw)
			if len(findings) != len(tc.want) {
				t.Fatalf("findings = %+v, want codes %v", findings, tc.want)
			}
			for i, f := range findings {
				if f.Code != tc.want[i] {
					t.Fatalf("finding %d code = %s, want %s", i, f.Code, tc.want[i])
				}
			}
		})
	}

	msg, err := mil1553.NewMessageBuilder(mil1553.MaxWords).WithCommand(mustCommand(t, 6, 1, 0, mil1553.Receive)).Build()
	if err != nil {
		t.Fatal(err)
	}
	if got := store.Check(msg); len(got) != 1 || got[0].Code != FindingUnknown {
		t.Fatalf("Check = %+v", got)
	}
	var empty *Store
	if got := empty.CheckCommand(mustCommand(t, 6, 1, 0, mil1553.Receive)); got != nil {
		t.Fatalf("nil store findings = %+v", got)
	}
}
