package dict

import (
	"fmt"
	"sort"
	"strings"

	"example.com/milbus/pkg/mil1553"
)

// Entry describes one RT/SA pair of the interface control document.
type Entry struct {
	RT        uint8
	SA        uint8
	Name      string
	Direction string
	WordCount *int
	ModeCodes []mil1553.ModeCode
	Broadcast bool
}

type Store struct {
	mil map[milKey]Entry
}

type milKey struct {
	rt uint8
	sa uint8
}

// File is the on-disk dictionary layout shared by the JSON and YAML loaders.
type File struct {
	MIL1553 []FileEntry `json:"mil1553" yaml:"mil1553"`
}

type FileEntry struct {
	RT        int    `json:"rt" yaml:"rt"`
	SA        int    `json:"sa" yaml:"sa"`
	Name      string `json:"name" yaml:"name"`
	Direction string `json:"direction,omitempty" yaml:"direction,omitempty"`
	WordCount *int   `json:"wc,omitempty" yaml:"wc,omitempty"`
	ModeCodes []int  `json:"modeCodes,omitempty" yaml:"modeCodes,omitempty"`
	Broadcast bool   `json:"broadcast,omitempty" yaml:"broadcast,omitempty"`
}

func FromFile(file File) (*Store, error) {
	store := &Store{mil: make(map[milKey]Entry)}
	for i, entry := range file.MIL1553 {
		if entry.RT < 0 || entry.RT > int(mil1553.MaxAddress) {
			return nil, fmt.Errorf("mil1553[%d]: rt out of range", i)
		}
		if entry.SA < 0 || entry.SA > 0x1F {
			return nil, fmt.Errorf("mil1553[%d]: sa out of range", i)
		}
		if entry.WordCount != nil {
			if *entry.WordCount < 0 || *entry.WordCount > 32 {
				return nil, fmt.Errorf("mil1553[%d]: wc out of range", i)
			}
		}
		dir := strings.ToUpper(strings.TrimSpace(entry.Direction))
		switch dir {
		case "", "T", "R":
		default:
			return nil, fmt.Errorf("mil1553[%d]: direction %q is not T or R", i, entry.Direction)
		}
		isMode := mil1553.SubAddress(entry.SA).IsModeCode()
		if len(entry.ModeCodes) > 0 && !isMode {
			return nil, fmt.Errorf("mil1553[%d]: mode codes on non mode-code subaddress %d", i, entry.SA)
		}
		codes := make([]mil1553.ModeCode, 0, len(entry.ModeCodes))
		for _, mc := range entry.ModeCodes {
			if mc < 0 || mc > 0x1F {
				return nil, fmt.Errorf("mil1553[%d]: mode code out of range", i)
			}
			codes = append(codes, mil1553.ModeCode(mc))
		}
		key := milKey{rt: uint8(entry.RT), sa: uint8(entry.SA)}
		if _, exists := store.mil[key]; exists {
			return nil, fmt.Errorf("mil1553[%d]: duplicate rt/sa", i)
		}
		store.mil[key] = Entry{
			RT:        key.rt,
			SA:        key.sa,
			Name:      strings.TrimSpace(entry.Name),
			Direction: dir,
			WordCount: entry.WordCount,
			ModeCodes: codes,
			Broadcast: entry.Broadcast,
		}
	}
	return store, nil
}

func (s *Store) Lookup(rt uint8, sa uint8) (Entry, bool) {
	if s == nil {
		return Entry{}, false
	}
	entry, ok := s.mil[milKey{rt: rt, sa: sa}]
	return entry, ok
}

func (s *Store) IsEmpty() bool {
	return s == nil || len(s.mil) == 0
}

func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.mil)
}

// Entries returns every entry ordered by RT then SA.
func (s *Store) Entries() []Entry {
	if s == nil {
		return nil
	}
	out := make([]Entry, 0, len(s.mil))
	for _, e := range s.mil {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RT != out[j].RT {
			return out[i].RT < out[j].RT
		}
		return out[i].SA < out[j].SA
	})
	return out
}

func (e Entry) WordCountValue() (int, bool) {
	if e.WordCount == nil {
		return 0, false
	}
	return *e.WordCount, true
}

func (e Entry) AllowsModeCode(mc mil1553.ModeCode) bool {
	if len(e.ModeCodes) == 0 {
		return true
	}
	for _, c := range e.ModeCodes {
		if c == mc {
			return true
		}
	}
	return false
}
