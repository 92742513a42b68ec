package dict

import (
	"fmt"

	"example.com/milbus/pkg/mil1553"
)

const (
	FindingUnknown           = "unknown_rt_sa"
	FindingWordCount         = "wc_mismatch"
	FindingDirection         = "direction_mismatch"
	FindingModeCode          = "mode_code_not_allowed"
	FindingBroadcastDisabled = "broadcast_not_allowed"
)

// Finding is one disagreement between a bus command and the dictionary.
type Finding struct {
	Code    string
	Message string
	Entry   *Entry
}

// Check compares a command-framed message against the dictionary.
func (s *Store) Check(msg mil1553.Message) []Finding {
	cw, ok := msg.Command()
	if !ok {
		return nil
	}
	return s.CheckCommand(cw)
}

// CheckCommand compares one command word against the dictionary. Broadcast
// commands match any entry at the subaddress that allows broadcast.
func (s *Store) CheckCommand(cw mil1553.CommandWord) []Finding {
	if s.IsEmpty() {
		return nil
	}
	sa := uint8(cw.Subaddress())
	if cw.Address().IsBroadcast() {
		for _, e := range s.Entries() {
			if e.SA == sa && e.Broadcast {
				entry := e
				return s.checkEntry(cw, &entry)
			}
		}
		return []Finding{{
			Code:    FindingBroadcastDisabled,
			Message: fmt.Sprintf("broadcast %s not allowed by dictionary", cw),
		}}
	}
	entry, ok := s.Lookup(uint8(cw.Address()), sa)
	if !ok {
		return []Finding{{
			Code:    FindingUnknown,
			Message: fmt.Sprintf("%s %s not in dictionary", cw.Address(), cw.Subaddress()),
		}}
	}
	return s.checkEntry(cw, &entry)
}

func (s *Store) checkEntry(cw mil1553.CommandWord, e *Entry) []Finding {
	var out []Finding
	if e.Direction != "" && e.Direction != cw.TransmitReceive().String() {
		out = append(out, Finding{
			Code:    FindingDirection,
			Message: fmt.Sprintf("%s: %s direction %s, dictionary says %s", e.Name, cw, cw.TransmitReceive(), e.Direction),
			Entry:   e,
		})
	}
	if mc, isMode := cw.ModeCode(); isMode {
		if !e.AllowsModeCode(mc) {
			out = append(out, Finding{
				Code:    FindingModeCode,
				Message: fmt.Sprintf("%s: mode code %d (%s) not allowed", e.Name, uint8(mc), mc),
				Entry:   e,
			})
		}
		return out
	}
	if want, ok := e.WordCountValue(); ok && want != cw.DataExpected() {
		out = append(out, Finding{
			Code:    FindingWordCount,
			Message: fmt.Sprintf("%s: %s word count %d, dictionary says %d", e.Name, cw, cw.DataExpected(), want),
			Entry:   e,
		})
	}
	return out
}
