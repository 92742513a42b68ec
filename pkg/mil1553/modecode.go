package mil1553

import "fmt"

// ModeCode is the control function selected by a mode-code command.
type ModeCode uint8

const (
	DynamicBusControl                   ModeCode = 0
	Synchronize                         ModeCode = 1
	TransmitStatusWord                  ModeCode = 2
	InitiateSelfTest                    ModeCode = 3
	TransmitterShutdown                 ModeCode = 4
	OverrideTransmitterShutdown         ModeCode = 5
	InhibitTerminalFlag                 ModeCode = 6
	OverrideInhibitTerminalFlag         ModeCode = 7
	ResetRemoteTerminal                 ModeCode = 8
	TransmitVectorWord                  ModeCode = 16
	SynchronizeWithData                 ModeCode = 17
	TransmitLastCommand                 ModeCode = 18
	TransmitBITWord                     ModeCode = 19
	SelectedTransmitterShutdown         ModeCode = 20
	OverrideSelectedTransmitterShutdown ModeCode = 21
	maxModeCode                         ModeCode = 31
)

var modeCodeNames = map[ModeCode]string{
	DynamicBusControl:                   "dynamic bus control",
	Synchronize:                         "synchronize",
	TransmitStatusWord:                  "transmit status word",
	InitiateSelfTest:                    "initiate self test",
	TransmitterShutdown:                 "transmitter shutdown",
	OverrideTransmitterShutdown:         "override transmitter shutdown",
	InhibitTerminalFlag:                 "inhibit terminal flag",
	OverrideInhibitTerminalFlag:         "override inhibit terminal flag",
	ResetRemoteTerminal:                 "reset remote terminal",
	TransmitVectorWord:                  "transmit vector word",
	SynchronizeWithData:                 "synchronize with data word",
	TransmitLastCommand:                 "transmit last command",
	TransmitBITWord:                     "transmit BIT word",
	SelectedTransmitterShutdown:         "selected transmitter shutdown",
	OverrideSelectedTransmitterShutdown: "override selected transmitter shutdown",
}

func (m ModeCode) String() string {
	if name, ok := modeCodeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("reserved mode code %d", uint8(m))
}

// HasData reports whether the standard pairs this code with one data word.
// Codes 16-31 carry a data word, codes 0-15 do not.
func (m ModeCode) HasData() bool {
	return m >= 16 && m <= maxModeCode
}

func (m ModeCode) IsReserved() bool {
	_, ok := modeCodeNames[m]
	return !ok
}
