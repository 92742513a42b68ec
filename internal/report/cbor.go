package report

import (
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"
)

var (
	reportEncMode cbor.EncMode
	reportDecMode cbor.DecMode
)

func init() {
	var err error
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	reportEncMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("report: cbor encoder mode: %v", err))
	}
	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyQuiet,
		IndefLength: cbor.IndefLengthAllowed,
	}
	reportDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("report: cbor decoder mode: %v", err))
	}
}

// EncodeCBOR renders rep deterministically; equal reports give equal bytes.
func EncodeCBOR(rep ScanReport) ([]byte, error) {
	return reportEncMode.Marshal(rep)
}

func DecodeCBOR(data []byte) (ScanReport, error) {
	var rep ScanReport
	if err := reportDecMode.Unmarshal(data, &rep); err != nil {
		return ScanReport{}, err
	}
	return rep, nil
}

func SaveCBOR(rep ScanReport, out string) error {
	b, err := EncodeCBOR(rep)
	if err != nil {
		return err
	}
	return os.WriteFile(out, b, 0644)
}

func LoadCBOR(path string) (ScanReport, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScanReport{}, err
	}
	return DecodeCBOR(b)
}
