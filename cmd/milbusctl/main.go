package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"example.com/milbus/internal/common"
	"example.com/milbus/internal/config"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	var err error
	switch os.Args[1] {
	case "decode":
		err = runDecode(os.Args[2:], os.Stdout)
	case "encode":
		err = runEncode(os.Args[2:], os.Stdout)
	case "scan":
		err = runScan(os.Args[2:], os.Stdout)
	case "report":
		err = runReport(os.Args[2:], os.Stdout)
	case "version":
		fmt.Printf("milbusctl %s (built %s)\n", version, buildDate)
	default:
		usage()
	}
	if err != nil {
		common.Fatalf("%s: %v", os.Args[1], err)
	}
}

func usage() {
	fmt.Printf(`milbusctl %s (built %s) <command> [options]

Commands:
  decode  (--hex <hex> | --in <file>) [--status] [--packed] [--capacity N] [--dict <icd.yaml>]
  encode  --rt N --sa N [--wc N] [--tr] [--mode N] [--data HEX,HEX | --text STR] [--packed]
  scan    --in <file.ch10> [--dict <icd.yaml>] [--rules <rulepack.json>] [--out <report.json>]
          [--cbor <report.cbor>] [--pdf <report.pdf>] [--diagnostics <diag.jsonl>] [--acceptance <acceptance.json>]
          [--progress] [--metrics]
  report  --in <report.json|report.cbor> --pdf <report.pdf>
  version

Every command accepts --config <milbus.yaml|milbus.toml>.
`, version, buildDate)
}

// newFlagSet returns a flag set that reports errors instead of exiting, with
// the shared --config flag registered.
func newFlagSet(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	cfgPath := fs.String("config", "", "configuration file (.yaml, .yml or .toml)")
	return fs, cfgPath
}

// loadConfig reads the configuration and routes logging to its log directory.
// The returned closer must be called when the command finishes.
func loadConfig(path string) (config.Config, io.Closer, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	closer, err := common.SetupLogging(cfg.Logs, "milbusctl")
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("setup logging: %w", err)
	}
	return cfg, closer, nil
}
