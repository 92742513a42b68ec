package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"example.com/milbus/pkg/mil1553"
)

func runEncode(args []string, stdout io.Writer) error {
	fs, cfgPath := newFlagSet("encode")
	rt := fs.Int("rt", -1, "terminal address 0..31")
	sa := fs.Int("sa", -1, "subaddress 0..31")
	wc := fs.Int("wc", -1, "word count (default: number of data words)")
	transmit := fs.Bool("tr", false, "transmit command (terminal sends data)")
	mode := fs.Int("mode", -1, "mode code 0..31 (subaddress defaults to 0)")
	data := fs.String("data", "", "comma-separated 16-bit hex data words")
	text := fs.String("text", "", "ASCII payload packed two characters per word")
	packed := fs.Bool("packed", false, "print 20-bit packed framing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *rt < 0 {
		return errors.New("required: --rt")
	}
	if *data != "" && *text != "" {
		return errors.New("--data and --text cannot be used together")
	}

	cfg, closer, err := loadConfig(*cfgPath)
	if err != nil {
		return err
	}
	defer closer.Close()

	words, err := parseDataWords(*data)
	if err != nil {
		return err
	}
	count := len(words)
	if *text != "" {
		count = (len(*text) + 1) / 2
	}

	tr := mil1553.Receive
	if *transmit {
		tr = mil1553.Transmit
	}
	cb := mil1553.NewCommandWord().WithAddress(*rt).WithTransmitReceive(tr)
	switch {
	case *mode >= 0:
		sub := *sa
		if sub < 0 {
			sub = int(mil1553.ModeCodeSubAddress)
		}
		if !mil1553.SubAddress(sub).IsModeCode() {
			return fmt.Errorf("mode code needs subaddress 0 or 31, got %d", sub)
		}
		cb.WithSubaddress(sub).WithModeCode(mil1553.ModeCode(*mode))
	case *sa < 0:
		return errors.New("required: --sa")
	default:
		n := *wc
		if n < 0 {
			n = count
		}
		cb.WithSubaddress(*sa).WithWordCount(n)
	}
	cmd, err := cb.Build()
	if err != nil {
		return err
	}

	capacity := cfg.Capacity
	if capacity == 0 {
		capacity = mil1553.MaxWords
	}
	mb := mil1553.NewMessageBuilder(capacity).WithCommand(cmd).WithDataWords(words...)
	if *text != "" {
		mb.WithString(*text)
	}
	msg, err := mb.Build()
	if err != nil {
		return err
	}

	var out []byte
	if *packed {
		all := make([]mil1553.Word, 0, msg.Len())
		for i := 0; i < msg.Len(); i++ {
			w, _ := msg.At(i)
			all = append(all, w)
		}
		out = mil1553.AppendPacked(nil, all...)
	} else {
		out = msg.Bytes()
	}
	fmt.Fprintf(stdout, "%s\n%X\n", msg, out)
	return nil
}

func parseDataWords(s string) ([]mil1553.DataWord, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var out []mil1553.DataWord
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(part), "0x"), "0X")
		v, err := strconv.ParseUint(part, 16, 16)
		if err != nil {
			return nil, fmt.Errorf("data word %q: %w", part, err)
		}
		out = append(out, mil1553.NewDataWord(uint16(v)))
	}
	return out, nil
}
