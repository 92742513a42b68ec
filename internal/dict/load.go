package dict

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a dictionary in YAML (.yaml, .yml) or JSON (anything else).
func Load(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	default:
		err = json.Unmarshal(data, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("parse dictionary %s: %w", path, err)
	}
	return FromFile(file)
}

func EnsureLoaded(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("empty dictionary path")
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("dictionary path %s is a directory", path)
	}
	return Load(path)
}

// MarshalYAML renders the store back into the YAML layout Load accepts.
func (s *Store) MarshalYAML() (interface{}, error) {
	var file File
	for _, e := range s.Entries() {
		fe := FileEntry{
			RT:        int(e.RT),
			SA:        int(e.SA),
			Name:      e.Name,
			Direction: e.Direction,
			WordCount: e.WordCount,
			Broadcast: e.Broadcast,
		}
		for _, mc := range e.ModeCodes {
			fe.ModeCodes = append(fe.ModeCodes, int(mc))
		}
		file.MIL1553 = append(file.MIL1553, fe)
	}
	return file, nil
}
