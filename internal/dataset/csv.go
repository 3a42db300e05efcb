package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

func loadCSV(path string, opt LoadOptions) (*Frame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return readCSV(f, filepath.Base(path), delimiterFor(path, opt.Delimiter), opt.MaxRows)
}

func readCSV(r io.Reader, name string, delim rune, maxRows int) (*Frame, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comma = delim

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return &Frame{Name: name}, nil
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	frame := newFrame(name, header)
	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("read row %d: %w", line, err)
		}
		if maxRows > 0 && len(frame.Rows) >= maxRows {
			break
		}
		if blank(rec) {
			continue
		}
		frame.appendRecord(rec)
	}
	return frame, nil
}

func delimiterFor(path string, explicit rune) rune {
	if explicit != 0 {
		return explicit
	}
	if strings.HasSuffix(strings.ToLower(path), ".tsv") {
		return '\t'
	}
	return ','
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
