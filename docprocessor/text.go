// Package docprocessor extracts, chunks, embeds, and indexes documents
// for the jandocs document scheduler.
//
// text.go reads plain-text formats. Files are decoded through a fallback
// ladder (UTF-8, then BOM-marked UTF-16, then Windows-1252) because user
// document folders reliably contain at least one file saved from an old
// Windows editor.
package docprocessor

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// extractTextFile reads a .txt or .md file through the decoding ladder.
func extractTextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %q: %w", path, err)
	}
	return decodeText(data)
}

// decodeText converts raw file bytes to a string: valid UTF-8 passes
// through untouched, a UTF-16 byte order mark selects UTF-16, and
// anything else is treated as Windows-1252 (which decodes every byte, so
// the ladder always terminates).
func decodeText(data []byte) (string, error) {
	if utf8.Valid(data) {
		return string(data), nil
	}

	if len(data) >= 2 {
		bomLE := data[0] == 0xFF && data[1] == 0xFE
		bomBE := data[0] == 0xFE && data[1] == 0xFF
		if bomLE || bomBE {
			dec := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewDecoder()
			if out, err := dec.Bytes(data); err == nil {
				return string(out), nil
			}
		}
	}

	out, err := charmap.Windows1252.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("failed to decode text: %w", err)
	}
	return string(out), nil
}

// extractCSV parses a CSV file and formats it as a pipe-separated table,
// capped at maxRows rows. Ragged rows and stray quotes are tolerated; the
// goal is retrievable text, not schema validation.
func extractCSV(path string, maxRows int) (string, error) {
	text, err := extractTextFile(path)
	if err != nil {
		return "", err
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var lines []string
	for len(lines) < maxRows {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to parse CSV %q: %w", path, err)
		}

		line := strings.Join(record, " | ")
		if strings.Trim(line, " |") != "" {
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n"), nil
}
