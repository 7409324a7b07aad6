// Package payloads loads the externally curated payload list.
package payloads

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

var (
	// ErrNotFound indicates the payload file does not exist
	ErrNotFound = errors.New("payload file not found")

	// ErrEmpty indicates the payload file has no usable lines
	ErrEmpty = errors.New("payload file is empty")
)

// maxLineSize bounds a single payload line; polyglots can be long.
const maxLineSize = 1024 * 1024

// LoadFromFile loads payloads from a newline-delimited file.
// Lines are trimmed, blank lines dropped and order preserved.
func LoadFromFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: '%s'", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to open payload file: %w", err)
	}
	defer file.Close()

	payloads, err := Read(file)
	if err != nil {
		if errors.Is(err, ErrEmpty) {
			return nil, fmt.Errorf("%w: '%s'", ErrEmpty, path)
		}
		return nil, err
	}
	return payloads, nil
}

// Read parses payloads from r with the same rules as LoadFromFile.
func Read(r io.Reader) ([]string, error) {
	var payloads []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			payloads = append(payloads, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read payloads: %w", err)
	}
	if len(payloads) == 0 {
		return nil, ErrEmpty
	}
	return payloads, nil
}
