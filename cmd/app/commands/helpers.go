// Package commands implements the missionhub CLI subcommands. Each Run function takes
// its collaborators explicitly so tests can drive it with in-memory stores.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// IOTuple is the pair of streams a command reads input from and writes results to.
type IOTuple struct {
	Reader io.Reader
	Writer io.Writer
}

// DefaultIO binds a command to the process stdin and stdout.
func DefaultIO() IOTuple {
	return IOTuple{Reader: os.Stdin, Writer: os.Stdout}
}

var outputFormats = []string{"text", "json"}

func validateFormat(format string) error {
	if !slices.Contains(outputFormats, format) {
		return fmt.Errorf("invalid format: %s (valid options: text, json)", format)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	return nil
}
