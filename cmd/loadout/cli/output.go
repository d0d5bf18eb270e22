// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// WriteJSON marshals value as indented JSON and writes it to stdout.
func WriteJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

// WriteYAML marshals value as YAML and writes it to stdout. Map keys
// come out sorted, so the same value always prints the same bytes.
func WriteYAML(value any) error {
	data, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(data)
	return err
}

// ExitError signals a non-zero exit code without printing an extra
// error message. When a command handler returns an ExitError, main
// exits with the specified code without printing the error string —
// the command is expected to have already written its own output.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit code %d", e.Code)
}

// ExitCode returns the exit code. main detects this method to decide
// whether to print the error before exiting.
func (e *ExitError) ExitCode() int {
	return e.Code
}
