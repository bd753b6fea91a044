package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// writeJSON writes v as indented JSON to path, or to stdout when path is empty.
func writeJSON(path string, v any) error {
	if path == "" {
		return encodeJSON(os.Stdout, v)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating output file %s: %w", path, err)
	}
	defer f.Close()
	if err := encodeJSON(f, v); err != nil {
		return err
	}
	logrus.Infof("Results written to %s", path)
	return nil
}

func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return nil
}
