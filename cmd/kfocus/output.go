package main

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// render writes v in the selected --output format. Text output is delegated
// to text so each command keeps its own human layout.
func render(v any, text func() error) error {
	switch outputFormat {
	case "text", "":
		return text()
	case "json":
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s (must be text, json, or yaml)", outputFormat)
	}
}

func textOutput() bool {
	return outputFormat == "" || outputFormat == "text"
}
