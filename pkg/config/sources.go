package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Source describes one external data source. Which fields are required
// depends on the type tag; the extractor factory validates that at
// construction time. A Source is immutable once decoded.
type Source struct {
	// Type selects the extractor variant: file-csv, file-json, http or
	// query. Matched case-insensitively.
	Type string `yaml:"type"`

	// Path is the file location for the file-csv and file-json types.
	Path string `yaml:"path"`

	// Delimiter and Encoding apply to file-csv. Delimiter defaults to
	// "," and Encoding to "utf-8" (the only supported encoding).
	Delimiter string `yaml:"delimiter"`
	Encoding  string `yaml:"encoding"`

	// URL, Headers, Query and the basic-auth pair apply to http.
	URL      string            `yaml:"url"`
	Headers  map[string]string `yaml:"headers"`
	Query    map[string]string `yaml:"query"`
	Username string            `yaml:"username"`
	Password string            `yaml:"password"`

	// SQL and Args apply to query: a parameterized statement run
	// through the warehouse gateway with positional binds.
	SQL  string `yaml:"sql"`
	Args []any  `yaml:"args"`
}

// NamedSource pairs a source with its configuration key.
type NamedSource struct {
	Name   string
	Source Source
}

// Sources is the ordered data_sources section. YAML mappings lose key
// order under map decoding, but extraction must follow declaration
// order, so the section is decoded node-by-node.
type Sources []NamedSource

// UnmarshalYAML decodes a YAML mapping into an ordered source list.
func (s *Sources) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("data_sources must be a mapping of name to source")
	}

	out := make(Sources, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var name string
		if err := node.Content[i].Decode(&name); err != nil {
			return fmt.Errorf("invalid source name: %w", err)
		}

		var src Source
		if err := node.Content[i+1].Decode(&src); err != nil {
			return fmt.Errorf("invalid source %q: %w", name, err)
		}

		out = append(out, NamedSource{Name: name, Source: src})
	}

	*s = out
	return nil
}
