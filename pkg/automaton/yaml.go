/*
Author: KleaSCM
Email: KleaSCM@gmail.com
File: yaml.go
Description: YAML documents for automata. Target languages for the CLI are described as
YAML files, and learned conjectures can be written back in the same shape.
*/

package automaton

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Document is an automaton with a name and free-form description
type Document struct {
	Name        string `yaml:"name,omitempty"`
	Description string `yaml:"description,omitempty"`
	Conjecture  `yaml:",inline"`
}

// ReadYAML decodes and validates one automaton document
func ReadYAML(r io.Reader) (*Document, error) {
	var doc Document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode automaton: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// LoadYAML reads an automaton document from a file
func LoadYAML(path string) (*Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open automaton file: %w", err)
	}
	defer f.Close()
	return ReadYAML(f)
}

// WriteYAML encodes the document
func (d *Document) WriteYAML(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("encode automaton: %w", err)
	}
	return enc.Close()
}

// SaveYAML writes the document to a file
func (d *Document) SaveYAML(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create automaton file: %w", err)
	}
	if err := d.WriteYAML(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
