package faqsource

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yanqian/faqbot/internal/domain/faq"
)

// decodeEntries parses a FAQ document. The format is picked from the file
// extension; anything that is not YAML is read as JSON. Both an object of
// question -> answer pairs and a list of {question, answer} items are accepted,
// and the authored order is kept.
func decodeEntries(name string, data []byte) ([]faq.Entry, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return decodeYAML(data)
	default:
		return decodeJSON(data)
	}
}

func decodeJSON(data []byte) ([]faq.Entry, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	if trimmed[0] == '[' {
		var entries []faq.Entry
		if err := json.Unmarshal(trimmed, &entries); err != nil {
			return nil, fmt.Errorf("decode faq list: %w", err)
		}
		return entries, nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode faq object: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, errors.New("decode faq object: expected a JSON object or array")
	}
	var entries []faq.Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode faq object: %w", err)
		}
		question, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode faq object: unexpected key %v", tok)
		}
		var answer string
		if err := dec.Decode(&answer); err != nil {
			return nil, fmt.Errorf("decode answer for %q: %w", question, err)
		}
		entries = append(entries, faq.Entry{Question: question, Answer: answer})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode faq object: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode faq object: trailing data")
	}
	return entries, nil
}

func decodeYAML(data []byte) ([]faq.Entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode faq yaml: %w", err)
	}
	if doc.Kind == 0 || len(doc.Content) == 0 {
		return nil, nil
	}
	root := doc.Content[0]
	switch root.Kind {
	case yaml.SequenceNode:
		var entries []faq.Entry
		if err := root.Decode(&entries); err != nil {
			return nil, fmt.Errorf("decode faq yaml list: %w", err)
		}
		return entries, nil
	case yaml.MappingNode:
		entries := make([]faq.Entry, 0, len(root.Content)/2)
		for i := 0; i+1 < len(root.Content); i += 2 {
			var question, answer string
			if err := root.Content[i].Decode(&question); err != nil {
				return nil, fmt.Errorf("decode faq yaml key at line %d: %w", root.Content[i].Line, err)
			}
			if err := root.Content[i+1].Decode(&answer); err != nil {
				return nil, fmt.Errorf("decode answer for %q: %w", question, err)
			}
			entries = append(entries, faq.Entry{Question: question, Answer: answer})
		}
		return entries, nil
	default:
		return nil, errors.New("decode faq yaml: expected a mapping or a list")
	}
}
