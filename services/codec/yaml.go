package codec

import (
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	yamlDocumentStart = regexp.MustCompile(`^---(\s.*)?$`)
	yamlDocumentEnd   = regexp.MustCompile(`^\.\.\.\s*$`)
)

// decodeStructuredBody attempts to read the text body as a multi-document
// YAML stream (a superset of JSON, so plain JSON bodies work too). Only the
// first document is taken as the structured payload. With two or more
// document boundaries the text becomes everything from the second document's
// content onward, dropping the first document and its terminator line; with
// exactly one boundary the whole body was structured data and the text
// becomes empty. Bodies that are not YAML, or whose first document is a bare
// scalar rather than a mapping or sequence, are left untouched.
func decodeStructuredBody(text string) (interface{}, string) {
	decoder := yaml.NewDecoder(strings.NewReader(text))
	var first interface{}
	if err := decoder.Decode(&first); err != nil {
		return nil, text
	}
	switch first.(type) {
	case map[string]interface{}, map[interface{}]interface{}, []interface{}:
	default:
		return nil, text
	}

	starts := yamlDocumentStarts(text)
	if len(starts) >= 2 {
		return first, text[starts[1]:]
	}
	return first, ""
}

// yamlDocumentStarts returns the byte offset where each document's content
// begins. A "..." line terminates the current document; a "---" line after
// document content both terminates it and opens the next one.
func yamlDocumentStarts(text string) []int {
	starts := []int{0}
	offset := 0
	inDocument := false
	for _, line := range strings.SplitAfter(text, "\n") {
		trimmed := strings.TrimRight(line, "\r\n")
		switch {
		case yamlDocumentEnd.MatchString(trimmed):
			if offset+len(line) < len(text) {
				starts = append(starts, offset+len(line))
			}
			inDocument = false
		case yamlDocumentStart.MatchString(trimmed):
			if inDocument {
				starts = append(starts, offset+len(line))
			}
			inDocument = false
		default:
			if strings.TrimSpace(trimmed) != "" {
				inDocument = true
			}
		}
		offset += len(line)
	}
	return starts
}
