// Package extract turns research report files into plain text for indexing.
package extract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions with no reader.
var ErrUnsupportedFormat = errors.New("unsupported report format")

type readFunc func(content []byte) (string, error)

// readers maps a lowercase extension (with dot) to its text reader.
var readers = map[string]readFunc{
	".txt":  readPlain,
	".md":   readPlain,
	".rst":  readPlain,
	".csv":  readPlain,
	".pdf":  readPDF,
	".docx": readDOCX,
	".pptx": readPPTX,
	".xlsx": readXLSX,
	".odp":  readODP,
	".ods":  readODS,
}

// Extensions lists every supported extension in sorted order.
func Extensions() []string {
	out := make([]string, 0, len(readers))
	for ext := range readers {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// Supported reports whether path has an extension Extract can read.
func Supported(path string) bool {
	_, ok := readers[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Extractor extracts plain text from report files.
type Extractor struct{}

// NewExtractor returns a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads the file at path and returns its text content.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if _, ok := readers[ext]; !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content. ext includes the leading dot.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	read, ok := readers[strings.ToLower(ext)]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	return read(content)
}
