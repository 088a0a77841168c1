package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// openArchive opens an OOXML or OpenDocument package.
func openArchive(format string, content []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("extract %s: not a zip: %w", format, err)
	}
	return zr, nil
}

// readEntry returns the named entry, or nil when it is absent.
func readEntry(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", f.Name, err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f.Name, err)
		}
		return data, nil
	}
	return nil, nil
}

// entriesWithPrefix returns the names of XML entries starting with prefix,
// ordered by their numeric suffix so slide10 follows slide9.
func entriesWithPrefix(zr *zip.Reader, prefix string) []string {
	var names []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, prefix) && strings.HasSuffix(f.Name, ".xml") {
			names = append(names, f.Name)
		}
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}

// collectText appends the first capture group of every match of each pattern,
// trimmed and space-separated.
func collectText(b *strings.Builder, xml string, patterns ...*regexp.Regexp) {
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(xml, -1) {
			text := strings.TrimSpace(m[1])
			if text == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(text)
		}
	}
}
