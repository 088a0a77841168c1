package extract

import (
	"archive/zip"
	"fmt"
	"regexp"
	"strings"
)

const (
	contentTypesPath    = "[Content_Types].xml"
	docxDefaultBodyPath = "word/document.xml"
	docxMainContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePrefix     = "ppt/slides/slide"
)

var (
	// <w:t> runs carry the document text; attributes vary between producers.
	wordText  = regexp.MustCompile(`<w:t[^>]*>([^<]*)</w:t>`)
	drawText  = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)
	partName  = regexp.MustCompile(`<Override[^>]+PartName="([^"]+)"[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"`)
	partName2 = regexp.MustCompile(`<Override[^>]+ContentType="` + regexp.QuoteMeta(docxMainContentType) + `"[^>]+PartName="([^"]+)"`)
)

// docxBodyPath finds the main document part from [Content_Types].xml and
// falls back to word/document.xml.
func docxBodyPath(zr *zip.Reader) string {
	types, err := readEntry(zr, contentTypesPath)
	if err != nil || types == nil {
		return docxDefaultBodyPath
	}
	for _, re := range []*regexp.Regexp{partName, partName2} {
		if m := re.FindSubmatch(types); len(m) > 1 {
			return strings.TrimPrefix(string(m[1]), "/")
		}
	}
	return docxDefaultBodyPath
}

func readDOCX(content []byte) (string, error) {
	zr, err := openArchive("DOCX", content)
	if err != nil {
		return "", err
	}
	path := docxBodyPath(zr)
	body, err := readEntry(zr, path)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	if body == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", path)
	}
	var b strings.Builder
	collectText(&b, string(body), wordText)
	return b.String(), nil
}

func readPPTX(content []byte) (string, error) {
	zr, err := openArchive("PPTX", content)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, name := range entriesWithPrefix(zr, pptxSlidePrefix) {
		slide, err := readEntry(zr, name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		collectText(&b, string(slide), drawText)
	}
	return b.String(), nil
}
