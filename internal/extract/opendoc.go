package extract

import (
	"fmt"
	"regexp"
	"strings"
)

const openDocContentPath = "content.xml"

var (
	odfParagraph = regexp.MustCompile(`<text:p[^>]*>([^<]*)</text:p>`)
	odfSpan      = regexp.MustCompile(`<text:span[^>]*>([^<]*)</text:span>`)
	odfHeading   = regexp.MustCompile(`<text:h[^>]*>([^<]*)</text:h>`)
)

func readODP(content []byte) (string, error) {
	return readOpenDocument("ODP", content, odfParagraph, odfSpan, odfHeading)
}

func readODS(content []byte) (string, error) {
	return readOpenDocument("ODS", content, odfParagraph, odfSpan)
}

// readOpenDocument collects the text elements of an OpenDocument content.xml.
func readOpenDocument(format string, content []byte, patterns ...*regexp.Regexp) (string, error) {
	zr, err := openArchive(format, content)
	if err != nil {
		return "", err
	}
	body, err := readEntry(zr, openDocContentPath)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", format, err)
	}
	if body == nil {
		return "", fmt.Errorf("extract %s: %s not found", format, openDocContentPath)
	}
	var b strings.Builder
	collectText(&b, string(body), patterns...)
	return b.String(), nil
}
