package extract

import (
	"strings"
	"unicode/utf8"
)

// readPlain returns content as a string. Invalid UTF-8 sequences become U+FFFD.
func readPlain(content []byte) (string, error) {
	if !utf8.Valid(content) {
		return strings.ToValidUTF8(string(content), "\ufffd"), nil
	}
	return string(content), nil
}
