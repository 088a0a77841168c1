package indexer

import (
	"strings"

	"github.com/hyperjump/tansaku/pkg/utils"
)

// Preprocess normalizes text for indexing: unifies line endings, drops NUL
// bytes and collapses whitespace.
func Preprocess(text string) string {
	text = strings.NewReplacer("\r\n", "\n", "\x00", "").Replace(text)
	return utils.CollapseWhitespace(text)
}
