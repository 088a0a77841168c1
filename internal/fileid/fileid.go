// Package fileid derives stable source IDs from report file paths.
package fileid

import (
	"path/filepath"

	"github.com/google/uuid"
)

// SourceID returns a stable source ID for the given path. The path is made
// absolute and cleaned first, so re-indexing a report replaces its passages.
func SourceID(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("file://"+filepath.Clean(path))).String()
}
