package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RandomFilename makes name unique while keeping every extension segment:
// "report.tar.gz" becomes "report-<uuid>.tar.gz".
func RandomFilename(name string) string {
	id := uuid.NewString()
	base, ext, found := strings.Cut(name, ".")
	if !found {
		return fmt.Sprintf("%s-%s", name, id)
	}
	return fmt.Sprintf("%s-%s.%s", base, id, ext)
}

// JoinKey joins a key prefix and a name with a single slash.
func JoinKey(prefix, name string) string {
	prefix = strings.Trim(prefix, "/")
	name = strings.TrimLeft(name, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
