package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// ArtifactPath derives the storage path for a report's artifact. It is a
// pure function of the report id, its creation time and the format
// extension, so a retried generation for the same report overwrites the
// previous blob instead of leaking a duplicate.
func ArtifactPath(id string, createdAt time.Time, extension string) string {
	return fmt.Sprintf("reports/%s/%s_%s.%s",
		createdAt.UTC().Format("2006/01"),
		id,
		createdAt.UTC().Format("20060102T150405Z"),
		extension,
	)
}

var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// DownloadFilename builds the suggested filename for a download or export:
// sanitized name plus timestamp plus extension.
func DownloadFilename(name string, at time.Time, extension string) string {
	base := strings.Trim(unsafeFilename.ReplaceAllString(stripAccents(name), "_"), "_")
	if base == "" {
		base = "relatorio"
	}
	return fmt.Sprintf("%s_%s.%s", strings.ToLower(base), at.Format("20060102_150405"), extension)
}

// stripAccents maps the Portuguese accented letters used in report titles to
// their ASCII base so filenames stay portable.
func stripAccents(s string) string {
	replacer := strings.NewReplacer(
		"á", "a", "à", "a", "â", "a", "ã", "a",
		"é", "e", "ê", "e",
		"í", "i",
		"ó", "o", "ô", "o", "õ", "o",
		"ú", "u", "ü", "u",
		"ç", "c",
		"Á", "A", "À", "A", "Â", "A", "Ã", "A",
		"É", "E", "Ê", "E",
		"Í", "I",
		"Ó", "O", "Ô", "O", "Õ", "O",
		"Ú", "U", "Ü", "U",
		"Ç", "C",
	)
	return replacer.Replace(s)
}
