package coordinator

import (
	"path/filepath"
	"strings"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

const maxQueryEstimate = 60

// EstimateQuery returns the expected processing time in seconds.
func EstimateQuery(text string, qt models.QueryType) int {
	est := 5 + len(text)/100
	switch qt {
	case models.QueryCaseLaw:
		est += 5
	case models.QueryProceduralGuidance:
		est += 3
	}
	return min(est, maxQueryEstimate)
}

// EstimateDocument returns the expected processing time in seconds for a
// file of the given name or extension.
func EstimateDocument(file string) int {
	switch fileExt(file) {
	case "pdf":
		return 30
	case "doc", "docx":
		return 20
	case "jpg", "jpeg", "png":
		return 15
	default:
		return 10
	}
}

// fileExt returns the lowercased extension without the dot. A bare
// extension such as "PDF" is accepted too.
func fileExt(name string) string {
	ext := filepath.Ext(name)
	if ext == "" {
		return strings.ToLower(name)
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
