package selector

import (
	"fmt"
	"strings"

	"terabox-extractor/pkg/models"
)

var videoExtensions = []string{
	".mp4", ".mkv", ".avi", ".mov", ".wmv", ".flv",
	".webm", ".m4v", ".ts", ".3gp", ".3g2",
}

// Select picks the record most likely to be the shared video.
// Extension beats category, category beats MIME type, and the first record is the last resort.
func Select(files []models.FileRecord) (*models.FileRecord, bool) {
	if len(files) == 0 {
		return nil, false
	}

	for i := range files {
		if hasVideoExtension(files[i].Filename) {
			return &files[i], true
		}
	}

	for i := range files {
		if files[i].Category == models.VideoCategory {
			return &files[i], true
		}
	}

	for i := range files {
		if strings.Contains(strings.ToLower(files[i].MimeType), "video") {
			return &files[i], true
		}
	}

	return &files[0], true
}

// IsVideo reports whether any heuristic tier classifies the record as video
func IsVideo(file models.FileRecord) bool {
	return hasVideoExtension(file.Filename) ||
		file.Category == models.VideoCategory ||
		strings.Contains(strings.ToLower(file.MimeType), "video")
}

func hasVideoExtension(filename string) bool {
	name := strings.ToLower(filename)
	for _, ext := range videoExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// FormatSize renders a byte count with two decimals in B, KB, MB, GB or TB
func FormatSize(bytes int64) string {
	if bytes <= 0 {
		return "Unknown"
	}

	size := float64(bytes)
	for _, unit := range []string{"B", "KB", "MB", "GB"} {
		if size < 1024 {
			return fmt.Sprintf("%.2f %s", size, unit)
		}
		size /= 1024
	}

	return fmt.Sprintf("%.2f TB", size)
}
