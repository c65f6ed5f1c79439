package domain

import "strings"

// ImageResult - провайдеро-независимая запись об одной картинке.
// ImageURL служит ключом дедупликации.
type ImageResult struct {
	ID            string
	Title         string
	ImageURL      string
	ThumbnailURL  string
	SourcePageURL string
	SourceDomain  string
	Description   string
	Width         int
	Height        int
	ByteSize      int64
	MimeType      string
	FileFormat    string
	Provider      string
}

// Resolution returns width*height; 0 means the provider did not report size.
func (r ImageResult) Resolution() int {
	if r.Width <= 0 || r.Height <= 0 {
		return 0
	}
	return r.Width * r.Height
}

func ExtractDomain(url string) string {
	url = strings.TrimPrefix(url, "https://")
	url = strings.TrimPrefix(url, "http://")
	if idx := strings.Index(url, "/"); idx != -1 {
		url = url[:idx]
	}
	return strings.TrimPrefix(url, "www.")
}
