package domain

import (
	"strings"
	"time"
)

const (
	MaxQueryLength = 200
	MaxCount       = 100
)

type Orientation string

const (
	OrientationAny       Orientation = ""
	OrientationLandscape Orientation = "landscape"
	OrientationPortrait  Orientation = "portrait"
)

func (o Orientation) IsValid() bool {
	switch o {
	case OrientationAny, OrientationLandscape, OrientationPortrait:
		return true
	}
	return false
}

// SearchRequest - нормализованный запрос к движку. После Sanitize не меняется.
type SearchRequest struct {
	Query        string
	Orientation  Orientation
	Count        int
	Start        int // 1-based
	ProviderHint string
	QualityHint  string
}

func (r *SearchRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if len(r.Query) > MaxQueryLength {
		return ErrQueryTooLong
	}
	if r.Count <= 0 {
		return ErrInvalidCount
	}
	if r.Count > MaxCount {
		return ErrCountTooLarge
	}
	if r.Start <= 0 {
		return ErrInvalidStart
	}
	if !r.Orientation.IsValid() {
		return ErrInvalidOrientation
	}
	return nil
}

func (r *SearchRequest) Sanitize() {
	r.Query = strings.Join(strings.Fields(strings.TrimSpace(r.Query)), " ")
}

// PageWindow - вычисленное окно пагинации, не зависит от провайдера
type PageWindow struct {
	CurrentPage     int
	TotalResults    int
	ResultsPerPage  int
	TotalPages      int
	HasNextPage     bool
	HasPreviousPage bool
	NextStart       int // 0 если следующей страницы нет
	PreviousStart   int // 0 если предыдущей страницы нет
}

type SearchInfo struct {
	Query       string
	Orientation Orientation
	Took        time.Duration
	Engine      string
	Timestamp   time.Time
	Cached      bool
}

type SearchResponse struct {
	Results    []ImageResult
	Pagination PageWindow
	Info       SearchInfo
}
