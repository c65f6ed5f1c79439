// Package pagination вычисляет окно пагинации из (start, count, total).
// Чистая функция, валидность count/start гарантирует слой выше.
package pagination

import "github.com/kitbuilder587/imgsearch/internal/domain"

func Compute(start, count, total int) domain.PageWindow {
	w := domain.PageWindow{
		ResultsPerPage: count,
		TotalResults:   total,
	}

	if total <= 0 {
		w.CurrentPage = ceilDiv(start, count)
		return w
	}

	w.CurrentPage = ceilDiv(start, count)
	w.TotalPages = ceilDiv(total, count)
	w.HasNextPage = w.CurrentPage < w.TotalPages
	w.HasPreviousPage = w.CurrentPage > 1

	if w.HasNextPage {
		w.NextStart = start + count
	}
	if w.HasPreviousPage {
		prev := start - count
		if prev < 1 {
			prev = 1
		}
		w.PreviousStart = prev
	}

	return w
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
