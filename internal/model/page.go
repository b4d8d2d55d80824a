package model

import "strings"

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
	// MaxPage ограничивает номер страницы, чтобы смещение не переполнялось.
	MaxPage = 1_000_000
)

// PageRequest описывает параметры постраничной выборки.
type PageRequest struct {
	Page    int
	Size    int
	SortBy  string
	SortDir string
}

// Normalize приводит параметры к допустимым значениям.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 0 {
		p.Page = 0
	}
	if p.Page > MaxPage {
		p.Page = MaxPage
	}
	if p.Size <= 0 {
		p.Size = DefaultPageSize
	}
	if p.Size > MaxPageSize {
		p.Size = MaxPageSize
	}
	p.SortDir = strings.ToLower(p.SortDir)
	if p.SortDir != "desc" {
		p.SortDir = "asc"
	}
	return p
}

// Offset возвращает смещение первой записи страницы.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page содержит одну страницу результатов.
type Page[T any] struct {
	Content       []T   `json:"content"`
	Page          int   `json:"page"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
}

// NewPage собирает страницу из содержимого и общего количества записей.
func NewPage[T any](content []T, req PageRequest, total int64) Page[T] {
	if content == nil {
		content = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Content:       content,
		Page:          req.Page,
		Size:          req.Size,
		TotalElements: total,
		TotalPages:    pages,
	}
}

// MapPage преобразует содержимое страницы, сохраняя метаданные.
func MapPage[T, R any](p Page[T], fn func(T) R) Page[R] {
	out := make([]R, 0, len(p.Content))
	for _, v := range p.Content {
		out = append(out, fn(v))
	}
	return Page[R]{
		Content:       out,
		Page:          p.Page,
		Size:          p.Size,
		TotalElements: p.TotalElements,
		TotalPages:    p.TotalPages,
	}
}
