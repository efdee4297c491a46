package items

import (
	"strings"
	"time"
)

type CreateItemRequest struct {
	Title            string   `json:"title"`
	Kind             string   `json:"kind"`
	AuthorOrProducer string   `json:"authorOrProducer"`
	Year             int      `json:"year"`
	Language         string   `json:"language"`
	Genre            []string `json:"genre"`
	Image            string   `json:"image"`
	TotalCount       int      `json:"totalCount"`
}

type ResizeRequest struct {
	TotalCount *int `json:"totalCount"`
}

type ResizeResponse struct {
	OK             bool `json:"ok"`
	TotalCount     int  `json:"totalCount"`
	AvailableCount int  `json:"availableCount"`
}

type ItemResponse struct {
	ItemID           string    `json:"itemId"`
	Title            string    `json:"title"`
	Kind             string    `json:"kind"`
	AuthorOrProducer string    `json:"authorOrProducer,omitempty"`
	Year             int       `json:"year,omitempty"`
	Language         string    `json:"language,omitempty"`
	Genre            []string  `json:"genre,omitempty"`
	Image            string    `json:"image,omitempty"`
	TotalCount       int       `json:"totalCount"`
	AvailableCount   int       `json:"availableCount"`
	BorrowedCount    int       `json:"borrowedCount"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SearchQuery mirrors the list endpoint's query params.
type SearchQuery struct {
	Kind      string
	Search    string
	Available *bool
}

func toResponse(it *Item) ItemResponse {
	return ItemResponse{
		ItemID:           it.ItemID,
		Title:            it.Title,
		Kind:             it.Kind,
		AuthorOrProducer: it.AuthorOrProducer,
		Year:             it.Year,
		Language:         it.Language,
		Genre:            splitGenre(it.Genre),
		Image:            it.Image,
		TotalCount:       it.TotalCount,
		AvailableCount:   it.AvailableCount,
		BorrowedCount:    it.BorrowedCount,
		CreatedAt:        it.CreatedAt,
	}
}

func splitGenre(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func joinGenre(g []string) string {
	return strings.Join(g, ",")
}
