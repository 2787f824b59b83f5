package http

import (
	"encoding/json"
	"net/http"
)

// PageResponse wraps one page of data with its paging window
type PageResponse[T any] struct {
	Data       []T                `json:"data"`
	Pagination PaginationMetadata `json:"pagination"`
}

// PaginationMetadata contains pagination information
type PaginationMetadata struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
}

// SuccessResponse wraps a successful response
type SuccessResponse struct {
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The header has already been sent; nothing useful to do on failure.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success response
func WriteSuccess(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusOK, SuccessResponse{Data: data})
}

// WriteAccepted writes a 202 response
func WriteAccepted(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusAccepted, SuccessResponse{Data: data})
}

// WritePage writes one page. A full page is assumed to have a successor.
func WritePage[T any](w http.ResponseWriter, data []T, limit, offset int) {
	if data == nil {
		data = []T{}
	}
	WriteJSON(w, http.StatusOK, PageResponse[T]{
		Data: data,
		Pagination: PaginationMetadata{
			Limit:   limit,
			Offset:  offset,
			HasMore: limit > 0 && len(data) == limit,
		},
	})
}
