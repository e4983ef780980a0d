// Package entity defines the entities and errors used in the application.
// It includes the URL struct, which represents a shortened URL, along with its
// associated metadata, and any relevant error definitions.
package entity

import (
	"errors"
	"strings"
	"time"
)

var (
	// ErrShortCodeExists is returned when attempting to create a URL with a short code that already exists.
	ErrShortCodeExists = errors.New("short code exists")
	// ErrURLNotFound is returned when a URL with the specified short code cannot be found.
	ErrURLNotFound = errors.New("url not found")
	// ErrStoreUnavailable is returned when the store cannot serve the request in time,
	// e.g. the connection pool is exhausted. The operation may be retried.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// URL represents a shortened URL.
type URL struct {
	ID          int64     // ID is the unique identifier of the URL in the database.
	ShortCode   string    // ShortCode is the generated code used to shorten the original URL.
	OriginalURL string    // OriginalURL is the full URL that the short code resolves to.
	URLStats              // URLStats contains statistics about the URL.
	CreatedAt   time.Time // CreatedAt is the timestamp when the URL was created.
	UpdatedAt   time.Time // UpdatedAt is the timestamp when the URL was last updated.
}

// ShortURL composes the external short link for the URL under baseURL.
func (u *URL) ShortURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + "/" + u.ShortCode
}

// URLStats contains statistics related to a shortened URL.
type URLStats struct {
	AccessCount int64 // AccessCount is the number of times the shortened URL has been accessed.
}

// DaysSinceCreation returns the number of whole days elapsed between the creation of the URL and now.
func (u *URL) DaysSinceCreation(now time.Time) int64 {
	if now.Before(u.CreatedAt) {
		return 0
	}

	return int64(now.Sub(u.CreatedAt) / (24 * time.Hour))
}
