package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestURL_ShortURL(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		want    string
	}{
		{
			name:    "without trailing slash",
			baseURL: "https://sho.rt",
			want:    "https://sho.rt/abcDEF",
		},
		{
			name:    "with trailing slash",
			baseURL: "https://sho.rt/",
			want:    "https://sho.rt/abcDEF",
		},
		{
			name:    "with path",
			baseURL: "http://localhost:8080/s",
			want:    "http://localhost:8080/s/abcDEF",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			url := URL{ShortCode: "abcDEF"}

			assert.Equal(t, tt.want, url.ShortURL(tt.baseURL))
		})
	}
}

func TestURL_DaysSinceCreation(t *testing.T) {
	createdAt := time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC)
	url := URL{CreatedAt: createdAt}

	assert.Equal(t, int64(0), url.DaysSinceCreation(createdAt.Add(23*time.Hour)))
	assert.Equal(t, int64(1), url.DaysSinceCreation(createdAt.Add(25*time.Hour)))
	assert.Equal(t, int64(10), url.DaysSinceCreation(createdAt.AddDate(0, 0, 10)))
	assert.Equal(t, int64(0), url.DaysSinceCreation(createdAt.Add(-time.Hour)))
}
