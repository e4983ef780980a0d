package http

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/vadimbarashkov/shorty/internal/entity"
)

const statusError = "error"

// urlRequest represents the structure for a request to shorten or modifying a URL.
type urlRequest struct {
	URL string `json:"url" validate:"required,max=2048,httpurl"`
}

// urlResponse represents the structure for a response containing shortened URL information.
type urlResponse struct {
	ID          int64     `json:"id"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	URL         string    `json:"url"`
	AccessCount int64     `json:"access_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// toURLResponse converts an entity.URL to a urlResponse.
func toURLResponse(url *entity.URL, baseURL string) urlResponse {
	return urlResponse{
		ID:          url.ID,
		ShortCode:   url.ShortCode,
		ShortURL:    url.ShortURL(baseURL),
		URL:         url.OriginalURL,
		AccessCount: url.AccessCount,
		CreatedAt:   url.CreatedAt,
		UpdatedAt:   url.UpdatedAt,
	}
}

// urlStatsResponse represents the structure for a response containing URL statistics.
type urlStatsResponse struct {
	urlResponse
	Stats urlStats `json:"stats"`
}

// urlStats represents the statistics for a URL.
type urlStats struct {
	TotalAccesses  int64     `json:"total_accesses"`
	CreatedDaysAgo int64     `json:"created_days_ago"`
	LastUpdated    time.Time `json:"last_updated"`
}

// toURLStatsResponse converts an entity.URL to a urlStatsResponse.
func toURLStatsResponse(url *entity.URL, baseURL string, now time.Time) urlStatsResponse {
	return urlStatsResponse{
		urlResponse: toURLResponse(url, baseURL),
		Stats: urlStats{
			TotalAccesses:  url.AccessCount,
			CreatedDaysAgo: url.DaysSinceCreation(now),
			LastUpdated:    url.UpdatedAt,
		},
	}
}

type healthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

// validationError represents an individual validation error.
type validationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// errorResponse represents a structured error response.
type errorResponse struct {
	Status  string            `json:"status"`
	Message string            `json:"message"`
	Errors  []validationError `json:"errors,omitempty"`
}

// Predefined error responses for common scenarios.
var (
	emptyRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "empty request body",
	}

	invalidRequestBodyResponse = errorResponse{
		Status:  statusError,
		Message: "invalid request body",
	}

	urlNotFoundResponse = errorResponse{
		Status:  statusError,
		Message: "url not found",
	}

	serviceUnavailableResponse = errorResponse{
		Status:  statusError,
		Message: "service temporarily unavailable, please try again",
	}

	serverErrorResponse = errorResponse{
		Status:  statusError,
		Message: "server error occurred",
	}
)

// messageForTag returns a user-friendly message based on the validation tag.
func messageForTag(tag string) string {
	switch tag {
	case "required":
		return "this field is required"
	case "max":
		return "must not exceed " + strconv.Itoa(maxURLLength) + " characters"
	case tagHTTPURL:
		return "must be a valid http or https url"
	case tagShortCode:
		return "must be a valid short code"
	default:
		return "invalid value"
	}
}

// getValidationErrors processes validation errors and returns a list of validationError.
// field names the value when it was validated on its own rather than as a struct field.
func getValidationErrors(err error, field string) []validationError {
	var validationErrs []validationError

	errs, ok := err.(validator.ValidationErrors)
	if ok {
		for _, e := range errs {
			name := e.Field()
			if name == "" {
				name = field
			}

			validationErrs = append(validationErrs, validationError{
				Field:   name,
				Message: messageForTag(e.Tag()),
			})
		}
	}

	return validationErrs
}

// validationErrorResponse constructs an errorResponse for validation errors.
func validationErrorResponse(err error, field string) errorResponse {
	return errorResponse{
		Status:  statusError,
		Message: "validation error",
		Errors:  getValidationErrors(err, field),
	}
}
