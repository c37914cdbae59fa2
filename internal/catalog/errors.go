package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// ErrProductNotFound is returned when the catalog responds 404 for a product id.
var ErrProductNotFound = errors.New("catalog: product not found")

// APIError reports a non-2xx response from the catalog API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return e.Message
}

// IsNotFound reports whether the upstream responded 404.
func (e *APIError) IsNotFound() bool {
	return e != nil && e.Status == http.StatusNotFound
}

// IsUnavailable reports whether the upstream failed with a server-side status.
func (e *APIError) IsUnavailable() bool {
	return e != nil && e.Status >= http.StatusInternalServerError
}

// IsConflict is always false; the catalog is read-only.
func (e *APIError) IsConflict() bool {
	return false
}

const maxErrorBody = 4 << 10

func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && strings.TrimSpace(payload.Message) != "" {
		apiErr.Message = strings.TrimSpace(payload.Message)
		return apiErr
	}
	apiErr.Message = fmt.Sprintf("API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	return apiErr
}
