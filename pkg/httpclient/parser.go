package httpclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeJSON decodes a JSON body into v, keeping numbers as json.Number.
func DecodeJSON(resp *Response, v any) error {
	if len(resp.Body) == 0 {
		return fmt.Errorf("empty response body")
	}
	if ct := strings.ToLower(resp.ContentType); ct != "" && !strings.Contains(ct, "json") {
		return fmt.Errorf("unexpected content type %q", resp.ContentType)
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// IsSuccessStatus returns true if the status code indicates success
func IsSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

// IsRetryableStatus returns true if the status code indicates a retryable error.
// 420 is the content API's rate limit response.
func IsRetryableStatus(statusCode int) bool {
	switch statusCode {
	case 408, 420, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
