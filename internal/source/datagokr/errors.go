package datagokr

import "fmt"

// UpstreamHTTPError is a non-2xx answer from the listing API.
type UpstreamHTTPError struct {
	StatusCode int
	// Body is the decoded payload, nil when it could not be decoded.
	Body any
	Raw  string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("upstream responded with status %d", e.StatusCode)
}

// ResponseParseError means the payload was neither valid JSON nor valid XML.
type ResponseParseError struct {
	Format string
	Err    error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("parse %s response: %v", e.Format, e.Err)
}

func (e *ResponseParseError) Unwrap() error {
	return e.Err
}

// UpstreamAPIError is the data.go.kr gateway envelope (bad service key,
// quota exceeded) delivered with a 2xx status.
type UpstreamAPIError struct {
	Code    string
	Message string
}

func (e *UpstreamAPIError) Error() string {
	return fmt.Sprintf("upstream gateway error %s: %s", e.Code, e.Message)
}
