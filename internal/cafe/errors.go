package cafe

import (
	"errors"
	"fmt"
)

var (
	ErrCredentialMissing = errors.New("no Naver OAuth access token found, please log in with Naver first")
	ErrCredentialExpired = errors.New("the Naver OAuth token has expired, please log in again with Naver")

	ErrUnauthorized  = errors.New("the Naver OAuth token has expired or is invalid, please log in again with Naver")
	ErrForbidden     = errors.New("access denied, check that you have permission to post in this cafe")
	ErrNotFound      = errors.New("cafe or menu not found, check the cafe ID and menu ID")
	ErrPlatform      = errors.New("the Naver server returned an error, the service may be temporarily unavailable")
	ErrPublishFailed = errors.New("failed to create cafe post")
)

// AuthCredentialError means the caller has to log in with Naver again. It
// unwraps to ErrCredentialMissing or ErrCredentialExpired.
type AuthCredentialError struct {
	Reason error
}

func (e *AuthCredentialError) Error() string {
	return e.Reason.Error()
}

func (e *AuthCredentialError) Unwrap() error {
	return e.Reason
}

// PublishHTTPError is a non-2xx answer from the cafe API. Kind is one of
// ErrUnauthorized, ErrForbidden, ErrNotFound, ErrPlatform or ErrPublishFailed.
type PublishHTTPError struct {
	StatusCode int
	Kind       error
	// Message is the platform's own error text, when it sent one.
	Message string
	Body    string
}

func (e *PublishHTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("Naver API Error: %s", e.Message)
	}
	if errors.Is(e.Kind, ErrPublishFailed) && e.Body != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Body)
	}
	return e.Kind.Error()
}

func (e *PublishHTTPError) Unwrap() error {
	return e.Kind
}
