package listenbrainz

import (
	"errors"
	"fmt"
)

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e HTTPError) Error() string {
	return fmt.Sprintf("listenbrainz http %d: %s", e.StatusCode, e.Body)
}

type APIError struct {
	Code    int
	Message string
}

func (e APIError) Error() string {
	return fmt.Sprintf("listenbrainz api error %d: %s", e.Code, e.Message)
}

func IsRetryable(err error) bool {
	var he HTTPError
	if errors.As(err, &he) {
		// transient upstream failures
		if he.StatusCode >= 500 {
			return true
		}
		if he.StatusCode == 429 {
			return true
		}
	}

	var ae APIError
	if errors.As(err, &ae) {
		if ae.Code == 429 {
			return true
		}
	}

	return false
}
