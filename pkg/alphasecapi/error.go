package alphasecapi

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrKeyMissing is returned when an operation requires a private key that
// was not configured, e.g. signing a session registration without an L1 key.
var ErrKeyMissing = errors.New("alphasec: required private key is not configured")

// APIError is a non-200 code in the response envelope of the exchange API.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"errMsg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("alphasec api error: code=%d msg=%s", e.Code, e.Message)
}
