package alphasec

import (
	"github.com/pkg/errors"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasecapi"
)

// ErrKeyMissing is returned when an operation needs a private key that was
// not configured.
var ErrKeyMissing = alphasecapi.ErrKeyMissing

var (
	// ErrInvalidExpiry is returned when a session expiry is not in the future.
	ErrInvalidExpiry = errors.New("alphasec: session expiry must be in the future")

	// ErrInvalidParameters is returned when an operation argument fails local
	// validation before anything is signed or submitted.
	ErrInvalidParameters = errors.New("alphasec: invalid parameters")

	// ErrReceiverAlreadyTaken is returned by TakeMessageReceiver after the
	// single delivery channel has been handed out.
	ErrReceiverAlreadyTaken = errors.New("alphasec: message receiver already taken")

	// ErrConnectionLost is returned when the stream gave up reconnecting.
	ErrConnectionLost = errors.New("alphasec: websocket connection lost")

	// ErrStreamClosed is returned by stream operations after Close.
	ErrStreamClosed = errors.New("alphasec: stream is closed")

	// ErrSessionNotFound is returned when a session id is not known.
	ErrSessionNotFound = errors.New("alphasec: session not found")

	// ErrOrderNotFound is returned when an order id is not known.
	ErrOrderNotFound = errors.New("alphasec: order not found")
)
