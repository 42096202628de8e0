package alphasec

import (
	"context"
	"crypto/ecdsa"

	"github.com/pkg/errors"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasecapi"
)

// SessionRecord is the locally tracked state of a registered session
// wallet.
type SessionRecord struct {
	ID             string
	SessionAddress string
	OwnerAddress   string
	CreatedAt      uint64
	ExpiresAt      uint64
	Metadata       []byte
	Signature      []byte
}

// submitSession builds one session command, wraps it into a transaction
// signed by the session wallet itself and posts it.
func (a *Agent) submitSession(
	ctx context.Context,
	cmd byte,
	sessionID string,
	sessionKey *ecdsa.PrivateKey,
	nowMs, expiresAt uint64,
	metadata []byte,
) (*SessionRecord, string, error) {
	payload, err := a.signer.SessionData(cmd, sessionKey, nowMs, expiresAt, metadata)
	if err != nil {
		return nil, "", err
	}

	signedTx, err := a.signer.SignTransaction(nowMs, payload.Data, sessionKey)
	if err != nil {
		return nil, "", err
	}

	var txHash string
	switch cmd {
	case alphasecapi.SessionCommandCreate:
		txHash, err = a.client.WalletService.CreateSession(ctx, sessionID, signedTx)
	case alphasecapi.SessionCommandUpdate:
		txHash, err = a.client.WalletService.UpdateSession(ctx, sessionID, signedTx)
	case alphasecapi.SessionCommandDelete:
		txHash, err = a.client.WalletService.DeleteSession(ctx, signedTx)
	default:
		return nil, "", errors.Errorf("unknown session command: %#x", cmd)
	}
	if err != nil {
		return nil, "", mapSubmitError(err)
	}

	record := &SessionRecord{
		ID:             sessionID,
		SessionAddress: payload.SessionAddress.Hex(),
		OwnerAddress:   a.config.Address,
		CreatedAt:      nowMs,
		ExpiresAt:      expiresAt,
		Metadata:       metadata,
		Signature:      payload.Signature,
	}
	return record, txHash, nil
}

// CreateSession registers a session wallet with the exchange. The session
// key defaults to the configured L2 key. nowMs and expiresAt are
// millisecond timestamps supplied by the caller; expiresAt must lie in the
// future and is checked before anything is signed or sent. nowMs doubles
// as the registration nonce, so it must be fresh.
func (a *Agent) CreateSession(
	ctx context.Context, sessionID string, sessionKey *ecdsa.PrivateKey, nowMs, expiresAt uint64, metadata []byte,
) (string, error) {
	if sessionKey == nil {
		sessionKey = a.sessionKey
	}

	if expiresAt <= nowMs {
		return "", errors.Wrapf(ErrInvalidExpiry, "expiresAt %d is not after %d", expiresAt, nowMs)
	}

	record, txHash, err := a.submitSession(
		ctx, alphasecapi.SessionCommandCreate, sessionID, sessionKey, nowMs, expiresAt, metadata)
	if err != nil {
		return "", err
	}

	a.sessionMu.Lock()
	a.sessions[sessionID] = record
	a.sessionMu.Unlock()

	return txHash, nil
}

// UpdateSession replaces the expiry and metadata of a registered session.
// The signature embedded in the command differs from the one sent at
// creation since the registration nonce moves with nowMs. A missing local
// record is not an error, the server stays authoritative.
func (a *Agent) UpdateSession(
	ctx context.Context, sessionID string, sessionKey *ecdsa.PrivateKey, nowMs, expiresAt uint64, metadata []byte,
) (string, error) {
	if sessionKey == nil {
		sessionKey = a.sessionKey
	}

	if expiresAt <= nowMs {
		return "", errors.Wrapf(ErrInvalidExpiry, "expiresAt %d is not after %d", expiresAt, nowMs)
	}

	record, txHash, err := a.submitSession(
		ctx, alphasecapi.SessionCommandUpdate, sessionID, sessionKey, nowMs, expiresAt, metadata)
	if err != nil {
		return "", err
	}

	a.sessionMu.Lock()
	if existing, ok := a.sessions[sessionID]; ok {
		record.CreatedAt = existing.CreatedAt
	}
	a.sessions[sessionID] = record
	a.sessionMu.Unlock()

	return txHash, nil
}

// DeleteSession revokes a registered session wallet. The local record is
// dropped even when the exchange no longer knows the session.
func (a *Agent) DeleteSession(
	ctx context.Context, sessionID string, sessionKey *ecdsa.PrivateKey, nowMs uint64,
) (string, error) {
	if sessionKey == nil {
		sessionKey = a.sessionKey
	}

	a.sessionMu.Lock()
	delete(a.sessions, sessionID)
	a.sessionMu.Unlock()

	_, txHash, err := a.submitSession(
		ctx, alphasecapi.SessionCommandDelete, sessionID, sessionKey, nowMs, 0, nil)
	if err != nil {
		return "", err
	}

	return txHash, nil
}

// Session returns the locally tracked session record by id.
func (a *Agent) Session(sessionID string) (*SessionRecord, error) {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	record, ok := a.sessions[sessionID]
	if !ok {
		return nil, errors.Wrapf(ErrSessionNotFound, "session %s", sessionID)
	}

	return record, nil
}

// LocalSessions returns every locally tracked session record.
func (a *Agent) LocalSessions() []*SessionRecord {
	a.sessionMu.Lock()
	defer a.sessionMu.Unlock()

	records := make([]*SessionRecord, 0, len(a.sessions))
	for _, record := range a.sessions {
		records = append(records, record)
	}

	return records
}

// Sessions returns the session records the exchange knows for the owner.
func (a *Agent) Sessions(ctx context.Context) ([]alphasecapi.Session, error) {
	return a.client.WalletService.Sessions(ctx, a.config.Address)
}
