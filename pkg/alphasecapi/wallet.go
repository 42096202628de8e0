package alphasecapi

import (
	"context"
	"net/url"
	"strconv"
)

// WalletService covers the wallet endpoints: balances, sessions, transfers
// and withdrawals under /api/v1/wallet.
type WalletService struct {
	client *RestClient
}

func (s *WalletService) Balances(ctx context.Context, address string) ([]Balance, error) {
	params := url.Values{}
	params.Set("address", address)

	var balances []Balance
	if err := s.client.get(ctx, "/api/v1/wallet/balance", params, &balances); err != nil {
		return nil, err
	}

	return balances, nil
}

func (s *WalletService) Sessions(ctx context.Context, address string) ([]Session, error) {
	params := url.Values{}
	params.Set("address", address)

	var sessions []Session
	if err := s.client.get(ctx, "/api/v1/wallet/session", params, &sessions); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (s *WalletService) TransferHistory(ctx context.Context, query TransferHistoryQuery) ([]Transfer, error) {
	params := url.Values{}
	params.Set("address", query.Address)
	if query.TokenID != 0 {
		params.Set("tokenId", strconv.FormatInt(query.TokenID, 10))
	}
	if query.FromMsec != 0 {
		params.Set("fromMsec", strconv.FormatInt(query.FromMsec, 10))
	}
	if query.ToMsec != 0 {
		params.Set("toMsec", strconv.FormatInt(query.ToMsec, 10))
	}
	if query.Limit != 0 {
		params.Set("limit", strconv.FormatUint(uint64(query.Limit), 10))
	}

	var transfers []Transfer
	if err := s.client.get(ctx, "/api/v1/wallet/transfer", params, &transfers); err != nil {
		return nil, err
	}

	return transfers, nil
}

// SubmitTransfer submits a signed transfer transaction, native or token.
func (s *WalletService) SubmitTransfer(ctx context.Context, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/wallet/transfer", map[string]interface{}{
		"tx": signedTx,
	})
}

// SubmitWithdraw submits a signed withdrawal transaction back to L1.
func (s *WalletService) SubmitWithdraw(ctx context.Context, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/wallet/withdraw", map[string]interface{}{
		"tx": signedTx,
	})
}

// CreateSession registers a session wallet under the given name.
func (s *WalletService) CreateSession(ctx context.Context, sessionID, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/wallet/session", map[string]interface{}{
		"sessionId": sessionID,
		"tx":        signedTx,
	})
}

// UpdateSession refreshes the expiry or metadata of an existing session wallet.
func (s *WalletService) UpdateSession(ctx context.Context, sessionID, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/wallet/session/update", map[string]interface{}{
		"sessionId": sessionID,
		"tx":        signedTx,
	})
}

// DeleteSession revokes a session wallet.
func (s *WalletService) DeleteSession(ctx context.Context, signedTx string) (string, error) {
	return s.client.submitTx(ctx, "/api/v1/wallet/session/delete", map[string]interface{}{
		"tx": signedTx,
	})
}
