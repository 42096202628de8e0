package alphasec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasecapi"
)

type capturedRequest struct {
	Method string
	Path   string
	Body   []byte
}

// restRecorder is a fake exchange API. It captures every request and
// answers submissions with a fixed transaction hash.
type restRecorder struct {
	*httptest.Server

	mu       sync.Mutex
	requests []capturedRequest

	// failWith overrides the response of a path with an error envelope
	failWith map[string]*alphasecapi.APIError
}

func newRestRecorder(t *testing.T) *restRecorder {
	rec := &restRecorder{failWith: make(map[string]*alphasecapi.APIError)}

	rec.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)

		rec.mu.Lock()
		rec.requests = append(rec.requests, capturedRequest{Method: r.Method, Path: r.URL.Path, Body: body})
		failure := rec.failWith[r.URL.Path]
		n := len(rec.requests)
		rec.mu.Unlock()

		if failure != nil {
			fmt.Fprintf(w, `{"code":%d,"result":null,"errMsg":%q}`, failure.Code, failure.Message)
			return
		}

		fmt.Fprintf(w, `{"code":200,"result":"0xhash%04d","errMsg":""}`, n)
	}))

	t.Cleanup(rec.Close)
	return rec
}

func (rec *restRecorder) count() int {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return len(rec.requests)
}

func (rec *restRecorder) last() capturedRequest {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	return rec.requests[len(rec.requests)-1]
}

func (rec *restRecorder) paths() []string {
	rec.mu.Lock()
	defer rec.mu.Unlock()

	paths := make([]string, len(rec.requests))
	for i, req := range rec.requests {
		paths[i] = req.Path
	}
	return paths
}

func newTestAgent(t *testing.T, rec *restRecorder, config *Config) *Agent {
	config.APIURL = rec.URL
	config.Network = NetworkKairos

	agent, err := New(config)
	require.NoError(t, err)
	return agent
}

// decodeCommand unwraps the signed transaction hex of a submission body
// into the command byte and its JSON payload.
func decodeCommand(t *testing.T, body []byte) (byte, []byte) {
	var submission struct {
		Tx string `json:"tx"`
	}
	require.NoError(t, json.Unmarshal(body, &submission))

	raw, err := hexutil.Decode(submission.Tx)
	require.NoError(t, err)

	var tx ethtypes.Transaction
	require.NoError(t, tx.UnmarshalBinary(raw))

	data := tx.Data()
	require.NotEmpty(t, data)
	return data[0], data[1:]
}

func futureMsec(d time.Duration) uint64 {
	return uint64(time.Now().Add(d).UnixMilli())
}

func TestCreateSessionRejectsPastExpiryBeforeAnyRequest(t *testing.T) {
	rec := newRestRecorder(t)
	agent := newTestAgent(t, rec, &Config{
		L1PrivateKey: testL1Key,
		L2PrivateKey: testL2Key,
	})

	now := uint64(time.Now().UnixMilli())
	_, err := agent.CreateSession(context.Background(), "s1", nil, now, now-1000, nil)
	require.ErrorIs(t, err, ErrInvalidExpiry)

	// rejected locally, nothing hit the wire
	assert.Equal(t, 0, rec.count())

	_, err = agent.Session("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionRegistrationNeedsOwnerKey(t *testing.T) {
	rec := newRestRecorder(t)
	agent := newTestAgent(t, rec, &Config{
		Address:        testL1Address,
		L2PrivateKey:   testL2Key,
		SessionEnabled: true,
	})

	// registering a session signs with the owner key, which is absent
	_, err := agent.CreateSession(context.Background(), "s1", nil,
		uint64(time.Now().UnixMilli()), futureMsec(time.Hour), nil)
	require.ErrorIs(t, err, ErrKeyMissing)
	assert.Equal(t, 0, rec.count())

	// trading still works on the session key alone
	orderID, err := agent.Order(context.Background(), "1_2", SideBuy, 0.15, 1000, OrderTypeLimit, OrderModeBase, nil)
	require.NoError(t, err)
	require.NotEmpty(t, orderID)
	assert.Equal(t, "/api/v1/order", rec.last().Path)

	// the returned id is a usable cancel target
	_, err = agent.Cancel(context.Background(), orderID)
	require.NoError(t, err)

	last := rec.last()
	assert.Equal(t, "/api/v1/wallet/order/cancel", last.Path)

	cmd, payload := decodeCommand(t, last.Body)
	assert.Equal(t, alphasecapi.DexCommandCancel, cmd)

	var cancel struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(payload, &cancel))
	assert.Equal(t, orderID, cancel.OrderID)
}

func TestSessionLifecycleKeepsLocalRecord(t *testing.T) {
	rec := newRestRecorder(t)
	agent := newTestAgent(t, rec, &Config{
		L1PrivateKey:   testL1Key,
		L2PrivateKey:   testL2Key,
		SessionEnabled: true,
	})

	createdAt := uint64(time.Now().UnixMilli())
	createExpiry := futureMsec(time.Hour)
	_, err := agent.CreateSession(context.Background(), "s1", nil, createdAt, createExpiry, []byte("bot-1"))
	require.NoError(t, err)

	created, err := agent.Session("s1")
	require.NoError(t, err)
	assert.Equal(t, testL2Address, created.SessionAddress)
	assert.Equal(t, testL1Address, created.OwnerAddress)
	assert.Equal(t, createExpiry, created.ExpiresAt)
	require.NotEmpty(t, created.Signature)

	var createBody struct {
		SessionID string `json:"sessionId"`
		Tx        string `json:"tx"`
	}
	require.NoError(t, json.Unmarshal(rec.last().Body, &createBody))
	assert.Equal(t, "s1", createBody.SessionID)
	assert.NotEmpty(t, createBody.Tx)

	updateExpiry := futureMsec(2 * time.Hour)
	_, err = agent.UpdateSession(context.Background(), "s1", nil, createdAt+1, updateExpiry, []byte("bot-1"))
	require.NoError(t, err)

	updated, err := agent.Session("s1")
	require.NoError(t, err)
	assert.Equal(t, updateExpiry, updated.ExpiresAt)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)

	// the registration nonce moved, so the signature must differ
	assert.NotEqual(t, created.Signature, updated.Signature)

	require.Len(t, agent.LocalSessions(), 1)

	_, err = agent.DeleteSession(context.Background(), "s1", nil, createdAt+2)
	require.NoError(t, err)

	_, err = agent.Session("s1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.Empty(t, agent.LocalSessions())

	assert.Equal(t, []string{
		"/api/v1/wallet/session",
		"/api/v1/wallet/session/update",
		"/api/v1/wallet/session/delete",
	}, rec.paths())
}

func TestSubscribeRejectsUnknownChannelType(t *testing.T) {
	rec := newRestRecorder(t)
	agent := newTestAgent(t, rec, &Config{L1PrivateKey: testL1Key})

	_, err := agent.Subscribe("orderbook@1_2")
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = agent.Subscribe("ticker")
	require.ErrorIs(t, err, ErrInvalidParameters)

	sub, err := agent.Subscribe("userEvent@" + testL1Address)
	require.NoError(t, err)
	assert.Equal(t, "userEvent@"+testL1Address, sub.Channel)

	_, err = agent.Subscribe("trade@1_2")
	require.NoError(t, err)
}

func TestOrderValidatesParametersLocally(t *testing.T) {
	rec := newRestRecorder(t)
	agent := newTestAgent(t, rec, &Config{L1PrivateKey: testL1Key})

	_, err := agent.Order(context.Background(), "1_2", SideBuy, 0.15, 0, OrderTypeLimit, OrderModeBase, nil)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = agent.Order(context.Background(), "1_2", SideBuy, 0, 100, OrderTypeLimit, OrderModeBase, nil)
	require.ErrorIs(t, err, ErrInvalidParameters)

	slLimit := 97.5
	_, err = agent.Order(context.Background(), "1_2", SideSell, 100, 10, OrderTypeLimit, OrderModeBase, &TPSL{
		StopLossLimit: &slLimit,
	})
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = agent.Order(context.Background(), "KAIA-USDT", SideBuy, 0.15, 100, OrderTypeLimit, OrderModeBase, nil)
	require.ErrorIs(t, err, ErrInvalidParameters)

	assert.Equal(t, 0, rec.count())
}

func TestOrderSubmitsSignedTransaction(t *testing.T) {
	rec := newRestRecorder(t)
	agent := newTestAgent(t, rec, &Config{L1PrivateKey: testL1Key})

	orderID, err := agent.Order(context.Background(), "1_2", SideSell, 0.155, 2500, OrderTypeLimit, OrderModeBase, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, orderID)

	cmd, payload := decodeCommand(t, rec.last().Body)
	assert.Equal(t, alphasecapi.DexCommandOrder, cmd)

	var order struct {
		L1Owner    string `json:"l1owner"`
		BaseToken  string `json:"baseToken"`
		QuoteToken string `json:"quoteToken"`
		Side       uint32 `json:"side"`
		Price      string `json:"price"`
		Quantity   string `json:"quantity"`
	}
	require.NoError(t, json.Unmarshal(payload, &order))
	assert.Equal(t, testL1Address, order.L1Owner)
	assert.Equal(t, "1", order.BaseToken)
	assert.Equal(t, "2", order.QuoteToken)
	assert.Equal(t, uint32(SideSell), order.Side)
	assert.Equal(t, "0.155", order.Price)
	assert.Equal(t, "2500", order.Quantity)
}

func TestCancelMapsUnknownOrder(t *testing.T) {
	rec := newRestRecorder(t)
	rec.failWith["/api/v1/wallet/order/cancel"] = &alphasecapi.APIError{Code: 404, Message: "order not found"}

	agent := newTestAgent(t, rec, &Config{L1PrivateKey: testL1Key})

	_, err := agent.Cancel(context.Background(), "0xdeadbeef")
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestWithdrawNeedsOwnerKey(t *testing.T) {
	rec := newRestRecorder(t)
	agent := newTestAgent(t, rec, &Config{
		Address:        testL1Address,
		L2PrivateKey:   testL2Key,
		SessionEnabled: true,
	})

	_, err := agent.Withdraw(context.Background(), "1", 2.5)
	require.ErrorIs(t, err, ErrKeyMissing)
	assert.Equal(t, 0, rec.count())
}

func TestWithdrawNative(t *testing.T) {
	rec := newRestRecorder(t)
	agent := newTestAgent(t, rec, &Config{L1PrivateKey: testL1Key})

	_, err := agent.Withdraw(context.Background(), "1", 2.5)
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/wallet/withdraw", rec.last().Path)
}

func TestTransferValidatesRecipient(t *testing.T) {
	rec := newRestRecorder(t)
	agent := newTestAgent(t, rec, &Config{L1PrivateKey: testL1Key})

	_, err := agent.Transfer(context.Background(), "not-an-address", 1)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = agent.Transfer(context.Background(), testL2Address, -1)
	require.ErrorIs(t, err, ErrInvalidParameters)

	assert.Equal(t, 0, rec.count())
}

func TestGetOrderMapsMissingOrder(t *testing.T) {
	rec := newRestRecorder(t)
	rec.failWith["/api/v1/order/0xmissing"] = &alphasecapi.APIError{Code: 404, Message: "not found"}

	agent := newTestAgent(t, rec, &Config{L1PrivateKey: testL1Key})

	_, err := agent.GetOrder(context.Background(), "0xmissing")
	require.True(t, errors.Is(err, ErrOrderNotFound))
}
