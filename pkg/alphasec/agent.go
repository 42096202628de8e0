package alphasec

import (
	"context"
	"crypto/ecdsa"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasecapi"
)

// Agent is the entry point of the SDK. It bundles the REST client, the
// transaction signer, the websocket stream and the local session store of
// one owner address.
type Agent struct {
	config     *Config
	client     *alphasecapi.RestClient
	signer     *alphasecapi.Signer
	stream     *Stream
	sessionKey *ecdsa.PrivateKey

	sessionMu sync.Mutex
	sessions  map[string]*SessionRecord
}

func New(config *Config) (*Agent, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := alphasecapi.NewRestClient(config.APIURL)
	if err != nil {
		return nil, err
	}

	signer := alphasecapi.NewSigner(
		common.HexToAddress(config.Address),
		config.Network.L1ChainID(),
		config.ChainID,
	).EnableSession(config.SessionEnabled)

	if config.L1PrivateKey != "" {
		key, err := parsePrivateKey(config.L1PrivateKey)
		if err != nil {
			return nil, err
		}
		signer.SetL1Key(key)
	}

	var sessionKey *ecdsa.PrivateKey
	if config.L2PrivateKey != "" {
		key, err := parsePrivateKey(config.L2PrivateKey)
		if err != nil {
			return nil, err
		}
		signer.SetL2Key(key)
		sessionKey = key
	}

	agent := &Agent{
		config:     config,
		client:     client,
		signer:     signer,
		stream:     NewStream(config.WSURL),
		sessionKey: sessionKey,
		sessions:   make(map[string]*SessionRecord),
	}
	agent.stream.SetChannelResolver(agent.resolveChannel)
	return agent, nil
}

// Initialize loads the token metadata required for market symbol lookups.
func (a *Agent) Initialize(ctx context.Context) error {
	return a.client.InitializeMetadata(ctx)
}

// Address returns the L1 owner address.
func (a *Agent) Address() string {
	return a.config.Address
}

// RestClient exposes the underlying REST client for endpoints the facade
// does not wrap.
func (a *Agent) RestClient() *alphasecapi.RestClient {
	return a.client
}

// marketID resolves a market symbol like "KAIA/USDT" into a market id.
// Ids pass through untouched, so the agent stays usable before Initialize.
func (a *Agent) marketID(market string) (string, error) {
	if meta := a.client.Metadata(); meta != nil && strings.Contains(market, "/") {
		return meta.MarketID(market)
	}

	return market, nil
}

// marketTokens splits a resolved market id into base and quote token ids.
func (a *Agent) marketTokens(market string) (string, string, error) {
	marketID, err := a.marketID(market)
	if err != nil {
		return "", "", err
	}

	base, quote, ok := strings.Cut(marketID, "_")
	if !ok {
		return "", "", errors.Wrapf(ErrInvalidParameters, "invalid market: %s", market)
	}

	return base, quote, nil
}

// tokenID resolves a token symbol into its id, ids pass through untouched.
func (a *Agent) tokenID(token string) (string, error) {
	meta := a.client.Metadata()
	if meta == nil {
		return token, nil
	}

	if id, err := meta.TokenID(token); err == nil {
		return id, nil
	}

	return token, nil
}

// mapSubmitError converts submission failures into the sentinel errors of
// this package where the API error is recognizable.
func mapSubmitError(err error) error {
	if err == nil {
		return nil
	}

	var apiErr *alphasecapi.APIError
	if errors.As(err, &apiErr) {
		msg := strings.ToLower(apiErr.Message)
		switch {
		case apiErr.Code == 404 && strings.Contains(msg, "session"):
			return errors.Wrap(ErrSessionNotFound, apiErr.Message)
		case apiErr.Code == 404, strings.Contains(msg, "order not found"):
			return errors.Wrap(ErrOrderNotFound, apiErr.Message)
		}
	}

	return err
}

// Order submits an order and returns the transaction hash, which is the
// order id for later cancels and modifies.
func (a *Agent) Order(
	ctx context.Context,
	market string,
	side OrderSide,
	price, quantity float64,
	orderType OrderType,
	orderMode OrderMode,
	tpsl *TPSL,
) (string, error) {
	if quantity <= 0 {
		return "", errors.Wrap(ErrInvalidParameters, "quantity must be positive")
	}
	if orderType == OrderTypeLimit && price <= 0 {
		return "", errors.Wrap(ErrInvalidParameters, "limit orders need a positive price")
	}
	if tpsl != nil && tpsl.StopLossLimit != nil && tpsl.StopLossTrigger == nil {
		return "", errors.Wrap(ErrInvalidParameters, "a stop loss limit needs a stop loss trigger")
	}

	base, quote, err := a.marketTokens(market)
	if err != nil {
		return "", err
	}

	var tpLimit, slTrigger, slLimit *float64
	if tpsl != nil {
		tpLimit, slTrigger, slLimit = tpsl.TakeProfitLimit, tpsl.StopLossTrigger, tpsl.StopLossLimit
	}

	data, err := a.signer.OrderData(
		base, quote, uint32(side), price, quantity, uint32(orderType), uint32(orderMode),
		tpLimit, slTrigger, slLimit,
	)
	if err != nil {
		return "", err
	}

	signedTx, err := a.signer.SignTransaction(0, data, nil)
	if err != nil {
		return "", err
	}

	txHash, err := a.client.OrderService.SubmitOrder(ctx, signedTx)
	return txHash, mapSubmitError(err)
}

// Cancel cancels a single order by id.
func (a *Agent) Cancel(ctx context.Context, orderID string) (string, error) {
	if orderID == "" {
		return "", errors.Wrap(ErrInvalidParameters, "order id must not be empty")
	}

	data, err := a.signer.CancelData(orderID)
	if err != nil {
		return "", err
	}

	signedTx, err := a.signer.SignTransaction(0, data, nil)
	if err != nil {
		return "", err
	}

	txHash, err := a.client.OrderService.SubmitCancel(ctx, signedTx)
	return txHash, mapSubmitError(err)
}

// CancelAll cancels every open order of the owner.
func (a *Agent) CancelAll(ctx context.Context) (string, error) {
	data, err := a.signer.CancelAllData()
	if err != nil {
		return "", err
	}

	signedTx, err := a.signer.SignTransaction(0, data, nil)
	if err != nil {
		return "", err
	}

	txHash, err := a.client.OrderService.SubmitCancelAll(ctx, signedTx)
	return txHash, mapSubmitError(err)
}

// Modify replaces price and quantity of a resting order.
func (a *Agent) Modify(
	ctx context.Context, orderID string, newPrice, newQuantity float64, orderMode OrderMode,
) (string, error) {
	if orderID == "" {
		return "", errors.Wrap(ErrInvalidParameters, "order id must not be empty")
	}
	if newPrice <= 0 || newQuantity <= 0 {
		return "", errors.Wrap(ErrInvalidParameters, "price and quantity must be positive")
	}

	data, err := a.signer.ModifyData(orderID, newPrice, newQuantity, uint32(orderMode))
	if err != nil {
		return "", err
	}

	signedTx, err := a.signer.SignTransaction(0, data, nil)
	if err != nil {
		return "", err
	}

	txHash, err := a.client.OrderService.SubmitModify(ctx, signedTx)
	return txHash, mapSubmitError(err)
}

// StopOrder places an order that activates once stopPrice triggers.
func (a *Agent) StopOrder(
	ctx context.Context,
	market string,
	stopPrice, price, quantity float64,
	side OrderSide,
	orderType OrderType,
	orderMode OrderMode,
) (string, error) {
	if stopPrice <= 0 || quantity <= 0 {
		return "", errors.Wrap(ErrInvalidParameters, "stop price and quantity must be positive")
	}

	base, quote, err := a.marketTokens(market)
	if err != nil {
		return "", err
	}

	data, err := a.signer.StopOrderData(
		base, quote, stopPrice, price, quantity,
		uint32(side), uint32(orderType), uint32(orderMode),
	)
	if err != nil {
		return "", err
	}

	signedTx, err := a.signer.SignTransaction(0, data, nil)
	if err != nil {
		return "", err
	}

	txHash, err := a.client.OrderService.SubmitStopOrder(ctx, signedTx)
	return txHash, mapSubmitError(err)
}

// Transfer moves native tokens to another L2 address.
func (a *Agent) Transfer(ctx context.Context, to string, value float64) (string, error) {
	if !common.IsHexAddress(to) {
		return "", errors.Wrapf(ErrInvalidParameters, "invalid recipient address: %s", to)
	}
	if value <= 0 {
		return "", errors.Wrap(ErrInvalidParameters, "transfer value must be positive")
	}

	data, err := a.signer.ValueTransferData(to, value)
	if err != nil {
		return "", err
	}

	signedTx, err := a.signer.SignTransaction(0, data, nil)
	if err != nil {
		return "", err
	}

	txHash, err := a.client.WalletService.SubmitTransfer(ctx, signedTx)
	return txHash, mapSubmitError(err)
}

// TokenTransfer moves tokens to another L2 address. token may be a symbol
// or a token id.
func (a *Agent) TokenTransfer(ctx context.Context, to string, value float64, token string) (string, error) {
	if !common.IsHexAddress(to) {
		return "", errors.Wrapf(ErrInvalidParameters, "invalid recipient address: %s", to)
	}
	if value <= 0 {
		return "", errors.Wrap(ErrInvalidParameters, "transfer value must be positive")
	}

	tokenID, err := a.tokenID(token)
	if err != nil {
		return "", err
	}

	data, err := a.signer.TokenTransferData(to, value, tokenID)
	if err != nil {
		return "", err
	}

	signedTx, err := a.signer.SignTransaction(0, data, nil)
	if err != nil {
		return "", err
	}

	txHash, err := a.client.WalletService.SubmitTransfer(ctx, signedTx)
	return txHash, mapSubmitError(err)
}

// Withdraw moves tokens from the L2 back to the owner address on L1.
// token may be a symbol or a token id.
func (a *Agent) Withdraw(ctx context.Context, token string, value float64) (string, error) {
	if value <= 0 {
		return "", errors.Wrap(ErrInvalidParameters, "withdraw value must be positive")
	}

	tokenID, err := a.tokenID(token)
	if err != nil {
		return "", err
	}

	var signedTx string
	if tokenID == alphasecapi.NativeTokenID {
		signedTx, err = a.signer.NativeWithdrawTx(value)
	} else {
		meta := a.client.Metadata()
		if meta == nil {
			return "", errors.New("token metadata not initialized, call Initialize first")
		}

		var tokenAddr string
		tokenAddr, err = meta.TokenAddress(tokenID)
		if err != nil {
			return "", err
		}

		signedTx, err = a.signer.TokenWithdrawTx(tokenAddr, value)
	}
	if err != nil {
		return "", err
	}

	txHash, err := a.client.WalletService.SubmitWithdraw(ctx, signedTx)
	return txHash, mapSubmitError(err)
}

// Markets returns the market list.
func (a *Agent) Markets(ctx context.Context) ([]alphasecapi.Market, error) {
	return a.client.MarketService.Markets(ctx)
}

// Tickers returns the tickers of every market.
func (a *Agent) Tickers(ctx context.Context) ([]alphasecapi.Ticker, error) {
	return a.client.MarketService.Tickers(ctx)
}

// Ticker returns the ticker of one market symbol or id.
func (a *Agent) Ticker(ctx context.Context, market string) (*alphasecapi.Ticker, error) {
	marketID, err := a.marketID(market)
	if err != nil {
		return nil, err
	}

	return a.client.MarketService.Ticker(ctx, marketID)
}

// Depth returns the orderbook of one market symbol or id.
func (a *Agent) Depth(ctx context.Context, market string, limit uint32) (*alphasecapi.Depth, error) {
	marketID, err := a.marketID(market)
	if err != nil {
		return nil, err
	}

	return a.client.MarketService.Depth(ctx, marketID, limit)
}

// Trades returns recent trades of one market symbol or id.
func (a *Agent) Trades(ctx context.Context, market string, limit uint32) ([]alphasecapi.Trade, error) {
	marketID, err := a.marketID(market)
	if err != nil {
		return nil, err
	}

	return a.client.MarketService.Trades(ctx, marketID, limit)
}

// Balances returns the owner's balances.
func (a *Agent) Balances(ctx context.Context) ([]alphasecapi.Balance, error) {
	return a.client.WalletService.Balances(ctx, a.config.Address)
}

// OpenOrders returns the owner's resting orders, optionally filtered by
// market symbol or id.
func (a *Agent) OpenOrders(ctx context.Context, market string, limit uint32) ([]alphasecapi.Order, error) {
	query := alphasecapi.OrdersQuery{Address: a.config.Address, Limit: limit}
	if market != "" {
		marketID, err := a.marketID(market)
		if err != nil {
			return nil, err
		}
		query.Market = marketID
	}

	return a.client.OrderService.OpenOrders(ctx, query)
}

// ClosedOrders returns the owner's filled and canceled orders.
func (a *Agent) ClosedOrders(ctx context.Context, market string, limit uint32) ([]alphasecapi.Order, error) {
	query := alphasecapi.OrdersQuery{Address: a.config.Address, Limit: limit}
	if market != "" {
		marketID, err := a.marketID(market)
		if err != nil {
			return nil, err
		}
		query.Market = marketID
	}

	return a.client.OrderService.ClosedOrders(ctx, query)
}

// GetOrder returns one order by id, ErrOrderNotFound when unknown.
func (a *Agent) GetOrder(ctx context.Context, orderID string) (*alphasecapi.Order, error) {
	order, err := a.client.OrderService.Order(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errors.Wrapf(ErrOrderNotFound, "order %s", orderID)
	}

	return order, nil
}

// TransferHistory returns the owner's transfer records.
func (a *Agent) TransferHistory(ctx context.Context, query alphasecapi.TransferHistoryQuery) ([]alphasecapi.Transfer, error) {
	if query.Address == "" {
		query.Address = a.config.Address
	}

	return a.client.WalletService.TransferHistory(ctx, query)
}

// Stream returns the websocket stream of the agent.
func (a *Agent) Stream() *Stream {
	return a.stream
}

// Connect starts the websocket stream.
func (a *Agent) Connect(ctx context.Context) error {
	return a.stream.Connect(ctx)
}

// Subscribe registers a channel such as "ticker@KAIA/USDT" or
// "userEvent@0xowner". Market symbols resolve to market ids when metadata
// is loaded.
func (a *Agent) Subscribe(channel string) (*Subscription, error) {
	return a.stream.Subscribe(channel)
}

func (a *Agent) Unsubscribe(sub *Subscription) error {
	return a.stream.Unsubscribe(sub)
}

// TakeMessageReceiver hands out the single message channel of the stream.
func (a *Agent) TakeMessageReceiver() (<-chan StreamMessage, error) {
	return a.stream.TakeMessageReceiver()
}

// Close shuts down the stream.
func (a *Agent) Close() {
	a.stream.Close()
}

// resolveChannel maps "type@target" channels with market symbol targets to
// their market id form.
func (a *Agent) resolveChannel(channel string) (string, error) {
	channelType, target, ok := strings.Cut(channel, "@")
	if !ok {
		return "", errors.Wrapf(ErrInvalidParameters, "invalid channel: %s, expected type@target", channel)
	}

	switch channelType {
	case "ticker", "trade", "depth":
		marketID, err := a.marketID(target)
		if err != nil {
			return "", err
		}

		return channelType + "@" + marketID, nil

	case "userEvent":
		return channel, nil
	}

	return "", errors.Wrapf(ErrInvalidParameters, "unsupported channel type: %s", channelType)
}
