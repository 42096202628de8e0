package alphasecapi

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Token is one entry of GET /api/v1/market/tokens.
type Token struct {
	TokenID   string `json:"tokenId"`
	L1Symbol  string `json:"l1Symbol"`
	L1Address string `json:"l1Address"`
	Decimals  uint32 `json:"l1Decimal"`
	IsActive  bool   `json:"isActive"`
}

// Market is one entry of GET /api/v1/market.
type Market struct {
	MarketID     string `json:"marketId"`
	BaseTokenID  string `json:"baseTokenId"`
	QuoteTokenID string `json:"quoteTokenId"`
	Ticker       string `json:"ticker"`
	Description  string `json:"description"`
	Exchange     string `json:"exchange"`
	Type         string `json:"type"`
	Listed       bool   `json:"listed"`
	TakerFee     string `json:"takerFee"`
	MakerFee     string `json:"makerFee"`
}

// Ticker is one entry of GET /api/v1/market/ticker.
type Ticker struct {
	MarketID       string `json:"marketId"`
	BaseTokenID    string `json:"baseTokenId"`
	QuoteTokenID   string `json:"quoteTokenId"`
	Price          string `json:"price"`
	Open24H        string `json:"open24h"`
	High24H        string `json:"high24h"`
	Low24H         string `json:"low24h"`
	Volume24H      string `json:"volume24h"`
	QuoteVolume24H string `json:"quoteVolume24h"`
}

// Trade is one entry of GET /api/v1/market/trades.
type Trade struct {
	TradeID      string `json:"tradeId"`
	MarketID     string `json:"marketId"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	BuyOrderID   string `json:"buyOrderId"`
	SellOrderID  string `json:"sellOrderId"`
	CreatedAt    uint64 `json:"createdAt"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

// Depth is the orderbook payload of GET /api/v1/market/depth. Bids and
// asks are [price, size] pairs.
type Depth struct {
	MarketID string     `json:"marketId"`
	Bids     [][]string `json:"bids"`
	Asks     [][]string `json:"asks"`
	FirstID  int64      `json:"firstId"`
	FinalID  int64      `json:"finalId"`
	Time     int64      `json:"time"`
}

// Balance is one entry of GET /api/v1/wallet/balance. Amounts are in the
// token's smallest unit.
type Balance struct {
	TokenID  string `json:"tokenId"`
	Locked   string `json:"locked"`
	Unlocked string `json:"unlocked"`
}

// Available converts the unlocked amount into token units.
func (b Balance) Available(decimals int32) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(b.Unlocked)
	if err != nil {
		return decimal.Zero, err
	}

	return d.Shift(-decimals), nil
}

// Session is one entry of GET /api/v1/wallet/session.
type Session struct {
	Name           string `json:"name"`
	SessionAddress string `json:"sessionAddress"`
	OwnerAddress   string `json:"ownerAddress"`
	Expiry         uint64 `json:"expiry"`
	Applied        bool   `json:"applied"`
}

// Order is one entry of the order query endpoints.
type Order struct {
	ID                uint64 `json:"id"`
	OrderID           string `json:"orderId"`
	AccountAddress    string `json:"accountAddress"`
	MarketID          string `json:"marketId"`
	Side              string `json:"side"`
	OrderType         string `json:"orderType"`
	Price             string `json:"price"`
	OrigQty           string `json:"origQty"`
	OrigQuoteOrderQty string `json:"origQuoteOrderQty"`
	IsTrigger         bool   `json:"isTrigger"`
	IsTriggered       bool   `json:"isTriggered"`
	TriggerPrice      string `json:"triggerPrice"`
	Status            string `json:"status"`
	ContingencyType   string `json:"contingencyType"`
	OtoLegType        string `json:"otoLegType"`
	TxHash            string `json:"txHash"`
	CreatedAt         uint64 `json:"createdAt"`
	UpdatedAt         uint64 `json:"updatedAt"`
	ExecutedQty       string `json:"executedQty"`
	ExecutedQuoteQty  string `json:"executedQuoteQty"`
}

// IsActive reports whether the order is still resting on the book.
func (o Order) IsActive() bool {
	return o.Status == "NEW" || o.Status == "PARTIALLY_FILLED"
}

// Transfer is one entry of the transfer history endpoint.
type Transfer struct {
	TxHash      string `json:"txHash"`
	TokenID     string `json:"tokenId"`
	Amount      string `json:"amount"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	CreatedAt   uint64 `json:"createdAt"`
}

// OrdersQuery filters the order query endpoints.
type OrdersQuery struct {
	Address  string
	Market   string
	Limit    uint32
	FromMsec int64
	EndMsec  int64
}

// TransferHistoryQuery filters the transfer history endpoint.
type TransferHistoryQuery struct {
	Address  string
	TokenID  int64
	FromMsec int64
	ToMsec   int64
	Limit    uint32
}

// TokenMetadata indexes the token list for symbol and market id lookups.
type TokenMetadata struct {
	symbolByTokenID   map[string]string
	tokenIDBySymbol   map[string]string
	addressByTokenID  map[string]string
	decimalsByTokenID map[string]uint32
}

func NewTokenMetadata(tokens []Token) *TokenMetadata {
	m := &TokenMetadata{
		symbolByTokenID:   make(map[string]string, len(tokens)),
		tokenIDBySymbol:   make(map[string]string, len(tokens)),
		addressByTokenID:  make(map[string]string, len(tokens)),
		decimalsByTokenID: make(map[string]uint32, len(tokens)),
	}

	for _, t := range tokens {
		m.symbolByTokenID[t.TokenID] = t.L1Symbol
		m.tokenIDBySymbol[t.L1Symbol] = t.TokenID
		m.addressByTokenID[t.TokenID] = t.L1Address
		m.decimalsByTokenID[t.TokenID] = t.Decimals
	}

	return m
}

// MarketID converts a market symbol like "KAIA/USDT" into the internal
// market id "baseTokenId_quoteTokenId".
func (m *TokenMetadata) MarketID(market string) (string, error) {
	base, quote, ok := strings.Cut(market, "/")
	if !ok {
		return "", errors.Errorf("invalid market symbol: %s, expected BASE/QUOTE", market)
	}

	baseID, ok := m.tokenIDBySymbol[base]
	if !ok {
		return "", errors.Errorf("unknown base token: %s", base)
	}

	quoteID, ok := m.tokenIDBySymbol[quote]
	if !ok {
		return "", errors.Errorf("unknown quote token: %s", quote)
	}

	return baseID + "_" + quoteID, nil
}

// MarketSymbol converts an internal market id back into a symbol.
func (m *TokenMetadata) MarketSymbol(marketID string) (string, error) {
	baseID, quoteID, ok := strings.Cut(marketID, "_")
	if !ok {
		return "", errors.Errorf("invalid market id: %s", marketID)
	}

	base, ok := m.symbolByTokenID[baseID]
	if !ok {
		return "", errors.Errorf("unknown base token id: %s", baseID)
	}

	quote, ok := m.symbolByTokenID[quoteID]
	if !ok {
		return "", errors.Errorf("unknown quote token id: %s", quoteID)
	}

	return base + "/" + quote, nil
}

// TokenID resolves a token symbol into its internal id.
func (m *TokenMetadata) TokenID(symbol string) (string, error) {
	id, ok := m.tokenIDBySymbol[symbol]
	if !ok {
		return "", errors.Errorf("unknown token: %s", symbol)
	}

	return id, nil
}

// TokenSymbol resolves a token id into its symbol.
func (m *TokenMetadata) TokenSymbol(tokenID string) (string, error) {
	symbol, ok := m.symbolByTokenID[tokenID]
	if !ok {
		return "", errors.Errorf("unknown token id: %s", tokenID)
	}

	return symbol, nil
}

// TokenAddress resolves a token id into its L1 contract address.
func (m *TokenMetadata) TokenAddress(tokenID string) (string, error) {
	addr, ok := m.addressByTokenID[tokenID]
	if !ok {
		return "", errors.Errorf("unknown token id: %s", tokenID)
	}

	return addr, nil
}

// TokenDecimals resolves a token id into its decimal count.
func (m *TokenMetadata) TokenDecimals(tokenID string) (uint32, error) {
	d, ok := m.decimalsByTokenID[tokenID]
	if !ok {
		return 0, errors.Errorf("unknown token id: %s", tokenID)
	}

	return d, nil
}
