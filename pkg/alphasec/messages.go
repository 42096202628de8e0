package alphasec

import "encoding/json"

// StreamMessage is a parsed server push delivered through the stream's
// message channel.
type StreamMessage interface {
	streamMessage()
}

// TickerEntry is one market inside a ticker push.
type TickerEntry struct {
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

type TickerEvent struct {
	Channel string
	Tickers []TickerEntry
}

// TradeEntry is one fill inside a trade push.
type TradeEntry struct {
	TradeID      string `json:"tradeId"`
	MarketID     string `json:"marketId"`
	Price        string `json:"price"`
	Quantity     string `json:"quantity"`
	BuyOrderID   string `json:"buyOrderId"`
	SellOrderID  string `json:"sellOrderId"`
	CreatedAt    int64  `json:"createdAt"`
	IsBuyerMaker bool   `json:"isBuyerMaker"`
}

type TradeEvent struct {
	Channel string
	Trades  []TradeEntry
}

// DepthUpdate is an incremental orderbook update. Bids and asks are
// [price, size] pairs.
type DepthUpdate struct {
	MarketID string     `json:"marketId"`
	Bids     [][]string `json:"bids"`
	Asks     [][]string `json:"asks"`
	FirstID  int64      `json:"firstId"`
	FinalID  int64      `json:"finalId"`
	Time     int64      `json:"time"`
}

type DepthEvent struct {
	Channel string
	Depth   DepthUpdate
}

// UserEventBase carries the fields shared by every userEvent topic.
type UserEventBase struct {
	Topic          string `json:"topic"`
	EventType      string `json:"eventType"`
	EventTime      int64  `json:"eventTime"`
	BlockNumber    int64  `json:"blockNumber"`
	AccountAddress string `json:"accountAddress"`
	TxHash         string `json:"txHash"`
}

// OrderUpdate is the payload of an ORDER topic user event.
type OrderUpdate struct {
	UserEventBase

	OrderID           string `json:"orderId"`
	MarketID          string `json:"marketId"`
	Side              string `json:"side"`
	OrderType         string `json:"orderType"`
	OrderMode         int32  `json:"orderMode"`
	OrigPrice         string `json:"origPrice"`
	OrigQty           string `json:"origQty"`
	OrigQuoteOrderQty string `json:"origQuoteOrderQty"`
	Status            string `json:"status"`
	CreatedAt         int64  `json:"createdAt"`
	ExecutedQty       string `json:"executedQty"`
	ExecutedQuoteQty  string `json:"executedQuoteQty"`
	LastPrice         string `json:"lastPrice"`
	LastQty           string `json:"lastQty"`
	Fee               string `json:"fee"`
	FeeTokenID        string `json:"feeTokenId"`
	TradeID           string `json:"tradeId"`
	IsMaker           bool   `json:"isMaker"`
}

// AccountUpdate is the payload of an ACCOUNT topic user event.
type AccountUpdate struct {
	UserEventBase

	TokenID     string `json:"tokenId"`
	Amount      string `json:"amount"`
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
}

// UserEvent is a private account push. Exactly one of Order and Account is
// set, depending on the topic.
type UserEvent struct {
	Channel string
	Topic   string
	Order   *OrderUpdate
	Account *AccountUpdate
}

// GenericEvent wraps frames the parser does not recognize.
type GenericEvent struct {
	Raw json.RawMessage
}

// DisconnectedEvent signals that the stream gave up reconnecting and moved
// to the stopped state.
type DisconnectedEvent struct{}

func (e *TickerEvent) streamMessage()       {}
func (e *TradeEvent) streamMessage()        {}
func (e *DepthEvent) streamMessage()        {}
func (e *UserEvent) streamMessage()         {}
func (e *GenericEvent) streamMessage()      {}
func (e *DisconnectedEvent) streamMessage() {}
