package alphasec

// OrderSide is the side of an order, 0 buys and 1 sells on the wire.
type OrderSide uint32

const (
	SideBuy  OrderSide = 0
	SideSell OrderSide = 1
)

func (s OrderSide) String() string {
	if s == SideSell {
		return "sell"
	}

	return "buy"
}

// OrderType selects limit or market execution.
type OrderType uint32

const (
	OrderTypeLimit  OrderType = 0
	OrderTypeMarket OrderType = 1
)

func (t OrderType) String() string {
	if t == OrderTypeMarket {
		return "market"
	}

	return "limit"
}

// OrderMode chooses whether the quantity is denominated in the base or the
// quote token.
type OrderMode uint32

const (
	OrderModeBase  OrderMode = 0
	OrderModeQuote OrderMode = 1
)

func (m OrderMode) String() string {
	if m == OrderModeQuote {
		return "quote"
	}

	return "base"
}

// TPSL attaches optional take profit and stop loss levels to an order.
// A stop loss limit needs its trigger to be set as well.
type TPSL struct {
	TakeProfitLimit *float64
	StopLossTrigger *float64
	StopLossLimit   *float64
}
