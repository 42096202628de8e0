package alphasec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscribeAck(t *testing.T) {
	msg, err := parseMessage([]byte(`{"id":7,"result":"success"}`))
	require.NoError(t, err)

	ack, ok := msg.(*subscribeAck)
	require.True(t, ok)
	assert.Equal(t, int64(7), ack.ID)
}

func TestParseTickerEvent(t *testing.T) {
	frame := `{"method":"subscription","params":{"channel":"ticker@1_2","result":[
		{"marketId":"1_2","price":"0.1521","open24h":"0.1502","high24h":"0.1554","low24h":"0.1498","volume24h":"120045.2"}
	]}}`

	msg, err := parseMessage([]byte(frame))
	require.NoError(t, err)

	event, ok := msg.(*TickerEvent)
	require.True(t, ok)
	assert.Equal(t, "ticker@1_2", event.Channel)
	require.Len(t, event.Tickers, 1)
	assert.Equal(t, "1_2", event.Tickers[0].MarketID)
	assert.Equal(t, "0.1521", event.Tickers[0].Price)
}

func TestParseTradeEvent(t *testing.T) {
	frame := `{"method":"subscription","params":{"channel":"trade@1_2","result":[
		{"tradeId":"42","marketId":"1_2","price":"0.152","quantity":"1000","createdAt":1724900000000,"isBuyerMaker":true}
	]}}`

	msg, err := parseMessage([]byte(frame))
	require.NoError(t, err)

	event, ok := msg.(*TradeEvent)
	require.True(t, ok)
	require.Len(t, event.Trades, 1)
	assert.Equal(t, "42", event.Trades[0].TradeID)
	assert.True(t, event.Trades[0].IsBuyerMaker)
}

func TestParseDepthEvent(t *testing.T) {
	frame := `{"method":"subscription","params":{"channel":"depth@1_2","result":
		{"marketId":"1_2","bids":[["0.152","5000"]],"asks":[["0.153","1200"],["0.154","800"]],"firstId":10,"finalId":12,"time":1724900000000}
	}}`

	msg, err := parseMessage([]byte(frame))
	require.NoError(t, err)

	event, ok := msg.(*DepthEvent)
	require.True(t, ok)
	assert.Equal(t, [][]string{{"0.152", "5000"}}, event.Depth.Bids)
	require.Len(t, event.Depth.Asks, 2)
	assert.Equal(t, int64(12), event.Depth.FinalID)
}

func TestParseUserEventOrder(t *testing.T) {
	frame := `{"method":"subscription","params":{"channel":"userEvent@0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266","result":
		{"topic":"order","eventType":"NEW","eventTime":1724900000000,"orderId":"0xabc","marketId":"1_2","side":"BUY","status":"NEW","origPrice":"0.152","origQty":"1000"}
	}}`

	msg, err := parseMessage([]byte(frame))
	require.NoError(t, err)

	event, ok := msg.(*UserEvent)
	require.True(t, ok)
	assert.Equal(t, "ORDER", event.Topic)
	require.NotNil(t, event.Order)
	assert.Nil(t, event.Account)
	assert.Equal(t, "0xabc", event.Order.OrderID)
	assert.Equal(t, "NEW", event.Order.Status)
}

func TestParseUserEventAccount(t *testing.T) {
	frame := `{"method":"subscription","params":{"channel":"userEvent@0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266","result":
		{"topic":"ACCOUNT","eventType":"DEPOSIT","tokenId":"1","amount":"2500"}
	}}`

	msg, err := parseMessage([]byte(frame))
	require.NoError(t, err)

	event, ok := msg.(*UserEvent)
	require.True(t, ok)
	assert.Equal(t, "ACCOUNT", event.Topic)
	require.NotNil(t, event.Account)
	assert.Equal(t, "2500", event.Account.Amount)
}

func TestParseUserEventUnknownTopic(t *testing.T) {
	frame := `{"method":"subscription","params":{"channel":"userEvent@0xabc","result":{"topic":"MARGIN"}}}`

	_, err := parseMessage([]byte(frame))
	require.Error(t, err)
}

func TestParseUnknownChannelFallsBackToGeneric(t *testing.T) {
	frame := `{"method":"subscription","params":{"channel":"candle@1_2","result":{}}}`

	msg, err := parseMessage([]byte(frame))
	require.NoError(t, err)

	_, ok := msg.(*GenericEvent)
	assert.True(t, ok)
}

func TestParseMalformedFrame(t *testing.T) {
	_, err := parseMessage([]byte(`{"method":`))
	require.Error(t, err)
}
