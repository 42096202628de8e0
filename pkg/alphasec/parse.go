package alphasec

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
	"github.com/valyala/fastjson"
)

// subscribeAck is the server acknowledgment of a subscribe request. It is
// consumed by the stream and never delivered to the consumer.
type subscribeAck struct {
	ID int64
}

func (a *subscribeAck) streamMessage() {}

type subscriptionFrame struct {
	Params struct {
		Channel string          `json:"channel"`
		Result  json.RawMessage `json:"result"`
	} `json:"params"`
}

// parseMessage converts one websocket text frame into a StreamMessage.
func parseMessage(in []byte) (StreamMessage, error) {
	val, err := fastjson.ParseBytes(in)
	if err != nil {
		return nil, errors.Wrapf(err, "malformed websocket frame: %s", string(in))
	}

	// {"id":1,"result":"success"} acknowledges a subscribe request
	if val.Exists("id") && val.Exists("result") {
		return &subscribeAck{ID: val.GetInt64("id")}, nil
	}

	if string(val.GetStringBytes("method")) != "subscription" {
		return &GenericEvent{Raw: json.RawMessage(in)}, nil
	}

	var frame subscriptionFrame
	if err := json.Unmarshal(in, &frame); err != nil {
		return nil, errors.Wrapf(err, "malformed subscription frame: %s", string(in))
	}

	channelType, _, _ := strings.Cut(frame.Params.Channel, "@")
	switch channelType {
	case "ticker":
		var tickers []TickerEntry
		if err := json.Unmarshal(frame.Params.Result, &tickers); err != nil {
			return nil, err
		}

		return &TickerEvent{Channel: frame.Params.Channel, Tickers: tickers}, nil

	case "trade":
		var trades []TradeEntry
		if err := json.Unmarshal(frame.Params.Result, &trades); err != nil {
			return nil, err
		}

		return &TradeEvent{Channel: frame.Params.Channel, Trades: trades}, nil

	case "depth":
		var depth DepthUpdate
		if err := json.Unmarshal(frame.Params.Result, &depth); err != nil {
			return nil, err
		}

		return &DepthEvent{Channel: frame.Params.Channel, Depth: depth}, nil

	case "userEvent":
		return parseUserEvent(frame.Params.Channel, frame.Params.Result)
	}

	return &GenericEvent{Raw: json.RawMessage(in)}, nil
}

func parseUserEvent(channel string, result json.RawMessage) (StreamMessage, error) {
	var base UserEventBase
	if err := json.Unmarshal(result, &base); err != nil {
		return nil, err
	}

	event := &UserEvent{Channel: channel, Topic: strings.ToUpper(base.Topic)}
	switch event.Topic {
	case "ORDER":
		var order OrderUpdate
		if err := json.Unmarshal(result, &order); err != nil {
			return nil, err
		}

		event.Order = &order

	case "ACCOUNT":
		var account AccountUpdate
		if err := json.Unmarshal(result, &account); err != nil {
			return nil, err
		}

		event.Account = &account

	default:
		return nil, errors.Errorf("unknown user event topic: %s", base.Topic)
	}

	return event, nil
}
