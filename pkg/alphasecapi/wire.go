package alphasecapi

import (
	"encoding/json"
)

// Wire payload models. Each model marshals into a compact JSON document that
// is prefixed with its DEX command byte and carried as the data field of an
// L2 transaction. Field names and order are fixed by the settlement layer.

type sessionModel struct {
	Type        byte   `json:"type"`
	PublicKey   string `json:"publickey"`
	ExpiresAt   uint64 `json:"expiresAt"`
	Nonce       uint64 `json:"nonce"`
	L1Owner     string `json:"l1owner"`
	L1Signature string `json:"l1signature"`
	Metadata    string `json:"metadata,omitempty"`
}

type valueTransferModel struct {
	L1Owner string `json:"l1owner"`
	To      string `json:"to"`
	Value   string `json:"value"`
}

type tokenTransferModel struct {
	L1Owner string `json:"l1owner"`
	To      string `json:"to"`
	Value   string `json:"value"`
	Token   string `json:"token"`
}

type tpslModel struct {
	TpLimit   string `json:"tpLimit,omitempty"`
	SlTrigger string `json:"slTrigger,omitempty"`
	SlLimit   string `json:"slLimit,omitempty"`
}

type orderModel struct {
	L1Owner    string     `json:"l1owner"`
	BaseToken  string     `json:"baseToken"`
	QuoteToken string     `json:"quoteToken"`
	Side       uint32     `json:"side"`
	Price      string     `json:"price"`
	Quantity   string     `json:"quantity"`
	OrderType  uint32     `json:"orderType"`
	OrderMode  uint32     `json:"orderMode"`
	Tpsl       *tpslModel `json:"tpsl,omitempty"`
}

type cancelModel struct {
	L1Owner string `json:"l1owner"`
	OrderID string `json:"orderId"`
}

type cancelAllModel struct {
	L1Owner string `json:"l1owner"`
}

type modifyModel struct {
	L1Owner   string `json:"l1owner"`
	OrderID   string `json:"orderId"`
	NewPrice  string `json:"newPrice"`
	NewQty    string `json:"newQty"`
	OrderMode uint32 `json:"orderMode"`
}

type stopOrderModel struct {
	L1Owner    string `json:"l1owner"`
	BaseToken  string `json:"baseToken"`
	QuoteToken string `json:"quoteToken"`
	StopPrice  string `json:"stopPrice"`
	Price      string `json:"price"`
	Quantity   string `json:"quantity"`
	Side       uint32 `json:"side"`
	OrderType  uint32 `json:"orderType"`
	OrderMode  uint32 `json:"orderMode"`
}

// encodeCommand marshals the model and prefixes it with the command byte.
func encodeCommand(cmd byte, model interface{}) ([]byte, error) {
	body, err := json.Marshal(model)
	if err != nil {
		return nil, err
	}

	data := make([]byte, 0, len(body)+1)
	data = append(data, cmd)
	data = append(data, body...)
	return data, nil
}
