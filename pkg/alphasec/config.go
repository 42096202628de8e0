package alphasec

import (
	"crypto/ecdsa"
	"math/big"
	"net/url"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"

	"github.com/alphasec-trade/alphasec-go/pkg/alphasecapi"
)

// Network selects the Kaia chain the exchange settles on.
type Network string

const (
	NetworkMainnet Network = "mainnet"
	NetworkKairos  Network = "kairos"
)

func ParseNetwork(s string) (Network, error) {
	switch Network(strings.ToLower(s)) {
	case NetworkMainnet:
		return NetworkMainnet, nil
	case NetworkKairos:
		return NetworkKairos, nil
	}

	return "", errors.Errorf("unknown network: %s", s)
}

// L1ChainID is the Kaia chain id of the network, used as the EIP-712
// session domain chain id.
func (n Network) L1ChainID() *big.Int {
	if n == NetworkMainnet {
		return new(big.Int).SetUint64(alphasecapi.KaiaMainnetChainID)
	}

	return new(big.Int).SetUint64(alphasecapi.KaiaKairosChainID)
}

// Config carries the endpoints and keys of an Agent.
type Config struct {
	// APIURL is the REST endpoint. WSURL is derived from it when empty.
	APIURL string
	WSURL  string

	Network Network

	// Address is the L1 owner address. It is derived from L1PrivateKey
	// when that key is present.
	Address string

	// L1PrivateKey and L2PrivateKey are hex encoded, with or without the
	// 0x prefix. Both are optional, but most operations need at least one.
	L1PrivateKey string
	L2PrivateKey string

	// SessionEnabled makes trading transactions sign with the L2 session
	// key instead of the owner key.
	SessionEnabled bool

	// ChainID overrides the L2 chain id of the transaction envelopes.
	ChainID *big.Int
}

// Validate normalizes the config in place: it resolves the network, derives
// the websocket URL and the owner address, and checks key material.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		c.APIURL = alphasecapi.ProductionAPIURL
	}

	if c.Network == "" {
		c.Network = NetworkMainnet
	}
	if _, err := ParseNetwork(string(c.Network)); err != nil {
		return err
	}

	if c.WSURL == "" {
		wsURL, err := deriveWebSocketURL(c.APIURL)
		if err != nil {
			return err
		}
		c.WSURL = wsURL
	}

	if c.ChainID == nil {
		c.ChainID = new(big.Int).SetUint64(alphasecapi.AlphaSecChainID)
	}

	if c.L1PrivateKey != "" {
		key, err := parsePrivateKey(c.L1PrivateKey)
		if err != nil {
			return errors.Wrap(err, "invalid L1 private key")
		}

		derived := crypto.PubkeyToAddress(key.PublicKey)
		if c.Address != "" && !strings.EqualFold(c.Address, derived.Hex()) {
			return errors.Errorf("address %s does not match the L1 key address %s", c.Address, derived.Hex())
		}
		c.Address = derived.Hex()
	}

	if c.L2PrivateKey != "" {
		if _, err := parsePrivateKey(c.L2PrivateKey); err != nil {
			return errors.Wrap(err, "invalid L2 private key")
		}
	}

	if c.Address == "" {
		return errors.New("an owner address is required, set Address or L1PrivateKey")
	}
	if !common.IsHexAddress(c.Address) {
		return errors.Errorf("invalid owner address: %s", c.Address)
	}

	return nil
}

func parsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	return crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
}

// deriveWebSocketURL turns the REST endpoint into the websocket endpoint:
// the scheme flips to ws(s) and the path becomes /ws.
func deriveWebSocketURL(apiURL string) (string, error) {
	u, err := url.Parse(apiURL)
	if err != nil {
		return "", errors.Wrapf(err, "invalid api url: %s", apiURL)
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", errors.Errorf("unsupported api url scheme: %s", u.Scheme)
	}

	u.Path = "/ws"
	return u.String(), nil
}
