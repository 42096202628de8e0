package alphasecapi

import (
	"crypto/ecdsa"
	"encoding/base64"
	"encoding/hex"
	"math/big"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Signer builds and signs the settlement layer payloads of the exchange:
// EIP-712 session registrations, DEX command payloads and the EIP-1559
// transaction envelopes that carry them.
//
// The signing itself is deterministic (RFC 6979), so identical inputs
// always produce identical signatures.
type Signer struct {
	// address is the L1 owner address all payloads act on behalf of.
	address common.Address

	// domainChainID binds the EIP-712 session domain, it is the Kaia L1
	// chain id. txChainID is the AlphaSec L2 chain id used for the
	// transaction envelopes.
	domainChainID *big.Int
	txChainID     *big.Int

	l1Key *ecdsa.PrivateKey
	l2Key *ecdsa.PrivateKey

	sessionEnabled bool

	nonceCounter uint64
}

func NewSigner(address common.Address, domainChainID, txChainID *big.Int) *Signer {
	return &Signer{
		address:       address,
		domainChainID: domainChainID,
		txChainID:     txChainID,
	}
}

// SetL1Key attaches the owner key, required for session registration,
// withdrawals and direct (session-less) trading.
func (s *Signer) SetL1Key(key *ecdsa.PrivateKey) *Signer {
	s.l1Key = key
	return s
}

// SetL2Key attaches a session wallet key used for trading when session mode
// is enabled.
func (s *Signer) SetL2Key(key *ecdsa.PrivateKey) *Signer {
	s.l2Key = key
	return s
}

func (s *Signer) EnableSession(enabled bool) *Signer {
	s.sessionEnabled = enabled
	return s
}

func (s *Signer) L1Address() common.Address {
	return s.address
}

func (s *Signer) SessionEnabled() bool {
	return s.sessionEnabled
}

// TradingKey returns the key that signs trading transactions: the session
// wallet key when session mode is enabled, the owner key otherwise.
func (s *Signer) TradingKey() (*ecdsa.PrivateKey, error) {
	if s.sessionEnabled {
		if s.l2Key == nil {
			return nil, errors.Wrap(ErrKeyMissing, "session mode requires an L2 session key")
		}

		return s.l2Key, nil
	}

	if s.l1Key == nil {
		return nil, errors.Wrap(ErrKeyMissing, "direct mode requires the L1 owner key")
	}

	return s.l1Key, nil
}

// Nonce generates a transaction nonce from the current wall clock in
// milliseconds plus a process-local counter, so bursts in the same
// millisecond stay unique.
func (s *Signer) Nonce() uint64 {
	now := uint64(time.Now().UnixMilli())
	return now + atomic.AddUint64(&s.nonceCounter, 1) - 1
}

// sessionTypedData builds the RegisterSessionWallet EIP-712 message.
func (s *Signer) sessionTypedData(sessionAddr common.Address, nonce, expiry uint64) apitypes.TypedData {
	return apitypes.TypedData{
		Types: apitypes.Types{
			"EIP712Domain": []apitypes.Type{
				{Name: "name", Type: "string"},
				{Name: "version", Type: "string"},
				{Name: "chainId", Type: "uint256"},
				{Name: "verifyingContract", Type: "address"},
			},
			"RegisterSessionWallet": []apitypes.Type{
				{Name: "sessionWallet", Type: "address"},
				{Name: "expiry", Type: "uint64"},
				{Name: "nonce", Type: "uint64"},
			},
		},
		PrimaryType: eip712PrimaryType,
		Domain: apitypes.TypedDataDomain{
			Name:              eip712DomainName,
			Version:           eip712DomainVersion,
			ChainId:           (*math.HexOrDecimal256)(s.domainChainID),
			VerifyingContract: eip712VerifyingContact,
		},
		Message: apitypes.TypedDataMessage{
			"sessionWallet": sessionAddr.Hex(),
			"expiry":        strconv.FormatUint(expiry, 10),
			"nonce":         strconv.FormatUint(nonce, 10),
		},
	}
}

// SignSessionRegistration signs the RegisterSessionWallet message with the
// L1 owner key and returns the 65 byte r||s||v signature.
func (s *Signer) SignSessionRegistration(sessionAddr common.Address, nonce, expiry uint64) ([]byte, error) {
	if s.l1Key == nil {
		return nil, errors.Wrap(ErrKeyMissing, "session registration requires the L1 owner key")
	}

	typedData := s.sessionTypedData(sessionAddr, nonce, expiry)
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash session registration")
	}

	sig, err := crypto.Sign(digest, s.l1Key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign session registration")
	}

	// recovery id to Ethereum convention
	sig[64] += 27
	return sig, nil
}

// SessionPayload is a DEX session command ready to be wrapped into a
// transaction envelope signed by the session wallet.
type SessionPayload struct {
	Data           []byte
	Signature      []byte
	SessionAddress common.Address
}

// SessionData builds a session create/update/delete payload. The payload
// embeds an EIP-712 signature of the owner key over the session wallet
// address, the expiry and the nonce.
func (s *Signer) SessionData(
	cmd byte, sessionKey *ecdsa.PrivateKey, timestampMs, expiresAt uint64, metadata []byte,
) (*SessionPayload, error) {
	if sessionKey == nil {
		return nil, errors.Wrap(ErrKeyMissing, "session operations require a session wallet key")
	}

	sessionAddr := crypto.PubkeyToAddress(sessionKey.PublicKey)
	sig, err := s.SignSessionRegistration(sessionAddr, timestampMs, expiresAt)
	if err != nil {
		return nil, err
	}

	model := sessionModel{
		Type:        cmd,
		PublicKey:   sessionAddr.Hex(),
		ExpiresAt:   expiresAt,
		Nonce:       timestampMs,
		L1Owner:     s.address.Hex(),
		L1Signature: base64.StdEncoding.EncodeToString(sig),
	}
	if len(metadata) > 0 {
		model.Metadata = base64.StdEncoding.EncodeToString(metadata)
	}

	data, err := encodeCommand(DexCommandSession, model)
	if err != nil {
		return nil, err
	}

	return &SessionPayload{
		Data:           data,
		Signature:      sig,
		SessionAddress: sessionAddr,
	}, nil
}

// ValueTransferData builds a native token transfer payload.
func (s *Signer) ValueTransferData(to string, value float64) ([]byte, error) {
	return encodeCommand(DexCommandTransfer, valueTransferModel{
		L1Owner: s.address.Hex(),
		To:      to,
		Value:   formatAmount(value),
	})
}

// TokenTransferData builds a token transfer payload. token is the internal
// token id.
func (s *Signer) TokenTransferData(to string, value float64, token string) ([]byte, error) {
	return encodeCommand(DexCommandTokenTransfer, tokenTransferModel{
		L1Owner: s.address.Hex(),
		To:      to,
		Value:   formatAmount(value),
		Token:   token,
	})
}

// OrderData builds an order payload. Price and quantity are normalized to
// the exchange precision ladder before encoding. tpLimit, slTrigger and
// slLimit are optional take profit / stop loss attachments.
func (s *Signer) OrderData(
	baseToken, quoteToken string,
	side uint32,
	price, quantity float64,
	orderType, orderMode uint32,
	tpLimit, slTrigger, slLimit *float64,
) ([]byte, error) {
	normPrice, normQty, err := NormalizePriceQuantity(price, quantity)
	if err != nil {
		return nil, err
	}

	var tpsl *tpslModel
	if tpLimit != nil || slTrigger != nil {
		tpsl = &tpslModel{}
		if tpLimit != nil {
			tpsl.TpLimit = formatAmount(*tpLimit)
		}
		if slTrigger != nil {
			tpsl.SlTrigger = formatAmount(*slTrigger)
		}
		if slLimit != nil {
			tpsl.SlLimit = formatAmount(*slLimit)
		}
	}

	return encodeCommand(DexCommandOrder, orderModel{
		L1Owner:    s.address.Hex(),
		BaseToken:  baseToken,
		QuoteToken: quoteToken,
		Side:       side,
		Price:      normPrice,
		Quantity:   normQty,
		OrderType:  orderType,
		OrderMode:  orderMode,
		Tpsl:       tpsl,
	})
}

// CancelData builds a cancel payload for a single order id.
func (s *Signer) CancelData(orderID string) ([]byte, error) {
	return encodeCommand(DexCommandCancel, cancelModel{
		L1Owner: s.address.Hex(),
		OrderID: orderID,
	})
}

// CancelAllData builds a cancel payload covering every open order of the owner.
func (s *Signer) CancelAllData() ([]byte, error) {
	return encodeCommand(DexCommandCancelAll, cancelAllModel{
		L1Owner: s.address.Hex(),
	})
}

// ModifyData builds a modify payload replacing price and quantity of a
// resting order.
func (s *Signer) ModifyData(orderID string, newPrice, newQty float64, orderMode uint32) ([]byte, error) {
	normPrice, normQty, err := NormalizePriceQuantity(newPrice, newQty)
	if err != nil {
		return nil, err
	}

	return encodeCommand(DexCommandModify, modifyModel{
		L1Owner:   s.address.Hex(),
		OrderID:   orderID,
		NewPrice:  normPrice,
		NewQty:    normQty,
		OrderMode: orderMode,
	})
}

// StopOrderData builds a stop order payload that rests until stopPrice
// triggers.
func (s *Signer) StopOrderData(
	baseToken, quoteToken string,
	stopPrice, price, quantity float64,
	side, orderType, orderMode uint32,
) ([]byte, error) {
	normPrice, normQty, err := NormalizePriceQuantity(price, quantity)
	if err != nil {
		return nil, err
	}

	normStopPrice, _, err := NormalizePriceQuantity(stopPrice, quantity)
	if err != nil {
		return nil, err
	}

	return encodeCommand(DexCommandStopOrder, stopOrderModel{
		L1Owner:    s.address.Hex(),
		BaseToken:  baseToken,
		QuoteToken: quoteToken,
		StopPrice:  normStopPrice,
		Price:      normPrice,
		Quantity:   normQty,
		Side:       side,
		OrderType:  orderType,
		OrderMode:  orderMode,
	})
}

// SignTransaction wraps a command payload into an EIP-1559 envelope to the
// order contract and signs it. nonce 0 means generate one from the clock,
// key nil means use the trading key. The returned string is the 0x-prefixed
// raw transaction, ready for submission.
func (s *Signer) SignTransaction(nonce uint64, data []byte, key *ecdsa.PrivateKey) (string, error) {
	if key == nil {
		var err error
		key, err = s.TradingKey()
		if err != nil {
			return "", err
		}
	}

	if nonce == 0 {
		nonce = s.Nonce()
	}

	to := common.HexToAddress(OrderContractAddr)
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   s.txChainID,
		Nonce:     nonce,
		GasTipCap: new(big.Int).SetUint64(defaultMaxPriorityFeePerGas),
		GasFeeCap: new(big.Int).SetUint64(defaultMaxFeePerGas),
		Gas:       defaultGasLimit,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      data,
	})

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewLondonSigner(s.txChainID), key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign transaction")
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return "", errors.Wrap(err, "failed to encode transaction")
	}

	return "0x" + hex.EncodeToString(raw), nil
}

// NativeWithdrawTx builds and signs a withdrawEth call on the L2 system
// contract, moving native tokens back to the owner address on L1.
func (s *Signer) NativeWithdrawTx(value float64) (string, error) {
	if s.l1Key == nil {
		return "", errors.Wrap(ErrKeyMissing, "withdrawals require the L1 owner key")
	}

	systemABI, err := abi.JSON(strings.NewReader(l2SystemABI))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse system contract abi")
	}

	input, err := systemABI.Pack("withdrawEth", s.address)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode withdrawEth call")
	}

	to := common.HexToAddress(SystemContractAddr)
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   s.txChainID,
		Nonce:     uint64(time.Now().UnixMilli()),
		GasTipCap: new(big.Int).SetUint64(defaultMaxPriorityFeePerGas),
		GasFeeCap: new(big.Int).SetUint64(defaultMaxFeePerGas),
		Gas:       defaultGasLimit,
		To:        &to,
		Value:     amountToWei(value),
		Data:      input,
	})

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewLondonSigner(s.txChainID), s.l1Key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign withdrawal")
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return "", errors.Wrap(err, "failed to encode withdrawal")
	}

	return "0x" + hex.EncodeToString(raw), nil
}

// TokenWithdrawTx builds and signs an outboundTransfer call on the L2
// gateway router, moving tokens back to the owner address on L1.
// tokenL1Address is the L1 contract address of the token.
func (s *Signer) TokenWithdrawTx(tokenL1Address string, value float64) (string, error) {
	if s.l1Key == nil {
		return "", errors.Wrap(ErrKeyMissing, "withdrawals require the L1 owner key")
	}

	if !common.IsHexAddress(tokenL1Address) {
		return "", errors.Errorf("invalid token address: %s", tokenL1Address)
	}

	routerABI, err := abi.JSON(strings.NewReader(l2ERC20RouterABI))
	if err != nil {
		return "", errors.Wrap(err, "failed to parse gateway router abi")
	}

	input, err := routerABI.Pack("outboundTransfer",
		common.HexToAddress(tokenL1Address),
		s.address,
		amountToWei(value),
		[]byte("0x"),
	)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode outboundTransfer call")
	}

	to := common.HexToAddress(GatewayRouterContractAddr)
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   s.txChainID,
		Nonce:     uint64(time.Now().UnixMilli()),
		GasTipCap: new(big.Int).SetUint64(defaultMaxPriorityFeePerGas),
		GasFeeCap: new(big.Int).SetUint64(defaultMaxFeePerGas),
		Gas:       defaultGasLimit,
		To:        &to,
		Value:     big.NewInt(0),
		Data:      input,
	})

	signedTx, err := ethtypes.SignTx(tx, ethtypes.NewLondonSigner(s.txChainID), s.l1Key)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign withdrawal")
	}

	raw, err := signedTx.MarshalBinary()
	if err != nil {
		return "", errors.Wrap(err, "failed to encode withdrawal")
	}

	return "0x" + hex.EncodeToString(raw), nil
}

// NormalizePriceQuantity truncates price and quantity to the precision
// ladder of the matching engine. Larger magnitudes keep fewer decimals.
func NormalizePriceQuantity(price, quantity float64) (string, string, error) {
	if price < 0 {
		return "", "", errors.New("price cannot be negative")
	}
	if quantity < 0 {
		return "", "", errors.New("quantity cannot be negative")
	}

	var pricePrecision int32
	switch {
	case price >= 10000:
		pricePrecision = 0
	case price >= 1000:
		pricePrecision = 1
	case price >= 100:
		pricePrecision = 2
	case price >= 10:
		pricePrecision = 3
	case price >= 1:
		pricePrecision = 4
	default:
		pricePrecision = 8
	}

	var qtyPrecision int32
	switch {
	case quantity >= 10000:
		qtyPrecision = 5
	case quantity >= 1000:
		qtyPrecision = 4
	case quantity >= 100:
		qtyPrecision = 3
	case quantity >= 10:
		qtyPrecision = 2
	case quantity >= 1:
		qtyPrecision = 1
	default:
		qtyPrecision = 5
	}

	normPrice := decimal.NewFromFloat(price).Truncate(pricePrecision).String()
	normQty := decimal.NewFromFloat(quantity).Truncate(qtyPrecision).String()
	return normPrice, normQty, nil
}

// formatAmount renders a float without exponent notation or trailing zeros.
func formatAmount(v float64) string {
	return decimal.NewFromFloat(v).String()
}

// amountToWei converts a token amount into the 18 decimal on-chain unit.
func amountToWei(v float64) *big.Int {
	return decimal.NewFromFloat(v).Shift(18).BigInt()
}
