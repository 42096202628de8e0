package alphasecapi

// Chain ids. Trading transactions are committed on the AlphaSec L2, while
// the EIP-712 session registration domain is bound to the Kaia L1 chain.
const (
	AlphaSecChainID    uint64 = 41001
	KaiaMainnetChainID uint64 = 8217
	KaiaKairosChainID  uint64 = 1001
)

// L2 contract addresses.
const (
	OrderContractAddr         = "0x00000000000000000000000000000000000000cc"
	SystemContractAddr        = "0x0000000000000000000000000000000000000064"
	GatewayRouterContractAddr = "0xD2b30f9548DEE14093CF903ec70866469EFff97A"
)

// Session sub-commands carried in the "type" field of a session payload.
const (
	SessionCommandCreate byte = 0x01
	SessionCommandUpdate byte = 0x02
	SessionCommandDelete byte = 0x03
)

// DEX command bytes. Every settlement payload is one command byte followed
// by a compact JSON document.
const (
	DexCommandSession       byte = 0x01
	DexCommandTransfer      byte = 0x02
	DexCommandTokenTransfer byte = 0x11
	DexCommandOrder         byte = 0x21
	DexCommandCancel        byte = 0x22
	DexCommandCancelAll     byte = 0x23
	DexCommandModify        byte = 0x24
	DexCommandStopOrder     byte = 0x25
)

// NativeTokenID is the token id of the chain native token (KAIA).
const NativeTokenID = "1"

// Gas settings for L2 transactions. The L2 charges no gas, the limit only
// has to be large enough for the sequencer to accept the transaction.
const (
	defaultGasLimit             uint64 = 1_000_000
	defaultMaxFeePerGas         uint64 = 0
	defaultMaxPriorityFeePerGas uint64 = 0
)

// EIP-712 domain of the session registration message.
const (
	eip712DomainName       = "DEXSignTransaction"
	eip712DomainVersion    = "1"
	eip712PrimaryType      = "RegisterSessionWallet"
	eip712VerifyingContact = "0x0000000000000000000000000000000000000000"
)

// l2SystemABI is the system contract fragment used for native withdrawals.
const l2SystemABI = `[
	{
		"inputs": [{"internalType": "address", "name": "to", "type": "address"}],
		"name": "withdrawEth",
		"outputs": [],
		"stateMutability": "payable",
		"type": "function"
	}
]`

// l2ERC20RouterABI is the gateway router fragment used for token withdrawals.
const l2ERC20RouterABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "token", "type": "address"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "bytes", "name": "data", "type": "bytes"}
		],
		"name": "outboundTransfer",
		"outputs": [{"internalType": "bytes", "name": "", "type": "bytes"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`
