package alphasec

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testL1Key     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testL1Address = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	testL2Key     = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	testL2Address = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
)

func TestConfigValidateDefaults(t *testing.T) {
	c := &Config{L1PrivateKey: testL1Key}
	require.NoError(t, c.Validate())

	assert.Equal(t, "https://api.alphasec.trade", c.APIURL)
	assert.Equal(t, "wss://api.alphasec.trade/ws", c.WSURL)
	assert.Equal(t, NetworkMainnet, c.Network)
	assert.Equal(t, big.NewInt(41001), c.ChainID)
	assert.Equal(t, testL1Address, c.Address)
}

func TestConfigValidateWebSocketDerivation(t *testing.T) {
	c := &Config{
		APIURL:       "http://127.0.0.1:9000",
		L1PrivateKey: testL1Key,
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, "ws://127.0.0.1:9000/ws", c.WSURL)
}

func TestConfigValidateKeepsExplicitWSURL(t *testing.T) {
	c := &Config{
		WSURL:        "wss://stream.example.com/ws",
		L1PrivateKey: testL1Key,
	}
	require.NoError(t, c.Validate())
	assert.Equal(t, "wss://stream.example.com/ws", c.WSURL)
}

func TestConfigValidateAddressMismatch(t *testing.T) {
	c := &Config{
		Address:      testL2Address,
		L1PrivateKey: testL1Key,
	}
	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match")
}

func TestConfigValidateAddressOnly(t *testing.T) {
	c := &Config{Address: testL1Address}
	require.NoError(t, c.Validate())
	assert.Equal(t, testL1Address, c.Address)
}

func TestConfigValidateRejectsMissingAddress(t *testing.T) {
	c := &Config{L2PrivateKey: testL2Key}
	require.Error(t, c.Validate())
}

func TestConfigValidateRejectsBadKey(t *testing.T) {
	c := &Config{L1PrivateKey: "0xzzzz"}
	require.Error(t, c.Validate())
}

func TestConfigValidateRejectsUnknownNetwork(t *testing.T) {
	c := &Config{Network: "moonnet", L1PrivateKey: testL1Key}
	require.Error(t, c.Validate())
}

func TestNetworkL1ChainID(t *testing.T) {
	assert.Equal(t, big.NewInt(8217), NetworkMainnet.L1ChainID())
	assert.Equal(t, big.NewInt(1001), NetworkKairos.L1ChainID())
}
