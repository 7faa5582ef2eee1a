package domain

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
)

func TestPositionKeyDeterministic(t *testing.T) {
	acct := common.HexToAddress("0x1111111111111111111111111111111111111111")

	k1 := PositionKey("BTC-USD", 7, acct)
	k2 := PositionKey("BTC-USD", 7, acct)
	assert.Equal(t, k1, k2)
}

func TestPositionKeyUnique(t *testing.T) {
	a := common.HexToAddress("0x1111111111111111111111111111111111111111")
	b := common.HexToAddress("0x2222222222222222222222222222222222222222")

	base := PositionKey("BTC-USD", 7, a)
	assert.NotEqual(t, base, PositionKey("BTC-USD", 8, a))
	assert.NotEqual(t, base, PositionKey("ETH-USD", 7, a))
	assert.NotEqual(t, base, PositionKey("BTC-USD", 7, b))
}

func TestSideString(t *testing.T) {
	assert.Equal(t, "up", SideUp.String())
	assert.Equal(t, "down", SideDown.String())
	assert.Equal(t, "none", SideNone.String())
}
