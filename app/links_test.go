package app

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stakingAddr = "EQCD39VS5jcptHL8vMjEXrzGaRcCVYto7HUn4bpAOg8xqB2N"

func TestTransferLink(t *testing.T) {
	link := TransferLink(stakingAddr, Amount{Units: 12_500_000_000, Decimals: 9}, "EQtoken", StakeComment(30))

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "ton", u.Scheme)
	assert.Equal(t, "transfer", u.Host)
	assert.Equal(t, "/"+stakingAddr, u.Path)
	assert.Equal(t, "12500000000", u.Query().Get("amount"))
	assert.Equal(t, "EQtoken", u.Query().Get("jetton"))
	assert.Equal(t, "stake:2592000", u.Query().Get("text"))
}

func TestTransferLinkWithoutJetton(t *testing.T) {
	u, err := url.Parse(TransferLink(stakingAddr, Amount{Units: 1}, "", DonateComment))
	require.NoError(t, err)
	assert.False(t, u.Query().Has("jetton"))
	assert.Equal(t, "donate", u.Query().Get("text"))
}

func TestUnstakeLink(t *testing.T) {
	u, err := url.Parse(UnstakeLink("EQposition"))
	require.NoError(t, err)
	assert.Equal(t, "/EQposition", u.Path)
	assert.Equal(t, "160000000", u.Query().Get("amount"))
	assert.False(t, u.Query().Has("jetton"))
	assert.Equal(t, UnstakeComment, u.Query().Get("text"))
}
