package app

import (
	"net/url"
	"strconv"
)

// TransferLink builds a ton://transfer deep link. A non-empty jetton sends
// the token instead of TON.
func TransferLink(to string, amount Amount, jetton, comment string) string {
	q := url.Values{}
	q.Set("amount", strconv.FormatUint(amount.Units, 10))
	if jetton != "" {
		q.Set("jetton", jetton)
	}
	if comment != "" {
		q.Set("text", comment)
	}
	u := url.URL{Scheme: "ton", Host: "transfer", Path: "/" + to, RawQuery: q.Encode()}
	return u.String()
}

// StakeComment tags a transfer as a stake locked for days.
func StakeComment(days int) string {
	return "stake:" + strconv.Itoa(days*24*60*60)
}

// DonateComment tags a transfer as a donation to the reward pool.
const DonateComment = "donate"

// UnstakeValue is the TON attached to an unstake request to pay for the
// contract's reply.
var UnstakeValue = Amount{Units: 160_000_000, Decimals: 9}

// UnstakeComment tags a transfer to a position as a withdrawal request.
const UnstakeComment = "unstake"

// UnstakeLink asks the position at nft to release its tokens.
func UnstakeLink(nft string) string {
	return TransferLink(nft, UnstakeValue, "", UnstakeComment)
}
