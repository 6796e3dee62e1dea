package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCallback(t *testing.T) {
	cases := []struct {
		name         string
		unique, data string
		id, arg      string
	}{
		{name: "unique", unique: "stake", data: "30", id: "stake", arg: "30"},
		{name: "raw unique", data: "\fwallet|tonkeeper", id: "wallet", arg: "tonkeeper"},
		{name: "colon", data: "connect:tonkeeper", id: "connect", arg: "tonkeeper"},
		{name: "colon in arg", data: "link:a:b", id: "link", arg: "a:b"},
		{name: "no arg", data: "menu", id: "menu", arg: ""},
		{name: "empty", id: "", arg: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			id, arg := ParseCallback(tc.unique, tc.data)
			assert.Equal(t, tc.id, id)
			assert.Equal(t, tc.arg, arg)
		})
	}
}

func TestParseCommand(t *testing.T) {
	cmd, args, ok := ParseCommand("/Stake@OpenSpaceBot 30 100")
	assert.True(t, ok)
	assert.Equal(t, "/stake", cmd)
	assert.Equal(t, []string{"30", "100"}, args)

	cmd, args, ok = ParseCommand("  /start  ")
	assert.True(t, ok)
	assert.Equal(t, "/start", cmd)
	assert.Empty(t, args)

	for _, text := range []string{"", "/", "hello", "42", "/@bot"} {
		_, _, ok := ParseCommand(text)
		assert.False(t, ok, text)
	}
}

func TestMessageRef(t *testing.T) {
	ref := MessageRef{ChatID: 10, MessageID: 7}
	id, chat := ref.MessageSig()
	assert.Equal(t, "7", id)
	assert.Equal(t, int64(10), chat)
	assert.False(t, ref.IsZero())
	assert.True(t, MessageRef{}.IsZero())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "message", KindMessage.String())
	assert.Equal(t, "callback", KindCallback.String())
	assert.Equal(t, "other", Kind(99).String())
}
