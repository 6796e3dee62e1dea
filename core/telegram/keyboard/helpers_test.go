package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInlineButtonsRowsMixesLinksAndData(t *testing.T) {
	markup := InlineButtonsRows(
		[]InlineBtn{{Text: "Open wallet", URL: "ton://transfer/EQ"}},
		[]InlineBtn{{Text: "7d", Unique: "stake_days", Data: "7"}, {Text: "30d", Unique: "stake_days", Data: "30"}},
	)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Equal(t, "ton://transfer/EQ", markup.InlineKeyboard[0][0].URL)
	assert.Empty(t, markup.InlineKeyboard[0][0].Data)
	require.Len(t, markup.InlineKeyboard[1], 2)
	assert.Equal(t, "stake_days", markup.InlineKeyboard[1][1].Unique)
	assert.Equal(t, "30", markup.InlineKeyboard[1][1].Data)
}

func TestInlineButtonsNPerRow(t *testing.T) {
	btns := []InlineBtn{{Text: "a", Unique: "a"}, {Text: "b", Unique: "b"}, {Text: "c", Unique: "c"}}
	markup := InlineButtonsNPerRow(btns, 2)
	require.Len(t, markup.InlineKeyboard, 2)
	assert.Len(t, markup.InlineKeyboard[0], 2)
	assert.Len(t, markup.InlineKeyboard[1], 1)
}

func TestSingleCancelMarkup(t *testing.T) {
	markup := SingleCancelMarkup("cancel_flow")
	require.Len(t, markup.InlineKeyboard, 1)
	btn := markup.InlineKeyboard[0][0]
	assert.Equal(t, "cancel_flow", btn.Unique)
	assert.Equal(t, "cancel", btn.Data)
}
