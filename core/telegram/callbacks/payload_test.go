package callbacks

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/openspace/core/telegram/event"
)

func TestPayloadParsing(t *testing.T) {
	days, err := PayloadInt(event.Event{CallbackArg: "30"})
	require.NoError(t, err)
	assert.Equal(t, 30, days)

	_, err = PayloadInt64(event.Event{CallbackArg: "x"})
	assert.Error(t, err)

	amount, err := PayloadFloat64(event.Event{CallbackArg: " 12.5 "})
	require.NoError(t, err)
	assert.InDelta(t, 12.5, amount, 1e-9)

	a, b, err := PayloadTwoInt64(event.Event{CallbackArg: "7|365"}, "|")
	require.NoError(t, err)
	assert.Equal(t, int64(7), a)
	assert.Equal(t, int64(365), b)

	_, _, err = PayloadTwoInt64(event.Event{}, "|")
	assert.Error(t, err)
}
