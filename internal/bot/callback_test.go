package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DreamCutter28/payment-reminder-telegram-bot/internal/period"
)

func TestParsePeriodArg(t *testing.T) {
	n, start, ok := parsePeriodArg("3:2024-11")
	require.True(t, ok)
	assert.Equal(t, 3, n)
	assert.Equal(t, period.Month{Year: 2024, Mon: time.November}, start)

	for _, bad := range []string{"", "3", "0:2024-11", "13:2024-11", "x:2024-11", "3:november", "3:2024-11:extra"} {
		_, _, ok := parsePeriodArg(bad)
		assert.False(t, ok, "arg %q must not parse", bad)
	}
}

func TestParseAndJoinIDs(t *testing.T) {
	ids, ok := parseIDs("7,8,12")
	require.True(t, ok)
	assert.Equal(t, []int64{7, 8, 12}, ids)
	assert.Equal(t, "7,8,12", joinIDs(ids))

	_, ok = parseIDs("7,,8")
	assert.False(t, ok)
	_, ok = parseIDs("abc")
	assert.False(t, ok)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "100.00 RUB", formatMoney(10000))
	assert.Equal(t, "0.07 RUB", formatMoney(7))
	assert.Equal(t, "-2.50 RUB", formatMoney(-250))
}
