package styles

import (
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowColors(t *testing.T) {
	even, odd := RowColors()

	base, err := colorful.Hex(string(Background))
	require.NoError(t, err)
	e, err := colorful.Hex(string(even))
	require.NoError(t, err)
	o, err := colorful.Hex(string(odd))
	require.NoError(t, err)

	// hex rounding allows one step of error per channel
	const step = 1.0 / 255
	assert.InDelta(t, base.R*0.95, e.R, step)
	assert.InDelta(t, base.G*0.95, e.G, step)
	assert.InDelta(t, base.B*0.95, e.B, step)
	assert.InDelta(t, e.R*0.9, o.R, step)
	assert.InDelta(t, e.G*0.9, o.G, step)
	assert.InDelta(t, e.B*0.9, o.B, step)
}

func TestRowColor(t *testing.T) {
	even, odd := RowColors()
	assert.Equal(t, even, RowColor(0))
	assert.Equal(t, odd, RowColor(1))
	assert.Equal(t, even, RowColor(4))
}

func TestStatusStyle(t *testing.T) {
	assert.Equal(t, StatusCompleted, StatusStyle("complete"))
	assert.Equal(t, StatusDownloading, StatusStyle("processing"))
	assert.Equal(t, StatusError, StatusStyle("partial"))
	assert.Equal(t, MutedStyle, StatusStyle(""))
}
