package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseExportItem(t *testing.T) {
	item, err := parseExportItem("0:7:cái")
	require.NoError(t, err)
	assert.Equal(t, 0, item.LineIndex)
	assert.Equal(t, "7", item.Quantity.String())
	assert.Equal(t, "cái", item.Unit)

	item, err = parseExportItem("2:1,5")
	require.NoError(t, err)
	assert.Equal(t, 2, item.LineIndex)
	assert.Equal(t, "1.5", item.Quantity.String())
	assert.Empty(t, item.Unit)

	for _, bad := range []string{"7", "x:1", "0:0", "0:abc"} {
		_, err := parseExportItem(bad)
		assert.Error(t, err, bad)
	}
}
