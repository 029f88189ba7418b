package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPage_NilItemsEncodeAsEmptyArray(t *testing.T) {
	page := NewPage[int](nil, 2, 10, 11)

	data, err := json.Marshal(page)
	require.NoError(t, err)
	assert.JSONEq(t, `{"items":[],"page":2,"page_size":10,"total":11}`, string(data))
}
