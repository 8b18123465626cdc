package comm

import (
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	payload, err := Encode(TypeState, map[string]bool{"success": true})
	require.NoError(t, err)
	require.JSONEq(t, `{"type":"state","data":{"success":true}}`, string(payload))

	var msg WSMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	require.Equal(t, TypeState, msg.Type)
	require.JSONEq(t, `{"success":true}`, string(msg.Data))
}
