package protocol

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteConfig_APIKeyNullAndEmptyDiffer(t *testing.T) {
	var unset, empty RemoteConfig
	require.NoError(t, json.Unmarshal([]byte(`{"max_temp_trigger":80,"api_key":null}`), &unset))
	require.NoError(t, json.Unmarshal([]byte(`{"max_temp_trigger":80,"api_key":""}`), &empty))

	assert.Nil(t, unset.APIKey)
	require.NotNil(t, empty.APIKey)
	assert.Equal(t, "", *empty.APIKey)

	out, err := json.Marshal(unset)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"api_key":null`)

	out, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Contains(t, string(out), `"api_key":""`)
}

func TestRemoteConfig_CloneSharesNoKey(t *testing.T) {
	key := "secret"
	orig := RemoteConfig{MaxTempTrigger: 80, APIKey: &key}

	clone := orig.Clone()
	*clone.APIKey = "changed"

	assert.Equal(t, "secret", *orig.APIKey)
	assert.Equal(t, 80.0, clone.MaxTempTrigger)
}

func TestEncodeStreamEvent(t *testing.T) {
	data, err := EncodeStreamEvent(StreamEventAlert, AlertRecord{ID: "a1", TurbineToken: "T1"})
	require.NoError(t, err)

	var ev struct {
		Type    string      `json:"type"`
		Payload AlertRecord `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, "alert", ev.Type)
	assert.Equal(t, "a1", ev.Payload.ID)
	assert.Equal(t, "T1", ev.Payload.TurbineToken)
}
