package protocol

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadPacket(t *testing.T) {
	t.Run("Reads one framed message", func(t *testing.T) {
		// Given: a frame with a 5-byte body
		var buf bytes.Buffer
		buf.Write([]byte{0x00, 0x05})
		buf.WriteString("hello")

		// When: reading it
		body, err := ReadPacket(&buf)

		// Then: exactly the advertised bytes come back
		require.NoError(t, err)
		assert.Equal(t, []byte("hello"), body)
	})

	t.Run("Clean close between frames is EOF", func(t *testing.T) {
		_, err := ReadPacket(bytes.NewReader(nil))
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("Stream closing inside the prefix is a framing error", func(t *testing.T) {
		_, err := ReadPacket(bytes.NewReader([]byte{0x00}))
		require.ErrorIs(t, err, ErrFraming)
	})

	t.Run("Stream closing inside the body is a framing error", func(t *testing.T) {
		// Given: a prefix advertising 10 bytes but only 3 present
		var buf bytes.Buffer
		buf.Write([]byte{0x00, 0x0A})
		buf.WriteString("abc")

		_, err := ReadPacket(&buf)
		require.ErrorIs(t, err, ErrFraming)
	})
}

func TestWritePacket(t *testing.T) {
	t.Run("Round-trips through ReadPacket", func(t *testing.T) {
		var buf bytes.Buffer

		require.NoError(t, WritePacket(&buf, []byte(`{"status":21}`)))

		body, err := ReadPacket(&buf)
		require.NoError(t, err)
		assert.Equal(t, []byte(`{"status":21}`), body)
	})

	t.Run("Rejects a body over 65535 bytes", func(t *testing.T) {
		var buf bytes.Buffer

		err := WritePacket(&buf, make([]byte, MaxBodySize+1))

		require.ErrorIs(t, err, ErrBodyTooLarge)
		assert.Zero(t, buf.Len())
	})
}

func TestWriteStatus(t *testing.T) {
	// When: writing a bare status frame
	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, StatusErrGameFull))

	// Then: the body is the status-only JSON
	body, err := ReadPacket(&buf)
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":36}`, string(body))
}

func TestEnemy_JSON(t *testing.T) {
	t.Run("Serializes as a pair", func(t *testing.T) {
		data, err := json.Marshal(Enemy{PlayerNum: "2", RemainingHP: 70})
		require.NoError(t, err)
		assert.JSONEq(t, `["2",70]`, string(data))
	})

	t.Run("Empty enemy is still a pair", func(t *testing.T) {
		data, err := json.Marshal(Enemy{})
		require.NoError(t, err)
		assert.JSONEq(t, `["",0]`, string(data))
	})

	t.Run("Round-trips", func(t *testing.T) {
		var decoded Enemy
		require.NoError(t, json.Unmarshal([]byte(`["1",42]`), &decoded))
		assert.Equal(t, Enemy{PlayerNum: "1", RemainingHP: 42}, decoded)
	})
}

func TestParseRequest(t *testing.T) {
	t.Run("Decodes a game-data request", func(t *testing.T) {
		body := []byte(`{"request_type":16,"player_token":"p","game_token":"g","gm_code":50,"target":[3,1]}`)

		req, err := ParseRequest(body)

		require.NoError(t, err)
		assert.Equal(t, RequestGameData, req.RequestType)
		assert.Equal(t, ActionMove, req.GMCode)
		require.NotNil(t, req.Target)
		assert.Equal(t, [2]int{3, 1}, *req.Target)
	})

	t.Run("Fails on malformed JSON", func(t *testing.T) {
		_, err := ParseRequest([]byte(`{"request_type":`))
		require.Error(t, err)
	})
}
