package vendoradapter

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBridgeServer accepts one connection, sends a greeting line, then
// answers every subsequent command line with resp.
func fakeBridgeServer(t *testing.T, resp map[string]any) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		_, _ = conn.Write([]byte(`{"greeting":"ok"}` + "\n"))

		reader := bufio.NewReader(conn)
		for {
			if _, err := reader.ReadBytes('\n'); err != nil {
				return
			}

			encoded, _ := json.Marshal(resp)
			if _, err := conn.Write(append(encoded, '\n')); err != nil {
				return
			}
		}
	}()

	return ln.Addr().String()
}

func TestBridgeAdapter_ReadDecodesBase64Payload(t *testing.T) {
	raw := []byte("RA1                                                        ")
	encoded := base64.StdEncoding.EncodeToString(raw)

	addr := fakeBridgeServer(t, map[string]any{
		"code": float64(0), "size": float64(len(raw)), "filename": "JRADATA",
		"payload_b64": encoded,
	})

	bridge := NewBridgeAdapter(addr, 2*time.Second)
	require.NoError(t, bridge.Connect(context.Background()))

	result, err := bridge.Read(context.Background(), 4096)
	require.NoError(t, err)
	assert.Equal(t, raw, result.Payload)
	assert.Equal(t, "JRADATA", result.Filename)
}

func TestBridgeAdapter_ReadRejectsInvalidBase64(t *testing.T) {
	addr := fakeBridgeServer(t, map[string]any{
		"code": float64(0), "payload_b64": "not-valid-base64!!!",
	})

	bridge := NewBridgeAdapter(addr, 2*time.Second)
	require.NoError(t, bridge.Connect(context.Background()))

	_, err := bridge.Read(context.Background(), 4096)
	assert.Error(t, err)
}

func TestBridgeAdapter_InitRejectsServiceKeyMismatch(t *testing.T) {
	hash, err := HashServiceKey("correct-horse-battery-staple")
	require.NoError(t, err)

	bridge := NewBridgeAdapter("127.0.0.1:0", time.Second).WithServiceKeyHash(hash)

	_, err = bridge.Init(context.Background(), "wrong-key")
	assert.ErrorIs(t, err, ErrServiceKeyMismatch)
}

func TestBridgeAdapter_InitAcceptsMatchingServiceKey(t *testing.T) {
	key := "correct-horse-battery-staple"

	hash, err := HashServiceKey(key)
	require.NoError(t, err)

	addr := fakeBridgeServer(t, map[string]any{"initResult": float64(0)})

	bridge := NewBridgeAdapter(addr, 2*time.Second).WithServiceKeyHash(hash)
	require.NoError(t, bridge.Connect(context.Background()))

	code, err := bridge.Init(context.Background(), key)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
}
