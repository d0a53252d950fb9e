package vendoradapter

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"sync"
	"time"
)

// BridgeAdapter talks to an out-of-process host for the vendor component
// over a newline-delimited JSON protocol on a TCP loopback socket. The host
// process owns the actual COM/binary interface; this adapter only speaks
// the wire protocol: one JSON command per line out, one JSON response line
// back.
type BridgeAdapter struct {
	mu             sync.Mutex
	addr           string
	timeout        time.Duration
	serviceKeyHash string
	conn           net.Conn
	reader         *bufio.Reader
}

// NewBridgeAdapter dials nothing yet; Connect establishes the socket. addr
// is typically "127.0.0.1:8901", matching the bridge host's listening port.
func NewBridgeAdapter(addr string, timeout time.Duration) *BridgeAdapter {
	return &BridgeAdapter{addr: addr, timeout: timeout}
}

// WithServiceKeyHash configures a bcrypt hash (see HashServiceKey) that
// Init verifies its serviceKey argument against before sending anything to
// the bridge. Optional: when unset, Init sends whatever key it is given.
func (b *BridgeAdapter) WithServiceKeyHash(hash string) *BridgeAdapter {
	b.serviceKeyHash = hash

	return b
}

// Connect opens the TCP connection and consumes the bridge's greeting line.
func (b *BridgeAdapter) Connect(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var d net.Dialer

	conn, err := d.DialContext(ctx, "tcp", b.addr)
	if err != nil {
		return fmt.Errorf("%w: dial %s: %w", ErrBridgeUnavailable, b.addr, err)
	}

	b.conn = conn
	b.reader = bufio.NewReader(conn)

	if _, err := b.recvLocked(); err != nil {
		_ = conn.Close()

		return fmt.Errorf("%w: reading bridge greeting: %w", ErrBridgeUnavailable, err)
	}

	return nil
}

func (b *BridgeAdapter) sendCmd(cmd map[string]any) (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn == nil {
		return nil, fmt.Errorf("%w: not connected", ErrBridgeUnavailable)
	}

	if b.timeout > 0 {
		_ = b.conn.SetDeadline(time.Now().Add(b.timeout))
	}

	encoded, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("vendoradapter: encoding bridge command: %w", err)
	}

	if _, err := b.conn.Write(append(encoded, '\n')); err != nil {
		return nil, fmt.Errorf("%w: writing command: %w", ErrBridgeUnavailable, err)
	}

	return b.recvLocked()
}

func (b *BridgeAdapter) recvLocked() (map[string]any, error) {
	line, err := b.reader.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBridgeUnavailable, err)
	}

	var resp map[string]any
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("vendoradapter: decoding bridge response: %w", err)
	}

	return resp, nil
}

func (b *BridgeAdapter) Init(_ context.Context, serviceKey string) (int, error) {
	if b.serviceKeyHash != "" && !CompareServiceKey(b.serviceKeyHash, serviceKey) {
		return 0, ErrServiceKeyMismatch
	}

	resp, err := b.sendCmd(map[string]any{"cmd": "init", "sid": serviceKey})
	if err != nil {
		return 0, err
	}

	return intField(resp, "initResult"), nil
}

func (b *BridgeAdapter) Open(_ context.Context, dataspec, fromTimestamp string, option int) (OpenResult, error) {
	resp, err := b.sendCmd(map[string]any{
		"cmd": "open", "dataspec": dataspec, "date_from": fromTimestamp, "option": option,
	})
	if err != nil {
		return OpenResult{}, err
	}

	return OpenResult{
		Code:          intField(resp, "code"),
		ReadCount:     intField(resp, "readcount"),
		DownloadCount: intField(resp, "downloadcount"),
		LastTimestamp: stringField(resp, "last_timestamp"),
	}, nil
}

func (b *BridgeAdapter) Read(_ context.Context, maxSize int) (ReadResult, error) {
	resp, err := b.sendCmd(map[string]any{"cmd": "read", "max_size": maxSize})
	if err != nil {
		return ReadResult{}, err
	}

	// payload_b64 is base64-encoded because JSON strings aren't binary-safe;
	// the decoded bytes are the vendor's actual CP932 fixed-width record.
	payload, err := base64.StdEncoding.DecodeString(stringField(resp, "payload_b64"))
	if err != nil {
		return ReadResult{}, fmt.Errorf("vendoradapter: decoding bridge payload: %w", err)
	}

	return ReadResult{
		Code:     intField(resp, "code"),
		Payload:  payload,
		Size:     intField(resp, "size"),
		Filename: stringField(resp, "filename"),
	}, nil
}

func (b *BridgeAdapter) Status(_ context.Context) (int, error) {
	resp, err := b.sendCmd(map[string]any{"cmd": "status"})
	if err != nil {
		return 0, err
	}

	return intField(resp, "code"), nil
}

func (b *BridgeAdapter) Close(_ context.Context) error {
	_, err := b.sendCmd(map[string]any{"cmd": "close"})

	return err
}

// Quit tells the bridge host to shut down the vendor session entirely and
// closes the local socket; distinct from Close, which only ends the
// current Open/Close bracket and keeps the bridge connection alive for
// reuse across sessions.
func (b *BridgeAdapter) Quit(_ context.Context) error {
	_, err := b.sendCmd(map[string]any{"cmd": "quit"})

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.conn != nil {
		_ = b.conn.Close()
		b.conn = nil
	}

	return err
}

func intField(m map[string]any, key string) int {
	v, ok := m[key]
	if !ok {
		return 0
	}

	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	default:
		return 0
	}
}

func stringField(m map[string]any, key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}

	s, _ := v.(string)

	return s
}
