package websocket

import (
	"errors"
	"sync"
	"time"
)

// mockMessage represents a message in the mock connection
type mockMessage struct {
	Type int
	Data []byte
	Err  error
}

// mockConnection is a scripted Connection for pump tests
type mockConnection struct {
	mu sync.Mutex

	written []mockMessage
	reads   []mockMessage
	readIdx int

	closed        bool
	readDeadline  time.Time
	writeDeadline time.Time
	readLimit     int64
	pongHandler   func(string) error
	remoteAddr    string
}

func newMockConnection() *mockConnection {
	return &mockConnection{remoteAddr: "127.0.0.1:50000"}
}

func (m *mockConnection) WriteMessage(messageType int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("connection closed")
	}
	m.written = append(m.written, mockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (m *mockConnection) ReadMessage() (int, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.readIdx < len(m.reads) {
		msg := m.reads[m.readIdx]
		m.readIdx++
		return msg.Type, msg.Data, msg.Err
	}
	return 0, nil, errors.New("no more messages")
}

func (m *mockConnection) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockConnection) SetReadDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readDeadline = t
	return nil
}

func (m *mockConnection) SetWriteDeadline(t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeDeadline = t
	return nil
}

func (m *mockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readLimit = limit
}

func (m *mockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pongHandler = h
}

func (m *mockConnection) RemoteAddr() string {
	return m.remoteAddr
}

func (m *mockConnection) addRead(messageType int, data []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads = append(m.reads, mockMessage{Type: messageType, Data: data, Err: err})
}

func (m *mockConnection) writtenMessages() []mockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]mockMessage, len(m.written))
	copy(out, m.written)
	return out
}

func (m *mockConnection) isClosed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
