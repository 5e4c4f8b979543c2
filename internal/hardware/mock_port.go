package hardware

import (
	"io"
	"sync"
)

// MockPort 测试用的内存端口，按写入顺序回放预置应答
type MockPort struct {
	mu        sync.Mutex
	open       bool
	failOpen   bool
	failWrites int
	writes     [][]byte
	responses [][]byte
	readBuf   []byte
}

// NewMockPort 创建已打开的内存端口
func NewMockPort() *MockPort {
	return &MockPort{open: true}
}

// QueueResponse 预置一帧应答，下一次写入后可读
func (m *MockPort) QueueResponse(resp []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = append(m.responses, resp)
}

// Writes 返回所有写入过的原始帧
func (m *MockPort) Writes() [][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([][]byte, len(m.writes))
	copy(out, m.writes)
	return out
}

// SetOpen 控制端口开闭状态
func (m *MockPort) SetOpen(open bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = open
}

// FailReopen 使后续 Reopen 调用失败
func (m *MockPort) FailReopen(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failOpen = fail
}

// FailWrites 使接下来的 n 次写入失败
func (m *MockPort) FailWrites(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWrites = n
}

func (m *MockPort) Write(data []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return 0, io.ErrClosedPipe
	}
	if m.failWrites > 0 {
		m.failWrites--
		return 0, io.ErrShortWrite
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.writes = append(m.writes, buf)
	if len(m.responses) > 0 {
		m.readBuf = append(m.readBuf, m.responses[0]...)
		m.responses = m.responses[1:]
	}
	return len(data), nil
}

func (m *MockPort) Read(buf []byte) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.open {
		return 0, io.ErrClosedPipe
	}
	if len(m.readBuf) == 0 {
		return 0, nil
	}
	n := copy(buf, m.readBuf)
	m.readBuf = m.readBuf[n:]
	return n, nil
}

func (m *MockPort) IsOpen() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

func (m *MockPort) Reopen() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failOpen {
		return io.ErrClosedPipe
	}
	m.open = true
	return nil
}

func (m *MockPort) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.open = false
	return nil
}
