package grbl

import "sync"

// Message log prefixes.
const (
	prefixSent    = ">> "
	prefixRecv    = "<< "
	prefixWarning = "!! "
)

// messageLog accumulates user-visible lines until they are taken.
type messageLog struct {
	mx    sync.Mutex
	limit int
	lines []string
}

func (m *messageLog) add(line string) {
	m.mx.Lock()
	defer m.mx.Unlock()

	if len(m.lines) >= m.limit {
		drop := len(m.lines) - m.limit + 1
		m.lines = append(m.lines[:0], m.lines[drop:]...)
	}
	m.lines = append(m.lines, line)
}

func (m *messageLog) take() []string {
	m.mx.Lock()
	defer m.mx.Unlock()

	lines := m.lines
	m.lines = nil
	return lines
}
