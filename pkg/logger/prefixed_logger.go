package logger

import "sync"

// NewPrefixedLogger returns a logger that sticks the given prefix at the
// start of every line, tracking line state across writes so that streamed
// fragments get exactly one prefix per line. Prefixed loggers nest.
func NewPrefixedLogger(prefix string, original Logger) Logger {
	p := &prefixState{prefix: []byte(prefix), isStartOfLine: true}
	return NewFuncLogger(original.SupportsColor(), original.Level(),
		func(level Level, fields Fields, b []byte) error {
			original.Write(level, p.transform(b))
			return nil
		})
}

type prefixState struct {
	mu            sync.Mutex
	prefix        []byte
	isStartOfLine bool
}

func (p *prefixState) transform(b []byte) []byte {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(b) == 0 {
		return b
	}

	result := make([]byte, 0, len(b)+len(p.prefix))
	if p.isStartOfLine {
		result = append(result, p.prefix...)
	}
	for i, c := range b {
		result = append(result, c)
		if c == '\n' && i != len(b)-1 {
			result = append(result, p.prefix...)
		}
	}
	p.isStartOfLine = b[len(b)-1] == '\n'
	return result
}
