package posextract

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"

	"swingcoach/internal/logging"
)

// cappedBuffer keeps at most limit bytes and silently drops the rest.
type cappedBuffer struct {
	buf   bytes.Buffer
	limit int
}

func (b *cappedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.buf.Len(); room > 0 {
		if len(p) > room {
			b.buf.Write(p[:room])
		} else {
			b.buf.Write(p)
		}
	}
	return len(p), nil
}

func (b *cappedBuffer) Bytes() []byte {
	return b.buf.Bytes()
}

// lineLogger logs each stderr line as a warning and remembers the last few
// for error diagnostics.
type lineLogger struct {
	logger  *slog.Logger
	mu      sync.Mutex
	partial []byte
	tail    []string
	keep    int
}

func newLineLogger(logger *slog.Logger, keep int) *lineLogger {
	return &lineLogger{logger: logger, keep: keep}
}

func (l *lineLogger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.partial = append(l.partial, p...)
	for {
		idx := bytes.IndexByte(l.partial, '\n')
		if idx < 0 {
			break
		}
		l.emit(string(l.partial[:idx]))
		l.partial = l.partial[idx+1:]
	}
	return len(p), nil
}

// Flush emits any unterminated final line.
func (l *lineLogger) Flush() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.partial) > 0 {
		l.emit(string(l.partial))
		l.partial = nil
	}
}

// Tail returns the most recent non-empty lines.
func (l *lineLogger) Tail() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.tail...)
}

func (l *lineLogger) emit(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	l.logger.Warn("pose extractor stderr", logging.String("line", line))
	l.tail = append(l.tail, line)
	if len(l.tail) > l.keep {
		l.tail = l.tail[len(l.tail)-l.keep:]
	}
}
