// Package log provides the debug log file used for command traces and an
// in-memory diagnostics ring that can be injected into the scanner and analyzer.
package log

import (
	"fmt"
	"io"
	stdlog "log"
	"os"
	"sync"
)

// maxPendingBytes bounds the records held before the debug file is known.
const maxPendingBytes = 256 * 1024

type sinkState int

const (
	// buffering holds records until SetFile decides where they go.
	buffering sinkState = iota
	writing
	discarding
)

// fileSink receives one record per Write from the standard logger.
// Records are kept whole: when the buffer overflows the oldest records are
// dropped and counted, never cut in half.
type fileSink struct {
	mu           sync.Mutex
	state        sinkState
	out          io.WriteCloser
	pending      [][]byte
	pendingBytes int
	dropped      int
}

var (
	sink   = &fileSink{}
	logger = stdlog.New(sink, "", stdlog.LstdFlags|stdlog.Lmicroseconds)
)

func (s *fileSink) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case writing:
		return s.out.Write(p)
	case discarding:
		return len(p), nil
	}

	s.pending = append(s.pending, append([]byte(nil), p...))
	s.pendingBytes += len(p)
	for s.pendingBytes > maxPendingBytes && len(s.pending) > 1 {
		s.pendingBytes -= len(s.pending[0])
		s.pending[0] = nil
		s.pending = s.pending[1:]
		s.dropped++
	}
	return len(p), nil
}

// flush writes the buffered records to out. Caller holds mu.
func (s *fileSink) flush(out io.Writer) {
	if s.dropped > 0 {
		_, _ = fmt.Fprintf(out, "[%d earlier debug records dropped]\n", s.dropped)
	}
	for _, rec := range s.pending {
		_, _ = out.Write(rec)
	}
	s.clearPending()
}

func (s *fileSink) clearPending() {
	s.pending = nil
	s.pendingBytes = 0
	s.dropped = 0
}

// closeOut closes the current file, if any. Caller holds mu.
func (s *fileSink) closeOut() error {
	if s.out == nil {
		return nil
	}
	err := s.out.Close()
	s.out = nil
	return err
}

// SetFile sends debug output to path, appending to it, and flushes what was
// logged before. An empty path, or a path that cannot be opened, discards
// buffered and future output.
func SetFile(path string) error {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	_ = sink.closeOut()

	if path == "" {
		sink.state = discarding
		sink.clearPending()
		return nil
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600) //nolint:gosec
	if err != nil {
		sink.state = discarding
		sink.clearPending()
		return err
	}

	sink.flush(f)
	sink.out = f
	sink.state = writing
	return nil
}

// Printf writes a formatted debug record.
func Printf(format string, args ...any) {
	logger.Printf(format, args...)
}

// Close syncs and closes the debug file. Later records are discarded.
func Close() error {
	sink.mu.Lock()
	defer sink.mu.Unlock()

	if sink.state != writing {
		return nil
	}
	sink.state = discarding
	if f, ok := sink.out.(*os.File); ok {
		_ = f.Sync()
	}
	return sink.closeOut()
}
