package transport

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/jmylchreest/pushd/internal/push"
)

// MaxLineBytes caps a single input line. Longer lines are skipped.
const MaxLineBytes = 1 << 20

// Stdin reads newline-delimited JSON push messages from a reader.
type Stdin struct {
	handlerSlot

	reader io.Reader
	logger *slog.Logger
}

// NewStdin creates a Stdin transport reading from os.Stdin.
func NewStdin(logger *slog.Logger) *Stdin {
	return NewStdinWithReader(os.Stdin, logger)
}

// NewStdinWithReader creates a Stdin transport with a custom reader.
func NewStdinWithReader(r io.Reader, logger *slog.Logger) *Stdin {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stdin{reader: r, logger: logger}
}

// Name returns "stdin".
func (s *Stdin) Name() string {
	return "stdin"
}

// Run delivers one message per non-blank line until EOF or ctx is cancelled.
// A line longer than MaxLineBytes is logged and delivered as an undecodable
// message; reading continues with the next line.
func (s *Stdin) Run(ctx context.Context) error {
	if s.get() == nil {
		return &Error{Transport: s.Name(), Message: "cannot start", Err: ErrNoHandler}
	}

	br := bufio.NewReaderSize(s.reader, 64*1024)
	for lineNo := 1; ; lineNo++ {
		if ctx.Err() != nil {
			return nil
		}

		line, tooLong, err := readLine(br, MaxLineBytes)
		if tooLong {
			s.logger.Warn("skipping oversized line", "line", lineNo, "limit", MaxLineBytes)
			s.deliver(ctx, s.Name(), nil, s.logger)
		} else if line = bytes.TrimSpace(line); len(line) > 0 {
			s.deliver(ctx, s.Name(), line, s.logger)
		}

		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return &Error{Transport: s.Name(), Message: "failed to read input", Err: err}
		}
	}
}

// readLine reads up to and including the next newline. When the line exceeds
// limit the rest of it is consumed and discarded and tooLong is set.
func readLine(br *bufio.Reader, limit int) (line []byte, tooLong bool, err error) {
	for {
		var chunk []byte
		chunk, err = br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit {
				tooLong = true
				line = nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		return line, tooLong, err
	}
}

// Direct delivers messages handed to it in-process.
type Direct struct {
	handlerSlot
}

// NewDirect creates a Direct transport.
func NewDirect() *Direct {
	return &Direct{}
}

// Deliver invokes the registered handler with msg. It reports whether a
// handler was registered.
func (d *Direct) Deliver(ctx context.Context, msg *push.InboundMessage) bool {
	h := d.get()
	if h == nil {
		return false
	}
	h(WithSource(ctx, "direct"), msg)
	return true
}
