package utils

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// ErrIdleTimeout is the cancellation cause set by WatchIdle.
var ErrIdleTimeout = errors.New("no data received within timeout")

// StreamCopy moves src into dst one buffer at a time, calling progress with
// the running total after every write. Nothing beyond a single buffer is
// held in memory.
func StreamCopy(dst io.Writer, src io.Reader, bufferSize int, total int64, progress func(downloaded, total int64)) (int64, error) {
	buffer := make([]byte, ClampBufferSize(bufferSize))
	var written int64
	for {
		bytesRead, readErr := src.Read(buffer)
		if bytesRead > 0 {
			if _, writeErr := dst.Write(buffer[:bytesRead]); writeErr != nil {
				return written, fmt.Errorf("error writing to output file: %w", writeErr)
			}
			written += int64(bytesRead)
			if progress != nil {
				progress(written, total)
			}
		}
		if readErr != nil {
			if readErr == io.EOF {
				return written, nil
			}
			return written, fmt.Errorf("error reading source: %w", readErr)
		}
	}
}

// IdleWatch cancels its context when Touch has not been called for the
// configured timeout.
type IdleWatch struct {
	timeout time.Duration
	timer   *time.Timer
	fired   atomic.Bool
}

func WatchIdle(ctx context.Context, timeout time.Duration) (context.Context, *IdleWatch, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	w := &IdleWatch{timeout: timeout}
	w.timer = time.AfterFunc(timeout, func() {
		w.fired.Store(true)
		cancel(ErrIdleTimeout)
	})
	return ctx, w, func() {
		w.timer.Stop()
		cancel(nil)
	}
}

func (w *IdleWatch) Touch() {
	w.timer.Reset(w.timeout)
}

func (w *IdleWatch) Fired() bool {
	return w.fired.Load()
}

// Reader wraps r so every successful read pushes the deadline forward.
func (w *IdleWatch) Reader(r io.Reader) io.Reader {
	return &idleReader{r: r, watch: w}
}

type idleReader struct {
	r     io.Reader
	watch *IdleWatch
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.watch.Touch()
	}
	return n, err
}
