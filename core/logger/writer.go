package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

// asyncWriter decouples log emission from sink I/O: records are queued and
// a single goroutine fans them out to every buffered sink in order.
type asyncWriter struct {
	records chan []byte
	flushes chan chan error
	stopped chan struct{}
	closing sync.Once

	mu      sync.Mutex
	sinks   []*bufio.Writer
	failure error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	var sinks []*bufio.Writer
	for _, w := range writers {
		if w != nil {
			sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
		}
	}
	aw := &asyncWriter{
		records: make(chan []byte, 256),
		flushes: make(chan chan error),
		stopped: make(chan struct{}),
		sinks:   sinks,
	}
	go aw.run()
	return aw
}

func (w *asyncWriter) run() {
	for {
		select {
		case rec, ok := <-w.records:
			if !ok {
				w.flushSinks()
				close(w.stopped)
				return
			}
			if len(rec) > 0 {
				w.recordFailure(w.writeSinks(rec))
			}
		case ack := <-w.flushes:
			ack <- w.flushSinks()
		}
	}
}

// Write copies the record and hands it to the fan-out goroutine. A full
// queue blocks rather than dropping the record.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.currentFailure(); err != nil {
		return err
	}
	if len(p) == 0 {
		return nil
	}
	rec := make([]byte, len(p))
	copy(rec, p)
	w.records <- rec
	return nil
}

// Flush blocks until everything queued so far has reached the sinks.
func (w *asyncWriter) Flush() error {
	if err := w.currentFailure(); err != nil {
		return err
	}
	ack := make(chan error, 1)
	w.flushes <- ack
	return <-ack
}

// Close drains the queue and returns the first write error seen, if any.
func (w *asyncWriter) Close() error {
	w.closing.Do(func() {
		close(w.records)
	})
	<-w.stopped
	return w.currentFailure()
}

func (w *asyncWriter) writeSinks(rec []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, sink := range w.sinks {
		if _, err := sink.Write(rec); err != nil {
			return err
		}
		if err := sink.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (w *asyncWriter) flushSinks() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var errs []error
	for _, sink := range w.sinks {
		if err := sink.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) currentFailure() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.failure
}

func (w *asyncWriter) recordFailure(err error) {
	if err == nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failure == nil {
		w.failure = err
	}
}
