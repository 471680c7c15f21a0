package command

import (
	"bytes"
	"context"
	"io"
	"sync"

	"go.uber.org/zap"
)

// inputWriter serialises writes to the process input. Closing is queued
// behind pending writes, and nothing is written after close.
type inputWriter struct {
	mu     sync.Mutex
	w      io.WriteCloser
	queue  chan []byte
	closed bool
	done   chan struct{}
	log    *zap.Logger
}

func newInputWriter(w io.WriteCloser, log *zap.Logger) *inputWriter {
	in := &inputWriter{
		w:     w,
		queue: make(chan []byte, 16),
		done:  make(chan struct{}),
		log:   log,
	}
	go in.loop()
	return in
}

func (in *inputWriter) loop() {
	defer close(in.done)
	for data := range in.queue {
		if _, err := in.w.Write(data); err != nil {
			in.log.Debug("input write failed", zap.Error(err))
		}
	}
	if err := in.w.Close(); err != nil {
		in.log.Debug("input close failed", zap.Error(err))
	}
}

func (in *inputWriter) write(data []byte) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return ErrInputClosed
	}
	in.queue <- append([]byte(nil), data...)
	return nil
}

func (in *inputWriter) close() {
	in.mu.Lock()
	defer in.mu.Unlock()
	if in.closed {
		return
	}
	in.closed = true
	close(in.queue)
}

type stream int

const (
	streamStdout stream = iota
	streamStderr
)

type chunk struct {
	from stream
	data []byte
}

// dispatcher receives output from both streams and hands it to the
// command's handlers one chunk at a time.
type dispatcher struct {
	cmd   *Command
	abort context.CancelCauseFunc
	log   *zap.Logger

	events  chan chunk
	stopped chan struct{}
	done    chan struct{}

	stdout  bytes.Buffer
	stderr  bytes.Buffer
	failure error
}

func newDispatcher(c *Command, abort context.CancelCauseFunc, log *zap.Logger) *dispatcher {
	return &dispatcher{
		cmd:     c,
		abort:   abort,
		log:     log,
		events:  make(chan chunk),
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func (d *dispatcher) writer(from stream) io.Writer {
	return chunkWriter{d: d, from: from}
}

func (d *dispatcher) loop() {
	defer close(d.done)
	for {
		select {
		case ch := <-d.events:
			d.handle(ch)
		case <-d.stopped:
			return
		}
	}
}

// stop ends the loop and waits for it. Every chunk sent before the process
// streams reached EOF has been handled when stop returns.
func (d *dispatcher) stop() {
	close(d.stopped)
	<-d.done
}

func (d *dispatcher) handle(ch chunk) {
	var h Handler
	switch ch.from {
	case streamStdout:
		d.stdout.Write(ch.data)
		h = d.cmd.HandleStdout
	case streamStderr:
		d.stderr.Write(ch.data)
		h = d.cmd.HandleStderr
	}
	if h == nil || d.failure != nil {
		return
	}
	reply, err := h(ch.data)
	if err != nil {
		d.failure = err
		d.abort(err)
		return
	}
	if len(reply) == 0 {
		return
	}
	if err := d.cmd.Write(reply); err != nil {
		d.log.Debug("reply dropped", zap.Error(err))
	}
}

type chunkWriter struct {
	d    *dispatcher
	from stream
}

func (w chunkWriter) Write(p []byte) (int, error) {
	data := append([]byte(nil), p...)
	select {
	case w.d.events <- chunk{from: w.from, data: data}:
	case <-w.d.stopped:
	}
	return len(p), nil
}
