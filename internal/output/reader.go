package output

import (
	"bufio"
	"io"
	"sync/atomic"
)

// PipeReader reads lines from a child process pipe and feeds them into a
// Pipeline. One PipeReader per stream (stdout/stderr).
type PipeReader struct {
	reader   io.Reader
	pipeline *Pipeline
	closed   atomic.Bool

	bytesRead atomic.Int64
	linesRead atomic.Int64
}

// NewPipeReader creates a reader for cmd.StdoutPipe() or cmd.StderrPipe().
func NewPipeReader(r io.Reader, pipeline *Pipeline) *PipeReader {
	return &PipeReader{
		reader:   r,
		pipeline: pipeline,
	}
}

// Run reads lines until EOF and closes the pipeline channel on exit.
// Run in a dedicated goroutine; returns when the child closes the pipe.
func (p *PipeReader) Run() {
	defer p.pipeline.CloseChannel()

	scanner := bufio.NewScanner(p.reader)

	// Dev servers emit long banner lines (ANSI art, dependency lists).
	const maxLineSize = 64 * 1024
	scanner.Buffer(make([]byte, maxLineSize), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		p.bytesRead.Add(int64(len(line) + 1))
		p.linesRead.Add(1)
		p.pipeline.FeedLine(line)
	}
}

// Close marks the reader as closed. The underlying pipe is closed by the
// process exiting.
func (p *PipeReader) Close() error {
	p.closed.Store(true)
	return nil
}

// Stats returns (bytesRead, linesRead, healthy).
func (p *PipeReader) Stats() (bytesRead int64, linesRead int64, healthy bool) {
	return p.bytesRead.Load(), p.linesRead.Load(), !p.closed.Load()
}
