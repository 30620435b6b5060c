// Package output provides lossy-by-design scanning of child process
// output streams.
//
// Readiness and port detection must never block a child's stdout or
// stderr: a chatty dev server that fills its pipe would stall. Lines are
// read fast into a bounded channel and dropped when the consumer cannot
// keep up.
//
// Layers:
//
//	Layer 1 (Reader): reads lines fast, drops if channel full - never blocks
//	Layer 2 (Sink):   consumes from the channel at its own pace
package output

import (
	"sync"
	"sync/atomic"
)

// LineSink consumes scanned output lines.
type LineSink interface {
	HandleLine(line string)
}

// Pipeline moves lines from a reader to a sink through a bounded channel.
type Pipeline struct {
	subjectID  string
	streamName string // "stdout" or "stderr"

	lineChan  chan string
	closeOnce sync.Once

	linesRead    atomic.Int64
	linesDropped atomic.Int64
	linesHandled atomic.Int64
}

// NewPipeline creates a bounded pipeline for one output stream.
func NewPipeline(subjectID, streamName string, bufferSize int) *Pipeline {
	if bufferSize < 1 {
		bufferSize = 256
	}
	return &Pipeline{
		subjectID:  subjectID,
		streamName: streamName,
		lineChan:   make(chan string, bufferSize),
	}
}

// FeedLine queues a line for the sink. Returns false when the channel is
// full and the line was dropped. Never blocks.
func (p *Pipeline) FeedLine(line string) bool {
	p.linesRead.Add(1)

	select {
	case p.lineChan <- line:
		return true
	default:
		p.linesDropped.Add(1)
		return false
	}
}

// CloseChannel signals the sink to stop. This is the sole termination
// mechanism for the sink goroutine; the reader must call it on exit.
// Safe to call multiple times.
func (p *Pipeline) CloseChannel() {
	p.closeOnce.Do(func() {
		close(p.lineChan)
	})
}

// RunSink consumes lines until the channel is closed. Run in a dedicated
// goroutine.
func (p *Pipeline) RunSink(sink LineSink) {
	for line := range p.lineChan {
		sink.HandleLine(line)
		p.linesHandled.Add(1)
	}
}

// Stats returns (read, dropped, handled) line counts.
func (p *Pipeline) Stats() (read, dropped, handled int64) {
	return p.linesRead.Load(), p.linesDropped.Load(), p.linesHandled.Load()
}

// SubjectID returns the subject this pipeline belongs to.
func (p *Pipeline) SubjectID() string { return p.subjectID }

// StreamName returns "stdout" or "stderr".
func (p *Pipeline) StreamName() string { return p.streamName }

// NoopSink discards every line. Useful as a placeholder in tests.
type NoopSink struct{}

// HandleLine does nothing.
func (NoopSink) HandleLine(string) {}
