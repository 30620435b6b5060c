package supervisor

import (
	"sync"

	"github.com/codyde/sentryvibe-runner/internal/profile"
)

// watcher scans one output stream for readiness and port announcements.
// It implements output.LineSink; one watcher per stream, both wired to
// the same subject callbacks. Readiness fires at most once per stream.
type watcher struct {
	prof   profile.Profile
	stream string

	onLine  func(stream, line string)
	onPort  func(port int)
	onReady func()

	readyOnce sync.Once
}

func newWatcher(prof profile.Profile, stream string, onLine func(string, string), onPort func(int), onReady func()) *watcher {
	return &watcher{
		prof:    prof,
		stream:  stream,
		onLine:  onLine,
		onPort:  onPort,
		onReady: onReady,
	}
}

// HandleLine processes one scanned output line.
func (w *watcher) HandleLine(line string) {
	w.onLine(w.stream, line)

	if port, ok := w.prof.MatchPort(line); ok {
		w.onPort(port)
	}
	if w.prof.MatchReady(line) {
		w.readyOnce.Do(w.onReady)
	}
}
