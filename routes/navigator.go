package routes

import "sync"

// Navigator moves the user to another view.
type Navigator interface {
	Navigate(path string)
}

// Recorder is a Navigator that remembers every navigation, for callers that
// act on the outcome after the fact (the CLI reports it, tests assert it).
type Recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

// Last returns the most recent path, or "" when nothing navigated.
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}

func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}
