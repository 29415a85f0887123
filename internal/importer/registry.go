package importer

import "sync"

// registry maps job ids to their live loop handles so control signals
// reach the right goroutine. Ids are uuids and never reused; entries
// stay until the job is deleted.
type registry struct {
	mu   sync.RWMutex
	jobs map[string]*job
}

func newRegistry() *registry {
	return &registry{jobs: make(map[string]*job)}
}

func (r *registry) add(j *job) {
	r.mu.Lock()
	r.jobs[j.id] = j
	r.mu.Unlock()
}

func (r *registry) get(id string) *job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.jobs[id]
}

func (r *registry) remove(id string) {
	r.mu.Lock()
	delete(r.jobs, id)
	r.mu.Unlock()
}
