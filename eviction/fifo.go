package eviction

// fifo evicts in insertion order. Removed keys are dropped lazily from the
// queue head.
type fifo struct {
	queue []string
	live  map[string]struct{}
}

func newFIFO() *fifo {
	return &fifo{live: make(map[string]struct{})}
}

func (f *fifo) OnGet(string) {}

func (f *fifo) OnPut(key string) {
	if _, ok := f.live[key]; ok {
		return
	}
	f.queue = append(f.queue, key)
	f.live[key] = struct{}{}
}

func (f *fifo) Remove(key string) {
	delete(f.live, key)
}

func (f *fifo) Evict() string {
	for len(f.queue) > 0 {
		key := f.queue[0]
		f.queue = f.queue[1:]
		if _, ok := f.live[key]; ok {
			delete(f.live, key)
			return key
		}
	}
	return ""
}

func (f *fifo) Len() int {
	return len(f.live)
}
