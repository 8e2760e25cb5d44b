package eviction

import "container/list"

// lru keeps keys in a list ordered from most (front) to least (back)
// recently used.
type lru struct {
	order *list.List
	items map[string]*list.Element
}

func newLRU() *lru {
	return &lru{
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

func (l *lru) OnGet(key string) {
	if el, ok := l.items[key]; ok {
		l.order.MoveToFront(el)
	}
}

func (l *lru) OnPut(key string) {
	if el, ok := l.items[key]; ok {
		l.order.MoveToFront(el)
		return
	}
	l.items[key] = l.order.PushFront(key)
}

func (l *lru) Remove(key string) {
	if el, ok := l.items[key]; ok {
		l.order.Remove(el)
		delete(l.items, key)
	}
}

func (l *lru) Evict() string {
	el := l.order.Back()
	if el == nil {
		return ""
	}
	key := el.Value.(string)
	l.order.Remove(el)
	delete(l.items, key)
	return key
}

func (l *lru) Len() int {
	return len(l.items)
}
