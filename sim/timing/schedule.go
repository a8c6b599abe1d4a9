package timing

import (
	"container/heap"
	"sort"
	"sync"
)

// A Schedule keeps a fixed set of entries ordered by their next event time.
// Entries are identified by the index they were added with, and their time
// can be updated in place.
type Schedule struct {
	lock    sync.Mutex
	entries scheduleHeap
	pos     []int
}

type scheduleEntry struct {
	index int
	time  VTimeInSec
}

// NewSchedule creates an empty Schedule.
func NewSchedule() *Schedule {
	s := new(Schedule)
	s.entries = scheduleHeap{pos: &s.pos}
	heap.Init(&s.entries)

	return s
}

// Add registers a new entry and returns its index. Indices are assigned in
// the order of addition, starting from 0.
func (s *Schedule) Add(t VTimeInSec) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	index := len(s.pos)
	s.pos = append(s.pos, -1)
	heap.Push(&s.entries, &scheduleEntry{index: index, time: t})

	return index
}

// Update changes the next event time of the entry.
func (s *Schedule) Update(index int, t VTimeInSec) {
	s.lock.Lock()
	defer s.lock.Unlock()

	p := s.pos[index]
	s.entries.items[p].time = t
	heap.Fix(&s.entries, p)
}

// Time returns the next event time of the entry.
func (s *Schedule) Time(index int) VTimeInSec {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.entries.items[s.pos[index]].time
}

// Len returns the number of entries.
func (s *Schedule) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.entries.Len()
}

// Earliest returns the smallest next event time, or Infinity if the schedule
// is empty.
func (s *Schedule) Earliest() VTimeInSec {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.entries.Len() == 0 {
		return Infinity
	}

	return s.entries.items[0].time
}

// Imminent returns the indices of all the entries whose time equals t, in
// ascending index order.
func (s *Schedule) Imminent(t VTimeInSec) []int {
	s.lock.Lock()
	defer s.lock.Unlock()

	var found []int

	s.collectImminent(0, t, &found)
	sort.Ints(found)

	return found
}

func (s *Schedule) collectImminent(p int, t VTimeInSec, found *[]int) {
	if p >= s.entries.Len() {
		return
	}

	e := s.entries.items[p]
	if e.time > t {
		return
	}

	if e.time == t {
		*found = append(*found, e.index)
	}

	s.collectImminent(2*p+1, t, found)
	s.collectImminent(2*p+2, t, found)
}

type scheduleHeap struct {
	items []*scheduleEntry
	pos   *[]int
}

// Len returns the number of entries in the heap.
func (h scheduleHeap) Len() int {
	return len(h.items)
}

// Less orders entries by time and breaks ties by index so that the order is
// deterministic.
func (h scheduleHeap) Less(i, j int) bool {
	if h.items[i].time == h.items[j].time {
		return h.items[i].index < h.items[j].index
	}

	return h.items[i].time < h.items[j].time
}

// Swap changes the position of two entries and keeps the position index
// current.
func (h scheduleHeap) Swap(i, j int) {
	h.items[i], h.items[j] = h.items[j], h.items[i]
	(*h.pos)[h.items[i].index] = i
	(*h.pos)[h.items[j].index] = j
}

// Push adds an entry at the end of the heap.
func (h *scheduleHeap) Push(x interface{}) {
	e := x.(*scheduleEntry)
	(*h.pos)[e.index] = len(h.items)
	h.items = append(h.items, e)
}

// Pop removes the last entry of the heap.
func (h *scheduleHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	e := old[n-1]
	h.items = old[0 : n-1]
	(*h.pos)[e.index] = -1

	return e
}
