// Package scheduler maintains the set of service descriptors in
// earliest-due order and answers "which service is due next, and when".
//
// No third-party priority-queue library appears anywhere in the example
// corpus; container/heap is the idiomatic standard-library tool for this
// and is what the original source's heapq usage maps onto directly, so
// this package is built on it rather than on a hand-rolled heap.
package scheduler

import (
	"container/heap"
	"sync"
	"time"

	"github.com/nightwatch/monitor/pkg/config"
)

// Scheduler is a min-heap over descriptors keyed by their dynamic priority
// value. Pop, Push and Len all take the same mutex, so Len may be called
// from another goroutine without racing the Agent's mutations.
type Scheduler struct {
	mu sync.Mutex
	pq priorityQueue
}

// New builds a Scheduler from the given descriptors. Its size is fixed at
// construction, per the data model's lifecycle: descriptors are created
// once at startup and live for the process.
func New(services []*config.ServiceDescriptor) *Scheduler {
	pq := make(priorityQueue, len(services))
	now := time.Now().UTC()
	for i, svc := range services {
		pq[i] = &heapItem{descriptor: svc, priority: svc.PriorityValue(now)}
	}
	heap.Init(&pq)
	return &Scheduler{pq: pq}
}

// Len returns the number of descriptors currently in the heap. A descriptor
// removed by Pop is not counted until it is pushed back.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pq.Len()
}

// Pop removes and returns the descriptor with the smallest priority value,
// recomputed against the current wall clock. It never blocks; the caller
// (the Agent) is responsible for sleeping out the returned priority.
func (s *Scheduler) Pop() *config.ServiceDescriptor {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	for _, item := range s.pq {
		item.priority = item.descriptor.PriorityValue(now)
	}
	heap.Init(&s.pq)

	item := heap.Pop(&s.pq).(*heapItem)
	return item.descriptor
}

// Push re-inserts a descriptor, typically after a probe completed and
// LastCheckedAt was updated. Tie-break order among equal priorities is
// unspecified.
func (s *Scheduler) Push(svc *config.ServiceDescriptor) {
	s.mu.Lock()
	defer s.mu.Unlock()

	heap.Push(&s.pq, &heapItem{
		descriptor: svc,
		priority:   svc.PriorityValue(time.Now().UTC()),
	})
}

type heapItem struct {
	descriptor *config.ServiceDescriptor
	priority   float64
}

// priorityQueue implements heap.Interface over heapItem, ordered by
// priority ascending (smaller priority = sooner = pops first).
type priorityQueue []*heapItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	return pq[i].priority < pq[j].priority
}

func (pq priorityQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
}

func (pq *priorityQueue) Push(x interface{}) {
	*pq = append(*pq, x.(*heapItem))
}

func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}
