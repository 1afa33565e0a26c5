package catalog

import (
	"container/heap"

	"github.com/giygas/pharmdb/entities"
)

// leaderEntry is one recorded (efficacy, drug) pair. It goes stale once the
// drug's live efficacy for the disease differs from the recorded one.
type leaderEntry struct {
	efficacy int
	drug     entities.DrugID
}

// outranks orders entries by efficacy, then by later insertion
func (e leaderEntry) outranks(other leaderEntry) bool {
	if e.efficacy != other.efficacy {
		return e.efficacy > other.efficacy
	}
	return e.drug > other.drug
}

// entryHeap is a max-heap of leaderEntry for container/heap
type entryHeap []leaderEntry

func (h entryHeap) Len() int           { return len(h) }
func (h entryHeap) Less(i, j int) bool { return h[i].outranks(h[j]) }
func (h entryHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *entryHeap) Push(x any) {
	*h = append(*h, x.(leaderEntry))
}

func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Leaderboard tracks the best drug per disease. Entries are only ever pushed;
// stale ones are dropped lazily when they surface at the top during Settle.
type Leaderboard struct {
	heaps     map[string]*entryHeap
	best      map[string]leaderEntry
	pending   int
	discarded int
}

// NewLeaderboard returns an empty leaderboard
func NewLeaderboard() *Leaderboard {
	return &Leaderboard{
		heaps: make(map[string]*entryHeap),
		best:  make(map[string]leaderEntry),
	}
}

// Record pushes a new indication and promotes drug if it outranks the incumbent
func (l *Leaderboard) Record(disease string, efficacy int, drug entities.DrugID) {
	entry := l.push(disease, efficacy, drug)

	if incumbent, ok := l.best[disease]; !ok || entry.outranks(incumbent) {
		l.best[disease] = entry
	}
}

// push adds an entry without touching the incumbent
func (l *Leaderboard) push(disease string, efficacy int, drug entities.DrugID) leaderEntry {
	h, ok := l.heaps[disease]
	if !ok {
		h = &entryHeap{}
		l.heaps[disease] = h
	}

	entry := leaderEntry{efficacy: efficacy, drug: drug}
	heap.Push(h, entry)
	l.pending++
	return entry
}

// Best returns the incumbent for disease and its recorded efficacy
func (l *Leaderboard) Best(disease string) (entities.DrugID, int, bool) {
	entry, ok := l.best[disease]
	if !ok {
		return 0, 0, false
	}
	return entry.drug, entry.efficacy, true
}

// Settle pops stale entries off the top of the disease heap until the top one
// matches the live efficacy reported by live, and makes that entry the incumbent.
// Each pushed entry is popped at most once over the leaderboard's lifetime.
func (l *Leaderboard) Settle(disease string, live func(entities.DrugID) (int, bool)) {
	h, ok := l.heaps[disease]
	if !ok {
		return
	}

	for h.Len() > 0 {
		top := (*h)[0]
		if current, ok := live(top.drug); ok && current == top.efficacy {
			l.best[disease] = top
			return
		}
		heap.Pop(h)
		l.pending--
		l.discarded++
	}

	delete(l.best, disease)
}

// Diseases returns the number of diseases with an incumbent
func (l *Leaderboard) Diseases() int {
	return len(l.best)
}

// Pending returns the number of entries still held across all heaps
func (l *Leaderboard) Pending() int {
	return l.pending
}

// Discarded returns how many stale entries have been dropped so far
func (l *Leaderboard) Discarded() int {
	return l.discarded
}
