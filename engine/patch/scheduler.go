package patch

import (
	"sort"

	"github.com/petar/GoLLRB/llrb"
	"github.com/xiaonanln/protopatch/engine/common"
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"github.com/xiaonanln/protopatch/engine/opmon"
	"github.com/xiaonanln/protopatch/engine/prototype"
)

// State is the scheduling state of a prototype
type State int

const (
	// Unseen prototypes have not been reported constructed
	Unseen State = iota
	// Pending prototypes are constructed and wait for their patched ancestors
	Pending
	// Patched prototypes had all their entries attempted
	Patched
)

func (s State) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Patched:
		return "Patched"
	}
	return "Unseen"
}

type pendingItem struct {
	seq     int
	proto   *prototype.Prototype
	entries []*Entry
}

func (it *pendingItem) Less(than llrb.Item) bool {
	return it.seq < than.(*pendingItem).seq
}

// Scheduler applies the entries of constructed prototypes parent-before-child
//
// A pending prototype is ready once its nearest ancestor that has entries is Patched,
// or when no ancestor has entries at all.
type Scheduler struct {
	dir        *prototype.Directory
	hasEntries func(id common.PrototypeID) bool
	states     map[common.PrototypeID]State
	pending    *llrb.LLRB
	nextSeq    int
}

// NewScheduler creates a scheduler, hasEntries reports if a prototype has patch entries at all
func NewScheduler(dir *prototype.Directory, hasEntries func(id common.PrototypeID) bool) *Scheduler {
	return &Scheduler{
		dir:        dir,
		hasEntries: hasEntries,
		states:     map[common.PrototypeID]State{},
		pending:    llrb.New(),
	}
}

// State returns the state of a prototype
func (s *Scheduler) State(id common.PrototypeID) State {
	return s.states[id]
}

// Enqueue makes an Unseen prototype Pending, returning false for any other state
func (s *Scheduler) Enqueue(p *prototype.Prototype, entries []*Entry) bool {
	if s.states[p.DataRef] != Unseen {
		return false
	}
	s.states[p.DataRef] = Pending
	s.nextSeq += 1
	s.pending.ReplaceOrInsert(&pendingItem{seq: s.nextSeq, proto: p, entries: entries})
	return true
}

// Len returns the number of pending prototypes
func (s *Scheduler) Len() int {
	return s.pending.Len()
}

// Run applies every ready prototype in passes until a pass makes no progress
//
// Entries of one prototype are applied shallowest path first, equal depths in load
// order. Returns the number of prototypes that became Patched.
func (s *Scheduler) Run(apply func(p *prototype.Prototype, e *Entry) bool) int {
	op := opmon.StartOperation("patch.run")
	defer op.Finish(consts.PATCH_RUN_WARN_THRESHOLD)

	patched := 0
	for s.pending.Len() > 0 {
		var ready []*pendingItem
		s.pending.AscendGreaterOrEqual(s.pending.Min(), func(i llrb.Item) bool {
			it := i.(*pendingItem)
			if s.isReady(it.proto) {
				ready = append(ready, it)
			}
			return true
		})
		if len(ready) == 0 {
			break
		}

		for _, it := range ready {
			entries := make([]*Entry, len(it.entries))
			copy(entries, it.entries)
			sort.SliceStable(entries, func(i, j int) bool {
				return entries[i].Segments.Depth() < entries[j].Segments.Depth()
			})
			for _, e := range entries {
				apply(it.proto, e)
			}
			s.states[it.proto.DataRef] = Patched
			s.pending.Delete(it)
			patched += 1
		}
	}

	if s.pending.Len() > 0 {
		for _, p := range s.Stuck() {
			gwlog.Warnf("Prototype %s is still waiting for its parent %s to be patched", s.dir.PrototypeName(p.DataRef), s.dir.PrototypeName(s.parentOf(p)))
		}
	}
	return patched
}

// Stuck returns the pending prototypes in enqueue order
func (s *Scheduler) Stuck() []*prototype.Prototype {
	var stuck []*prototype.Prototype
	if s.pending.Len() == 0 {
		return stuck
	}
	s.pending.AscendGreaterOrEqual(s.pending.Min(), func(i llrb.Item) bool {
		stuck = append(stuck, i.(*pendingItem).proto)
		return true
	})
	return stuck
}

func (s *Scheduler) parentOf(p *prototype.Prototype) common.PrototypeID {
	if !p.ParentDataRef.IsNil() {
		return p.ParentDataRef
	}
	return s.dir.ParentRef(p.DataRef)
}

func (s *Scheduler) isReady(p *prototype.Prototype) bool {
	visited := map[common.PrototypeID]bool{p.DataRef: true}
	for parent := s.parentOf(p); !parent.IsNil(); parent = s.dir.ParentRef(parent) {
		if visited[parent] {
			return false // inheritance cycle
		}
		visited[parent] = true
		if s.hasEntries(parent) {
			return s.states[parent] == Patched
		}
	}
	return true
}
