package patch

import (
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/protopatch/engine/common"
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"github.com/xiaonanln/protopatch/engine/gwutils"
	"github.com/xiaonanln/protopatch/engine/prototype"
)

// Signal is a one-shot completion signal, like *xnsyncutil.OneTimeCond
type Signal interface {
	Wait()
}

// Options configures a Manager
type Options struct {
	FilePrefix string  // patch file name prefix, PatchData by default
	Deferred   bool    // apply once after every prototype is built instead of inline in PostConstruct
	Ledger     *Ledger // optional outcome log
}

// Report summarizes the state of the patch table
type Report struct {
	Load       LoadStats
	Loaded     int
	Applied    int
	Failed     int
	Pending    int
	Properties int
	Stuck      []string
}

// Manager owns the patch table and implements the hooks the prototype loader calls
type Manager struct {
	dir      *prototype.Directory
	patchDir string
	opts     Options

	table       *Table
	stats       LoadStats
	initialized bool

	coercer  *Coercer
	applier  *Applier
	sched    *Scheduler
	children *ChildPaths
	failed   map[*Entry]error

	started xnsyncutil.AtomicBool
	done    *xnsyncutil.OneTimeCond
}

// NewManager creates a manager reading patch files from patchDir and resolving names in dir
func NewManager(dir *prototype.Directory, patchDir string, opts Options) *Manager {
	if opts.FilePrefix == "" {
		opts.FilePrefix = consts.PATCH_FILE_PREFIX
	}
	m := &Manager{
		dir:      dir,
		patchDir: patchDir,
		opts:     opts,
		table:    NewTable(),
		coercer:  NewCoercer(dir),
		children: NewChildPaths(),
		failed:   map[*Entry]error{},
		done:     xnsyncutil.NewOneTimeCond(),
	}
	m.applier = NewApplier(m.coercer)
	m.applier.SetDescriber(m.describe)
	m.sched = NewScheduler(dir, m.table.Has)
	return m
}

// Initialize loads the patch table when enable is set
//
// Prototype names must be declared in the directory before Initialize, so that
// targets can be resolved.
func (m *Manager) Initialize(enable bool) error {
	if !enable {
		gwlog.Infof("Prototype patching is disabled")
		return nil
	}

	table, stats, err := LoadDirectory(m.patchDir, m.opts.FilePrefix, m.dir)
	m.stats = stats
	if err != nil {
		gwlog.Warnf("Patch directory not loaded: %v", err)
		return err
	}
	m.table = table
	m.sched = NewScheduler(m.dir, m.table.Has)
	m.initialized = true
	return nil
}

// Coercer returns the value converter, also usable as the loader's prototype.Converter
func (m *Manager) Coercer() *Coercer {
	return m.coercer
}

// Table returns the loaded entries
func (m *Manager) Table() *Table {
	return m.table
}

// State returns the scheduling state of a prototype
func (m *Manager) State(id common.PrototypeID) State {
	return m.sched.State(id)
}

// PreCheck returns if the prototype has any patch entry
func (m *Manager) PreCheck(id common.PrototypeID) bool {
	return m.initialized && m.table.Has(id)
}

// PostConstruct schedules the patches of a constructed prototype and applies everything that is ready
//
// It does nothing in deferred mode or for prototypes that were already scheduled.
func (m *Manager) PostConstruct(p *prototype.Prototype) {
	if !m.initialized || m.opts.Deferred || p.IsEmbedded() || !m.table.Has(p.DataRef) {
		return
	}
	if m.sched.Enqueue(p, m.table.Entries(p.DataRef)) {
		m.sched.Run(m.applyEntry)
	}
}

// RegisterChildPath records where a nested object lives, index is -1 for plain fields
func (m *Manager) RegisterChildPath(parent prototype.Record, child prototype.Record, field string, index int) {
	m.children.Register(parent, child, field, index)
}

// ChildPath returns the owning prototype of a nested object and its path inside it
func (m *Manager) ChildPath(rec prototype.Record) (*prototype.Prototype, string, bool) {
	return m.children.Path(rec)
}

func (m *Manager) describe(rec prototype.Record) string {
	owner, path, ok := m.children.Path(rec)
	if !ok {
		return ""
	}
	name := m.dir.PrototypeName(owner.DataRef)
	if path == "" {
		return name
	}
	return name + "." + path
}

// ApplyWhenInitialized waits for ready on a new goroutine, then applies every patch in the table
//
// Wait blocks until it is done.
func (m *Manager) ApplyWhenInitialized(ready Signal) {
	if m.started.Load() {
		gwlog.Warnf("ApplyWhenInitialized is already started")
		return
	}
	m.started.Store(true)

	if !m.initialized || m.table.Len() == 0 {
		m.done.Signal()
		return
	}

	go func() {
		defer m.done.Signal()
		gwutils.RunPanicless(func() {
			ready.Wait()
			gwlog.Infof("Prototype directory is initialized, applying all patches...")
			m.applyAll()
			gwlog.Infof("Finished applying all patches")
		})
	}()
}

// Wait blocks until the run started by ApplyWhenInitialized is done
func (m *Manager) Wait() {
	m.done.Wait()
}

func (m *Manager) applyAll() {
	for _, id := range m.table.Targets() {
		p := m.dir.Prototype(id)
		if p == nil {
			gwlog.Warnf("Could not find prototype %s to apply patches", m.dir.PrototypeName(id))
			continue
		}
		m.sched.Enqueue(p, m.table.Entries(id))
	}
	m.sched.Run(m.applyEntry)
}

func (m *Manager) applyEntry(p *prototype.Prototype, e *Entry) bool {
	err := m.applier.Try(p, e)
	if err != nil {
		gwlog.Errorf("Failed to apply patch %s: %v", e, err)
		m.failed[e] = err
	} else {
		delete(m.failed, e)
	}
	if m.opts.Ledger != nil {
		m.opts.Ledger.Record(e, err)
	}
	return err == nil
}

// CheckProperties returns the property collection patched onto a prototype, if any
func (m *Manager) CheckProperties(id common.PrototypeID) (*prototype.PropertyCollection, bool) {
	if !m.initialized || id.IsNil() {
		return nil, false
	}
	for _, e := range m.table.Entries(id) {
		if e.Value.Type.Kind != ValuePropertyCollection || e.Value.Type.Array {
			continue
		}
		v, err := m.coercer.Coerce(e.Value.Interface(), prototype.TypeProperties)
		if err != nil {
			gwlog.Errorf("Patch %s: bad property collection: %v", e, err)
			return nil, false
		}
		pc := v.(*prototype.PropertyCollection)
		return pc, pc != nil
	}
	return nil, false
}

// Failure returns the last error of an entry that failed to apply
func (m *Manager) Failure(e *Entry) error {
	return m.failed[e]
}

// Report counts applied, failed and pending entries
func (m *Manager) Report() Report {
	r := Report{Load: m.stats, Loaded: m.table.Len()}
	for _, e := range m.table.All() {
		if e.Value.Type.Kind == ValuePropertyCollection && !e.Value.Type.Array {
			r.Properties += 1
		}
		if e.Applied() {
			r.Applied += 1
		} else if m.failed[e] != nil {
			r.Failed += 1
		} else {
			r.Pending += 1
		}
	}
	for _, p := range m.sched.Stuck() {
		r.Stuck = append(r.Stuck, m.dir.PrototypeName(p.DataRef))
	}
	return r
}

var (
	_ prototype.Hooks     = (*Manager)(nil)
	_ prototype.Converter = (*Coercer)(nil)
)
