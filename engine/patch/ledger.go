package patch

import (
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack"
	"github.com/xiaonanln/protopatch/engine/config"
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"github.com/xiaonanln/protopatch/engine/kvdb"
	"github.com/xiaonanln/protopatch/engine/kvdb/types"
)

// LedgerRecord is the outcome of one patch application attempt
type LedgerRecord struct {
	RunID     string `msgpack:"run"`
	Seq       int    `msgpack:"seq"`
	Target    string `msgpack:"target"`
	Path      string `msgpack:"path"`
	Operation string `msgpack:"op"`
	Applied   bool   `msgpack:"applied"`
	Error     string `msgpack:"err,omitempty"`
	Time      int64  `msgpack:"t"`
}

// Ledger records application outcomes of one run in a KVDB
//
// Writes are asynchronous and never affect application.
type Ledger struct {
	db      *kvdb.KVDB
	runID   string
	pending sync.WaitGroup
}

// NewRunID returns a new run id, run ids sort by creation time
func NewRunID() string {
	return ulid.Make().String()
}

// OpenLedger opens the ledger configured by cfg, or returns nil when no ledger is configured
func OpenLedger(cfg *config.LedgerConfig, runID string) (*Ledger, error) {
	if cfg.Type == "" {
		return nil, nil
	}
	db, err := kvdb.Open(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "open ledger")
	}
	return NewLedger(db, runID), nil
}

// NewLedger creates a ledger over an opened KVDB
func NewLedger(db *kvdb.KVDB, runID string) *Ledger {
	return &Ledger{db: db, runID: runID}
}

// RunID returns the id of the run being recorded
func (l *Ledger) RunID() string {
	return l.runID
}

func ledgerRunPrefix(runID string) string {
	return consts.LEDGER_KEY_PREFIX + runID + "/"
}

func ledgerKey(runID string, e *Entry) string {
	return fmt.Sprintf("%s%s/%s/%06d", ledgerRunPrefix(runID), e.Target, e.Path, e.Seq)
}

// Record writes the outcome of applying e
func (l *Ledger) Record(e *Entry, applyErr error) {
	rec := LedgerRecord{
		RunID:     l.runID,
		Seq:       e.Seq,
		Target:    e.Target,
		Path:      e.Path,
		Operation: e.Operation.String(),
		Applied:   applyErr == nil && e.Applied(),
		Time:      time.Now().UnixNano(),
	}
	if applyErr != nil {
		rec.Error = applyErr.Error()
	}

	data, err := msgpack.Marshal(&rec)
	if err != nil {
		gwlog.Errorf("Ledger: marshal record of %s failed: %v", e, err)
		return
	}
	key := ledgerKey(l.runID, e)
	l.pending.Add(1)
	l.db.Put(key, base64.StdEncoding.EncodeToString(data), func(err error) {
		if err != nil {
			gwlog.Errorf("Ledger: write %s failed: %v", key, err)
		}
		l.pending.Done()
	})
}

// Flush waits for every recorded outcome to be written
func (l *Ledger) Flush() {
	l.pending.Wait()
}

// Records reads back all records of a run in key order
func (l *Ledger) Records(runID string) ([]LedgerRecord, error) {
	type result struct {
		items []kvdbtypes.KVItem
		err   error
	}
	done := make(chan result, 1)
	prefix := ledgerRunPrefix(runID)
	l.db.GetRange(prefix, kvdbtypes.PrefixEnd(prefix), func(items []kvdbtypes.KVItem, err error) {
		done <- result{items, err}
	})
	res := <-done
	if res.err != nil {
		return nil, res.err
	}

	records := make([]LedgerRecord, 0, len(res.items))
	for _, item := range res.items {
		data, err := base64.StdEncoding.DecodeString(item.Val)
		if err != nil {
			return records, errors.Wrapf(err, "ledger record %s", item.Key)
		}
		var rec LedgerRecord
		if err := msgpack.Unmarshal(data, &rec); err != nil {
			return records, errors.Wrapf(err, "ledger record %s", item.Key)
		}
		records = append(records, rec)
	}
	return records, nil
}

// Close flushes pending writes and closes the KVDB
func (l *Ledger) Close() {
	l.Flush()
	l.db.Close()
	l.db.WaitTerminated()
}
