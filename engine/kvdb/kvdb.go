package kvdb

import (
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/xiaonanln/go-xnsyncutil/xnsyncutil"
	"github.com/xiaonanln/protopatch/engine/config"
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"github.com/xiaonanln/protopatch/engine/kvdb/backend/kvdbmongodb"
	"github.com/xiaonanln/protopatch/engine/kvdb/backend/kvdbredis"
	"github.com/xiaonanln/protopatch/engine/kvdb/backend/kvdbrediscluster"
	"github.com/xiaonanln/protopatch/engine/kvdb/backend/kvdbsqlite"
	. "github.com/xiaonanln/protopatch/engine/kvdb/types"
	"github.com/xiaonanln/protopatch/engine/opmon"
)

// KVDBGetCallback is called with the result of Get
type KVDBGetCallback func(val string, err error)

// KVDBPutCallback is called with the result of Put
type KVDBPutCallback func(err error)

// KVDBGetRangeCallback is called with the result of GetRange
type KVDBGetRangeCallback func(items []KVItem, err error)

// KVDB serializes operations on one engine through a single goroutine
//
// Callbacks are called on the KVDB goroutine.
type KVDB struct {
	cfg        config.LedgerConfig
	engine     KVDBEngine
	opQueue    *xnsyncutil.SyncQueue
	terminated *xnsyncutil.OneTimeCond

	recentWarnedQueueLen int
}

// OpenEngine opens the engine described by cfg
func OpenEngine(cfg *config.LedgerConfig) (KVDBEngine, error) {
	switch cfg.Type {
	case "sqlite":
		return kvdbsqlite.OpenSQLiteKVDB(cfg.Url)
	case "mongodb":
		return kvdbmongo.OpenMongoKVDB(cfg.Url, cfg.DB, cfg.Collection)
	case "redis":
		dbindex, err := strconv.Atoi(cfg.DB)
		if err != nil {
			return nil, errors.Wrap(err, "redis db must be integer")
		}
		return kvdbredis.OpenRedisKVDB(cfg.Url, dbindex)
	case "redis_cluster":
		return kvdbrediscluster.OpenRedisKVDB(cfg.StartNodes.ToList())
	}
	return nil, errors.Errorf("KVDB type %s is not implemented", cfg.Type)
}

// Open opens the engine and starts the KVDB goroutine
func Open(cfg *config.LedgerConfig) (*KVDB, error) {
	gwlog.Infof("KVDB initializing, config:\n%s", config.DumpPretty(cfg))
	engine, err := OpenEngine(cfg)
	if err != nil {
		return nil, err
	}
	return newKVDB(*cfg, engine), nil
}

// OpenWithEngine starts the KVDB goroutine over an already opened engine
func OpenWithEngine(engine KVDBEngine) *KVDB {
	return newKVDB(config.LedgerConfig{}, engine)
}

func newKVDB(cfg config.LedgerConfig, engine KVDBEngine) *KVDB {
	db := &KVDB{
		cfg:        cfg,
		engine:     engine,
		opQueue:    xnsyncutil.NewSyncQueue(),
		terminated: xnsyncutil.NewOneTimeCond(),
	}
	go db.routine()
	return db
}

type getReq struct {
	key      string
	callback KVDBGetCallback
}

type putReq struct {
	key      string
	val      string
	callback KVDBPutCallback
}

type getRangeReq struct {
	beginKey string
	endKey   string
	callback KVDBGetRangeCallback
}

// Get queues a read of key
func (db *KVDB) Get(key string, callback KVDBGetCallback) {
	db.opQueue.Push(&getReq{
		key, callback,
	})
	db.checkOperationQueueLen()
}

// Put queues a write of key
func (db *KVDB) Put(key string, val string, callback KVDBPutCallback) {
	db.opQueue.Push(&putReq{
		key, val, callback,
	})
	db.checkOperationQueueLen()
}

// GetRange queues a read of all keys in [beginKey, endKey)
func (db *KVDB) GetRange(beginKey string, endKey string, callback KVDBGetRangeCallback) {
	db.opQueue.Push(&getRangeReq{
		beginKey, endKey, callback,
	})
	db.checkOperationQueueLen()
}

// Close stops the KVDB goroutine after all queued operations are done
func (db *KVDB) Close() {
	db.opQueue.Close()
}

// WaitTerminated waits for the KVDB goroutine to quit after Close
func (db *KVDB) WaitTerminated() {
	db.terminated.Wait()
}

func (db *KVDB) checkOperationQueueLen() {
	qlen := db.opQueue.Len()
	if qlen > 100 && qlen%100 == 0 && db.recentWarnedQueueLen != qlen {
		gwlog.Warnf("KVDB operation queue length = %d", qlen)
		db.recentWarnedQueueLen = qlen
	}
}

func (db *KVDB) assureEngineReady() (err error) {
	if db.engine != nil {
		return
	}
	if db.cfg.Type == "" {
		return errors.New("KVDB engine is closed")
	}
	db.engine, err = OpenEngine(&db.cfg)
	return
}

var reconnectInterval = consts.KVDB_RECONNECT_INTERVAL

func (db *KVDB) routine() {
	failures := 0
	for {
		err := db.assureEngineReady()
		if err != nil {
			failures++
			gwlog.Errorf("KVDB engine is not ready (%d/%d): %s", failures, consts.KVDB_RECONNECT_RETRIES, err)
			if db.cfg.Type == "" || failures >= consts.KVDB_RECONNECT_RETRIES {
				db.drain(err)
				break
			}
			time.Sleep(reconnectInterval)
			continue
		}
		failures = 0

		req := db.opQueue.Pop()
		if req == nil { // queue is closed, returning nil
			db.engine.Close()
			break
		}

		var op *opmon.Operation
		switch r := req.(type) {
		case *getReq:
			op = opmon.StartOperation("kvdb.get")
			db.handleGetReq(r)
		case *putReq:
			op = opmon.StartOperation("kvdb.put")
			db.handlePutReq(r)
		case *getRangeReq:
			op = opmon.StartOperation("kvdb.getRange")
			db.handleGetRangeReq(r)
		}
		op.Finish(consts.LEDGER_WARN_THRESHOLD)
	}

	db.terminated.Signal()
}

// drain fails every operation queued until Close, once the engine is gone for good
func (db *KVDB) drain(err error) {
	for {
		req := db.opQueue.Pop()
		if req == nil {
			return
		}
		switch r := req.(type) {
		case *getReq:
			if r.callback != nil {
				r.callback("", err)
			}
		case *putReq:
			if r.callback != nil {
				r.callback(err)
			}
		case *getRangeReq:
			if r.callback != nil {
				r.callback(nil, err)
			}
		}
	}
}

func (db *KVDB) checkConnection(err error) {
	if err != nil && db.engine.IsConnectionError(err) {
		db.engine.Close()
		db.engine = nil
	}
}

func (db *KVDB) handleGetReq(req *getReq) {
	val, err := db.engine.Get(req.key)
	if req.callback != nil {
		req.callback(val, err)
	}
	db.checkConnection(err)
}

func (db *KVDB) handlePutReq(req *putReq) {
	err := db.engine.Put(req.key, req.val)
	if req.callback != nil {
		req.callback(err)
	}
	db.checkConnection(err)
}

func (db *KVDB) handleGetRangeReq(req *getRangeReq) {
	it, err := db.engine.Find(req.beginKey, req.endKey)
	var items []KVItem
	if err == nil {
		items, err = ReadAll(it)
	}
	if req.callback != nil {
		req.callback(items, err)
	}
	db.checkConnection(err)
}
