package kvdbmongo

import (
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/consts"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"github.com/xiaonanln/protopatch/engine/kvdb/types"
	"gopkg.in/mgo.v2"
	"gopkg.in/mgo.v2/bson"
)

const (
	_DEFAULT_DB_NAME = "protopatch"
	_RUN_KEY         = "run"
	_VAL_KEY         = "v"
)

// kvDoc is one stored item, ledger items also carry their run id
type kvDoc struct {
	Key string `bson:"_id"`
	Run string `bson:"run,omitempty"`
	Val string `bson:"v"`
}

type mongoKVDB struct {
	s *mgo.Session
	c *mgo.Collection
}

// OpenMongoKVDB opens mongodb as KVDB engine
//
// Writes are acknowledged, so a flushed ledger is stored.
func OpenMongoKVDB(url string, dbname string, collectionName string) (kvdbtypes.KVDBEngine, error) {
	gwlog.Debugf("Connecting MongoDB ...")
	session, err := mgo.Dial(url)
	if err != nil {
		return nil, err
	}

	session.SetMode(mgo.Monotonic, true)
	session.SetSafe(&mgo.Safe{})
	if dbname == "" {
		dbname = _DEFAULT_DB_NAME
	}
	c := session.DB(dbname).C(collectionName)
	if err := c.EnsureIndexKey(_RUN_KEY); err != nil {
		session.Close()
		return nil, errors.Wrap(err, "mongodb ensure run index")
	}
	return &mongoKVDB{
		s: session,
		c: c,
	}, nil
}

// runOfKey extracts <run> from a ledger key patch/<run>/<target>/<path>/<seq>
func runOfKey(key string) string {
	if !strings.HasPrefix(key, consts.LEDGER_KEY_PREFIX) {
		return ""
	}
	rest := key[len(consts.LEDGER_KEY_PREFIX):]
	i := strings.IndexByte(rest, '/')
	if i <= 0 {
		return ""
	}
	return rest[:i]
}

func (kvdb *mongoKVDB) Put(key string, val string) error {
	doc := bson.M{_VAL_KEY: val}
	if run := runOfKey(key); run != "" {
		doc[_RUN_KEY] = run
	}
	_, err := kvdb.c.UpsertId(key, doc)
	return err
}

func (kvdb *mongoKVDB) Get(key string) (val string, err error) {
	var doc kvDoc
	err = kvdb.c.FindId(key).One(&doc)
	if err != nil {
		if err == mgo.ErrNotFound {
			err = nil
		}
		return
	}
	val = doc.Val
	return
}

type mongoKVIterator struct {
	it *mgo.Iter
}

func (it *mongoKVIterator) Next() (kvdbtypes.KVItem, error) {
	var doc kvDoc
	if it.it.Next(&doc) {
		return kvdbtypes.KVItem{
			Key: doc.Key,
			Val: doc.Val,
		}, nil
	}

	if err := it.it.Close(); err != nil {
		return kvdbtypes.KVItem{}, err
	}
	return kvdbtypes.KVItem{}, io.EOF
}

// Find walks [beginKey, endKey) in key order
//
// A range covering exactly one ledger run is answered from the run index.
func (kvdb *mongoKVDB) Find(beginKey string, endKey string) (kvdbtypes.Iterator, error) {
	query := bson.M{"_id": bson.M{"$gte": beginKey, "$lt": endKey}}
	if run := runOfKey(beginKey); run != "" && beginKey == consts.LEDGER_KEY_PREFIX+run+"/" {
		query[_RUN_KEY] = run
	}
	q := kvdb.c.Find(query).Sort("_id")
	return &mongoKVIterator{
		it: q.Iter(),
	}, nil
}

func (kvdb *mongoKVDB) Close() {
	kvdb.s.Close()
}

func (kvdb *mongoKVDB) IsConnectionError(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
