package kvdbrediscluster

import (
	"io"
	"time"

	rediscluster "github.com/chasex/redis-go-cluster"
	"github.com/garyburd/redigo/redis"
	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/kvdb/types"
)

const (
	keyPrefix = "_KV_"
	// keys of a cluster live on many nodes, so Find walks a sorted set holding every key
	keyIndex = "_KVINDEX_"
)

type redisClusterKVDB struct {
	c rediscluster.Cluster
}

// OpenRedisKVDB opens Redis cluster for KVDB backend
func OpenRedisKVDB(startNodes []string) (kvdbtypes.KVDBEngine, error) {
	c, err := rediscluster.NewCluster(&rediscluster.Options{
		StartNodes:   startNodes,
		ConnTimeout:  10 * time.Second, // Connection timeout
		ReadTimeout:  60 * time.Second, // Read timeout
		WriteTimeout: 60 * time.Second, // Write timeout
		KeepAlive:    1,                // Maximum keep alive connecion in each node
		AliveTime:    10 * time.Minute, // Keep alive timeout
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect redis cluster failed")
	}

	return &redisClusterKVDB{
		c: c,
	}, nil
}

func (db *redisClusterKVDB) Get(key string) (val string, err error) {
	r, err := db.c.Do("GET", keyPrefix+key)
	if err != nil {
		return "", err
	}
	if r == nil {
		return "", nil
	}
	return string(r.([]byte)), err
}

func (db *redisClusterKVDB) Put(key string, val string) error {
	if _, err := db.c.Do("SET", keyPrefix+key, val); err != nil {
		return err
	}
	_, err := db.c.Do("ZADD", keyIndex, 0, key)
	return err
}

type redisClusterKVDBIterator struct {
	db       *redisClusterKVDB
	leftKeys []string
}

func (it *redisClusterKVDBIterator) Next() (kvdbtypes.KVItem, error) {
	if len(it.leftKeys) == 0 {
		return kvdbtypes.KVItem{}, io.EOF
	}

	key := it.leftKeys[0]
	it.leftKeys = it.leftKeys[1:]
	val, err := it.db.Get(key)
	if err != nil {
		return kvdbtypes.KVItem{}, err
	}

	return kvdbtypes.KVItem{Key: key, Val: val}, nil
}

func (db *redisClusterKVDB) Find(beginKey string, endKey string) (kvdbtypes.Iterator, error) {
	keys, err := redis.Strings(db.c.Do("ZRANGEBYLEX", keyIndex, "["+beginKey, "("+endKey))
	if err != nil {
		return nil, errors.Wrap(err, "redis cluster find")
	}
	return &redisClusterKVDBIterator{
		db:       db,
		leftKeys: keys,
	}, nil
}

// Close is a no-op, the cluster client keeps its own node connections
func (db *redisClusterKVDB) Close() {
}

func (db *redisClusterKVDB) IsConnectionError(err error) bool {
	return err == io.EOF || err == io.ErrUnexpectedEOF
}
