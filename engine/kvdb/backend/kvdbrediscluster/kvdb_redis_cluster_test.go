package kvdbrediscluster

import (
	"io"
	"os"
	"strings"
	"testing"

	"github.com/bmizerany/assert"
	"github.com/xiaonanln/protopatch/engine/kvdb/types"
)

var _ kvdbtypes.KVDBEngine = (*redisClusterKVDB)(nil)

func TestClose(t *testing.T) {
	// the cluster client has no Close, closing the engine must not touch it
	db := &redisClusterKVDB{}
	db.Close()
	assert.T(t, db.IsConnectionError(io.EOF), "EOF is a connection error")
	assert.T(t, !db.IsConnectionError(nil), "nil is not a connection error")
}

// needs a running cluster, named by PROTOPATCH_TEST_REDIS_CLUSTER as comma separated start nodes
func TestRedisClusterKVDB(t *testing.T) {
	nodes := os.Getenv("PROTOPATCH_TEST_REDIS_CLUSTER")
	if nodes == "" {
		t.Skip("PROTOPATCH_TEST_REDIS_CLUSTER not set")
	}
	db, err := OpenRedisKVDB(strings.Split(nodes, ","))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	assert.Equal(t, nil, db.Put("patch/run/a", "1"))
	assert.Equal(t, nil, db.Put("patch/run/b", "2"))
	val, err := db.Get("patch/run/a")
	assert.Equal(t, nil, err)
	assert.Equal(t, "1", val)

	it, err := db.Find("patch/run/", kvdbtypes.PrefixEnd("patch/run/"))
	assert.Equal(t, nil, err)
	items, err := kvdbtypes.ReadAll(it)
	assert.Equal(t, nil, err)
	assert.Equal(t, 2, len(items))
	assert.Equal(t, "patch/run/b", items[1].Key)
}
