package kvdbsqlite

import (
	"database/sql"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"github.com/xiaonanln/protopatch/engine/gwlog"
	"github.com/xiaonanln/protopatch/engine/kvdb/types"
	_ "modernc.org/sqlite"
)

type sqliteKVDB struct {
	path string
	db   *sql.DB
}

// OpenSQLiteKVDB opens a sqlite file as KVDB engine, ":memory:" opens an in-memory database
func OpenSQLiteKVDB(path string) (kvdbtypes.KVDBEngine, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// one connection, so that :memory: databases are shared by all queries
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping sqlite")
	}

	_, err = db.Exec("CREATE TABLE IF NOT EXISTS `__kv__`(`key` TEXT NOT NULL PRIMARY KEY, `val` BLOB NOT NULL)")
	if err != nil {
		db.Close()
		return nil, errors.Wrap(err, "create kv table")
	}

	return &sqliteKVDB{
		path: path,
		db:   db,
	}, nil
}

func (kvdb *sqliteKVDB) String() string {
	return fmt.Sprintf("sqlite<%s>", kvdb.path)
}

func (kvdb *sqliteKVDB) Get(key string) (val string, err error) {
	var b []byte
	row := kvdb.db.QueryRow("SELECT `val` FROM `__kv__` WHERE `key` = ?", key)
	err = row.Scan(&b)
	if err == sql.ErrNoRows {
		err = nil // not found, use default val ""
	}
	val = string(b)
	return
}

func (kvdb *sqliteKVDB) Put(key string, val string) (err error) {
	_, err = kvdb.db.Exec("INSERT OR REPLACE INTO `__kv__`(`key`, `val`) VALUES(?, ?)", key, []byte(val))
	return
}

type sqliteKVDBIterator struct {
	rows *sql.Rows
}

func (it *sqliteKVDBIterator) Next() (kvdbtypes.KVItem, error) {
	if it.rows.Next() {
		var item kvdbtypes.KVItem
		var b []byte
		err := it.rows.Scan(&item.Key, &b)
		item.Val = string(b)
		return item, err
	}

	err := it.rows.Err()
	it.rows.Close()
	if err != nil {
		return kvdbtypes.KVItem{}, err
	}
	return kvdbtypes.KVItem{}, io.EOF
}

func (kvdb *sqliteKVDB) Find(beginKey string, endKey string) (kvdbtypes.Iterator, error) {
	rows, err := kvdb.db.Query("SELECT `key`, `val` FROM `__kv__` WHERE `key` >= ? AND `key` < ? ORDER BY `key`", beginKey, endKey)
	if err != nil {
		return nil, err
	}

	return &sqliteKVDBIterator{
		rows: rows,
	}, nil
}

func (kvdb *sqliteKVDB) Close() {
	if err := kvdb.db.Close(); err != nil {
		gwlog.Errorf("%s: close error: %s", kvdb.String(), err)
	}
}

func (kvdb *sqliteKVDB) IsConnectionError(err error) bool {
	return false
}
