package state

import (
	"errors"
	"math/big"
	"testing"

	"creditpool/storage"
)

type storedCounter struct {
	Value *big.Int
	Label string
}

func TestManagerStagesUntilCommit(t *testing.T) {
	db := storage.NewMemDB()
	defer db.Close()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("counter"), &storedCounter{Value: big.NewInt(7), Label: "a"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("expected nothing written before commit, got %d keys", db.Len())
	}
	var got storedCounter
	ok, err := mgr.KVGet([]byte("counter"), &got)
	if err != nil || !ok {
		t.Fatalf("expected staged value to be visible: ok=%v err=%v", ok, err)
	}
	if got.Value.Cmp(big.NewInt(7)) != 0 || got.Label != "a" {
		t.Fatalf("unexpected staged value %+v", got)
	}
	if mgr.Pending() != 1 {
		t.Fatalf("expected one pending write, got %d", mgr.Pending())
	}

	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if mgr.Pending() != 0 || db.Len() != 1 {
		t.Fatalf("expected write to be flushed: pending=%d keys=%d", mgr.Pending(), db.Len())
	}

	reopened := NewManager(db)
	var persisted storedCounter
	if ok, err := reopened.KVGet([]byte("counter"), &persisted); err != nil || !ok {
		t.Fatalf("expected committed value: ok=%v err=%v", ok, err)
	}
	if persisted.Value.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("unexpected persisted value %s", persisted.Value)
	}
}

func TestManagerDiscard(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	if err := mgr.KVPut([]byte("k"), &storedCounter{Value: big.NewInt(1)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	if err := mgr.KVPut([]byte("k"), &storedCounter{Value: big.NewInt(2)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.KVDelete([]byte("other")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	mgr.Discard()

	var got storedCounter
	if ok, err := mgr.KVGet([]byte("k"), &got); err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.Value.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("expected discarded write to vanish, got %s", got.Value)
	}
	if mgr.Pending() != 0 {
		t.Fatalf("expected no pending writes after discard")
	}
}

func TestManagerDeleteHidesCommittedValue(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.KVPut([]byte("k"), &storedCounter{Value: big.NewInt(1)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := mgr.KVDelete([]byte("k")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if ok, err := mgr.KVGet([]byte("k"), nil); err != nil || ok {
		t.Fatalf("expected staged delete to hide value: ok=%v err=%v", ok, err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if ok, _ := mgr.KVGet([]byte("k"), nil); ok {
		t.Fatalf("expected value to be deleted")
	}
}

func TestManagerListHelpers(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	key := []byte("index")
	for _, v := range []string{"a", "b", "a", "c"} {
		if err := mgr.KVAppend(key, []byte(v)); err != nil {
			t.Fatalf("append %s: %v", v, err)
		}
	}
	var list [][]byte
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 3 || string(list[0]) != "a" || string(list[2]) != "c" {
		t.Fatalf("unexpected list %q", list)
	}
	if err := mgr.KVRemove(key, []byte("b")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := mgr.KVGetList(key, &list); err != nil {
		t.Fatalf("get list: %v", err)
	}
	if len(list) != 2 || string(list[1]) != "c" {
		t.Fatalf("unexpected list after remove %q", list)
	}

	var empty [][]byte
	if err := mgr.KVGetList([]byte("missing"), &empty); err != nil {
		t.Fatalf("get missing list: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
	if err := mgr.KVGetList([]byte("missing"), empty); err == nil {
		t.Fatalf("expected non-pointer destination to fail")
	}
}

func TestManagerRejectsEmptyKey(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.KVPut(nil, &storedCounter{}); err == nil {
		t.Fatalf("expected empty key to fail")
	}
	if _, err := mgr.KVGet(nil, nil); err == nil {
		t.Fatalf("expected empty key to fail")
	}
}

type failingBatchDB struct {
	*storage.MemDB
}

var errBatchRejected = errors.New("batch rejected")

func (db failingBatchDB) NewBatch() storage.Batch { return failingBatch{} }

type failingBatch struct{}

func (failingBatch) Put([]byte, []byte) {}
func (failingBatch) Delete([]byte)      {}
func (failingBatch) Len() int           { return 0 }
func (failingBatch) Write() error       { return errBatchRejected }

func TestManagerCommitFailureDropsStagedWrites(t *testing.T) {
	mgr := NewManager(failingBatchDB{storage.NewMemDB()})
	if err := mgr.KVPut([]byte("k"), &storedCounter{Value: big.NewInt(1)}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := mgr.Commit(); !errors.Is(err, errBatchRejected) {
		t.Fatalf("expected batch error, got %v", err)
	}
	if ok, _ := mgr.KVGet([]byte("k"), nil); ok {
		t.Fatalf("expected failed commit to drop staged write")
	}
}
