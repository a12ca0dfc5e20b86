package memory

import (
	"hash/fnv"
	"sync"
)

const mutexShards = 64

// KeyedMutex serializes work per key across a fixed shard set, so two
// messages from the same phone number can never interleave while distinct
// numbers proceed in parallel.
type KeyedMutex struct {
	shards [mutexShards]sync.Mutex
}

// NewKeyedMutex creates the sharded lock.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the shard owning key and returns its unlock function.
func (k *KeyedMutex) Lock(key string) func() {
	shard := &k.shards[shardIndex(key)]
	shard.Lock()
	return shard.Unlock
}

func shardIndex(key string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(key))
	return h.Sum32() % mutexShards
}
