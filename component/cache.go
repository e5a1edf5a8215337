package component

import (
	"bytes"
	"encoding/gob"
	"hash/fnv"
	"io"
	"sort"
	"strconv"
	"sync"

	lru "github.com/hashicorp/golang-lru"
	"github.com/peterbourgon/diskv"
	"github.com/pkg/errors"
)

// ErrCacheMiss is returned by a Cache when no entry exists for a key.
var ErrCacheMiss = errors.New("cache miss error")

// Key identifies a cached prediction: one model applied to one input table,
// identified by its content fingerprint.
type Key struct {
	Model string
	Table uint64
}

func (k Key) String() string {
	return k.Model + "-" + strconv.FormatUint(k.Table, 16)
}

// instanceKey derives the model half of a cache Key from a model's type name
// and its parameters. Instances of the same type built over different
// parameters must never share cache entries, so the parameters are hashed
// into the key the same way input tables are fingerprinted.
func instanceKey(name string, scalars []float64, params ...map[string]float64) string {
	h := fnv.New64a()
	io.WriteString(h, name)
	for _, s := range scalars {
		io.WriteString(h, "\x00"+strconv.FormatFloat(s, 'g', -1, 64))
	}
	for _, p := range params {
		keys := make([]string, 0, len(p))
		for k := range p {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		io.WriteString(h, "\x01")
		for _, k := range keys {
			io.WriteString(h, "\x00"+k+"\x00"+strconv.FormatFloat(p[k], 'g', -1, 64))
		}
	}
	return name + "-" + strconv.FormatUint(h.Sum64(), 16)
}

// Cache models a way to cache (either persistent or not) component-model
// predictions.
type Cache interface {
	Get(key Key) (map[string][]float64, error)
	Set(key Key, columns map[string][]float64) error
	Reset() error
}

// mapCache guards its map with a mutex: presentation models sharing one
// component instance may be fit concurrently.
type mapCache struct {
	mu *sync.RWMutex
	m  map[Key]map[string][]float64
}

func (c mapCache) Get(key Key) (map[string][]float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if columns, ok := c.m[key]; ok {
		return columns, nil
	}
	return nil, ErrCacheMiss
}

func (c mapCache) Set(key Key, columns map[string][]float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = columns
	return nil
}

func (c mapCache) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.m {
		delete(c.m, k)
	}
	return nil
}

// NewMapCache creates a prediction cache out of a regular go map.
func NewMapCache() Cache {
	return mapCache{mu: new(sync.RWMutex), m: make(map[Key]map[string][]float64)}
}

type lruCache struct {
	arc *lru.ARCCache
}

func (c lruCache) Get(key Key) (map[string][]float64, error) {
	if v, ok := c.arc.Get(key); ok {
		return v.(map[string][]float64), nil
	}
	return nil, ErrCacheMiss
}

func (c lruCache) Set(key Key, columns map[string][]float64) error {
	c.arc.Add(key, columns)
	return nil
}

func (c lruCache) Reset() error {
	c.arc.Purge()
	return nil
}

// NewLRUCache creates a bounded in-memory prediction cache holding at most
// size tables.
func NewLRUCache(size int) (Cache, error) {
	arc, err := lru.NewARC(size)
	if err != nil {
		return nil, err
	}
	return lruCache{arc: arc}, nil
}

type diskvCache struct {
	*diskv.Diskv
}

func (d diskvCache) Get(key Key) (map[string][]float64, error) {
	b, err := d.Read(key.String())
	if err != nil {
		return nil, ErrCacheMiss
	}
	var columns map[string][]float64
	if err := gob.NewDecoder(bytes.NewReader(b)).Decode(&columns); err != nil {
		return nil, err
	}
	return columns, nil
}

func (d diskvCache) Set(key Key, columns map[string][]float64) error {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(columns); err != nil {
		return err
	}
	return d.Write(key.String(), buf.Bytes())
}

func (d diskvCache) Reset() error {
	return d.EraseAll()
}

// NewDiskvCache creates a new on-disk prediction cache with the specified
// diskv parameters.
func NewDiskvCache(dv *diskv.Diskv) Cache {
	return diskvCache{dv}
}
