package embedding

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketVectors = []byte("vectors")

// Cache persists embeddings keyed by model stamp and text so a rebuild over an
// unchanged corpus does not call the provider again.
type Cache struct {
	db *bbolt.DB
}

// OpenCache opens (or creates) the bbolt cache file at path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketVectors)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create vectors bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

// Get returns the cached vector for text under stamp.
func (c *Cache) Get(stamp, text string) ([]float32, bool) {
	var vec []float32
	_ = c.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		if b == nil {
			return nil
		}
		if v := b.Get(cacheKey(stamp, text)); v != nil {
			vec = decodeVector(v)
		}
		return nil
	})
	return vec, vec != nil
}

// Put stores vectors for texts under stamp in a single transaction.
func (c *Cache) Put(stamp string, texts []string, vectors [][]float32) error {
	if len(texts) != len(vectors) {
		return fmt.Errorf("texts and vectors length mismatch")
	}
	return c.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketVectors)
		for i, text := range texts {
			if len(vectors[i]) == 0 {
				continue
			}
			if err := b.Put(cacheKey(stamp, text), encodeVector(vectors[i])); err != nil {
				return err
			}
		}
		return nil
	})
}

// Len returns the number of cached vectors.
func (c *Cache) Len() int {
	n := 0
	_ = c.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketVectors).Stats().KeyN
		return nil
	})
	return n
}

func (c *Cache) Close() error {
	return c.db.Close()
}

func cacheKey(stamp, text string) []byte {
	h := sha256.New()
	h.Write([]byte(stamp))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return h.Sum(nil)
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	if len(buf)%4 != 0 {
		return nil
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec
}
