// Package id generates simulation identifiers.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// Monotonic entropy keeps ids generated in the same millisecond strictly
	// increasing, so two simulations never share an id.
	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// NewAt returns a ULID whose timestamp component is t. Ids sort
// lexicographically in creation order, which is what listing newest-first
// relies on.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t.UTC()), mono)
	if err != nil {
		// Only fails if the monotonic entropy overflows within one millisecond.
		panic(err)
	}
	return id.String()
}
