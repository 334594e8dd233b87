package keymap

import (
	"crypto/rand"
	"encoding/binary"
	"sync"

	"github.com/dchest/siphash"
	"github.com/pkg/errors"
)

// hashCounter derives a pseudo-random 64-bit value from (k0, k1) via
// SipHash-2-4 counter mode: the "message" is just the counter and a
// 1-byte domain-separation tag, per spec.md §5 ("the generator is a
// SipHash-2-4 counter mode over the seed").
func hashCounter(k0, k1, counter uint64, which byte) uint64 {
	var buf [9]byte
	binary.LittleEndian.PutUint64(buf[0:8], counter)
	buf[8] = which
	return siphash.Hash(k0, k1, buf[:])
}

// secret is the process-wide SipHash key material. It is lazily seeded
// from OS entropy on first use, guarded by mu, per spec.md §5: "The only
// process-wide state is the random-secret source used to seed per-KeyMap
// hash secrets."
var (
	mu       sync.Mutex
	seeded   bool
	seedFail error
	k0, k1   uint64
)

// SeedDeterministic explicitly seeds the process-wide secret source from
// a caller-supplied 16-byte value, for reproducible test output. Per
// spec.md §5, this is the "explicit initializer" platforms without OS
// entropy must call before any KeyMap is created.
func SeedDeterministic(key [16]byte) {
	mu.Lock()
	defer mu.Unlock()
	k0 = binary.LittleEndian.Uint64(key[0:8])
	k1 = binary.LittleEndian.Uint64(key[8:16])
	seeded = true
	seedFail = nil
}

func ensureSeeded() error {
	mu.Lock()
	defer mu.Unlock()
	if seeded {
		return seedFail
	}
	var buf [16]byte
	if _, err := rand.Read(buf[:]); err != nil {
		seedFail = errors.Wrap(err, "seed keymap secret from OS entropy")
		seeded = true
		return seedFail
	}
	k0 = binary.LittleEndian.Uint64(buf[0:8])
	k1 = binary.LittleEndian.Uint64(buf[8:16])
	seeded = true
	return nil
}

// newInstanceSecret draws a fresh 16-byte per-instance SipHash key from
// the seeded process-wide generator, run in SipHash-2-4 counter mode
// over the seed so that distinct KeyMaps get distinct secrets without a
// second call into the OS.
var counter uint64

func newInstanceSecret() (a, b uint64, err error) {
	if err := ensureSeeded(); err != nil {
		return 0, 0, err
	}
	mu.Lock()
	n := counter
	counter++
	mu.Unlock()
	return hashCounter(k0, k1, n, 0), hashCounter(k0, k1, n, 1), nil
}
