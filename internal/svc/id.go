package svc

import (
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"
	"time"

	"golang.org/x/crypto/blake2b"
)

// processNonce seeds id generation so ids are stable within a process run
// but do not collide with a previous run's ids if persisted (e.g. in the
// bbolt bookmark store). It is not a secret; blake2b is used here purely
// for its speed and good distribution, not for authentication.
var processNonce = func() [8]byte {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(time.Now().UnixNano()))
	return b
}()

var counter uint64

// NextID returns a unique, process-stable id for a newly constructed
// service of the given kind (spec §3.3: "unique id within the repository
// session").
func NextID(kind Kind) string {
	n := atomic.AddUint64(&counter, 1)

	var buf [8 + 8]byte
	copy(buf[:8], processNonce[:])
	binary.LittleEndian.PutUint64(buf[8:], n)

	sum := blake2b.Sum256(buf[:])
	return kind.String() + "-" + hex.EncodeToString(sum[:8])
}
