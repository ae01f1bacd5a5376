package record

import (
	"encoding/hex"

	"github.com/google/uuid"
)

// IDLength is the length of a rendered id: 128 bits as lowercase hex.
const IDLength = 32

// IDGenerator produces fresh unique ids for nodes, branches, groups,
// chats and transactions.
type IDGenerator interface {
	NewID() string
}

// RandomIDs generates random UUIDv4 ids rendered as 32 hex characters.
//
// Thread-safety: RandomIDs is stateless and safe for concurrent use.
type RandomIDs struct{}

// NewID returns a fresh id. Panics if the system entropy source fails.
func (RandomIDs) NewID() string {
	u := uuid.Must(uuid.NewRandom())
	return hex.EncodeToString(u[:])
}

// NewID returns a fresh random id.
func NewID() string {
	return RandomIDs{}.NewID()
}

// IsValidID reports whether s has the shape of a rendered id.
// Used to reject torn or corrupt branch pointer reads.
func IsValidID(s string) bool {
	if len(s) != IDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
			return false
		}
	}
	return true
}
