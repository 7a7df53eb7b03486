// Package ids generates the typed identifiers used across all lore stores.
package ids

import (
	"crypto/md5"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/lorehq/lore/internal/types"
)

// randHex returns n random hex characters.
func randHex(n int) string {
	buf := make([]byte, (n+1)/2)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand failing means the platform is broken; fall back to
		// a time-derived value rather than panicking in a CLI path.
		return fmt.Sprintf("%x", time.Now().UnixNano())[:n]
	}
	return fmt.Sprintf("%x", buf)[:n]
}

// NewDecisionID returns a fresh dec-<8 hex> identifier.
func NewDecisionID() string { return "dec-" + randHex(8) }

// NewPatternID returns a fresh pat-<8 hex> identifier.
func NewPatternID() string { return "pat-" + randHex(8) }

// NewAntiPatternID returns a fresh anti-<8 hex> identifier.
func NewAntiPatternID() string { return "anti-" + randHex(8) }

// NewFailureID returns a fresh fail-<8 hex> identifier.
func NewFailureID() string { return "fail-" + randHex(8) }

// NewObservationID returns a fresh obs-<8 hex> identifier.
func NewObservationID() string { return "obs-" + randHex(8) }

// NewSessionID returns session-YYYYMMDD-HHMMSS-<4 hex> for the given start time.
func NewSessionID(t time.Time) string {
	return fmt.Sprintf("session-%s-%s", t.UTC().Format("20060102-150405"), randHex(4))
}

// NewGoalID returns goal-<unix epoch>-<4 hex> for the given creation time.
func NewGoalID(t time.Time) string {
	return fmt.Sprintf("goal-%d-%s", t.UTC().Unix(), randHex(4))
}

// NodeID computes the deterministic graph node key for (type, name):
// "<type>-" + hex(md5(name))[0:8]. Re-adding a node with the same type
// and name always resolves to the same key.
func NodeID(nodeType types.NodeType, name string) string {
	sum := md5.Sum([]byte(name))
	return fmt.Sprintf("%s-%x", nodeType, sum)[:len(nodeType)+1+8]
}

// Now returns the write-time timestamp contract: UTC, second precision.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
