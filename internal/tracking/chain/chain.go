// Package chain implements the tamper-evident custody hash chain.
//
// Each event's hash covers its action, location, timestamp, actor and the
// recomputed hash of its predecessor, so any retroactive edit breaks every
// later link. The digest lives behind Hasher so the function can be
// swapped without touching ledger logic.
package chain

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/crypto/sha3"

	"chaintrace/internal/geo"
	"chaintrace/internal/tracking/models"
	id "chaintrace/pkg/domain"
	dErrors "chaintrace/pkg/domain-errors"
)

// Hasher computes the content hash of a custody event.
type Hasher interface {
	Sum(action models.ActionKind, loc geo.Point, ts time.Time, actor id.ActorID, prevHash string) string
}

// SHA3Hasher hashes events with SHA3-256 over a canonical field encoding.
type SHA3Hasher struct{}

// Sum implements Hasher. Coordinates are fixed to six decimals and the
// timestamp to UTC nanoseconds so the encoding is stable across
// serialization round trips.
func (SHA3Hasher) Sum(action models.ActionKind, loc geo.Point, ts time.Time, actor id.ActorID, prevHash string) string {
	canonical := fmt.Sprintf("%s|%s|%s|%s|%s|%s",
		action,
		strconv.FormatFloat(loc.Lat, 'f', 6, 64),
		strconv.FormatFloat(loc.Lon, 'f', 6, 64),
		ts.UTC().Format(time.RFC3339Nano),
		actor.String(),
		prevHash,
	)
	sum := sha3.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

func hashOf(h Hasher, e models.CustodyEvent) string {
	return h.Sum(e.Action, e.Location, e.Timestamp, e.ActorID, e.PrevHash)
}

// Seal links e onto the chain ending at tail (nil for a new chain),
// filling PrevHash and Hash. The predecessor's hash is recomputed rather
// than trusted from storage.
//
// The timestamp is normalized to UTC microseconds before hashing: a
// timestamptz column keeps microsecond precision, so a hash over
// nanoseconds would stop verifying after a storage round trip.
func Seal(h Hasher, tail *models.CustodyEvent, e models.CustodyEvent) models.CustodyEvent {
	e.Timestamp = e.Timestamp.UTC().Truncate(time.Microsecond)
	if tail != nil {
		e.PrevHash = hashOf(h, *tail)
	} else {
		e.PrevHash = ""
	}
	e.Hash = hashOf(h, e)
	return e
}

// Verify walks the chain head to tail, recomputing every hash and
// previous-hash link. The first mismatch yields a CodeIntegrity error
// naming the offending index; callers must surface it, never repair it.
func Verify(h Hasher, events []models.CustodyEvent) error {
	prev := ""
	for i, e := range events {
		if e.PrevHash != prev {
			return dErrors.Newf(dErrors.CodeIntegrity, "custody chain broken at event %d: previous-hash link mismatch", i)
		}
		got := hashOf(h, e)
		if got != e.Hash {
			return dErrors.Newf(dErrors.CodeIntegrity, "custody chain broken at event %d: content hash mismatch", i)
		}
		prev = got
	}
	return nil
}
