// Package slots provides the slot/time arithmetic that every other package
// in this module builds on: mapping a beacon chain slot number to wall-clock
// time, epoch, and hour/day boundaries.
package slots

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Genesis is the wall-clock instant of slot 0 on mainnet.
var Genesis = time.Date(2020, time.December, 1, 12, 0, 23, 0, time.UTC)

const (
	// SecondsPerSlot is the fixed beacon chain slot duration.
	SecondsPerSlot = 12
	// SlotsPerEpoch is the number of slots in one epoch.
	SlotsPerEpoch = 32

	// ShapellaSlot is the fork slot at which withdrawals became valid
	// block contents. Aggregated withdrawal sums are zero before it.
	ShapellaSlot = Slot(6209536)
	// FirstPostMergeSlot is the first slot following the merge to proof
	// of stake, used as a backfill starting point.
	FirstPostMergeSlot = Slot(4700013)
	// FirstPostLondonSlot is the first slot following the London hard
	// fork, used as a backfill starting point.
	FirstPostLondonSlot = Slot(1778566)
)

// GenesisParentRoot is the sentinel parent_root of the genesis block: 32
// zero bytes, hex-encoded with a leading 0x.
var GenesisParentRoot = "0x" + strings.Repeat("00", 32)

// Slot is a monotone, non-negative slot number counted from genesis. It
// wraps a signed 32-bit integer, matching the upstream beacon API's use of
// decimal-string-encoded slots that always fit in an i32.
type Slot int32

// GenesisSlot is the reserved, always-present slot 0.
const GenesisSlot = Slot(0)

// Add returns slot+n.
func (s Slot) Add(n int32) Slot { return s + Slot(n) }

// Sub returns slot-n.
func (s Slot) Sub(n int32) Slot { return s - Slot(n) }

// String implements fmt.Stringer.
func (s Slot) String() string { return strconv.Itoa(int(s)) }

// DateTime maps the slot to the wall-clock instant it opens.
func (s Slot) DateTime() time.Time {
	return Genesis.Add(time.Duration(int64(s)*SecondsPerSlot) * time.Second)
}

// Epoch returns the epoch the slot belongs to.
func (s Slot) Epoch() int32 {
	return int32(s) / SlotsPerEpoch
}

// IsFirstOfEpoch reports whether the slot is the first of its epoch.
func (s Slot) IsFirstOfEpoch() bool {
	return int32(s)%SlotsPerEpoch == 0
}

// IsFirstOfDay reports whether the slot is the first whose date_time falls
// on a new calendar day relative to the previous slot. Slot 0 is always
// first-of-day.
func (s Slot) IsFirstOfDay() bool {
	if s == GenesisSlot {
		return true
	}
	return (s - 1).DateTime().Day() != s.DateTime().Day()
}

// IsFirstOfHour reports whether the slot is the first whose date_time falls
// in a new hour relative to the previous slot. Slot 0 is always
// first-of-hour.
func (s Slot) IsFirstOfHour() bool {
	if s == GenesisSlot {
		return true
	}
	return (s - 1).DateTime().Hour() != s.DateTime().Hour()
}

// IsFirstOfMinute reports whether the slot is the first whose date_time
// falls in a new minute relative to the previous slot. Slot 0 is always
// first-of-minute.
func (s Slot) IsFirstOfMinute() bool {
	if s == GenesisSlot {
		return true
	}
	return (s - 1).DateTime().Minute() != s.DateTime().Minute()
}

// FromDateTime maps a wall-clock instant back to a slot, returning false if
// the instant does not fall exactly on a slot boundary.
func FromDateTime(t time.Time) (Slot, bool) {
	secondsSinceGenesis := t.Unix() - Genesis.Unix()
	if secondsSinceGenesis%SecondsPerSlot != 0 {
		return 0, false
	}
	return Slot(secondsSinceGenesis / SecondsPerSlot), true
}

// FromDateTimeRoundedDown returns the most recent slot at or before t.
func FromDateTimeRoundedDown(t time.Time) Slot {
	diff := t.Sub(Genesis)
	return Slot(int64(diff/time.Second) / SecondsPerSlot)
}

// ParseSlot parses the decimal-string slot encoding used throughout the
// beacon API (head events, header responses, ...).
func ParseSlot(s string) (Slot, error) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("parsing slot %q: %w", s, err)
	}
	return Slot(n), nil
}

// MarshalJSON renders the slot as a quoted decimal string, the same
// encoding UnmarshalJSON accepts. Job-progress checkpoints are stored in
// this form.
func (s Slot) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(s.String())), nil
}

// UnmarshalJSON parses a decimal-string-encoded slot, as returned by every
// beacon API endpoint that carries one.
func (s *Slot) UnmarshalJSON(data []byte) error {
	unquoted, err := strconv.Unquote(string(data))
	if err != nil {
		return fmt.Errorf("unquoting slot %s: %w", data, err)
	}
	parsed, err := ParseSlot(unquoted)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}
