// Package backfill drives the auxiliary balances backfill job: given a
// granularity and a starting slot, find every slot in range missing a
// validator-balances snapshot, filter to the granularity's boundary slots,
// and fetch+write them with bounded fan-out.
package backfill

import (
	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/slots"
)

// Granularity selects which slots within a gap are eligible for a balances
// snapshot: every slot, or only the first slot of its epoch/hour/day.
type Granularity string

const (
	GranularitySlot  Granularity = "slot"
	GranularityEpoch Granularity = "epoch"
	GranularityHour  Granularity = "hour"
	GranularityDay   Granularity = "day"
)

// ParseGranularity parses the CLI/config string form of a Granularity.
func ParseGranularity(s string) (Granularity, error) {
	switch Granularity(s) {
	case GranularitySlot, GranularityEpoch, GranularityHour, GranularityDay:
		return Granularity(s), nil
	default:
		return "", fmt.Errorf("unknown backfill granularity %q", s)
	}
}

// Matches reports whether slot falls on this granularity's boundary.
func (g Granularity) Matches(slot slots.Slot) bool {
	switch g {
	case GranularitySlot:
		return true
	case GranularityEpoch:
		return slot.IsFirstOfEpoch()
	case GranularityHour:
		return slot.IsFirstOfHour()
	case GranularityDay:
		return slot.IsFirstOfDay()
	default:
		return false
	}
}
