package sync

import (
	"context"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/db"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// FindAncestor walks backward from candidate, linearly, until it finds a
// slot whose stored and live state roots both exist and agree, and returns
// it. The walk is intentionally linear rather than binary-searched: stored
// gaps (missed proposals) break the monotonicity a binary search needs.
func FindAncestor(ctx context.Context, pool *db.Pool, client beaconapi.Client, candidate slots.Slot) (slots.Slot, error) {
	c := candidate
	for {
		stored, err := db.GetStateRootBySlot(ctx, pool, c)
		if err != nil {
			return 0, errors.Wrapf(err, "could not load stored state root for slot %d", c)
		}
		live, err := client.GetStateRootBySlot(ctx, c)
		if err != nil {
			return 0, errors.Wrapf(err, "could not load live state root for slot %d", c)
		}
		if stored != nil && live != nil && *stored == *live {
			return c, nil
		}
		if c == slots.GenesisSlot {
			log.WithField("candidate", candidate).Error("ancestor finder reached genesis without a match")
			return 0, ErrAncestorNotFound
		}
		c = c.Sub(1)
	}
}
