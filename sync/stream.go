package sync

import (
	"context"
	"fmt"

	"github.com/Rurutia1027/eth-analysis-backend/beaconapi"
	"github.com/Rurutia1027/eth-analysis-backend/slots"
	log "github.com/sirupsen/logrus"
)

// SlotStream produces an ordered, forever-flowing sequence of slots starting
// at the slot passed to Start: first the finite historical range up to the
// node's head at subscription time, then the live head-event feed with
// gaps filled in.
type SlotStream struct {
	client beaconapi.Client
}

// NewSlotStream builds a stream reading from client.
func NewSlotStream(client beaconapi.Client) *SlotStream {
	return &SlotStream{client: client}
}

// Start begins producing slots from start onward on the returned channel.
// The channel is closed when ctx is cancelled or the underlying live feed
// terminates. A fatal error (SSE parse failure, transport failure) is sent
// on the returned error channel and then both channels close.
func (s *SlotStream) Start(ctx context.Context, start slots.Slot) (<-chan slots.Slot, <-chan error) {
	out := make(chan slots.Slot)
	errs := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errs)

		head, err := s.client.GetLastHeader(ctx)
		if err != nil {
			errs <- fmt.Errorf("slot stream: fetching head header: %w", err)
			return
		}

		liveEvents, liveErrs := s.client.StreamHeadEvents(ctx, start)

		historical := slots.NewRange(start, head.Header.Message.Slot)
		lastDelivered := start - 1
		for {
			slot, ok := historical.Next()
			if !ok {
				break
			}
			select {
			case out <- slot:
				lastDelivered = slot
			case <-ctx.Done():
				return
			}
		}

		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-liveErrs:
				if ok && err != nil {
					errs <- fmt.Errorf("slot stream: live feed: %w", err)
					return
				}
			case ev, ok := <-liveEvents:
				if !ok {
					log.Warn("slot stream: live head-event feed closed")
					return
				}
				if ev.Slot <= lastDelivered {
					log.WithFields(log.Fields{"slot": ev.Slot, "last_delivered": lastDelivered}).
						Debug("slot stream: discarding stale or duplicate head event")
					continue
				}
				for next := lastDelivered + 1; next <= ev.Slot; next++ {
					select {
					case out <- next:
						lastDelivered = next
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return out, errs
}
