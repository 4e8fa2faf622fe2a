package normalize

import (
	"fmt"

	"prediction-pnl-lab/internal/domain"
)

// CollapseSelfFills removes matched maker/taker pairs where the same
// wallet sits on both sides of one exchange-internal fill.
//
// The match is at event granularity: both legs must agree on
// (transaction, token, quantity, timestamp) and carry opposite sides with
// distinct roles. Collapsing at transaction granularity would silently
// delete legitimate volume from another market that happened to share the
// transaction, so unrelated legs in the same transaction survive intact.
func CollapseSelfFills(events []*domain.RawEvent) (kept []*domain.RawEvent, collapsed int) {
	type legSet struct {
		acquires []*domain.RawEvent
		disposes []*domain.RawEvent
	}

	fills := make(map[string]*legSet)
	for _, e := range events {
		if e.Kind != domain.EventKindTrade {
			continue
		}
		key := selfFillKey(e)
		set, ok := fills[key]
		if !ok {
			set = &legSet{}
			fills[key] = set
		}
		if e.Side() == domain.ActionAcquire {
			set.acquires = append(set.acquires, e)
		} else {
			set.disposes = append(set.disposes, e)
		}
	}

	// Pair opposite-side legs with distinct roles, earliest first.
	drop := make(map[int64]bool)
	for _, set := range fills {
		for _, acq := range set.acquires {
			for _, dis := range set.disposes {
				if drop[acq.Seq] || drop[dis.Seq] {
					continue
				}
				if acq.Role == dis.Role {
					continue
				}
				drop[acq.Seq] = true
				drop[dis.Seq] = true
				collapsed++
				break
			}
		}
	}

	kept = make([]*domain.RawEvent, 0, len(events))
	for _, e := range events {
		if !drop[e.Seq] {
			kept = append(kept, e)
		}
	}
	return kept, collapsed
}

// selfFillKey identifies one logical fill within a transaction.
func selfFillKey(e *domain.RawEvent) string {
	return fmt.Sprintf("%s|%s|%s|%.9f|%d", e.Wallet, e.TxGroupID, e.TokenID, e.AbsQty(), e.Timestamp)
}
