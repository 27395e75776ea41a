package research

import (
	"context"

	"github.com/jonathan/race-results/internal/db"
)

// BatchItem is the outcome for one order of a batch. Exactly one of Result and Error is set.
type BatchItem struct {
	OrderNumber string  `json:"order_number"`
	Result      *Result `json:"result,omitempty"`
	Error       error   `json:"-"`
}

// Success reports whether the order was researched without error.
func (i BatchItem) Success() bool {
	return i.Error == nil
}

// ResearchBatch researches orders one at a time, in order. Orders that share a
// race edition fetch its race info at most once per call. A failing order is
// recorded in its item and never stops the batch.
func (s *Service) ResearchBatch(ctx context.Context, orderNumbers []string) []BatchItem {
	editions := make(map[string]*db.RaceEdition)
	items := make([]BatchItem, 0, len(orderNumbers))

	for _, n := range orderNumbers {
		res, err := s.researchOrder(ctx, n, editions)
		if err != nil {
			s.logger.WithError(err).WithField("order_number", n).Warn("order research failed")
		}
		items = append(items, BatchItem{OrderNumber: n, Result: res, Error: err})
	}

	s.logger.WithFields(map[string]any{
		"orders":   len(orderNumbers),
		"editions": len(editions),
	}).Info("batch research complete")
	return items
}
