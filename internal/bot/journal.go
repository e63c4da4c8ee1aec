package bot

import (
	"context"
	"time"

	"panterabot/internal/bot/monitor"
	"panterabot/internal/bot/repo"
	"panterabot/internal/bot/trip"
)

const journalTimeout = 2 * time.Second

// journalingActuator records every bid attempt after the wrapped actuator
// has settled it. Journal failures never change the bid outcome.
type journalingActuator struct {
	next    monitor.BidActuator
	journal *repo.BidsRepo
	logger  Logger
}

func (a journalingActuator) PlaceBid(ctx context.Context, t trip.Trip, price float64) error {
	err := a.next.PlaceBid(ctx, t, price)

	rec := repo.BidRecord{
		TripID:      t.ID,
		Pickup:      t.Pickup,
		Destination: t.Destination,
		DistanceKM:  t.Distance,
		Price:       price,
		Status:      repo.BidStatusPlaced,
	}
	if err != nil {
		rec.Status = repo.BidStatusFailed
		rec.Error = err.Error()
	}

	jctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()
	if jerr := a.journal.Record(jctx, rec); jerr != nil {
		a.logger.Errorf("bid journal: record trip %s: %v", t.ID, jerr)
	}
	return err
}
