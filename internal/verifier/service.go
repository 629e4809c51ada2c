// Package verifier services POST /api/prng/verify/{id}, the sole
// mutating REST route: it re-simulates a completed game's price
// trajectory and records the comparison against the stored authoritative
// arrays. Bounded by a small worker pool (default 1-2, per §5) so a burst
// of verification requests cannot starve the router or persistence
// workers.
package verifier

import (
	"context"
	"errors"
	"time"

	"github.com/Dutchthenomad/rugsdata/internal/model"
	"github.com/Dutchthenomad/rugsdata/internal/prng"
	"github.com/Dutchthenomad/rugsdata/internal/storage"
)

// ErrGameNotFound is returned when the requested game has no record.
var ErrGameNotFound = errors.New("verifier: game not found")

// Service re-simulates and records PRNG verification results, gated by a
// bounded worker pool so concurrent POST /api/prng/verify/{id} requests
// cannot pile up unbounded database work.
type Service struct {
	store *storage.Store
	sink  storage.Sink
	slots chan struct{}
}

// New builds a Service with the given worker pool size.
func New(store *storage.Store, sink storage.Sink, workers int) *Service {
	if workers < 1 {
		workers = 1
	}
	return &Service{store: store, sink: sink, slots: make(chan struct{}, workers)}
}

// Verify runs one verification attempt for gameID, blocking until a
// worker slot is free or ctx is done. It is idempotent: re-running it for
// the same seed and stored trajectory always yields the same report.
func (s *Service) Verify(ctx context.Context, gameID string) (model.PRNGVerificationData, model.PRNGStatus, error) {
	select {
	case s.slots <- struct{}{}:
	case <-ctx.Done():
		return model.PRNGVerificationData{}, "", ctx.Err()
	}
	defer func() { <-s.slots }()

	game, err := s.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return model.PRNGVerificationData{}, "", ErrGameNotFound
		}
		return model.PRNGVerificationData{}, "", err
	}

	if game.ServerSeed == "" {
		status := model.PRNGAwaitingSeed
		s.recordStatus(ctx, game, nil, status)
		return model.PRNGVerificationData{}, status, nil
	}

	ticks, err := s.store.GetTicks(ctx, gameID)
	if err != nil {
		return model.PRNGVerificationData{}, "", err
	}
	if len(ticks) == 0 {
		status := model.PRNGMissingExpected
		s.recordStatus(ctx, game, nil, status)
		return model.PRNGVerificationData{}, status, nil
	}

	report := prng.Verify(prng.Input{
		ServerSeed:       game.ServerSeed,
		GameID:           game.ID,
		GeneratorVersion: game.GeneratorVersion,
		ActualPrices:     ticks,
		ActualPeak:       game.PeakMultiplier,
	})

	status := prng.StatusFor(true, true, &report)
	s.recordStatus(ctx, game, &report, status)
	return report, status, nil
}

func (s *Service) recordStatus(ctx context.Context, game model.Game, report *model.PRNGVerificationData, status model.PRNGStatus) {
	verified := report != nil && report.FullVerification
	game.PRNGVerified = verified
	game.PRNGVerificationData = report
	s.sink.Enqueue(storage.Job{Kind: storage.JobGame, Game: &game})

	s.sink.Enqueue(storage.Job{Kind: storage.JobPRNG, PRNG: &model.PRNGTrackingRecord{
		GameID:           game.ID,
		Status:           status,
		GeneratorVersion: game.GeneratorVersion,
		ServerSeedHash:   game.ServerSeedHash,
		ServerSeed:       game.ServerSeed,
		Verification:     report,
		UpdatedAt:        time.Now().UTC(),
	}})
}
