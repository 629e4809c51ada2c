package prng

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/Dutchthenomad/rugsdata/internal/model"
)

var tolerance = decimal.NewFromFloat(Tolerance)

// Input is the revealed game data the verifier re-simulates and checks
// against the authoritative trajectory actually persisted from the feed.
type Input struct {
	ServerSeed       string
	GameID           string
	GeneratorVersion string
	ActualPrices     []decimal.Decimal
	ActualPeak       decimal.Decimal
}

// Verify re-simulates Input's trajectory and compares it against the
// actual one, producing the comparison report persisted on games and
// prng_tracking.
func Verify(in Input) model.PRNGVerificationData {
	sim := Simulate(in.ServerSeed, in.GameID, Version(in.GeneratorVersion))

	peakMatch := sim.PeakMultiplier.Sub(in.ActualPeak).Abs().LessThanOrEqual(tolerance)
	ticksMatch := sim.TotalTicks == len(in.ActualPrices)-1

	arrayMatch := true
	divergedAt := -1
	n := len(sim.Prices)
	if len(in.ActualPrices) < n {
		n = len(in.ActualPrices)
	}
	for i := 0; i < n; i++ {
		if sim.Prices[i].Sub(in.ActualPrices[i]).Abs().GreaterThan(tolerance) {
			arrayMatch = false
			divergedAt = i
			break
		}
	}
	if arrayMatch && len(sim.Prices) != len(in.ActualPrices) {
		arrayMatch = false
		divergedAt = n
	}

	report := model.PRNGVerificationData{
		PeakMatch:        peakMatch,
		TicksMatch:       ticksMatch,
		ArrayMatch:       arrayMatch,
		FullVerification: peakMatch && ticksMatch && arrayMatch,
		SimulatedPeak:    sim.PeakMultiplier,
		CheckedAt:        time.Now().UTC(),
	}
	if divergedAt >= 0 {
		report.DivergedAtTick = divergedAt
	}
	return report
}

// StatusFor maps a verification attempt's preconditions and result to the
// prng_tracking lifecycle status.
func StatusFor(hasSeed, hasExpectedTrajectory bool, report *model.PRNGVerificationData) model.PRNGStatus {
	switch {
	case !hasSeed:
		return model.PRNGAwaitingSeed
	case !hasExpectedTrajectory:
		return model.PRNGMissingExpected
	case report != nil && report.FullVerification:
		return model.PRNGVerified
	default:
		return model.PRNGFailed
	}
}
