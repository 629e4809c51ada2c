package prng

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Dutchthenomad/rugsdata/internal/model"
)

func TestVerifyMatchesWhenActualEqualsSimulation(t *testing.T) {
	sim := Simulate("seed-abc", "game-1", V1)

	report := Verify(Input{
		ServerSeed:       "seed-abc",
		GameID:           "game-1",
		GeneratorVersion: string(V1),
		ActualPrices:     sim.Prices,
		ActualPeak:       sim.PeakMultiplier,
	})

	if !report.FullVerification {
		t.Fatalf("expected FullVerification when actual == simulated, got %+v", report)
	}
	if !report.PeakMatch || !report.TicksMatch || !report.ArrayMatch {
		t.Errorf("expected all three sub-checks to pass, got %+v", report)
	}
}

func TestVerifyDetectsArrayDivergence(t *testing.T) {
	sim := Simulate("seed-xyz", "game-2", V1)
	actual := make([]decimal.Decimal, len(sim.Prices))
	copy(actual, sim.Prices)
	if len(actual) > 2 {
		actual[2] = actual[2].Add(decimal.NewFromFloat(50))
	}

	report := Verify(Input{
		ServerSeed:       "seed-xyz",
		GameID:           "game-2",
		GeneratorVersion: string(V1),
		ActualPrices:     actual,
		ActualPeak:       sim.PeakMultiplier,
	})

	if report.FullVerification {
		t.Fatal("expected verification to fail once a price diverges beyond tolerance")
	}
	if report.ArrayMatch {
		t.Error("expected ArrayMatch=false")
	}
	if report.DivergedAtTick != 2 {
		t.Errorf("DivergedAtTick = %d, want 2", report.DivergedAtTick)
	}
}

func TestVerifyDetectsPeakMismatch(t *testing.T) {
	sim := Simulate("seed-peak", "game-3", V1)

	report := Verify(Input{
		ServerSeed:       "seed-peak",
		GameID:           "game-3",
		GeneratorVersion: string(V1),
		ActualPrices:     sim.Prices,
		ActualPeak:       sim.PeakMultiplier.Add(decimal.NewFromFloat(1000)),
	})

	if report.PeakMatch {
		t.Error("expected PeakMatch=false with a wildly divergent actual peak")
	}
	if report.FullVerification {
		t.Error("expected FullVerification=false when the peak doesn't match")
	}
}

func TestVerifyDetectsTickCountMismatch(t *testing.T) {
	sim := Simulate("seed-ticks", "game-4", V1)
	truncated := sim.Prices
	if len(truncated) > 3 {
		truncated = truncated[:len(truncated)-2]
	}

	report := Verify(Input{
		ServerSeed:       "seed-ticks",
		GameID:           "game-4",
		GeneratorVersion: string(V1),
		ActualPrices:     truncated,
		ActualPeak:       sim.PeakMultiplier,
	})

	if report.TicksMatch {
		t.Error("expected TicksMatch=false when the actual trajectory is truncated")
	}
	if report.ArrayMatch {
		t.Error("expected ArrayMatch=false when trajectory lengths differ")
	}
}

func TestStatusForAwaitingSeed(t *testing.T) {
	if got := StatusFor(false, true, nil); got != model.PRNGAwaitingSeed {
		t.Errorf("StatusFor(no seed) = %v, want AWAITING_SEED", got)
	}
}

func TestStatusForMissingExpected(t *testing.T) {
	if got := StatusFor(true, false, nil); got != model.PRNGMissingExpected {
		t.Errorf("StatusFor(no trajectory) = %v, want MISSING_EXPECTED", got)
	}
}

func TestStatusForVerified(t *testing.T) {
	report := &model.PRNGVerificationData{FullVerification: true}
	if got := StatusFor(true, true, report); got != model.PRNGVerified {
		t.Errorf("StatusFor(full verification) = %v, want VERIFIED", got)
	}
}

func TestStatusForFailed(t *testing.T) {
	report := &model.PRNGVerificationData{FullVerification: false}
	if got := StatusFor(true, true, report); got != model.PRNGFailed {
		t.Errorf("StatusFor(partial mismatch) = %v, want FAILED", got)
	}
}

func TestStatusForNilReportWithSeedAndTrajectory(t *testing.T) {
	if got := StatusFor(true, true, nil); got != model.PRNGFailed {
		t.Errorf("StatusFor(nil report) = %v, want FAILED", got)
	}
}
