package prng

import "testing"

func TestSimulate_DeterministicForSameSeed(t *testing.T) {
	a := Simulate("seed-1", "G1", V1)
	b := Simulate("seed-1", "G1", V1)

	if len(a.Prices) != len(b.Prices) {
		t.Fatalf("expected identical trajectory lengths, got %d and %d", len(a.Prices), len(b.Prices))
	}
	for i := range a.Prices {
		if !a.Prices[i].Equal(b.Prices[i]) {
			t.Fatalf("trajectories diverged at tick %d: %s vs %s", i, a.Prices[i], b.Prices[i])
		}
	}
	if a.Rugged != b.Rugged {
		t.Fatalf("expected identical rug outcome")
	}
}

func TestSimulate_DifferentSeedsDiverge(t *testing.T) {
	a := Simulate("seed-1", "G1", V1)
	b := Simulate("seed-2", "G1", V1)

	same := len(a.Prices) == len(b.Prices)
	if same {
		for i := range a.Prices {
			if !a.Prices[i].Equal(b.Prices[i]) {
				same = false
				break
			}
		}
	}
	if same {
		t.Fatalf("expected different seeds to produce different trajectories")
	}
}

func TestSimulate_TerminatesWithinTickBudget(t *testing.T) {
	traj := Simulate("seed-x", "G1", V3)
	if traj.TotalTicks > maxTicks {
		t.Fatalf("expected at most %d ticks, got %d", maxTicks, traj.TotalTicks)
	}
	if traj.TotalTicks != len(traj.Prices)-1 {
		t.Fatalf("totalTicks must equal len(prices)-1, got %d vs %d", traj.TotalTicks, len(traj.Prices)-1)
	}
}

func TestVerify_SameSeedMatchesItself(t *testing.T) {
	sim := Simulate("seed-match", "G1", V3)

	report := Verify(Input{
		ServerSeed:       "seed-match",
		GameID:           "G1",
		GeneratorVersion: "v3",
		ActualPrices:     sim.Prices,
		ActualPeak:       sim.PeakMultiplier,
	})

	if !report.FullVerification {
		t.Fatalf("expected full verification against its own simulated trajectory, got %+v", report)
	}
}

func TestVerify_WrongSeedDiverges(t *testing.T) {
	sim := Simulate("seed-real", "G1", V1)

	report := Verify(Input{
		ServerSeed:       "seed-forged",
		GameID:           "G1",
		GeneratorVersion: "v1",
		ActualPrices:     sim.Prices,
		ActualPeak:       sim.PeakMultiplier,
	})

	if report.FullVerification {
		t.Fatalf("expected verification to fail against a mismatched seed")
	}
}

func TestStatusFor(t *testing.T) {
	if got := StatusFor(false, true, nil); got != "AWAITING_SEED" {
		t.Fatalf("expected AWAITING_SEED, got %s", got)
	}
	if got := StatusFor(true, false, nil); got != "MISSING_EXPECTED" {
		t.Fatalf("expected MISSING_EXPECTED, got %s", got)
	}
}
