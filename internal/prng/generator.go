// Package prng re-simulates a completed game's price trajectory from its
// revealed server seed and compares it bit-for-bit (within tolerance)
// against the stored authoritative trajectory.
//
// Verification only needs the re-simulation to be deterministic and
// reproducible for a given (serverSeed, gameId) pair, not to match any
// particular RNG implementation, so this package seeds math/rand/v2's
// PCG generator from a SHA-256 digest of "serverSeed-gameId" rather than
// depending on an external RNG library. The probability thresholds and
// branch formulas are fixed.
package prng

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/shopspring/decimal"
)

// Version selects the volatility formula a game's generator used.
type Version string

const (
	V1 Version = "v1"
	V3 Version = "v3"
)

const (
	rugProb              = 0.005
	godCandleProb        = 0.00001
	godCandleMultiplier  = 10.0
	godCandlePriceCap    = 100.0
	bigMoveProb          = 0.125
	bigMoveMagnitudeMin  = 0.15
	bigMoveMagnitudeMax  = 0.25
	driftMin             = -0.02
	driftMax             = 0.03
	maxTicks             = 5000

	// Tolerance is the absolute per-price comparison bound the verifier
	// applies between a simulated and an authoritative trajectory.
	Tolerance = 1e-6
)

// Trajectory is one simulation run's output.
type Trajectory struct {
	Prices         []decimal.Decimal
	PeakMultiplier decimal.Decimal
	TotalTicks     int
	Rugged         bool
}

func deriveSeed(serverSeed, gameID string) (uint64, uint64) {
	sum := sha256.Sum256([]byte(serverSeed + "-" + gameID))
	return binary.BigEndian.Uint64(sum[0:8]), binary.BigEndian.Uint64(sum[8:16])
}

// Simulate re-derives a full price trajectory for the given seed, game
// id, and generator version.
func Simulate(serverSeed, gameID string, version Version) Trajectory {
	s1, s2 := deriveSeed(serverSeed, gameID)
	rng := rand.New(rand.NewPCG(s1, s2))

	price := 1.0
	prices := make([]decimal.Decimal, 0, 256)
	prices = append(prices, decimal.NewFromFloat(price))
	peak := price
	rugged := false

	for len(prices)-1 < maxTicks {
		if rng.Float64() < rugProb {
			rugged = true
			break
		}

		var change float64
		switch {
		case version == V3 && price <= godCandlePriceCap && rng.Float64() < godCandleProb:
			change = godCandleMultiplier - 1
		case rng.Float64() < bigMoveProb:
			magnitude := bigMoveMagnitudeMin + rng.Float64()*(bigMoveMagnitudeMax-bigMoveMagnitudeMin)
			sign := 1.0
			if rng.Float64() < 0.5 {
				sign = -1.0
			}
			change = sign * magnitude
		default:
			drift := driftMin + rng.Float64()*(driftMax-driftMin)
			volatility := volatilityFor(version, price)
			change = drift + volatility*(2*rng.Float64()-1)
		}

		price = math.Max(0, price*(1+change))
		prices = append(prices, decimal.NewFromFloat(price))
		if price > peak {
			peak = price
		}
	}

	return Trajectory{
		Prices:         prices,
		PeakMultiplier: decimal.NewFromFloat(peak),
		TotalTicks:     len(prices) - 1,
		Rugged:         rugged,
	}
}

func volatilityFor(version Version, price float64) float64 {
	sqrtPrice := math.Sqrt(price)
	if version == V1 {
		return 0.005 * sqrtPrice
	}
	return 0.005 * math.Min(10, sqrtPrice)
}
