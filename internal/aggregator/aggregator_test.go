package aggregator

import (
	"math"
	"testing"
	"time"

	"trading-core/internal/domain"
)

func quote(source string, price, weight float64, age time.Duration, now time.Time) domain.Quote {
	return domain.Quote{
		Symbol:    "SOL/USDC",
		Price:     price,
		Volume24h: 1000,
		Timestamp: now.Add(-age),
		SourceID:  source,
		Weight:    weight,
		LatencyMs: 10,
	}
}

func TestAggregationWithOneOutlier(t *testing.T) {
	now := time.Now()
	a := New()
	a.now = func() time.Time { return now }

	a.IngestQuote(quote("cex", 100, 1.0, 0, now))
	a.IngestQuote(quote("amm", 101, 0.9, 0, now))
	a.IngestQuote(quote("dex", 99, 0.85, 0, now))
	a.IngestQuote(quote("launchpad", 150, 0.6, 0, now))

	view, err := a.RequestView("SOL/USDC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(view.ConsensusPrice-100.33) > 0.2 {
		t.Errorf("consensus_price = %.4f, want ~100.33", view.ConsensusPrice)
	}
	if view.Confidence < 0.8 {
		t.Errorf("confidence = %.4f, want >= 0.8", view.Confidence)
	}
}

func TestStaleSourceDropped(t *testing.T) {
	now := time.Now()
	a := New()
	a.now = func() time.Time { return now }

	a.IngestQuote(quote("cex", 100, 1.0, 0, now))
	a.IngestQuote(quote("amm", 101, 0.9, 0, now))
	a.IngestQuote(quote("dex", 99, 0.85, 0, now))
	a.IngestQuote(quote("launchpad", 150, 0.6, 30*time.Second, now)) // stale

	view, err := a.RequestView("SOL/USDC")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if view.SourceCount != 3 {
		t.Errorf("source_count = %d, want 3", view.SourceCount)
	}
	if math.Abs(view.ConsensusPrice-100.5) > 0.2 {
		t.Errorf("consensus_price = %.4f, want ~100.5", view.ConsensusPrice)
	}
}

func TestNoSources(t *testing.T) {
	a := New()
	if _, err := a.RequestView("UNKNOWN"); err != ErrNoSources {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
}

func TestAllStale(t *testing.T) {
	now := time.Now()
	a := New()
	a.now = func() time.Time { return now }
	a.IngestQuote(quote("cex", 100, 1.0, 20*time.Second, now))

	if _, err := a.RequestView("SOL/USDC"); err != ErrAllStale {
		t.Fatalf("expected ErrAllStale, got %v", err)
	}
}

// TestConfidenceMonotonicity is the universal property from spec.md §8:
// adding one more agreeing source strictly raises or preserves confidence.
func TestConfidenceMonotonicity(t *testing.T) {
	now := time.Now()

	a1 := New()
	a1.now = func() time.Time { return now }
	a1.IngestQuote(quote("cex", 100, 1.0, 0, now))
	v1, err := a1.RequestView("SOL/USDC")
	if err != nil {
		t.Fatal(err)
	}

	a2 := New()
	a2.now = func() time.Time { return now }
	a2.IngestQuote(quote("cex", 100, 1.0, 0, now))
	a2.IngestQuote(quote("amm", 100.1, 0.9, 0, now))
	v2, err := a2.RequestView("SOL/USDC")
	if err != nil {
		t.Fatal(err)
	}

	if v2.Confidence < v1.Confidence {
		t.Errorf("confidence decreased after adding an agreeing source: %.4f -> %.4f", v1.Confidence, v2.Confidence)
	}
}

// TestMedianRobustness is the universal property from spec.md §8.
func TestMedianRobustness(t *testing.T) {
	now := time.Now()
	baseWeights := map[string]float64{"a": 1.0, "b": 0.9, "c": 0.85}
	var totalWeight float64
	for _, w := range baseWeights {
		totalWeight += w
	}

	a1 := New()
	a1.now = func() time.Time { return now }
	a1.IngestQuote(quote("a", 100, baseWeights["a"], 0, now))
	a1.IngestQuote(quote("b", 100, baseWeights["b"], 0, now))
	a1.IngestQuote(quote("c", 100, baseWeights["c"], 0, now))
	v1, _ := a1.RequestView("SOL/USDC")

	outlierMagnitude := 0.15 // 15% outlier
	a2 := New()
	a2.now = func() time.Time { return now }
	a2.IngestQuote(quote("a", 100, baseWeights["a"], 0, now))
	a2.IngestQuote(quote("b", 100, baseWeights["b"], 0, now))
	a2.IngestQuote(quote("c", 100*(1+outlierMagnitude), baseWeights["c"], 0, now))
	v2, _ := a2.RequestView("SOL/USDC")

	maxShift := 1 * (baseWeights["c"] / totalWeight) * outlierMagnitude * v1.ConsensusPrice
	actualShift := math.Abs(v2.ConsensusPrice - v1.ConsensusPrice)
	if actualShift > maxShift+1e-9 {
		t.Errorf("median shifted by %.4f, want <= %.4f", actualShift, maxShift)
	}
}
