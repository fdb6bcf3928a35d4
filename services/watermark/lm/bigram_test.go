package lm

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/KashuvY/EthicalWatermarking/services/watermark/greenlist"
)

func newBigramFixture(t *testing.T, vocab []string) *BigramSource {
	t.Helper()
	store := greenlist.NewKeyStore()
	t.Cleanup(store.Close)
	err := store.Register(context.Background(), "demo", vocab, []byte("k1"), 0.5, 2.0)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	return NewBigramSource(store)
}

func TestBigramSource_NormalizedDistribution(t *testing.T) {
	src := newBigramFixture(t, []string{"bird", "cat", "dog", "fish"})

	dist, err := src.NextDistribution(context.Background(), "demo", []string{"the"})
	if err != nil {
		t.Fatalf("NextDistribution failed: %v", err)
	}
	if len(dist) != 4 {
		t.Fatalf("distribution has %d entries, want 4", len(dist))
	}

	var total float64
	for tok, p := range dist {
		if p <= 0 {
			t.Errorf("probability for %q = %v, want > 0", tok, p)
		}
		total += p
	}
	if math.Abs(total-1.0) > 1e-12 {
		t.Errorf("distribution mass = %v, want 1.0", total)
	}
}

func TestBigramSource_Deterministic(t *testing.T) {
	src := newBigramFixture(t, []string{"bird", "cat", "dog", "fish"})

	first, err := src.NextDistribution(context.Background(), "demo", []string{"the"})
	if err != nil {
		t.Fatalf("NextDistribution failed: %v", err)
	}
	second, err := src.NextDistribution(context.Background(), "demo", []string{"the"})
	if err != nil {
		t.Fatalf("NextDistribution failed: %v", err)
	}

	for tok, p := range first {
		if second[tok] != p {
			t.Errorf("probability for %q changed between calls: %v vs %v", tok, p, second[tok])
		}
	}
}

func TestBigramSource_ConditionsOnPreviousToken(t *testing.T) {
	src := newBigramFixture(t, []string{"bird", "cat", "dog", "fish"})

	afterThe, err := src.NextDistribution(context.Background(), "demo", []string{"the"})
	if err != nil {
		t.Fatalf("NextDistribution failed: %v", err)
	}
	afterA, err := src.NextDistribution(context.Background(), "demo", []string{"a"})
	if err != nil {
		t.Fatalf("NextDistribution failed: %v", err)
	}

	same := true
	for tok, p := range afterThe {
		if afterA[tok] != p {
			same = false
			break
		}
	}
	if same {
		t.Error("distributions after different previous tokens should differ")
	}
}

func TestBigramSource_EmptyPrefix(t *testing.T) {
	src := newBigramFixture(t, []string{"bird", "cat"})

	dist, err := src.NextDistribution(context.Background(), "demo", nil)
	if err != nil {
		t.Fatalf("NextDistribution failed: %v", err)
	}
	if len(dist) != 2 {
		t.Fatalf("distribution has %d entries, want 2", len(dist))
	}
}

func TestBigramSource_UnknownModel(t *testing.T) {
	src := newBigramFixture(t, []string{"bird", "cat"})

	_, err := src.NextDistribution(context.Background(), "ghost", []string{"the"})
	if !errors.Is(err, greenlist.ErrModelNotFound) {
		t.Errorf("error = %v, want ErrModelNotFound", err)
	}
}

func TestBigramSource_NoVocabulary(t *testing.T) {
	src := newBigramFixture(t, nil)

	_, err := src.NextDistribution(context.Background(), "demo", []string{"the"})
	if err == nil {
		t.Fatal("expected error for model without vocabulary")
	}
}
