package duet

import (
	"fmt"
	"math/rand"
)

type Category string

const (
	CategoryGreen    Category = "green"
	CategoryAssassin Category = "assassin"
	CategoryNeutral  Category = "neutral"
)

const (
	GridSize         = 25
	GreensPerCard    = 9
	AssassinsPerCard = 3
	NeutralsPerCard  = 13

	// Overlap between the two cards
	SharedGreens    = 3
	SharedAssassins = 1

	// 9 + 9 - 3: every green on either card, counting shared greens once
	WinThreshold = GreensPerCard + GreensPerCard - SharedGreens
)

// KeyCard maps each grid index to that participant's hidden category.
// Immutable once generated and never sent to the other participant.
type KeyCard []Category

// GenerateKeyCards produces the two key cards for a game. Both cards carry
// exactly 9 greens, 3 assassins and 13 neutrals; exactly 3 indices are green
// on both cards and exactly 1 index is assassin on both. The buckets are
// mutually exclusive slices of a single permutation, so no index can end up
// with any other overlap pattern. Deterministic for a given rng.
func GenerateKeyCards(rng *rand.Rand, gridSize int) (KeyCard, KeyCard, error) {
	if gridSize != GridSize {
		return nil, nil, fmt.Errorf("INVALID_GRID_SIZE: key cards require a %d cell grid, got %d", GridSize, gridSize)
	}

	cardA := make(KeyCard, gridSize)
	cardB := make(KeyCard, gridSize)
	for i := range cardA {
		cardA[i] = CategoryNeutral
		cardB[i] = CategoryNeutral
	}

	perm := rng.Perm(gridSize)

	// Shared buckets first: 3 green on both, 1 assassin on both
	for _, idx := range perm[0:3] {
		cardA[idx] = CategoryGreen
		cardB[idx] = CategoryGreen
	}
	cardA[perm[3]] = CategoryAssassin
	cardB[perm[3]] = CategoryAssassin

	// 6 greens unique to each card
	for _, idx := range perm[4:10] {
		cardA[idx] = CategoryGreen
	}
	for _, idx := range perm[10:16] {
		cardB[idx] = CategoryGreen
	}

	// 2 assassins unique to each card; the remaining 5 indices stay
	// neutral on both
	for _, idx := range perm[16:18] {
		cardA[idx] = CategoryAssassin
	}
	for _, idx := range perm[18:20] {
		cardB[idx] = CategoryAssassin
	}

	return cardA, cardB, nil
}

func (k KeyCard) Count(category Category) (count int) {
	for _, c := range k {
		if c == category {
			count++
		}
	}
	return
}
