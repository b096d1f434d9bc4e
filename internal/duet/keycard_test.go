package duet_test

import (
	"math/rand"
	"testing"

	"sketchduet-server/internal/duet"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeyCardsCounts(t *testing.T) {
	assert := assert.New(t)

	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		cardA, cardB, err := duet.GenerateKeyCards(rng, duet.GridSize)
		assert.NoError(err)

		assert.Equal(duet.GreensPerCard, cardA.Count(duet.CategoryGreen))
		assert.Equal(duet.AssassinsPerCard, cardA.Count(duet.CategoryAssassin))
		assert.Equal(duet.NeutralsPerCard, cardA.Count(duet.CategoryNeutral))

		assert.Equal(duet.GreensPerCard, cardB.Count(duet.CategoryGreen))
		assert.Equal(duet.AssassinsPerCard, cardB.Count(duet.CategoryAssassin))
		assert.Equal(duet.NeutralsPerCard, cardB.Count(duet.CategoryNeutral))
	}
}

func TestGenerateKeyCardsOverlap(t *testing.T) {
	assert := assert.New(t)

	for seed := int64(0); seed < 200; seed++ {
		rng := rand.New(rand.NewSource(seed))
		cardA, cardB, err := duet.GenerateKeyCards(rng, duet.GridSize)
		assert.NoError(err)

		pairs := make(map[[2]duet.Category]int)
		for i := range cardA {
			pairs[[2]duet.Category{cardA[i], cardB[i]}]++
		}

		assert.Equal(duet.SharedGreens, pairs[[2]duet.Category{duet.CategoryGreen, duet.CategoryGreen}])
		assert.Equal(duet.SharedAssassins, pairs[[2]duet.Category{duet.CategoryAssassin, duet.CategoryAssassin}])
		assert.Equal(6, pairs[[2]duet.Category{duet.CategoryGreen, duet.CategoryNeutral}])
		assert.Equal(6, pairs[[2]duet.Category{duet.CategoryNeutral, duet.CategoryGreen}])
		assert.Equal(2, pairs[[2]duet.Category{duet.CategoryAssassin, duet.CategoryNeutral}])
		assert.Equal(2, pairs[[2]duet.Category{duet.CategoryNeutral, duet.CategoryAssassin}])
		assert.Equal(5, pairs[[2]duet.Category{duet.CategoryNeutral, duet.CategoryNeutral}])

		// A cell can never be green on one card and assassin on the other
		assert.Zero(pairs[[2]duet.Category{duet.CategoryGreen, duet.CategoryAssassin}])
		assert.Zero(pairs[[2]duet.Category{duet.CategoryAssassin, duet.CategoryGreen}])
	}
}

func TestGenerateKeyCardsDeterministic(t *testing.T) {
	firstA, firstB, err := duet.GenerateKeyCards(rand.New(rand.NewSource(42)), duet.GridSize)
	assert.NoError(t, err)

	secondA, secondB, err := duet.GenerateKeyCards(rand.New(rand.NewSource(42)), duet.GridSize)
	assert.NoError(t, err)

	assert.Equal(t, firstA, secondA)
	assert.Equal(t, firstB, secondB)

	otherA, _, err := duet.GenerateKeyCards(rand.New(rand.NewSource(43)), duet.GridSize)
	assert.NoError(t, err)
	assert.NotEqual(t, firstA, otherA)
}

func TestGenerateKeyCardsInvalidGridSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1))

	for _, size := range []int{0, -1, 16, 24, 26, 100} {
		_, _, err := duet.GenerateKeyCards(rng, size)
		assert.Error(t, err, "grid size %d should be rejected", size)
		assert.Contains(t, err.Error(), "INVALID_GRID_SIZE")
	}
}
