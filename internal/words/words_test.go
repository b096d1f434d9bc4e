package words_test

import (
	"math/rand"
	"testing"

	"sketchduet-server/internal/words"

	"github.com/stretchr/testify/assert"
)

func TestNextWordSetSizeAndUniqueness(t *testing.T) {
	assert := assert.New(t)

	source, err := words.NewStaticSource(rand.New(rand.NewSource(1)))
	assert.NoError(err)

	for range 20 {
		set, err := source.NextWordSet()
		assert.NoError(err)
		assert.Len(set, words.SetSize)

		seen := make(map[string]bool)
		for _, word := range set {
			assert.NotEmpty(word)
			assert.False(seen[word], "word %q repeated within one set", word)
			seen[word] = true
		}
	}
}

func TestNextWordSetVariesBetweenDraws(t *testing.T) {
	source, err := words.NewStaticSource(rand.New(rand.NewSource(2)))
	assert.NoError(t, err)

	first, err := source.NextWordSet()
	assert.NoError(t, err)
	second, err := source.NextWordSet()
	assert.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestStaticSourceDeterministicForSeed(t *testing.T) {
	one, err := words.NewStaticSource(rand.New(rand.NewSource(7)))
	assert.NoError(t, err)
	two, err := words.NewStaticSource(rand.New(rand.NewSource(7)))
	assert.NoError(t, err)

	setOne, err := one.NextWordSet()
	assert.NoError(t, err)
	setTwo, err := two.NextWordSet()
	assert.NoError(t, err)

	assert.Equal(t, setOne, setTwo)
}

func TestEmbeddedListIsLargeEnough(t *testing.T) {
	source, err := words.NewStaticSource(rand.New(rand.NewSource(1)))
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, source.Count(), 100)
}
