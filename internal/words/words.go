package words

import (
	_ "embed"
	"errors"
	"math/rand"
	"strings"
	"sync"
)

// SetSize is the number of words a session's grid needs.
const SetSize = 25

//go:embed wordlist.txt
var wordlist string

// Source supplies the word grid for a new session.
type Source interface {
	NextWordSet() ([]string, error)
}

// StaticSource samples word sets from the embedded list. Safe for
// concurrent use; the rng is guarded because math/rand sources are not.
type StaticSource struct {
	words []string
	rng   *rand.Rand
	mu    sync.Mutex
}

func NewStaticSource(rng *rand.Rand) (*StaticSource, error) {
	parsed := make([]string, 0, 256)
	seen := make(map[string]bool)
	for _, line := range strings.Split(wordlist, "\n") {
		word := strings.TrimSpace(line)
		if word == "" || seen[word] {
			continue
		}
		seen[word] = true
		parsed = append(parsed, word)
	}

	if len(parsed) < SetSize {
		return nil, errors.New("WORDLIST_EXHAUSTED: embedded word list is smaller than one grid")
	}

	return &StaticSource{words: parsed, rng: rng}, nil
}

// NextWordSet returns 25 unique words in random order.
func (s *StaticSource) NextWordSet() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perm := s.rng.Perm(len(s.words))
	set := make([]string, SetSize)
	for i := range set {
		set[i] = s.words[perm[i]]
	}
	return set, nil
}

// Count reports how many distinct words the source can draw from.
func (s *StaticSource) Count() int {
	return len(s.words)
}
