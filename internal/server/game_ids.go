package server

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

var gameIDAdjectives = []string{
	"quick", "lazy", "happy", "brave", "calm", "eager", "gentle", "jolly",
	"kind", "merry", "nice", "proud", "silly", "witty", "zany", "bold",
}

var gameIDAnimals = []string{
	"fox", "dog", "cat", "owl", "bear", "wolf", "hare", "deer",
	"lion", "tiger", "panda", "koala", "otter", "seal", "crow", "swan",
	"mole", "lynx",
}

// AllocateGameID returns a memorable lowercase id such as "quickfox42"
// that taken reports as free. Collisions are rare enough that after a
// handful of attempts a uuid is used instead.
func AllocateGameID(rng *rand.Rand, taken func(string) bool) string {
	for range 10 {
		adjective := gameIDAdjectives[rng.Intn(len(gameIDAdjectives))]
		animal := gameIDAnimals[rng.Intn(len(gameIDAnimals))]
		id := strings.ToLower(fmt.Sprintf("%s%s%d", adjective, animal, rng.Intn(999)+1))
		if !taken(id) {
			return id
		}
	}
	return uuid.New().String()
}

// NormalizeGameID makes game id lookups case-insensitive.
func NormalizeGameID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

func ValidateGameID(id string) error {
	if id == "" {
		return errors.New("INVALID_GAME_ID: game id must not be empty")
	}
	if len(id) > 64 {
		return errors.New("INVALID_GAME_ID: game id must be at most 64 characters")
	}
	for _, ch := range id {
		valid := (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') ||
			(ch >= '0' && ch <= '9') || ch == '-'
		if !valid {
			return errors.New("INVALID_GAME_ID: game id may contain only letters, digits and hyphens")
		}
	}
	return nil
}
