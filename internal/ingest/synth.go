// This file generates synthetic cell values. Text columns get data shaped by
// a column-name heuristic so ingested tables read plausibly; number columns
// get bounded random integers.
package ingest

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/petrel-data/gridbase/pkg/types"
)

var firstNames = []string{
	"Ada", "Alan", "Barbara", "Claude", "Donald", "Edsger", "Frances",
	"Grace", "John", "Katherine", "Ken", "Leslie", "Margaret", "Niklaus",
	"Radia", "Tony",
}

var lastNames = []string{
	"Lovelace", "Turing", "Liskov", "Shannon", "Knuth", "Dijkstra", "Allen",
	"Hopper", "Backus", "Johnson", "Thompson", "Lamport", "Hamilton",
	"Wirth", "Perlman", "Hoare",
}

var emailDomains = []string{
	"example.com", "example.org", "mail.test", "inbox.test",
}

var plainWords = []string{
	"alpha", "beacon", "cedar", "delta", "ember", "fjord", "garnet",
	"harbor", "indigo", "juniper", "krypton", "lumen", "meadow", "nimbus",
	"onyx", "prairie", "quartz", "rowan", "sable", "tundra",
}

// maxSyntheticNumber bounds generated number values.
const maxSyntheticNumber = 10000

// Synthesizer produces column-appropriate synthetic values from one random
// source. Not safe for concurrent use; each batch writer owns its own,
// seeded deterministically from the pipeline seed and batch index.
type Synthesizer struct {
	rng *rand.Rand
}

// NewSynthesizer returns a Synthesizer over a seeded source.
func NewSynthesizer(seed int64) *Synthesizer {
	return &Synthesizer{rng: rand.New(rand.NewSource(seed))}
}

// Value synthesizes one value consistent with the column's declared type
// and, heuristically, its name. Returns string for text columns and float64
// for number columns.
func (s *Synthesizer) Value(col *types.Column) any {
	if col.Type == types.ColumnTypeNumber {
		return float64(s.rng.Intn(maxSyntheticNumber + 1))
	}
	name := strings.ToLower(col.Name)
	switch {
	case strings.Contains(name, "mail"):
		return s.email()
	case strings.Contains(name, "name"):
		return s.personName()
	default:
		return s.words()
	}
}

func (s *Synthesizer) personName() string {
	return firstNames[s.rng.Intn(len(firstNames))] + " " + lastNames[s.rng.Intn(len(lastNames))]
}

func (s *Synthesizer) email() string {
	first := strings.ToLower(firstNames[s.rng.Intn(len(firstNames))])
	last := strings.ToLower(lastNames[s.rng.Intn(len(lastNames))])
	return fmt.Sprintf("%s.%s%d@%s", first, last, s.rng.Intn(100), emailDomains[s.rng.Intn(len(emailDomains))])
}

func (s *Synthesizer) words() string {
	n := 2 + s.rng.Intn(2)
	parts := make([]string, n)
	for i := range parts {
		parts[i] = plainWords[s.rng.Intn(len(plainWords))]
	}
	return strings.Join(parts, " ")
}
