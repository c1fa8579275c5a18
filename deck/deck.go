// deck/deck.go
package deck

import (
	"math/rand/v2"
	"sync"

	"github.com/wfunc/rajamantri/models"
)

// Deck deals the four roles. It is safe for concurrent use.
type Deck struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a deck with a fixed seed, so the sequence of draws is reproducible.
func New(seed uint64) *Deck {
	return &Deck{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Default returns a randomly seeded deck.
func Default() *Deck {
	return &Deck{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// Draw returns a new slice holding a uniformly random permutation of the four roles.
func (d *Deck) Draw() []models.Role {
	roles := make([]models.Role, len(models.AllRoles))
	copy(roles, models.AllRoles[:])

	d.mu.Lock()
	defer d.mu.Unlock()

	// Fisher-Yates, j drawn from [0, i].
	for i := len(roles) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		roles[i], roles[j] = roles[j], roles[i]
	}
	return roles
}
