// scoring/scoring.go
package scoring

import (
	"fmt"

	"github.com/wfunc/rajamantri/models"
)

// Target is the role the Mantri is trying to find.
const Target = models.RoleChor

// Payout tables, per role.
var (
	CorrectPayout = map[models.Role]int{
		models.RoleRaja:   1000,
		models.RoleMantri: 800,
		models.RoleSipahi: 500,
		models.RoleChor:   0,
	}
	WrongPayout = map[models.Role]int{
		models.RoleRaja:   1000,
		models.RoleMantri: 0,
		models.RoleSipahi: 500,
		models.RoleChor:   800,
	}
)

const (
	msgCorrect = "Mantri caught the Chor!"
	msgWrong   = "Wrong guess! %s is the %s, the Chor got away."
)

// Result is the outcome of one guess.
type Result struct {
	Correct     bool
	SuspectRole models.Role
	Deltas      map[models.Role]int
	Message     string
}

// Resolve compares the suspect's real role with the target and picks the payout row.
func Resolve(suspectName string, suspectRole models.Role) Result {
	if suspectRole == Target {
		return Result{
			Correct:     true,
			SuspectRole: suspectRole,
			Deltas:      CorrectPayout,
			Message:     msgCorrect,
		}
	}
	return Result{
		SuspectRole: suspectRole,
		Deltas:      WrongPayout,
		Message:     fmt.Sprintf(msgWrong, suspectName, suspectRole),
	}
}

// Apply adds each role's delta to the player currently holding that role.
// The players must hold the four roles exactly once; otherwise nothing is changed.
func Apply(players []models.Player, res Result) error {
	seen := make(map[models.Role]int, len(players))
	for i, p := range players {
		if !p.Role.Valid() {
			return fmt.Errorf("player %s has no role", p.ID)
		}
		if _, dup := seen[p.Role]; dup {
			return fmt.Errorf("role %s dealt twice", p.Role)
		}
		seen[p.Role] = i
	}
	if len(seen) != len(models.AllRoles) {
		return fmt.Errorf("expected %d roles, got %d", len(models.AllRoles), len(seen))
	}

	for _, role := range models.AllRoles {
		players[seen[role]].Score += res.Deltas[role]
	}
	return nil
}
