package replay

import (
	"fmt"

	"mtga-tracker/internal/parser"
)

// Actor attribution for a replay step.
const (
	ActorYou      = "you"
	ActorOpponent = "opponent"
)

// tokenCreatedCategory tags synthetic transfers for token creation; they
// bypass the verb table entirely.
const tokenCreatedCategory = "TokenCreated"

// unknownZoneLabel renders zones no inference pass ever labeled.
const unknownZoneLabel = "unknown zone"

// Step is one rendered replay line.
type Step struct {
	Turn         int
	Actor        string // ActorYou, ActorOpponent, or "" when unattributed
	Verb         string
	Card         string
	FromZone     string
	ToZone       string
	YourLife     int
	OpponentLife int
}

// rolePair keys the verb table by (origin role, destination role).
type rolePair struct {
	from Role
	to   Role
}

// verbTable maps role pairs to replay verbs. Pairs absent from the table are
// dropped from the replay; in particular the stack only ever receives casts
// from a hand.
var verbTable = map[rolePair]string{
	{RoleHand, RoleBattlefield}:      "entered the battlefield",
	{RoleStack, RoleBattlefield}:     "entered the battlefield",
	{RoleLibrary, RoleBattlefield}:   "put onto the battlefield",
	{RoleHand, RoleStack}:            "cast",
	{RoleBattlefield, RoleGraveyard}: "died",
	{RoleBattlefield, RoleExile}:     "was exiled",
	{RoleStack, RoleExile}:           "was exiled",
	{RoleBattlefield, RoleHand}:      "bounced to hand",
	{RoleBattlefield, RoleLibrary}:   "shuffled into library",
	{RoleStack, RoleGraveyard}:       "resolved",
	{RoleLibrary, RoleHand}:          "drawn",
}

// Render turns one match's stored transfer and life-change logs, both in
// original insertion order, into an ordered replay. Only transfers with a
// resolved card reference appear; running life totals advance by merging the
// life log on game-state id. The zone-role inference used for verbs and actor
// attribution is returned alongside the steps.
func Render(transfers []parser.ZoneTransfer, lifeChanges []parser.LifeChange, names map[int]string) ([]Step, Inference) {
	inf := InferRoles(transfers)

	steps := make([]Step, 0, len(transfers))
	yourLife, opponentLife := 0, 0
	lifeIdx := 0

	for _, t := range transfers {
		if t.CardGrpID == 0 {
			continue
		}

		// Advance the life merge up to this transfer's game state.
		for lifeIdx < len(lifeChanges) && lifeChanges[lifeIdx].GameStateID <= t.GameStateID {
			lc := lifeChanges[lifeIdx]
			if lc.SeatID == parser.PlayerSeat {
				yourLife = lc.LifeTotal
			} else {
				opponentLife = lc.LifeTotal
			}
			lifeIdx++
		}

		step := Step{
			Turn:         t.Turn,
			Card:         cardLabel(t.CardGrpID, names),
			FromZone:     zoneLabel(t.FromZone, inf),
			ToZone:       zoneLabel(t.ToZone, inf),
			YourLife:     yourLife,
			OpponentLife: opponentLife,
		}

		// A step belongs to whichever player's hand the card moved through:
		// origin for casts and plays, destination for draws and bounces.
		switch {
		case inf.PlayerHand != 0 && (t.FromZone == inf.PlayerHand || t.ToZone == inf.PlayerHand):
			step.Actor = ActorYou
		case inf.OpponentHand != 0 && (t.FromZone == inf.OpponentHand || t.ToZone == inf.OpponentHand):
			step.Actor = ActorOpponent
		}

		if t.Category == tokenCreatedCategory {
			step.Verb = "token created"
			steps = append(steps, step)
			continue
		}

		verb, ok := verbTable[rolePair{inf.Roles[t.FromZone], inf.Roles[t.ToZone]}]
		if !ok {
			continue
		}
		step.Verb = verb
		steps = append(steps, step)
	}

	return steps, inf
}

func cardLabel(grpID int, names map[int]string) string {
	if name, ok := names[grpID]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("Unknown Card (%d)", grpID)
}

func zoneLabel(zoneID int, inf Inference) string {
	if role, ok := inf.Roles[zoneID]; ok {
		return string(role)
	}
	return unknownZoneLabel
}
