package replay

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mtga-tracker/internal/parser"
)

// transfer builds a named transfer; grpID 0 makes it anonymous.
func transfer(gameStateID, grpID, from, to int) parser.ZoneTransfer {
	return parser.ZoneTransfer{
		GameStateID: gameStateID,
		InstanceID:  gameStateID,
		CardGrpID:   grpID,
		FromZone:    from,
		ToZone:      to,
	}
}

// gameFixture is a small but complete game seen from seat 2's side:
//
//	101 player's library   102 player's hand   103 stack
//	104 graveyard          105 battlefield
//	106 opponent's library 107 opponent's hand
//
// Card X (1001) is drawn, cast, and resolves to the graveyard; A-D are cast
// and land on the battlefield; the opponent draws three cards face down and
// one revealed card E.
func gameFixture() []parser.ZoneTransfer {
	const (
		x = 1001
		a = 1002
		b = 1003
		c = 1004
		d = 1005
		e = 1006
		f = 1007
		g = 1008
	)
	return []parser.ZoneTransfer{
		transfer(1, x, 101, 102),
		transfer(2, f, 101, 102),
		transfer(3, g, 101, 102),
		transfer(4, 0, 106, 107),
		transfer(5, 0, 106, 107),
		transfer(6, 0, 106, 107),
		transfer(7, e, 106, 107),
		transfer(8, x, 102, 103),
		transfer(9, a, 102, 103),
		transfer(10, a, 103, 105),
		transfer(11, b, 102, 103),
		transfer(12, b, 103, 105),
		transfer(13, c, 102, 103),
		transfer(14, c, 103, 105),
		transfer(15, d, 102, 103),
		transfer(16, d, 103, 105),
		transfer(17, x, 103, 104),
	}
}

func TestInferRoles(t *testing.T) {
	inf := InferRoles(gameFixture())

	assert.Equal(t, map[int]Role{
		101: RoleLibrary,
		102: RoleHand,
		103: RoleStack,
		104: RoleGraveyard,
		105: RoleBattlefield,
		106: RoleLibrary,
		107: RoleHand,
	}, inf.Roles)

	assert.Equal(t, 106, inf.OpponentLibrary)
	assert.Equal(t, 107, inf.OpponentHand)
	assert.Equal(t, 101, inf.PlayerLibrary)
	assert.Equal(t, 102, inf.PlayerHand)
}

func TestInferRolesEmptyInput(t *testing.T) {
	inf := InferRoles(nil)
	assert.Empty(t, inf.Roles)
	assert.Zero(t, inf.PlayerHand)
}

func TestPassBattlefieldPicksHighestNet(t *testing.T) {
	transfers := []parser.ZoneTransfer{
		transfer(1, 1, 10, 20),
		transfer(2, 2, 10, 20),
		transfer(3, 3, 10, 30),
	}
	stats := collectStats(transfers)

	inf := passBattlefield(transfers, stats, Inference{Roles: map[int]Role{}})
	assert.Equal(t, map[int]Role{20: RoleBattlefield}, inf.Roles)
}

func TestPassBattlefieldTieBreaksByEncounterOrder(t *testing.T) {
	transfers := []parser.ZoneTransfer{
		transfer(1, 1, 10, 20),
		transfer(2, 2, 10, 30),
	}
	stats := collectStats(transfers)

	inf := passBattlefield(transfers, stats, Inference{Roles: map[int]Role{}})
	assert.Equal(t, map[int]Role{20: RoleBattlefield}, inf.Roles)
}

func TestPassStackRequiresThroughput(t *testing.T) {
	// Zone 20 gains everything it receives: high net disqualifies it even
	// with many arrivals.
	transfers := []parser.ZoneTransfer{
		transfer(1, 1, 10, 20),
		transfer(2, 2, 10, 20),
		transfer(3, 3, 10, 20),
		transfer(4, 4, 10, 20),
		transfer(5, 5, 10, 20),
	}
	stats := collectStats(transfers)

	inf := passStack(transfers, stats, Inference{Roles: map[int]Role{}})
	assert.Empty(t, inf.Roles)
}

func TestPassOpponentLibraryNeedsAnonymousOutflow(t *testing.T) {
	transfers := []parser.ZoneTransfer{
		transfer(1, 1, 10, 20),
	}
	stats := collectStats(transfers)

	inf := passOpponentLibrary(transfers, stats, Inference{Roles: map[int]Role{}})
	assert.Empty(t, inf.Roles)
	assert.Zero(t, inf.OpponentLibrary)
}

func TestPassPlayerLibraryRejectsFanOut(t *testing.T) {
	// Zone 10 sheds enough cards but feeds two destinations: that is a hand,
	// not a library.
	transfers := []parser.ZoneTransfer{
		transfer(1, 1, 10, 20),
		transfer(2, 2, 10, 20),
		transfer(3, 3, 10, 30),
	}
	stats := collectStats(transfers)

	inf := passPlayerLibrary(transfers, stats, Inference{Roles: map[int]Role{}})
	assert.Empty(t, inf.Roles)
}

func TestPassesArePure(t *testing.T) {
	transfers := gameFixture()
	stats := collectStats(transfers)
	before := Inference{Roles: map[int]Role{}}

	after := passBattlefield(transfers, stats, before)

	require.NotEmpty(t, after.Roles)
	assert.Empty(t, before.Roles)
}

func TestInferRolesIsDeterministic(t *testing.T) {
	first := InferRoles(gameFixture())
	second := InferRoles(gameFixture())
	assert.Equal(t, first, second)
}
