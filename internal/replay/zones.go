package replay

import (
	"mtga-tracker/internal/parser"
)

// Role is the inferred semantic label for a match-local zone id.
type Role string

const (
	RoleBattlefield Role = "Battlefield"
	RoleStack       Role = "Stack"
	RoleLibrary     Role = "Library"
	RoleHand        Role = "Hand"
	RoleGraveyard   Role = "Graveyard"
	RoleExile       Role = "Exile"
)

// Inference is the result of zone-role inference for one match: the role map
// plus the specific zone ids picked out along the way. A zero id means the
// zone was never identified.
type Inference struct {
	Roles           map[int]Role
	OpponentLibrary int
	OpponentHand    int
	PlayerLibrary   int
	PlayerHand      int
}

// zoneStats aggregates transfer statistics for one zone id. Named means the
// transfer carried a resolved card reference.
type zoneStats struct {
	id              int
	namedArrivals   int
	namedDepartures int
	anonDepartures  int
}

func (z *zoneStats) net() int {
	return z.namedArrivals - z.namedDepartures
}

// collectStats builds per-zone statistics in encounter order: zones appear in
// the returned slice in the order their ids first show up in the transfer
// log, which is what breaks ties within each inference pass.
func collectStats(transfers []parser.ZoneTransfer) []*zoneStats {
	var ordered []*zoneStats
	byID := make(map[int]*zoneStats)

	get := func(id int) *zoneStats {
		if s, ok := byID[id]; ok {
			return s
		}
		s := &zoneStats{id: id}
		byID[id] = s
		ordered = append(ordered, s)
		return s
	}

	for _, t := range transfers {
		from, to := get(t.FromZone), get(t.ToZone)
		if t.CardGrpID != 0 {
			from.namedDepartures++
			to.namedArrivals++
		} else {
			from.anonDepartures++
		}
	}
	return ordered
}

// InferRoles infers a role for each zone id from the match's ordered transfer
// log. Zone ids are arbitrary per-match integers; the passes below label them
// purely from transfer statistics, in a fixed order, each pass only touching
// zones no earlier pass labeled. Zones that never satisfy any pass stay
// unlabeled.
func InferRoles(transfers []parser.ZoneTransfer) Inference {
	stats := collectStats(transfers)
	inf := Inference{Roles: make(map[int]Role)}

	passes := []func([]parser.ZoneTransfer, []*zoneStats, Inference) Inference{
		passBattlefield,
		passStack,
		passOpponentLibrary,
		passOpponentHand,
		passPlayerLibrary,
		passHands,
		passGraveyard,
		passExile,
	}
	for _, pass := range passes {
		inf = pass(transfers, stats, inf)
	}

	inf.PlayerHand = findPlayerHand(transfers, inf)
	return inf
}

func cloneRoles(inf Inference) Inference {
	roles := make(map[int]Role, len(inf.Roles))
	for id, role := range inf.Roles {
		roles[id] = role
	}
	inf.Roles = roles
	return inf
}

// passBattlefield labels the zone with the highest net gain among those with
// at least one named arrival.
func passBattlefield(_ []parser.ZoneTransfer, stats []*zoneStats, inf Inference) Inference {
	var best *zoneStats
	for _, s := range stats {
		if s.namedArrivals < 1 {
			continue
		}
		if best == nil || s.net() > best.net() {
			best = s
		}
	}
	if best == nil {
		return inf
	}
	inf = cloneRoles(inf)
	inf.Roles[best.id] = RoleBattlefield
	return inf
}

// passStack labels the high-throughput near-zero-net transit zone: among
// unlabeled zones with at least 3 named arrivals and |net| <= 3, the one with
// the most named arrivals.
func passStack(_ []parser.ZoneTransfer, stats []*zoneStats, inf Inference) Inference {
	var best *zoneStats
	for _, s := range stats {
		if _, labeled := inf.Roles[s.id]; labeled {
			continue
		}
		net := s.net()
		if net < 0 {
			net = -net
		}
		if s.namedArrivals < 3 || net > 3 {
			continue
		}
		if best == nil || s.namedArrivals > best.namedArrivals {
			best = s
		}
	}
	if best == nil {
		return inf
	}
	inf = cloneRoles(inf)
	inf.Roles[best.id] = RoleStack
	return inf
}

// passOpponentLibrary labels the unlabeled zone with the most anonymous
// departures: the opponent's draws are invisible, so their library shows
// face-down outflow.
func passOpponentLibrary(_ []parser.ZoneTransfer, stats []*zoneStats, inf Inference) Inference {
	var best *zoneStats
	for _, s := range stats {
		if _, labeled := inf.Roles[s.id]; labeled {
			continue
		}
		if s.anonDepartures == 0 {
			continue
		}
		if best == nil || s.anonDepartures > best.anonDepartures {
			best = s
		}
	}
	if best == nil {
		return inf
	}
	inf = cloneRoles(inf)
	inf.Roles[best.id] = RoleLibrary
	inf.OpponentLibrary = best.id
	return inf
}

// passOpponentHand labels the first unlabeled zone reached by a named
// transfer directly out of the opponent's library.
func passOpponentHand(transfers []parser.ZoneTransfer, _ []*zoneStats, inf Inference) Inference {
	if inf.OpponentLibrary == 0 {
		return inf
	}
	for _, t := range transfers {
		if t.CardGrpID == 0 || t.FromZone != inf.OpponentLibrary {
			continue
		}
		if _, labeled := inf.Roles[t.ToZone]; labeled {
			continue
		}
		inf = cloneRoles(inf)
		inf.Roles[t.ToZone] = RoleHand
		inf.OpponentHand = t.ToZone
		return inf
	}
	return inf
}

// passPlayerLibrary labels the player's library: an unlabeled zone with at
// least 3 named departures, net <= -3, whose named departures all reach one
// single destination zone. A library feeds exactly one hand; a hand fans out
// to many destinations, which is what tells the two apart.
func passPlayerLibrary(transfers []parser.ZoneTransfer, stats []*zoneStats, inf Inference) Inference {
	for _, s := range stats {
		if _, labeled := inf.Roles[s.id]; labeled {
			continue
		}
		if s.namedDepartures < 3 || s.net() > -3 {
			continue
		}
		destination := 0
		single := true
		for _, t := range transfers {
			if t.CardGrpID == 0 || t.FromZone != s.id {
				continue
			}
			if destination == 0 {
				destination = t.ToZone
			} else if t.ToZone != destination {
				single = false
				break
			}
		}
		if !single {
			continue
		}
		inf = cloneRoles(inf)
		inf.Roles[s.id] = RoleLibrary
		inf.PlayerLibrary = s.id
		return inf
	}
	return inf
}

// passHands labels every remaining zone that receives a named transfer from a
// zone already labeled Library.
func passHands(transfers []parser.ZoneTransfer, _ []*zoneStats, inf Inference) Inference {
	inf = cloneRoles(inf)
	for _, t := range transfers {
		if t.CardGrpID == 0 || inf.Roles[t.FromZone] != RoleLibrary {
			continue
		}
		if _, labeled := inf.Roles[t.ToZone]; labeled {
			continue
		}
		inf.Roles[t.ToZone] = RoleHand
	}
	return inf
}

// passGraveyard labels every remaining zone with net >= 1 that receives a
// named transfer from the battlefield or the stack.
func passGraveyard(transfers []parser.ZoneTransfer, stats []*zoneStats, inf Inference) Inference {
	inf = cloneRoles(inf)
	for _, s := range stats {
		if _, labeled := inf.Roles[s.id]; labeled {
			continue
		}
		if s.net() < 1 {
			continue
		}
		for _, t := range transfers {
			if t.CardGrpID == 0 || t.ToZone != s.id {
				continue
			}
			from := inf.Roles[t.FromZone]
			if from == RoleBattlefield || from == RoleStack {
				inf.Roles[s.id] = RoleGraveyard
				break
			}
		}
	}
	return inf
}

// passExile labels every still-unlabeled zone with at most 2 named arrivals.
func passExile(_ []parser.ZoneTransfer, stats []*zoneStats, inf Inference) Inference {
	inf = cloneRoles(inf)
	for _, s := range stats {
		if _, labeled := inf.Roles[s.id]; labeled {
			continue
		}
		if s.namedArrivals <= 2 {
			inf.Roles[s.id] = RoleExile
		}
	}
	return inf
}

// findPlayerHand picks the hand zone fed by a named transfer out of a
// Library-labeled zone. The opponent's library feeds its hand anonymously, so
// the named-feed path selects the local player's hand; the opponent's hand is
// excluded explicitly in case it ever shows a named library feed.
func findPlayerHand(transfers []parser.ZoneTransfer, inf Inference) int {
	for _, t := range transfers {
		if t.CardGrpID == 0 || inf.Roles[t.FromZone] != RoleLibrary {
			continue
		}
		if inf.Roles[t.ToZone] != RoleHand || t.ToZone == inf.OpponentHand {
			continue
		}
		return t.ToZone
	}
	return 0
}
