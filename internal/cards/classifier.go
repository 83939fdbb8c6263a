package cards

import (
	"sort"

	"mtga-tracker/internal/parser"
)

// Arena GameObjectType markers the classifier branches on.
const (
	objectTypeCard   = "GameObjectType_Card"
	objectTypeOmen   = "GameObjectType_Omen"
	objectTypeToken  = "GameObjectType_Token"
	objectTypeEmblem = "GameObjectType_Emblem"
)

// skipObjectTypes are engine-internal objects: never classified, never named,
// never persisted.
var skipObjectTypes = map[string]bool{
	"GameObjectType_TriggerHolder": true,
	"GameObjectType_Ability":       true,
	"GameObjectType_RevealedCard":  true,
}

// tokenObjectTypes are objects created by card abilities. They have no card
// database entry; their names are synthesized from game-state facts.
var tokenObjectTypes = map[string]bool{
	objectTypeToken:  true,
	objectTypeEmblem: true,
}

// Classification partitions a match's discovered grp ids into real cards
// (resolved against the card database) and special objects (named locally
// from their representative facts). The two sets are disjoint.
type Classification struct {
	RealCardIDs    map[int]bool
	SpecialObjects map[int]parser.GameObject
}

// Classify partitions the grp ids referenced by a match. Inputs are the
// decklist card ids, the instance facts map, and the grp ids referenced by
// recorded actions.
//
// An id sighted with the Card object type, or present in the decklist, is
// real. An id ever sighted as an Omen is special no matter what, in any
// sighting order: an Omen back face aliases its front face's grp id, and the
// alias must never be looked up as the front face. Ids referenced only by
// actions default to real; anything else sighted defaults to special with
// first-sighted facts.
func Classify(deckIDs []int, objects map[int]parser.GameObject, actionGrpIDs []int) Classification {
	c := Classification{
		RealCardIDs:    make(map[int]bool),
		SpecialObjects: make(map[int]parser.GameObject),
	}

	// Instance maps are unordered; walk them by ascending instance id so the
	// first-sighting-wins rules below are deterministic.
	instanceIDs := make([]int, 0, len(objects))
	for id := range objects {
		instanceIDs = append(instanceIDs, id)
	}
	sort.Ints(instanceIDs)

	omenIDs := make(map[int]bool)
	for _, instanceID := range instanceIDs {
		obj := objects[instanceID]
		if obj.GrpID != 0 && obj.Type == objectTypeOmen {
			omenIDs[obj.GrpID] = true
		}
	}

	for _, cardID := range deckIDs {
		if cardID != 0 && !omenIDs[cardID] {
			c.RealCardIDs[cardID] = true
		}
	}

	for _, instanceID := range instanceIDs {
		obj := objects[instanceID]
		if obj.GrpID == 0 || skipObjectTypes[obj.Type] {
			continue
		}
		switch {
		case omenIDs[obj.GrpID]:
			// Keep the Omen-typed sighting as the representative facts even
			// when other sightings of the id exist.
			if obj.Type == objectTypeOmen {
				c.SpecialObjects[obj.GrpID] = obj
			} else if _, ok := c.SpecialObjects[obj.GrpID]; !ok {
				c.SpecialObjects[obj.GrpID] = obj
			}
		case obj.Type == objectTypeCard:
			c.RealCardIDs[obj.GrpID] = true
			delete(c.SpecialObjects, obj.GrpID)
		case c.RealCardIDs[obj.GrpID]:
			// Real-card classification takes priority over later special
			// sightings of the same id.
		default:
			if _, ok := c.SpecialObjects[obj.GrpID]; !ok {
				c.SpecialObjects[obj.GrpID] = obj
			}
		}
	}

	for _, grpID := range actionGrpIDs {
		if grpID == 0 {
			continue
		}
		if _, special := c.SpecialObjects[grpID]; !special {
			c.RealCardIDs[grpID] = true
		}
	}

	return c
}
