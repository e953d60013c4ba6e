package models

// Reaction is the single-valued sentiment a user holds on a post.
type Reaction string

const (
	ReactionNone    Reaction = "none"
	ReactionLike    Reaction = "like"
	ReactionDislike Reaction = "dislike"
)

// Toggle applies a like or dislike by userID with toggle semantics: repeating
// the current reaction clears it, otherwise the user moves into the matching
// set and out of the opposite one. It returns the user's resulting reaction.
func (p *Post) Toggle(userID string, r Reaction) Reaction {
	own, opposite := &p.LikedBy, &p.DislikedBy
	if r == ReactionDislike {
		own, opposite = &p.DislikedBy, &p.LikedBy
	}

	if p.ReactionOf(userID) == r {
		*own = removeID(*own, userID)
		return ReactionNone
	}
	*own = append(removeID(*own, userID), userID)
	*opposite = removeID(*opposite, userID)
	return r
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
