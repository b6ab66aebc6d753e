// Package texts holds the template pools for story replies and direct
// messages.
package texts

import "math/rand"

// Pool carries the two named text collections. A collection only needs to be
// non-empty when the corresponding action type is enabled in the chain.
type Pool struct {
	StoryReplies   []string `json:"story_replies"`
	DirectMessages []string `json:"direct_messages"`
}

// PickStoryReply returns a pseudo-randomly chosen reply template, or "" if
// the pool is empty.
func (p Pool) PickStoryReply(rnd *rand.Rand) string {
	return pick(rnd, p.StoryReplies)
}

// PickDirectMessage returns a pseudo-randomly chosen DM template, or "" if
// the pool is empty.
func (p Pool) PickDirectMessage(rnd *rand.Rand) string {
	return pick(rnd, p.DirectMessages)
}

func pick(rnd *rand.Rand, ss []string) string {
	if len(ss) == 0 {
		return ""
	}
	return ss[rnd.Intn(len(ss))]
}
