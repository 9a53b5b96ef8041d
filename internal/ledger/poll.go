package ledger

import (
	"fmt"

	"github.com/susu3304/tallybot/internal/entity"
	"github.com/susu3304/tallybot/internal/serializer"
)

// open checks that e is of kind and accepts actions, and returns a private copy.
func open(e entity.Entity, kind entity.Kind) (entity.Entity, error) {
	if e.Kind != kind {
		return entity.Entity{}, fmt.Errorf("%s on %s %s: %w", kind, e.Kind, e.ID, entity.ErrKindMismatch)
	}
	if e.Closed {
		return entity.Entity{}, fmt.Errorf("%s: %w", e.ID, entity.ErrClosed)
	}
	return e.Clone(), nil
}

// CastVoteOp puts actorID in choiceID and removes them from any other choice.
// Voting for the current choice again returns serializer.ErrNoChange.
func CastVoteOp(e entity.Entity, actorID, choiceID string) (entity.Entity, error) {
	next, err := open(e, entity.KindPoll)
	if err != nil {
		return entity.Entity{}, err
	}
	poll := next.Poll
	idx := poll.Choice(choiceID)
	if idx < 0 {
		return entity.Entity{}, fmt.Errorf("choice %q: %w", choiceID, entity.ErrUnknownChoice)
	}
	if current, ok := poll.VoteOf(actorID); ok && current == choiceID {
		return e, serializer.ErrNoChange
	}

	removeVoter(poll, actorID)
	poll.Choices[idx].Voters = append(poll.Choices[idx].Voters, actorID)
	return next, nil
}

// RetractVoteOp removes actorID from the poll.
func RetractVoteOp(e entity.Entity, actorID string) (entity.Entity, error) {
	next, err := open(e, entity.KindPoll)
	if err != nil {
		return entity.Entity{}, err
	}
	if !removeVoter(next.Poll, actorID) {
		return e, serializer.ErrNoChange
	}
	return next, nil
}

func removeVoter(poll *entity.Poll, actorID string) bool {
	removed := false
	for i := range poll.Choices {
		voters := poll.Choices[i].Voters[:0]
		for _, v := range poll.Choices[i].Voters {
			if v == actorID {
				removed = true
				continue
			}
			voters = append(voters, v)
		}
		poll.Choices[i].Voters = voters
	}
	return removed
}
