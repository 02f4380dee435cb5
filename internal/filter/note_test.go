package filter

import (
	"testing"

	"github.com/code-troopers/postits/pkg/board"
	"github.com/stretchr/testify/assert"
)

func intPtr(i int) *int { return &i }

func TestCriteriaMatches(t *testing.T) {
	ada := &board.User{ID: "u1"}
	note := board.Note{ID: "n1", Text: board.String("Ship the Release"), Votes: 2, Author: ada}

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{name: "no filters", criteria: Criteria{}, want: true},
		{name: "author match", criteria: Criteria{AuthorID: "u1"}, want: true},
		{name: "author mismatch", criteria: Criteria{AuthorID: "u2"}, want: false},
		{name: "glob match ignores case", criteria: Criteria{TextGlob: "ship*"}, want: true},
		{name: "glob mismatch", criteria: Criteria{TextGlob: "*bug*"}, want: false},
		{name: "malformed glob never matches", criteria: Criteria{TextGlob: "[ship"}, want: false},
		{name: "min votes inclusive", criteria: Criteria{MinVotes: intPtr(2)}, want: true},
		{name: "min votes above", criteria: Criteria{MinVotes: intPtr(3)}, want: false},
		{name: "all criteria", criteria: Criteria{AuthorID: "u1", TextGlob: "*release", MinVotes: intPtr(0)}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.Matches(&note))
		})
	}
}

func TestCriteriaAuthorlessNote(t *testing.T) {
	c := Criteria{AuthorID: "u1"}
	assert.False(t, c.Matches(&board.Note{ID: "n1"}))
}

func TestHasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{AuthorID: "u1"}).HasFilters())
	assert.True(t, (&Criteria{MinVotes: intPtr(0)}).HasFilters(), "a zero lower bound still filters out negative votes")
}

func TestCriteriaApply(t *testing.T) {
	notes := []board.Note{{ID: "a", Votes: -1}, {ID: "b", Votes: 4}, {ID: "c", Votes: 0}}

	c := Criteria{MinVotes: intPtr(0)}
	got := c.Apply(notes)
	assert.Equal(t, []board.Note{{ID: "b", Votes: 4}, {ID: "c", Votes: 0}}, got)

	assert.Equal(t, notes, (&Criteria{}).Apply(notes))
}
