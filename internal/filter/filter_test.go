package filter

import (
	"slices"
	"testing"

	"github.com/dori/todosync/internal/model"
)

func sample() model.Collection {
	return model.Collection{
		{ID: "1", Text: "Team meeting", Tags: []string{"work"}},
		{ID: "2", Text: "Buy milk", Tags: []string{"home"}},
		{ID: "3", Text: "Old meeting", Completed: true, Tags: []string{"work", "archive"}},
	}
}

func ids(c model.Collection) []string {
	out := make([]string, len(c))
	for i, t := range c {
		out[i] = t.ID
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name string
		crit Criteria
		want []string
	}{
		{"zero value", Criteria{}, []string{"1", "2", "3"}},
		{"active", Criteria{Status: StatusActive}, []string{"1", "2"}},
		{"completed", Criteria{Status: StatusCompleted}, []string{"3"}},
		{"tag", Criteria{Tag: "work"}, []string{"1", "3"}},
		{"search is case insensitive", Criteria{Search: "MEET"}, []string{"1", "3"}},
		{"combined", Criteria{Status: StatusActive, Tag: "work", Search: "meet"}, []string{"1"}},
		{"unknown tag", Criteria{Tag: "nope"}, []string{}},
		{"spaces are matched literally", Criteria{Search: " meeting"}, []string{"1", "3"}},
		{"trailing space must match", Criteria{Search: "milk "}, []string{}},
		{"single space", Criteria{Search: " "}, []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(sample(), tt.crit))
			if !slices.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApplyDoesNotAlias(t *testing.T) {
	c := sample()
	got := Apply(c, Criteria{})
	got[0].Tags[0] = "changed"
	if c[0].Tags[0] != "work" {
		t.Fatal("filtered view shares tags with the source collection")
	}
}

func TestTags(t *testing.T) {
	got := Tags(sample())
	want := []string{"work", "home", "archive"}
	if !slices.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestRemaining(t *testing.T) {
	if n := Remaining(sample()); n != 2 {
		t.Errorf("expected 2 remaining, got %d", n)
	}
	if n := Remaining(nil); n != 0 {
		t.Errorf("expected 0 remaining for empty collection, got %d", n)
	}
}

func TestStatusCycle(t *testing.T) {
	s := StatusAll
	var seen []Status
	for i := 0; i < 3; i++ {
		s = s.Next()
		seen = append(seen, s)
	}
	if !slices.Equal(seen, []Status{StatusActive, StatusCompleted, StatusAll}) {
		t.Errorf("unexpected cycle: %v", seen)
	}
	if ParseStatus(" Done ") != StatusCompleted || ParseStatus("bogus") != StatusAll {
		t.Error("ParseStatus mismatch")
	}
}

func TestIsZeroKeepsSpaceSearch(t *testing.T) {
	if (Criteria{Search: " "}).IsZero() {
		t.Error("a space is a search")
	}
	if !(Criteria{Status: StatusAll}).IsZero() {
		t.Error("all with nothing else should be zero")
	}
}
