package tui

import (
	"regexp"

	"github.com/yiblet/halen/internal/history"
)

// SearchMsg represents messages that the search component handles
type SearchMsg interface {
	isSearchMsg()
}

type StartSearchMsg struct{}

func (StartSearchMsg) isSearchMsg() {}

type UpdateSearchInputMsg struct {
	Input string
}

func (UpdateSearchInputMsg) isSearchMsg() {}

type ExecuteSearchMsg struct{}

func (ExecuteSearchMsg) isSearchMsg() {}

type CancelSearchMsg struct{}

func (CancelSearchMsg) isSearchMsg() {}

type NextMatchMsg struct{}

func (NextMatchMsg) isSearchMsg() {}

type PrevMatchMsg struct{}

func (PrevMatchMsg) isSearchMsg() {}

type ClearSearchMsg struct{}

func (ClearSearchMsg) isSearchMsg() {}

// SearchModel holds the state of a case-insensitive regexp search across
// history entries.
type SearchModel struct {
	Active       bool   // true while the pattern is being typed
	Input        string // pattern being typed
	Pattern      string // last executed pattern
	Error        string
	Matches      []int // indexes of matching entries
	CurrentMatch int   // index into Matches, -1 if none
}

func NewSearchModel() SearchModel {
	return SearchModel{CurrentMatch: -1}
}

func (s *SearchModel) Update(msg SearchMsg) error {
	switch m := msg.(type) {
	case StartSearchMsg:
		s.Active = true
		s.Input = ""
		s.Error = ""
	case UpdateSearchInputMsg:
		s.Input = m.Input
	case ExecuteSearchMsg:
		if s.Input == "" {
			s.clear()
			s.Active = false
			return nil
		}
		if _, err := regexp.Compile("(?i)" + s.Input); err != nil {
			// Stay active so the pattern can be corrected.
			s.Error = err.Error()
			return nil
		}
		s.Pattern = s.Input
		s.Error = ""
		s.Active = false
	case CancelSearchMsg:
		s.Active = false
		s.Input = ""
		s.Error = ""
	case NextMatchMsg:
		if len(s.Matches) > 0 {
			s.CurrentMatch = (s.CurrentMatch + 1) % len(s.Matches)
		}
	case PrevMatchMsg:
		if len(s.Matches) > 0 {
			s.CurrentMatch = (s.CurrentMatch - 1 + len(s.Matches)) % len(s.Matches)
		}
	case ClearSearchMsg:
		s.clear()
	}
	return nil
}

func (s *SearchModel) clear() {
	s.Pattern = ""
	s.Matches = nil
	s.CurrentMatch = -1
	s.Error = ""
}

func (s *SearchModel) HasMatches() bool {
	return len(s.Matches) > 0
}

// CurrentEntry returns the entry index of the current match.
func (s *SearchModel) CurrentEntry() (int, bool) {
	if s.CurrentMatch < 0 || s.CurrentMatch >= len(s.Matches) {
		return 0, false
	}
	return s.Matches[s.CurrentMatch], true
}

// SetMatches replaces the match list and makes the first match at or after
// from current.
func (s *SearchModel) SetMatches(matches []int, from int) {
	s.Matches = matches
	s.CurrentMatch = -1
	if len(matches) == 0 {
		return
	}
	s.CurrentMatch = 0
	for i, index := range matches {
		if index >= from {
			s.CurrentMatch = i
			return
		}
	}
}

// MatchSet returns the matches as a lookup table.
func (s *SearchModel) MatchSet() map[int]bool {
	set := make(map[int]bool, len(s.Matches))
	for _, index := range s.Matches {
		set[index] = true
	}
	return set
}

// findMatches returns the indexes of entries whose content matches pattern.
// Overflowed entries are matched on their stored preview.
func findMatches(entries []history.Entry, pattern string) ([]int, error) {
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, err
	}
	var matches []int
	for i, e := range entries {
		if re.MatchString(e.Content) {
			matches = append(matches, i)
		}
	}
	return matches, nil
}
