package datastore

import (
	"errors"
	"fmt"

	"github.com/coreybb/versefeed/models"
)

// ErrOutOfRange is returned by VerseStore.At for an index outside [0, Size()).
var ErrOutOfRange = errors.New("verse index out of range")

type groupSpan struct {
	summary models.GroupSummary
	end     int
}

// VerseStore holds the merged verse sequence. It is filled once, right after
// a successful merge, and never mutated afterwards.
type VerseStore struct {
	records []models.VerseRecord
	groups  []groupSpan
	byGroup map[int]int
	byRef   map[[2]int]int
}

// NewVerseStore copies records into a new store.
func NewVerseStore(records []models.VerseRecord) *VerseStore {
	s := &VerseStore{
		records: make([]models.VerseRecord, len(records)),
		byGroup: make(map[int]int),
		byRef:   make(map[[2]int]int, len(records)),
	}
	copy(s.records, records)

	for i, rec := range s.records {
		key := [2]int{rec.GroupOrdinal, rec.VerseOrdinal}
		if _, seen := s.byRef[key]; !seen {
			s.byRef[key] = i
		}

		n := len(s.groups)
		if n > 0 && s.groups[n-1].summary.Ordinal == rec.GroupOrdinal && s.groups[n-1].end == i {
			s.groups[n-1].summary.VerseCount++
			s.groups[n-1].end++
			continue
		}
		if _, seen := s.byGroup[rec.GroupOrdinal]; !seen {
			s.byGroup[rec.GroupOrdinal] = n
		}
		s.groups = append(s.groups, groupSpan{
			summary: models.GroupSummary{
				Name:       rec.GroupName,
				Ordinal:    rec.GroupOrdinal,
				VerseCount: 1,
				FirstIndex: i,
			},
			end: i + 1,
		})
	}
	return s
}

func (s *VerseStore) Size() int {
	return len(s.records)
}

func (s *VerseStore) At(index int) (models.VerseRecord, error) {
	if index < 0 || index >= len(s.records) {
		return models.VerseRecord{}, fmt.Errorf("%w: %d not in [0, %d)", ErrOutOfRange, index, len(s.records))
	}
	return s.records[index], nil
}

// IndexOf finds the position of a verse by its ordinals.
func (s *VerseStore) IndexOf(groupOrdinal, verseOrdinal int) (int, bool) {
	i, ok := s.byRef[[2]int{groupOrdinal, verseOrdinal}]
	return i, ok
}

// Group returns the verses of the first group with the given ordinal.
func (s *VerseStore) Group(ordinal int) (models.GroupSummary, []models.VerseRecord, bool) {
	gi, ok := s.byGroup[ordinal]
	if !ok {
		return models.GroupSummary{}, nil, false
	}
	span := s.groups[gi]
	out := make([]models.VerseRecord, span.end-span.summary.FirstIndex)
	copy(out, s.records[span.summary.FirstIndex:span.end])
	return span.summary, out, true
}

// Groups lists the groups in store order.
func (s *VerseStore) Groups() []models.GroupSummary {
	out := make([]models.GroupSummary, len(s.groups))
	for i, g := range s.groups {
		out[i] = g.summary
	}
	return out
}
