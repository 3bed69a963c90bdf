package processing

import (
	"log"

	"github.com/coreybb/versefeed/models"
)

// MergeOptions tunes MergeWithOptions. The zero value is positional pairing
// with no cross-checks.
type MergeOptions struct {
	// Strict compares chapter/verse numbers exposed by the flat source with
	// the ordinals of the record they are paired with and reports mismatches.
	// Pairing itself stays positional.
	Strict bool
}

// Mismatch records a flat item whose own reference disagrees with the record
// it was paired with.
type Mismatch struct {
	Index        int `json:"index"`
	GroupOrdinal int `json:"group_ordinal"`
	VerseOrdinal int `json:"verse_ordinal"`
	FlatChapter  int `json:"flat_chapter"`
	FlatVerse    int `json:"flat_verse"`
}

// MergeReport summarises how the two sources lined up.
type MergeReport struct {
	Records       int        `json:"records"`
	FlatConsumed  int        `json:"flat_consumed"`
	FlatExcess    int        `json:"flat_excess"`
	MissingSecond int        `json:"missing_secondary"`
	Mismatches    []Mismatch `json:"mismatches,omitempty"`
}

// Aligned reports whether both sources had the same length and no strict
// mismatches were found.
func (r MergeReport) Aligned() bool {
	return r.FlatExcess == 0 && r.MissingSecond == 0 && len(r.Mismatches) == 0
}

// Merge walks groups in document order and pairs each child with the next
// unconsumed flat item. The result always has one record per child; once the
// flat source runs out the remaining records get an empty secondary text, and
// flat items beyond the child count are never read.
func Merge(groups []models.RawGroup, flat []models.RawFlatItem) []models.VerseRecord {
	records, _ := MergeWithOptions(groups, flat, MergeOptions{})
	return records
}

// MergeWithOptions is Merge plus a report of the alignment.
func MergeWithOptions(groups []models.RawGroup, flat []models.RawFlatItem, opts MergeOptions) ([]models.VerseRecord, MergeReport) {
	total := 0
	for _, g := range groups {
		total += len(g.Verses)
	}

	records := make([]models.VerseRecord, 0, total)
	var report MergeReport
	f := 0

	for _, g := range groups {
		for _, child := range g.Verses {
			rec := models.VerseRecord{
				GroupName:          g.Name,
				GroupOrdinal:       g.Ordinal,
				VerseOrdinal:       child.Ordinal,
				PrimaryText:        child.Text,
				PrimaryTranslation: child.Translation,
			}

			if f < len(flat) {
				item := flat[f]
				rec.SecondaryTranslation = item.Text
				if opts.Strict && item.Chapter > 0 && item.Verse > 0 &&
					(item.Chapter != g.Ordinal || item.Verse != child.Ordinal) {
					report.Mismatches = append(report.Mismatches, Mismatch{
						Index:        len(records),
						GroupOrdinal: g.Ordinal,
						VerseOrdinal: child.Ordinal,
						FlatChapter:  item.Chapter,
						FlatVerse:    item.Verse,
					})
				}
				f++
			} else {
				report.MissingSecond++
			}

			records = append(records, rec)
		}
	}

	report.Records = len(records)
	report.FlatConsumed = f
	report.FlatExcess = len(flat) - f

	if opts.Strict && len(report.Mismatches) > 0 {
		first := report.Mismatches[0]
		log.Printf("WARN (Merger): %d positional mismatches between sources; first at index %d (record %d:%d, flat %d:%d)",
			len(report.Mismatches), first.Index, first.GroupOrdinal, first.VerseOrdinal, first.FlatChapter, first.FlatVerse)
	}

	return records, report
}
