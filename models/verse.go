package models

import "fmt"

// RawGroup is one chapter as delivered by the nested primary source.
type RawGroup struct {
	Name    string         `json:"name"`
	Ordinal int            `json:"id"`
	Verses  []RawChildItem `json:"verses"`
}

// RawChildItem is a single verse inside a RawGroup.
type RawChildItem struct {
	Ordinal     int    `json:"id"`
	Text        string `json:"text"`
	Translation string `json:"translation"`
}

// RawFlatItem is one entry of the flat translation source. Chapter and Verse
// are zero when the source does not carry them.
type RawFlatItem struct {
	Chapter int    `json:"chapter,omitempty"`
	Verse   int    `json:"verse,omitempty"`
	Text    string `json:"text"`
}

// VerseRecord is the merged, per-verse view of both sources.
type VerseRecord struct {
	GroupName            string `json:"group_name"`
	GroupOrdinal         int    `json:"group_ordinal"`
	VerseOrdinal         int    `json:"verse_ordinal"`
	PrimaryText          string `json:"primary_text"`
	PrimaryTranslation   string `json:"primary_translation"`
	SecondaryTranslation string `json:"secondary_translation"`
}

// Ref returns the "group:verse" reference used in captions and logs.
func (v VerseRecord) Ref() string {
	return fmt.Sprintf("%d:%d", v.GroupOrdinal, v.VerseOrdinal)
}

// TranslationFor returns the verse text for the given display language.
// LanguageNone yields an empty string.
func (v VerseRecord) TranslationFor(lang Language) string {
	switch lang {
	case LanguagePrimary:
		return v.PrimaryTranslation
	case LanguageSecondary:
		return v.SecondaryTranslation
	default:
		return ""
	}
}

// GroupSummary describes one group held by the verse store.
type GroupSummary struct {
	Name       string `json:"name"`
	Ordinal    int    `json:"ordinal"`
	VerseCount int    `json:"verse_count"`
	FirstIndex int    `json:"first_index"`
}
