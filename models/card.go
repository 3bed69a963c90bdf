package models

// CardLayout is the presentation chosen for a rendered verse.
type CardLayout string

const (
	LayoutSingle    CardLayout = "single"
	LayoutPaginated CardLayout = "paginated"
)

// TranslationPageLabel labels the trailing translation page of a paginated card.
const TranslationPageLabel = "Translation"

type RenderedCard struct {
	ID     string     `json:"id,omitempty"`
	Layout CardLayout `json:"layout"`
	Pages  []CardPage `json:"pages"`
	Meta   CardMeta   `json:"meta"`
}

// CardPage is one horizontal page. Index and Total are 1-based and only set
// on paginated cards.
type CardPage struct {
	Index       int               `json:"index,omitempty"`
	Total       int               `json:"total,omitempty"`
	Label       string            `json:"label,omitempty"`
	PrimaryText string            `json:"primary_text,omitempty"`
	Translation *TranslationBlock `json:"translation,omitempty"`
}

type TranslationBlock struct {
	Text     string   `json:"text"`
	Language Language `json:"language"`
	RTL      bool     `json:"rtl"`
	FontHint string   `json:"font_hint,omitempty"`
}

// CardMeta carries the caption fields of a card.
type CardMeta struct {
	GroupOrdinal int    `json:"group_ordinal"`
	VerseOrdinal int    `json:"verse_ordinal"`
	GroupName    string `json:"group_name"`
}
