package rendering

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/coreybb/versefeed/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func verse(primary, primaryTr, secondaryTr string) models.VerseRecord {
	return models.VerseRecord{
		GroupName:            "Al-Fatiha",
		GroupOrdinal:         1,
		VerseOrdinal:         2,
		PrimaryText:          primary,
		PrimaryTranslation:   primaryTr,
		SecondaryTranslation: secondaryTr,
	}
}

// fourHundredChars builds a 400-character text of 7-letter words separated by
// single spaces, with the last word one letter longer.
func fourHundredChars() string {
	words := make([]string, 50)
	for i := range words {
		words[i] = strings.Repeat(string(rune('a'+i%26)), 7)
	}
	words[49] += "z"
	return strings.Join(words, " ")
}

func TestChunkWords_PreservesWordsWithinLimit(t *testing.T) {
	t.Parallel()

	text := fourHundredChars()
	require.Equal(t, 400, len(text))

	chunks := ChunkWords(text, 180)
	require.Len(t, chunks, 3)

	var rejoined []string
	for _, c := range chunks {
		assert.LessOrEqual(t, utf8.RuneCountInString(c), 180)
		rejoined = append(rejoined, strings.Fields(c)...)
	}
	assert.Equal(t, strings.Fields(text), rejoined)
}

func TestChunkWords_EdgeCases(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		limit int
		want  []string
	}{
		{name: "empty", text: "", limit: 10, want: nil},
		{name: "whitespace only", text: "   ", limit: 10, want: nil},
		{name: "fits exactly", text: "abcd efgh", limit: 9, want: []string{"abcd efgh"}},
		{name: "one over", text: "abcd efghi", limit: 9, want: []string{"abcd", "efghi"}},
		{name: "oversized word stands alone", text: "ab abcdefghijkl cd", limit: 5, want: []string{"ab", "abcdefghijkl", "cd"}},
		{name: "collapses repeated spaces", text: "ab  cd", limit: 10, want: []string{"ab cd"}},
		{name: "trailing partial chunk kept", text: "aaa bbb c", limit: 7, want: []string{"aaa bbb", "c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ChunkWords(tt.text, tt.limit))
		})
	}
}

func TestRender_LongBoundary(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		verse  models.VerseRecord
		lang   models.Language
		layout models.CardLayout
	}{
		{name: "primary at 250", verse: verse(strings.Repeat("a", 250), "t", "s"), lang: models.LanguagePrimary, layout: models.LayoutSingle},
		{name: "primary at 251", verse: verse(strings.Repeat("a", 251), "t", "s"), lang: models.LanguagePrimary, layout: models.LayoutPaginated},
		{name: "translation at 250", verse: verse("p", strings.Repeat("t", 250), "s"), lang: models.LanguagePrimary, layout: models.LayoutSingle},
		{name: "translation at 251", verse: verse("p", strings.Repeat("t", 251), "s"), lang: models.LanguagePrimary, layout: models.LayoutPaginated},
		{name: "secondary at 251", verse: verse("p", "t", strings.Repeat("s", 251)), lang: models.LanguageSecondary, layout: models.LayoutPaginated},
		{name: "long translation hidden", verse: verse("p", strings.Repeat("t", 400), "s"), lang: models.LanguageNone, layout: models.LayoutSingle},
		{name: "multibyte counted by rune", verse: verse(strings.Repeat("ب", 250), "t", "s"), lang: models.LanguagePrimary, layout: models.LayoutSingle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.layout, Render(tt.verse, tt.lang).Layout)
		})
	}
}

func TestRender_SinglePage(t *testing.T) {
	t.Parallel()

	v := verse("بِسْمِ اللَّهِ", "In the name of God", "به نام خدا")

	card := Render(v, models.LanguageSecondary)
	require.Len(t, card.Pages, 1)
	page := card.Pages[0]
	assert.Equal(t, v.PrimaryText, page.PrimaryText)
	require.NotNil(t, page.Translation)
	assert.Equal(t, "به نام خدا", page.Translation.Text)
	assert.True(t, page.Translation.RTL)
	assert.Equal(t, DefaultSecondaryFontHint, page.Translation.FontHint)
	assert.Equal(t, models.CardMeta{GroupOrdinal: 1, VerseOrdinal: 2, GroupName: "Al-Fatiha"}, card.Meta)
	assert.Empty(t, card.ID)

	card = Render(v, models.LanguagePrimary)
	require.NotNil(t, card.Pages[0].Translation)
	assert.False(t, card.Pages[0].Translation.RTL)
	assert.Empty(t, card.Pages[0].Translation.FontHint)

	card = Render(v, models.LanguageNone)
	assert.Nil(t, card.Pages[0].Translation)
}

func TestRender_Paginated(t *testing.T) {
	t.Parallel()

	v := verse(fourHundredChars(), "short translation", "")

	card := Render(v, models.LanguagePrimary)
	require.Equal(t, models.LayoutPaginated, card.Layout)
	require.Len(t, card.Pages, 4)
	for i, page := range card.Pages[:3] {
		assert.Equal(t, i+1, page.Index)
		assert.Equal(t, 4, page.Total)
		assert.NotEmpty(t, page.PrimaryText)
		assert.Nil(t, page.Translation)
	}
	assert.Equal(t, "1/4", card.Pages[0].Label)
	last := card.Pages[3]
	assert.Equal(t, models.TranslationPageLabel, last.Label)
	require.NotNil(t, last.Translation)
	assert.Equal(t, "short translation", last.Translation.Text)

	// An exhausted secondary source still gets its translation page.
	card = Render(v, models.LanguageSecondary)
	require.Len(t, card.Pages, 4)
	assert.True(t, card.Pages[3].Translation.RTL)
	assert.Empty(t, card.Pages[3].Translation.Text)

	card = Render(v, models.LanguageNone)
	require.Len(t, card.Pages, 3)
	assert.Equal(t, "3/3", card.Pages[2].Label)
}

func TestRender_LongTranslationKeepsWholeTranslationPage(t *testing.T) {
	t.Parallel()

	translation := strings.Repeat("word ", 100)
	card := Render(verse("short primary", translation, ""), models.LanguagePrimary)

	require.Equal(t, models.LayoutPaginated, card.Layout)
	require.Len(t, card.Pages, 2)
	assert.Equal(t, "1/2", card.Pages[0].Label)
	assert.Equal(t, "short primary", card.Pages[0].PrimaryText)
	assert.Equal(t, translation, card.Pages[1].Translation.Text)
}

func TestRender_Deterministic(t *testing.T) {
	t.Parallel()

	v := verse(fourHundredChars(), "t", "s")
	assert.Equal(t, Render(v, models.LanguageSecondary), Render(v, models.LanguageSecondary))
}

func TestNewRenderer_CustomOptions(t *testing.T) {
	t.Parallel()

	r := NewRenderer(Options{LongThreshold: 10, ChunkLimit: 5, SecondaryFontHint: "amiri"})
	card := r.Render(verse("aaaa bbbb cccc", "t", "s"), models.LanguageSecondary)

	require.Equal(t, models.LayoutPaginated, card.Layout)
	require.Len(t, card.Pages, 4)
	assert.Equal(t, "amiri", card.Pages[3].Translation.FontHint)
}
