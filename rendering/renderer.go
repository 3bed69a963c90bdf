// Package rendering turns verse records into card layouts.
package rendering

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/coreybb/versefeed/models"
)

const (
	// DefaultLongThreshold is the rune count above which a text no longer
	// fits a single page.
	DefaultLongThreshold = 250
	// DefaultChunkLimit is the maximum rune count of one primary-text page.
	DefaultChunkLimit = 180
	// DefaultSecondaryFontHint names the font used for secondary translations.
	DefaultSecondaryFontHint = "vazirmatn"
)

// Options configures a Renderer. Zero fields take the defaults above.
type Options struct {
	LongThreshold     int
	ChunkLimit        int
	SecondaryFontHint string
}

// Renderer holds no per-call state; Render is safe for concurrent use.
type Renderer struct {
	longThreshold     int
	chunkLimit        int
	secondaryFontHint string
}

func NewRenderer(opts Options) *Renderer {
	r := &Renderer{
		longThreshold:     opts.LongThreshold,
		chunkLimit:        opts.ChunkLimit,
		secondaryFontHint: opts.SecondaryFontHint,
	}
	if r.longThreshold <= 0 {
		r.longThreshold = DefaultLongThreshold
	}
	if r.chunkLimit <= 0 {
		r.chunkLimit = DefaultChunkLimit
	}
	if r.secondaryFontHint == "" {
		r.secondaryFontHint = DefaultSecondaryFontHint
	}
	return r
}

var defaultRenderer = NewRenderer(Options{})

// Render renders with the default options.
func Render(verse models.VerseRecord, lang models.Language) models.RenderedCard {
	return defaultRenderer.Render(verse, lang)
}

// IsLong reports whether the verse needs the paginated layout for lang.
func (r *Renderer) IsLong(verse models.VerseRecord, lang models.Language) bool {
	translation := verse.TranslationFor(lang)
	if utf8.RuneCountInString(verse.PrimaryText) > r.longThreshold {
		return true
	}
	return translation != "" && utf8.RuneCountInString(translation) > r.longThreshold
}

// Render lays out one verse. The output depends only on its inputs; the card
// ID is left empty for the caller to assign.
func (r *Renderer) Render(verse models.VerseRecord, lang models.Language) models.RenderedCard {
	card := models.RenderedCard{
		Meta: models.CardMeta{
			GroupOrdinal: verse.GroupOrdinal,
			VerseOrdinal: verse.VerseOrdinal,
			GroupName:    verse.GroupName,
		},
	}

	if !r.IsLong(verse, lang) {
		card.Layout = models.LayoutSingle
		card.Pages = []models.CardPage{{
			PrimaryText: verse.PrimaryText,
			Translation: r.translationBlock(verse, lang),
		}}
		return card
	}

	chunks := ChunkWords(verse.PrimaryText, r.chunkLimit)
	total := len(chunks)
	translation := r.translationBlock(verse, lang)
	if translation != nil {
		total++
	}

	card.Layout = models.LayoutPaginated
	card.Pages = make([]models.CardPage, 0, total)
	for i, chunk := range chunks {
		card.Pages = append(card.Pages, models.CardPage{
			Index:       i + 1,
			Total:       total,
			Label:       fmt.Sprintf("%d/%d", i+1, total),
			PrimaryText: chunk,
		})
	}
	if translation != nil {
		card.Pages = append(card.Pages, models.CardPage{
			Index:       total,
			Total:       total,
			Label:       models.TranslationPageLabel,
			Translation: translation,
		})
	}
	return card
}

// translationBlock is nil when no translation is displayed.
func (r *Renderer) translationBlock(verse models.VerseRecord, lang models.Language) *models.TranslationBlock {
	if lang == models.LanguageNone {
		return nil
	}
	block := &models.TranslationBlock{
		Text:     verse.TranslationFor(lang),
		Language: lang,
	}
	if lang == models.LanguageSecondary {
		block.RTL = true
		block.FontHint = r.secondaryFontHint
	}
	return block
}

// ChunkWords splits text into whole-word chunks of at most limit runes. Words
// are accumulated greedily; a chunk closes when the next word would push it
// past the limit. A word longer than the limit becomes a chunk on its own.
func ChunkWords(text string, limit int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	for _, word := range words {
		wordLen := utf8.RuneCountInString(word)
		if currentLen > 0 && currentLen+1+wordLen > limit {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}
		current.WriteString(word)
		currentLen += wordLen
	}
	if currentLen > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
