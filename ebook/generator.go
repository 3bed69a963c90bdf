package ebook

import (
	"context"
	"fmt"
	"html"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/coreybb/versefeed/models"
	epub "github.com/go-shiori/go-epub"
)

const defaultAuthor = "versefeed"

// GroupGenerator writes a verse group as an EPUB book.
type GroupGenerator struct {
	author string
}

func NewGroupGenerator() *GroupGenerator {
	log.Println("INFO (GroupGenerator): Using go-epub for EPUB generation")
	return &GroupGenerator{author: defaultAuthor}
}

// GenerateGroup writes one EPUB for group with a section per verse. Each
// section holds the primary text followed by the translation chosen by lang.
// The book uses right-to-left page progression.
func (g *GroupGenerator) GenerateGroup(
	ctx context.Context,
	group models.GroupSummary,
	verses []models.VerseRecord,
	lang models.Language,
	outputDir string,
) (generatedFilePath string, fileSize int64, err error) {

	if len(verses) == 0 {
		return "", 0, fmt.Errorf("group %d has no verses", group.Ordinal)
	}
	if outputDir == "" {
		return "", 0, fmt.Errorf("output directory cannot be empty")
	}

	startTime := time.Now()

	title := group.Name
	if title == "" {
		title = fmt.Sprintf("Group %d", group.Ordinal)
	}

	e, err := epub.NewEpub(title)
	if err != nil {
		return "", 0, fmt.Errorf("failed to create epub: %w", err)
	}
	e.SetAuthor(g.author)
	e.SetLang("ar")
	e.SetPpd("rtl")
	e.SetDescription(fmt.Sprintf("%s (%d verses)", title, len(verses)))

	for _, v := range verses {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		sectionTitle := fmt.Sprintf("%d:%d", v.GroupOrdinal, v.VerseOrdinal)
		filename := fmt.Sprintf("verse-%03d-%04d.xhtml", v.GroupOrdinal, v.VerseOrdinal)
		if _, err := e.AddSection(sectionBody(v, lang), sectionTitle, filename, ""); err != nil {
			return "", 0, fmt.Errorf("failed to add section %s: %w", sectionTitle, err)
		}
	}

	if err := os.MkdirAll(outputDir, os.ModePerm); err != nil {
		return "", 0, fmt.Errorf("failed to create output directory '%s': %w", outputDir, err)
	}

	outputFileName := fmt.Sprintf("group-%03d-%s.epub", group.Ordinal, lang)
	fullOutputFilePath := filepath.Join(outputDir, outputFileName)

	size, err := writeAtomically(e, outputDir, fullOutputFilePath)
	if err != nil {
		return "", 0, err
	}

	log.Printf("INFO (GroupGenerator): Generated EPUB for group %d: %s (Size: %d bytes, Took: %s)",
		group.Ordinal, fullOutputFilePath, size, time.Since(startTime))

	return fullOutputFilePath, size, nil
}

// writeAtomically writes the book to a temp file in dir and renames it onto
// target, so readers of an earlier export never see a partial file.
func writeAtomically(e *epub.Epub, dir, target string) (int64, error) {
	tmp, err := os.CreateTemp(dir, ".epub-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file for '%s': %w", target, err)
	}
	tmpName := tmp.Name()

	size, err := e.WriteTo(tmp)
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to write epub file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to close epub file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return 0, fmt.Errorf("failed to move epub into place at '%s': %w", target, err)
	}
	return size, nil
}

// sectionBody renders the minimal XHTML for one verse.
func sectionBody(v models.VerseRecord, lang models.Language) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<h2>%d</h2>`, v.VerseOrdinal)
	fmt.Fprintf(&b, `<p dir="rtl" lang="ar">%s</p>`, html.EscapeString(v.PrimaryText))

	translation := v.TranslationFor(lang)
	switch {
	case translation == "":
	case lang == models.LanguageSecondary:
		fmt.Fprintf(&b, `<p dir="rtl" lang="fa">%s</p>`, html.EscapeString(translation))
	default:
		fmt.Fprintf(&b, `<p dir="ltr" lang="en">%s</p>`, html.EscapeString(translation))
	}
	return b.String()
}
