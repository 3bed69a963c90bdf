package models

import (
	"fmt"
	"strings"
)

// Mode selects how the feed picks its next verse.
type Mode string

const (
	ModeRandom     Mode = "random"
	ModeSequential Mode = "sequential"
)

// Language selects which translation is shown under the primary text.
type Language string

const (
	LanguagePrimary   Language = "primary"
	LanguageSecondary Language = "secondary"
	LanguageNone      Language = "none"
)

// Setting keys persisted in the key-value store.
const (
	SettingMode         = "mode"
	SettingLanguage     = "language"
	SettingResumeCursor = "resume-cursor"
)

// ParseMode accepts the canonical names plus "order", the value older
// clients persisted for sequential playback.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ModeRandom):
		return ModeRandom, nil
	case string(ModeSequential), "order":
		return ModeSequential, nil
	}
	return "", fmt.Errorf("invalid mode %q (must be %s or %s)", s, ModeRandom, ModeSequential)
}

// ParseLanguage accepts the canonical names plus the "en"/"fa" codes older
// clients persisted.
func ParseLanguage(s string) (Language, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(LanguagePrimary), "en":
		return LanguagePrimary, nil
	case string(LanguageSecondary), "fa":
		return LanguageSecondary, nil
	case string(LanguageNone):
		return LanguageNone, nil
	}
	return "", fmt.Errorf("invalid language %q (must be %s, %s or %s)", s, LanguagePrimary, LanguageSecondary, LanguageNone)
}

// FeedState is the mutable per-session playback state.
type FeedState struct {
	Mode          Mode     `json:"mode"`
	Language      Language `json:"language"`
	ResumeCursor  int      `json:"resume_cursor"`
	RenderedCount int      `json:"rendered_count"`
}

// DefaultFeedState is used for any value missing from storage.
func DefaultFeedState() FeedState {
	return FeedState{
		Mode:     ModeRandom,
		Language: LanguagePrimary,
	}
}
