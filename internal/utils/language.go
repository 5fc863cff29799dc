// Package utils holds small text helpers shared across the ingestion
// pipeline: script-based language detection and search query tokenization.
package utils

import "strings"

// Language codes
const (
	LangEnglish  = "en"
	LangHebrew   = "he"
	LangArabic   = "ar"
	LangRussian  = "ru"
	LangChinese  = "zh"
	LangJapanese = "ja"
	LangKorean   = "ko"
)

// Language is a detected language with a confidence derived from the share
// of characters written in its script
type Language struct {
	Code       string
	Name       string
	Confidence float64
}

type script struct {
	code   string
	name   string
	ranges [][2]rune
}

var scripts = []script{
	{LangHebrew, "Hebrew", [][2]rune{{0x0590, 0x05FF}}},
	{LangArabic, "Arabic", [][2]rune{{0x0600, 0x06FF}}},
	{LangRussian, "Russian", [][2]rune{{0x0400, 0x04FF}}},
	{LangKorean, "Korean", [][2]rune{{0xAC00, 0xD7AF}}},
	{LangJapanese, "Japanese", [][2]rune{{0x3040, 0x309F}, {0x30A0, 0x30FF}}},
	{LangChinese, "Chinese", [][2]rune{{0x4E00, 0x9FFF}}},
}

// scriptThreshold is the minimum share of characters in a script before we
// call the text that language. Transcripts mix in names, numbers, and English
// product terms, so the bar is deliberately low.
const scriptThreshold = 0.1

// DetectLanguage guesses the dominant language of transcript text from its
// character scripts. Latin-script text always comes back as English; telling
// Spanish from English needs more than script ranges and English is the safe
// default for summarization prompts.
func DetectLanguage(text string) Language {
	text = strings.TrimSpace(text)
	if text == "" {
		return Language{Code: LangEnglish, Name: "English"}
	}

	runes := []rune(text)
	counts := make(map[string]int, len(scripts))
	for _, r := range runes {
		for _, sc := range scripts {
			if inScript(r, sc) {
				counts[sc.code]++
				break
			}
		}
	}

	best := Language{Code: LangEnglish, Name: "English"}
	for _, sc := range scripts {
		ratio := float64(counts[sc.code]) / float64(len(runes))
		if ratio > scriptThreshold && ratio > best.Confidence {
			best = Language{Code: sc.code, Name: sc.name, Confidence: ratio}
		}
	}

	// Kana characters settle Chinese vs Japanese: Japanese text shares the
	// CJK ideograph range but Chinese never uses kana
	if best.Code == LangChinese && counts[LangJapanese] > 0 {
		kanaRatio := float64(counts[LangJapanese]) / float64(len(runes))
		if kanaRatio > 0.05 {
			best.Code = LangJapanese
			best.Name = "Japanese"
		}
	}

	return best
}

func inScript(r rune, sc script) bool {
	for _, rng := range sc.ranges {
		if r >= rng[0] && r <= rng[1] {
			return true
		}
	}
	return false
}

// SummaryInstruction returns a prompt addition that keeps AI summaries in
// the language the call was held in
func SummaryInstruction(lang Language) string {
	if lang.Code == LangEnglish {
		return ""
	}
	return "Write the summary in " + lang.Name + "."
}
