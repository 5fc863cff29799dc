package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{name: "english", text: "Let's walk through the pricing proposal", want: LangEnglish},
		{name: "empty defaults to english", text: "", want: LangEnglish},
		{name: "hebrew", text: "בוא נעבור על הצעת המחיר החדשה שלנו", want: LangHebrew},
		{name: "arabic", text: "دعنا نراجع عرض الأسعار الجديد معاً اليوم", want: LangArabic},
		{name: "russian", text: "Давайте обсудим новое ценовое предложение", want: LangRussian},
		{name: "korean", text: "새로운 가격 제안을 함께 검토해 봅시다", want: LangKorean},
		{name: "chinese", text: "我们一起讨论一下新的报价方案吧", want: LangChinese},
		{name: "japanese kana overrides kanji", text: "新しい価格についてはなしましょう、よろしくおねがいします", want: LangJapanese},
		{name: "mostly english with a name", text: "We met with משה to discuss the renewal terms and pricing", want: LangEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLanguage(tt.text).Code)
		})
	}
}

func TestDetectLanguageConfidence(t *testing.T) {
	lang := DetectLanguage("שלום לכולם")
	assert.Equal(t, LangHebrew, lang.Code)
	assert.Greater(t, lang.Confidence, 0.5)
}

func TestSummaryInstruction(t *testing.T) {
	assert.Empty(t, SummaryInstruction(Language{Code: LangEnglish, Name: "English"}))
	assert.Equal(t, "Write the summary in Hebrew.", SummaryInstruction(Language{Code: LangHebrew, Name: "Hebrew"}))
}
