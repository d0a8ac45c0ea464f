package speech

import "testing"

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Language
	}{
		{name: "english", text: "Entropy always increases.", want: LangEnglish},
		{name: "empty", text: "", want: LangEnglish},
		{name: "traditional chinese", text: "熵總是增加。", want: LangChinese},
		{name: "hiragana", text: "ありがとう", want: LangJapanese},
		{name: "katakana", text: "エントロピー", want: LangJapanese},
		{name: "kanji with kana", text: "熱力学の第二法則", want: LangJapanese},
		{name: "hangul syllables", text: "엔트로피는 증가한다", want: LangKorean},
		{name: "hangul jamo", text: "가", want: LangKorean},
		{name: "hangul with hanja", text: "熱力學 법칙", want: LangKorean},
		{name: "kana beats hangul", text: "법칙 ありがとう", want: LangJapanese},
		{name: "digits only", text: "42", want: LangEnglish},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestResolveLanguage(t *testing.T) {
	tests := []struct {
		name     string
		answer   string
		question Language
		want     Language
	}{
		{name: "english answer to chinese question", answer: "OK", question: LangChinese, want: LangChinese},
		{name: "english answer to korean question", answer: "Yes.", question: LangKorean, want: LangKorean},
		{name: "english answer, unknown question", answer: "Yes.", question: LangUnknown, want: LangEnglish},
		{name: "english answer to english question", answer: "Yes.", question: LangEnglish, want: LangEnglish},
		{name: "chinese answer to english question", answer: "是的。", question: LangEnglish, want: LangChinese},
		{name: "japanese answer to chinese question", answer: "はい", question: LangChinese, want: LangJapanese},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveLanguage(tt.answer, tt.question); got != tt.want {
				t.Errorf("ResolveLanguage(%q, %q) = %q, want %q", tt.answer, tt.question, got, tt.want)
			}
		})
	}
}

func TestOnlineLanguageCode(t *testing.T) {
	tests := map[Language]string{
		LangChinese:  "zh-TW",
		LangJapanese: "ja",
		LangKorean:   "ko",
		LangEnglish:  "en",
		LangUnknown:  "en",
		"fr":         "en",
	}
	for lang, want := range tests {
		if got := OnlineLanguageCode(lang); got != want {
			t.Errorf("OnlineLanguageCode(%q) = %q, want %q", lang, got, want)
		}
	}
}

func TestParseLanguage(t *testing.T) {
	tests := map[string]Language{
		"en":      LangEnglish,
		"zh-tw":   LangChinese,
		"zh-TW":   LangChinese,
		"zh":      LangChinese,
		"ja":      LangJapanese,
		"ko":      LangKorean,
		"":        LangUnknown,
		"klingon": LangUnknown,
	}
	for in, want := range tests {
		if got := ParseLanguage(in); got != want {
			t.Errorf("ParseLanguage(%q) = %q, want %q", in, got, want)
		}
	}
}
