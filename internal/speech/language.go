package speech

// Language is a speech language tag.
type Language string

const (
	LangUnknown  Language = ""
	LangEnglish  Language = "en"
	LangChinese  Language = "zh-tw"
	LangJapanese Language = "ja"
	LangKorean   Language = "ko"
)

// DetectLanguage classifies text by script. Kana wins over Hangul, Hangul over
// CJK ideographs, and anything else is English. Kana beating ideographs also
// covers Japanese text written mostly in kanji.
func DetectLanguage(text string) Language {
	var hasHangul, hasHan bool
	for _, r := range text {
		switch {
		case isKana(r):
			return LangJapanese
		case isHangul(r):
			hasHangul = true
		case r >= 0x4E00 && r <= 0x9FFF:
			hasHan = true
		}
	}
	switch {
	case hasHangul:
		return LangKorean
	case hasHan:
		return LangChinese
	}
	return LangEnglish
}

// ResolveLanguage detects the language of answer. A short answer often carries
// no script signal, so an English result yields to a known non-English
// question language.
func ResolveLanguage(answer string, question Language) Language {
	lang := DetectLanguage(answer)
	if lang == LangEnglish && question != LangUnknown && question != LangEnglish {
		return question
	}
	return lang
}

// OnlineLanguageCode maps a language to the code sent to the online engine.
func OnlineLanguageCode(lang Language) string {
	switch lang {
	case LangChinese:
		return "zh-TW"
	case LangJapanese:
		return "ja"
	case LangKorean:
		return "ko"
	}
	return "en"
}

// ParseLanguage accepts a language tag from a request. Unknown tags yield LangUnknown.
func ParseLanguage(s string) Language {
	switch Language(s) {
	case LangEnglish, LangChinese, LangJapanese, LangKorean:
		return Language(s)
	}
	if s == "zh-TW" || s == "zh" {
		return LangChinese
	}
	return LangUnknown
}

func isKana(r rune) bool {
	return (r >= 0x3040 && r <= 0x309F) || (r >= 0x30A0 && r <= 0x30FF)
}

func isHangul(r rune) bool {
	return (r >= 0xAC00 && r <= 0xD7A3) || (r >= 0x1100 && r <= 0x11FF)
}
