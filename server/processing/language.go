package processing

// japaneseThreshold is the share, in percent, of Japanese script runes
// needed for a text to count as mostly Japanese.
const japaneseThreshold = 30

// IsMostlyJapanese reports whether at least 30% of the runes of text are
// Hiragana, Katakana or CJK Unified Ideographs (U+4E00 to U+9FAF).
//
// Length is counted in Unicode code points. A supplementary-plane character
// counts once, whereas UTF-16 counting would count it twice.
func IsMostlyJapanese(text string) bool {
	var total, matched int
	for _, r := range text {
		total++
		if isJapaneseRune(r) {
			matched++
		}
	}
	if total == 0 {
		return false
	}
	return matched*100 >= japaneseThreshold*total
}

func isJapaneseRune(r rune) bool {
	switch {
	case r >= 0x3040 && r <= 0x309F: // Hiragana
		return true
	case r >= 0x30A0 && r <= 0x30FF: // Katakana
		return true
	case r >= 0x4E00 && r <= 0x9FAF: // CJK Unified Ideographs
		return true
	}
	return false
}
