package processing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMostlyJapanese(t *testing.T) {
	tests := []struct {
		name string
		text string
		want bool
	}{
		{name: "empty", text: "", want: false},
		{name: "ascii", text: "hello world", want: false},
		{name: "hiragana", text: "こんにちは", want: true},
		{name: "katakana", text: "カタカナ", want: true},
		{name: "kanji and hiragana", text: "こんにちは世界", want: true},
		{name: "mixed japanese and latin", text: "今日はgood", want: true},
		{name: "mostly latin", text: "今日はgood day", want: false},
		{name: "exactly thirty percent", text: "あいうabcdefg", want: true},
		{name: "just below thirty percent", text: "あいabcdefgh", want: false},
		{name: "hangul is not japanese", text: "안녕하세요", want: false},
		{name: "fullwidth punctuation alone", text: "、。！", want: false},
		{name: "supplementary ideograph counts once", text: "𠀋𠀋あ", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMostlyJapanese(tt.text))
		})
	}
}

func TestIsMostlyJapaneseASCIINeverMatches(t *testing.T) {
	for n := 1; n < 200; n++ {
		text := strings.Repeat("a1 ?", n)
		assert.False(t, IsMostlyJapanese(text), "length %d", len(text))
	}
}

func TestIsMostlyJapaneseRangeBounds(t *testing.T) {
	assert.True(t, IsMostlyJapanese(string(rune(0x3040))))
	assert.True(t, IsMostlyJapanese(string(rune(0x30FF))))
	assert.True(t, IsMostlyJapanese(string(rune(0x4E00))))
	assert.True(t, IsMostlyJapanese(string(rune(0x9FAF))))
	assert.False(t, IsMostlyJapanese(string(rune(0x303F))))
	assert.False(t, IsMostlyJapanese(string(rune(0x9FB0))))
}
