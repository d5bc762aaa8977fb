package tokens

import "unicode/utf8"

// CharsPerToken 每个 token 对应的字符数（近似值）
const CharsPerToken = 4

// Estimate 估算文本的 token 数量：字符数 / CharsPerToken
func Estimate(text string) int {
	return utf8.RuneCountInString(text) / CharsPerToken
}
