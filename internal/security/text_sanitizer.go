package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はサーバーから受け取った自由記述テキスト
// （査定場所、レポートの説明など）を端末表示用に無害化する。
// 全てのHTMLタグを除去し、エンティティを復元した素のテキストを返す。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerを生成する。
// bluemondayのStrictPolicy（全タグ除去）を使用する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean はテキストからHTMLタグを除去し、表示用の素のテキストを返す。
// 空文字列の入力には空文字列を返す。同一入力に対して常に同一の出力を返す。
func (s *TextSanitizer) Clean(text string) string {
	if text == "" {
		return ""
	}
	stripped := s.policy.Sanitize(text)
	// StrictPolicyは残ったテキストをエスケープするため、表示用に復元する
	return strings.TrimSpace(html.UnescapeString(stripped))
}
