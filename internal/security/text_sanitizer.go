// Package security はアプリケーションのセキュリティ機能を提供する。
//
// TextSanitizerService はサーバーが返す活動フィールド（説明・スケジュール等）を
// サニタイズし、マークアップ混入からユーザーを保護する。
// ロスターの内容はサーバーを信頼して表示するが、表示前にタグを
// すべて除去することで、仮に不正なHTMLが紛れ込んでもテキストとして扱う。
package security

import (
	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizerService はテキストサニタイズ機能のインターフェースを定義する。
// ロスターのHTML描画前に使用される。
type TextSanitizerService interface {
	// Sanitize は入力からすべてのHTMLタグを除去し、プレーンテキストを返す。
	// 空文字列の入力には空文字列を返す。
	// 同一入力に対して常に同一出力を返す（冪等）。
	Sanitize(raw string) string
}

// textSanitizer はTextSanitizerServiceの実装。
// bluemondayのStrictPolicyを保持し、スレッドセーフにサニタイズ処理を行う。
type textSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はTextSanitizerServiceの新しいインスタンスを生成する。
// StrictPolicyはすべてのタグと属性を除去する。活動の説明やスケジュールは
// プレーンテキストとして扱うため、許可タグは設けない。
func NewTextSanitizer() *textSanitizer {
	return &textSanitizer{
		policy: bluemonday.StrictPolicy(),
	}
}

// Sanitize は入力からすべてのHTMLタグを除去したテキストを返す。
func (s *textSanitizer) Sanitize(raw string) string {
	return s.policy.Sanitize(raw)
}
