// Package session はメモリ内セッション状態を管理する。
// 資格情報はページ（プロセス）のライフタイムを超えて永続化されない。
package session

import (
	"encoding/base64"
	"sync"
)

// EncodeCredential はHTTP Basic認証規約に従って資格情報をエンコードする。
// base64(username ":" password)。可逆エンコードであり暗号化ではない。
func EncodeCredential(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// Store は現在のセッション状態を保持する。
// 認証コントローラーが唯一の書き込み主であり、他コンポーネントは読むだけ。
//
// 不変条件: authenticatedが真 ⇔ credentialが設定済みかつ直近の検証に成功。
// Credentialは未認証の間は必ず空文字列を返すため、検証前の資格情報が
// 特権リクエストに紛れ込むことはない。
type Store struct {
	mu            sync.RWMutex
	credential    string
	authenticated bool
	displayName   string
}

// NewStore は空のセッションを生成する。
func NewStore() *Store {
	return &Store{}
}

// SetVerified は検証済みの資格情報と確認済みユーザー名を記録し、
// セッションを認証済み状態にする。
func (s *Store) SetVerified(credential, displayName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = credential
	s.authenticated = true
	s.displayName = displayName
}

// Clear は資格情報と認証フラグを無条件に破棄する。冪等。
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.credential = ""
	s.authenticated = false
	s.displayName = ""
}

// Credential は認証済みの場合のみエンコード済み資格情報を返す。
// 未認証の場合は空文字列を返す。
func (s *Store) Credential() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.authenticated {
		return ""
	}
	return s.credential
}

// IsAuthenticated は現在の認証状態を返す。
func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// DisplayName は検証時にサーバーが確認したユーザー名を返す。
// 未認証の場合は空文字列を返す。
func (s *Store) DisplayName() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.displayName
}
