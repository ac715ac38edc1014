// Package model はドメインモデルを定義する。
package model

// ActivityRecord は課外活動1件を表す。
// サーバーのロスター応答から構築され、ローカルでは変更されない。
// 参加者リストの順序はサーバー応答の順序をそのまま保持する。
type ActivityRecord struct {
	Name            string   // 一意キー。ロスターと選択リストの両方のキーになる
	Description     string
	Schedule        string
	MaxParticipants int
	Participants    []string // 参加者メールアドレスの順序付きリスト
}

// SpotsLeft は残り枠数を返す。
// 定員超過はサーバー側の責任であり、負数もそのまま返す（クランプしない）。
func (a *ActivityRecord) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// Roster は活動名からActivityRecordへのマッピングを表す。
// サーバー応答のキー順序を保持し、フェッチごとに丸ごと再構築される。
// 部分的なマージは行わない（古いエントリの残留バグを避けるため）。
type Roster struct {
	names  []string
	byName map[string]*ActivityRecord
}

// NewRoster はサーバー応答順のレコードリストからRosterを構築する。
// 同名のレコードが重複する場合は後勝ちとし、順序リストには最初の出現位置を残す。
func NewRoster(records []*ActivityRecord) *Roster {
	r := &Roster{
		byName: make(map[string]*ActivityRecord, len(records)),
	}
	for _, rec := range records {
		if _, exists := r.byName[rec.Name]; !exists {
			r.names = append(r.names, rec.Name)
		}
		r.byName[rec.Name] = rec
	}
	return r
}

// Names はサーバー応答順の活動名リストを返す。
func (r *Roster) Names() []string {
	return r.names
}

// Get は活動名に対応するレコードを返す。存在しない場合はnilを返す。
func (r *Roster) Get(name string) *ActivityRecord {
	return r.byName[name]
}

// Len は活動数を返す。
func (r *Roster) Len() int {
	return len(r.names)
}
