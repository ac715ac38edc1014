// Package notify は表示面ごとの一時通知を管理する。
// 各表示面はキャンセル可能な非表示タイマーを1つだけ持ち、
// 新しいShow呼び出しは前のタイマーを必ず取り消してから自分の
// タイマーを張る。これにより、タイマーが重なった際に直前に表示した
// メッセージが古いタイマーで消されることはない。
package notify

import (
	"sync"
	"time"
)

// Kind は通知の種別を表す。
type Kind string

const (
	// KindSuccess は成功通知。
	KindSuccess Kind = "success"
	// KindError はエラー通知。
	KindError Kind = "error"
)

// 表示面の識別子。トップレベルの通知面とログインモーダル内の通知面の2段を使う。
const (
	SurfaceMain  = "main"
	SurfaceLogin = "login"
)

// Message は1つの表示面の現在の状態を表す。
type Message struct {
	Text    string
	Kind    Kind
	Visible bool
}

// surfaceState は表示面の内部状態。seqはShowごとに進み、
// 期限切れコールバックが自分の世代かどうかを判定するのに使う。
type surfaceState struct {
	msg   Message
	timer *time.Timer
	seq   uint64
}

// Presenter は表示面ごとの通知と非表示タイマーを管理する。
// 同じ表示面への並行したShowは後勝ちで上書きされ、キューイングは行わない。
type Presenter struct {
	mu       sync.Mutex
	surfaces map[string]*surfaceState
	onChange func() // 通知状態の変化で再描画を促すフック。nil可
}

// NewPresenter はPresenterを生成する。
// onChangeは表示・非表示のたびにロック外で呼ばれる。不要ならnilを渡す。
func NewPresenter(onChange func()) *Presenter {
	return &Presenter{
		surfaces: make(map[string]*surfaceState),
		onChange: onChange,
	}
}

// Show は表示面のテキストと種別を即座に設定して可視化し、
// ttl経過後に非表示になるようスケジュールする。
// 保留中の非表示タイマーがあれば先に取り消す。
func (p *Presenter) Show(surface, text string, kind Kind, ttl time.Duration) {
	p.mu.Lock()

	st, ok := p.surfaces[surface]
	if !ok {
		st = &surfaceState{}
		p.surfaces[surface] = st
	}

	if st.timer != nil {
		st.timer.Stop()
		st.timer = nil
	}

	st.seq++
	seq := st.seq
	st.msg = Message{Text: text, Kind: kind, Visible: true}
	st.timer = time.AfterFunc(ttl, func() {
		p.expire(surface, seq)
	})

	p.mu.Unlock()
	p.notifyChange()
}

// Hide は表示面を即座に非表示にし、保留中のタイマーを取り消す。冪等。
func (p *Presenter) Hide(surface string) {
	p.mu.Lock()

	st, ok := p.surfaces[surface]
	if ok {
		if st.timer != nil {
			st.timer.Stop()
			st.timer = nil
		}
		st.seq++
		st.msg.Visible = false
	}

	p.mu.Unlock()
	if ok {
		p.notifyChange()
	}
}

// Snapshot は表示面の現在の状態を返す。未使用の表示面は非表示として返す。
func (p *Presenter) Snapshot(surface string) Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.surfaces[surface]; ok {
		return st.msg
	}
	return Message{}
}

// expire はタイマー満了時に表示面を非表示にする。
// Showによる上書きで世代が進んでいた場合は何もしない。
func (p *Presenter) expire(surface string, seq uint64) {
	p.mu.Lock()

	st, ok := p.surfaces[surface]
	stale := !ok || st.seq != seq
	if !stale {
		st.msg.Visible = false
		st.timer = nil
	}

	p.mu.Unlock()
	if !stale {
		p.notifyChange()
	}
}

// notifyChange は変更フックをロック外で呼び出す。
func (p *Presenter) notifyChange() {
	if p.onChange != nil {
		p.onChange()
	}
}
