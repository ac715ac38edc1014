// Package roster は活動ロスターの取得と描画状態の構築を提供する。
// 描画は「ロスターの記述（データ）を返す関数」と「フロントエンドが
// そのデータに操作を結び付ける束縛ステップ」に分離されている。
// 要素は描画のたびに作り直されるため、束縛も描画のたびにやり直す契約になる。
package roster

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/hitoshi/clubhub/internal/model"
)

// Fetcher はロスター取得のインターフェース。apiclient.Clientが実装する。
type Fetcher interface {
	FetchActivities(ctx context.Context) ([]*model.ActivityRecord, error)
}

// GateFunc は特権UIを表示してよいか（認証済みか）を描画時点で評価する。
// 前回描画時の値をキャッシュせず、毎回呼び出す。
type GateFunc func() bool

// FetchRecorder はロスター取得のメトリクス記録のインターフェース。
type FetchRecorder interface {
	RecordRosterFetch(outcome string)
}

// ParticipantRow は参加者1行の描画記述。
// CanUnregisterが真の行にだけ、フロントエンドは解除操作を束縛する。
type ParticipantRow struct {
	Email         string
	CanUnregister bool
}

// Card は活動1件の描画記述。
type Card struct {
	Name         string
	Description  string
	Schedule     string
	SpotsLeft    int // 負数もそのまま（クランプしない。定員管理はサーバーの責任）
	Participants []ParticipantRow
}

// RenderState はロスター全体の描画記述。
// Failedが真の場合、一覧は部分表示せずErrorMessageへ丸ごと置き換える。
type RenderState struct {
	Cards        []Card
	Options      []string // 活動選択リスト。描画のたびに作り直され、前回の選択は破棄される
	Failed       bool
	ErrorMessage string
}

// View はロスターを唯一所有し、描画状態を構築する。
// ロスターはフェッチごとに丸ごと置き換え、マージはしない。
type View struct {
	fetcher Fetcher
	gate    GateFunc
	logger  *slog.Logger
	metrics FetchRecorder

	mu     sync.RWMutex
	roster *model.Roster
	state  RenderState
}

// NewView はViewを生成する。初期状態は空のロスター。
func NewView(fetcher Fetcher, gate GateFunc, logger *slog.Logger, metrics FetchRecorder) *View {
	return &View{
		fetcher: fetcher,
		gate:    gate,
		logger:  logger,
		metrics: metrics,
		roster:  model.NewRoster(nil),
	}
}

// FetchAndRender はサーバーから全ロスターを取得し、保持中のロスターを
// 丸ごと置き換えてから決定的に再描画する。
//
// 取得失敗時は一覧全体を終端エラーメッセージに置き換え、部分表示はしない。
// 自動リトライもスケジュールしない。
func (v *View) FetchAndRender(ctx context.Context) error {
	records, err := v.fetcher.FetchActivities(ctx)
	if err != nil {
		appErr := model.NewRosterFetchFailedError()

		v.mu.Lock()
		v.state = RenderState{Failed: true, ErrorMessage: appErr.Message}
		v.mu.Unlock()

		v.recordFetch("network_error")
		v.logger.Error("roster fetch failed", slog.String("error", err.Error()))
		return fmt.Errorf("failed to fetch activities: %w", err)
	}

	v.mu.Lock()
	v.roster = model.NewRoster(records)
	v.state = v.buildRenderState()
	v.mu.Unlock()

	v.recordFetch("success")
	v.logger.Info("roster fetched", slog.Int("activity_count", len(records)))
	return nil
}

// Rerender は保持中のロスターから描画状態を作り直す。
// 認証状態が変わった直後など、再フェッチなしでゲーティングを
// 反映したい場合に使う。取得失敗状態の場合は何もしない。
func (v *View) Rerender() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.state.Failed {
		return
	}
	v.state = v.buildRenderState()
}

// Current は最後に構築した描画状態を返す。
func (v *View) Current() RenderState {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.state
}

// Roster は保持中のロスターを返す。読み取り専用で扱うこと。
func (v *View) Roster() *model.Roster {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.roster
}

// buildRenderState はロスターから描画記述を構築する。呼び出し側がロックを持つ。
// ゲーティング状態は描画時点で評価し、カードと選択リストは
// サーバー応答の順序どおりに並べる。
func (v *View) buildRenderState() RenderState {
	canAct := v.gate()

	state := RenderState{}
	for _, name := range v.roster.Names() {
		rec := v.roster.Get(name)

		card := Card{
			Name:        rec.Name,
			Description: rec.Description,
			Schedule:    rec.Schedule,
			SpotsLeft:   rec.SpotsLeft(),
		}
		for _, email := range rec.Participants {
			card.Participants = append(card.Participants, ParticipantRow{
				Email:         email,
				CanUnregister: canAct,
			})
		}

		state.Cards = append(state.Cards, card)
		state.Options = append(state.Options, rec.Name)
	}

	return state
}

// recordFetch はメトリクスが設定されている場合のみ記録する。
func (v *View) recordFetch(outcome string) {
	if v.metrics != nil {
		v.metrics.RecordRosterFetch(outcome)
	}
}
