package console

import (
	"fmt"
	"io"

	"github.com/hitoshi/clubhub/internal/notify"
	"github.com/hitoshi/clubhub/internal/roster"
)

// renderState は描画記述をターミナル向けのテキストとして書き出す。
// 取得失敗状態では一覧の代わりに終端エラーメッセージだけを出す。
// 解除マーカー [x] は行のCanUnregisterに従い、描画時点のゲーティングを反映する。
func renderState(w io.Writer, state roster.RenderState, banner string, authenticated bool) {
	fmt.Fprintf(w, "\n== Activities  (%s) ==\n", banner)

	if state.Failed {
		fmt.Fprintln(w, state.ErrorMessage)
		return
	}

	for i, card := range state.Cards {
		fmt.Fprintf(w, "\n[%d] %s\n", i+1, card.Name)
		if card.Description != "" {
			fmt.Fprintf(w, "    %s\n", card.Description)
		}
		fmt.Fprintf(w, "    Schedule: %s\n", card.Schedule)
		fmt.Fprintf(w, "    Availability: %d spots left\n", card.SpotsLeft)

		if len(card.Participants) == 0 {
			fmt.Fprintln(w, "    No participants yet")
			continue
		}

		fmt.Fprintln(w, "    Participants:")
		for j, row := range card.Participants {
			marker := ""
			if row.CanUnregister {
				marker = "  [x]"
			}
			fmt.Fprintf(w, "      %d. %s%s\n", j+1, row.Email, marker)
		}
	}

	if !authenticated {
		fmt.Fprintln(w, "\nLog in to sign up students or remove participants.")
	}
	fmt.Fprintln(w)
}

// printNotice は通知メッセージが可視状態の場合のみ1行で表示する。
func printNotice(w io.Writer, msg notify.Message) {
	if !msg.Visible {
		return
	}
	fmt.Fprintf(w, "[%s] %s\n", msg.Kind, msg.Text)
}
