package http

import (
	"fmt"
	"strings"

	"kakeibo/internal/core"
)

type command int

const (
	cmdUsage command = iota
	cmdSum
	cmdSave
)

func (c command) String() string {
	switch c {
	case cmdSum:
		return "sum"
	case cmdSave:
		return "save"
	default:
		return "usage"
	}
}

var saveAliases = map[string]bool{"save": true, "保存": true}

const usageText = `使い方:
・today / 今日 … 今日の合計
・this week / 今週 … 今週の合計 (月曜始まり)
・this month / 今月 … 今月の合計
・save / 保存 … シートの行をアーカイブへ移動
・help / ヘルプ … この説明`

const errorReply = "エラーが発生しました。設定とスプレッドシートの共有設定を確認してください。"

// parseCommand maps message text to a command. Unknown text, including
// help, falls back to the usage reply.
func parseCommand(text string) (command, core.PeriodTag) {
	text = sanitizeInput(text)
	if tag, err := core.ParsePeriodTag(text); err == nil {
		return cmdSum, tag
	}
	if saveAliases[strings.ToLower(text)] {
		return cmdSave, ""
	}
	return cmdUsage, ""
}

func formatTotal(t core.PeriodTotal) string {
	return fmt.Sprintf("%sの合計: %s", t.Period.Tag.Label(), core.FormatYen(t.Total))
}

func formatSaved(res core.MoveResult) string {
	if res.Moved == 0 && len(res.Rejected) == 0 {
		return "保存する行がありません。"
	}
	msg := fmt.Sprintf("%d件をアーカイブに保存しました。", res.Moved)
	if n := len(res.Rejected); n > 0 {
		msg += fmt.Sprintf("\n日付または金額が空の%d件はスキップしました。", n)
	}
	return msg
}

// sanitizeInput drops control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}
