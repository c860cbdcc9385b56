package logger

import (
	"io"
	"log/slog"
	"os"
)

// Setup は指定レベルのJSON構造化ログ出力のslog.Loggerを生成して返す。
func Setup(w io.Writer, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})
	return slog.New(handler)
}

// SetupDefault はJSON構造化ログ出力をグローバルロガーとして設定する。
// CLIの標準出力はコマンド結果に使うため、ログはos.Stderrに出力する。
// LOG_LEVEL=debugが設定されている場合のみデバッグログを有効にする。
func SetupDefault(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	level := slog.LevelInfo
	if os.Getenv("LOG_LEVEL") == "debug" {
		level = slog.LevelDebug
	}
	slog.SetDefault(Setup(w, level))
}
