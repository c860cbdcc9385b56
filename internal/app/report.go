package app

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/hitoshi/appraise/internal/api"
	"github.com/hitoshi/appraise/internal/model"
	"github.com/hitoshi/appraise/internal/security"
)

// maxReportSize はレポートPDFダウンロードのサイズ上限。
const maxReportSize = 20 * 1024 * 1024

// runReport はレポート操作（upload/get/download）を実行する。
func (a *App) runReport(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("reportサブコマンドを指定してください: upload|get|download")
	}

	switch args[0] {
	case "upload":
		return a.runReportUpload(ctx, args[1:])
	case "get":
		return a.runReportGet(ctx, args[1:])
	case "download":
		return a.runReportDownload(ctx, args[1:])
	default:
		return fmt.Errorf("不明なreportサブコマンドです: %s", args[0])
	}
}

// runReportUpload は査定レポートのPDFをアップロードする。
func (a *App) runReportUpload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report upload", flag.ContinueOnError)
	fs.SetOutput(a.out)
	orderID := fs.String("order", "", "査定依頼ID")
	filePath := fs.String("file", "", "アップロードするPDFファイルのパス")
	description := fs.String("description", "", "レポートの説明")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == "" || *filePath == "" {
		return fmt.Errorf("--order と --file を指定してください")
	}

	if _, err := a.requireUser(); err != nil {
		return err
	}

	data, err := os.ReadFile(*filePath)
	if err != nil {
		return fmt.Errorf("ファイルの読み込みに失敗しました: %w", err)
	}

	report, err := a.client.UploadReport(ctx, *orderID, data, *description)
	if err != nil {
		if api.IsNotFound(err) {
			return model.NewOrderNotFoundError(*orderID)
		}
		return err
	}

	fmt.Fprintf(a.out, "レポートをアップロードしました: %s\n", report.ID)
	return nil
}

// runReportGet は査定レポートの内容を表示する。
func (a *App) runReportGet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report get", flag.ContinueOnError)
	fs.SetOutput(a.out)
	orderID := fs.String("order", "", "査定依頼ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == "" {
		return fmt.Errorf("--order を指定してください")
	}

	if _, err := a.requireUser(); err != nil {
		return err
	}

	report, err := a.client.GetReport(ctx, *orderID)
	if err != nil {
		if api.IsNotFound(err) {
			return model.NewReportNotReadyError(*orderID)
		}
		return err
	}

	fmt.Fprintf(a.out, "ID:       %s\n", report.ID)
	fmt.Fprintf(a.out, "依頼ID:   %s\n", report.OrderID)
	fmt.Fprintf(a.out, "説明:     %s\n", a.sanitizer.Clean(report.Description))
	fmt.Fprintf(a.out, "ファイル: %s\n", report.FileURL)
	fmt.Fprintf(a.out, "作成日時: %s\n", report.CreatedAt.Format(time.RFC3339))
	return nil
}

// runReportDownload はレポートのPDFをfileUrlから取得してローカルに保存する。
// fileUrlはサーバーから提示される信頼できないURLのため、SSRF防止付きの
// ダウンローダーで取得する。
func (a *App) runReportDownload(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("report download", flag.ContinueOnError)
	fs.SetOutput(a.out)
	orderID := fs.String("order", "", "査定依頼ID")
	outPath := fs.String("out", "", "保存先ファイルパス（省略時は report+<依頼ID>.pdf）")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == "" {
		return fmt.Errorf("--order を指定してください")
	}

	if _, err := a.requireUser(); err != nil {
		return err
	}

	report, err := a.client.GetReport(ctx, *orderID)
	if err != nil {
		if api.IsNotFound(err) {
			return model.NewReportNotReadyError(*orderID)
		}
		return err
	}

	downloader := security.NewDownloader(a.cfg.RequestTimeout, maxReportSize)
	data, err := downloader.Download(ctx, report.FileURL)
	if err != nil {
		return err
	}

	dest := *outPath
	if dest == "" {
		dest = "report+" + *orderID + ".pdf"
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("ファイルの保存に失敗しました: %w", err)
	}

	fmt.Fprintf(a.out, "レポートを保存しました: %s (%d bytes)\n", dest, len(data))
	return nil
}
