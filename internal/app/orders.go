package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/hitoshi/appraise/internal/api"
	"github.com/hitoshi/appraise/internal/model"
)

// runOrders は査定依頼の一覧を表示する。
// フィルタ未指定の場合は自分の役割に応じた一覧（クライアントは自分の依頼、
// 査定士は自分の担当分）を表示する。--allで全件表示。
func (a *App) runOrders(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("orders", flag.ContinueOnError)
	fs.SetOutput(a.out)
	userID := fs.String("user", "", "依頼者のユーザーIDで絞り込む")
	appraiserID := fs.String("appraiser", "", "担当査定士のIDで絞り込む")
	page := fs.Int("page", 0, "ページ番号（0始まり）")
	size := fs.Int("size", 20, "1ページあたりの件数")
	all := fs.Bool("all", false, "絞り込みなしで全件表示する")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.requireUser()
	if err != nil {
		return err
	}

	params := api.ListOrdersParams{
		UserID:      *userID,
		AppraiserID: *appraiserID,
		Page:        *page,
		Size:        *size,
	}
	if !*all && params.UserID == "" && params.AppraiserID == "" {
		switch user.Role {
		case model.RoleAppraiser:
			params.AppraiserID = user.ID
		default:
			params.UserID = user.ID
		}
	}

	result, err := a.client.GetOrders(ctx, params)
	if err != nil {
		return err
	}

	if len(result.Content) == 0 {
		fmt.Fprintln(a.out, "査定依頼はありません。")
		return nil
	}

	a.printOrderTable(a.out, result.Content)
	fmt.Fprintf(a.out, "\n%d件中 %d件を表示（ページ %d/%d）\n",
		result.TotalElements, len(result.Content), result.Page+1, result.TotalPages)
	return nil
}

// runOrder は査定依頼の個別操作（create/get/assign/status）を実行する。
func (a *App) runOrder(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("orderサブコマンドを指定してください: create|get|assign|status")
	}

	switch args[0] {
	case "create":
		return a.runOrderCreate(ctx, args[1:])
	case "get":
		return a.runOrderGet(ctx, args[1:])
	case "assign":
		return a.runOrderAssign(ctx, args[1:])
	case "status":
		return a.runOrderStatus(ctx, args[1:])
	default:
		return fmt.Errorf("不明なorderサブコマンドです: %s", args[0])
	}
}

// runOrderCreate は査定依頼を作成する。
func (a *App) runOrderCreate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order create", flag.ContinueOnError)
	fs.SetOutput(a.out)
	carMake := fs.String("make", "", "車両メーカー")
	carModel := fs.String("model", "", "車種")
	carYear := fs.Int("year", 0, "年式")
	location := fs.String("location", "", "査定場所")
	if err := fs.Parse(args); err != nil {
		return err
	}

	user, err := a.requireUser()
	if err != nil {
		return err
	}

	switch {
	case *carMake == "":
		return model.NewInvalidOrderInputError("メーカーが指定されていません")
	case *carModel == "":
		return model.NewInvalidOrderInputError("車種が指定されていません")
	case *carYear <= 0:
		return model.NewInvalidOrderInputError("年式が指定されていません")
	case *location == "":
		return model.NewInvalidOrderInputError("場所が指定されていません")
	}

	order, err := a.client.CreateOrder(ctx, model.CreateOrderRequest{
		CarMake:  *carMake,
		CarModel: *carModel,
		CarYear:  *carYear,
		Location: *location,
		UserID:   user.ID,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "査定依頼を作成しました: %s\n", order.ID)
	a.printOrder(a.out, order)
	return nil
}

// runOrderGet は査定依頼を1件表示する。
func (a *App) runOrderGet(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order get", flag.ContinueOnError)
	fs.SetOutput(a.out)
	orderID := fs.String("id", "", "査定依頼ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == "" {
		return fmt.Errorf("--id を指定してください")
	}

	if _, err := a.requireUser(); err != nil {
		return err
	}

	order, err := a.client.GetOrder(ctx, *orderID)
	if err != nil {
		if api.IsNotFound(err) {
			return model.NewOrderNotFoundError(*orderID)
		}
		return err
	}

	a.printOrder(a.out, order)
	return nil
}

// runOrderAssign は査定依頼に査定士を割り当てる。
func (a *App) runOrderAssign(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order assign", flag.ContinueOnError)
	fs.SetOutput(a.out)
	orderID := fs.String("id", "", "査定依頼ID")
	appraiserID := fs.String("appraiser", "", "査定士ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == "" || *appraiserID == "" {
		return fmt.Errorf("--id と --appraiser を指定してください")
	}

	if _, err := a.requireUser(); err != nil {
		return err
	}

	order, err := a.client.AssignOrder(ctx, *orderID, *appraiserID)
	if err != nil {
		if api.IsNotFound(err) {
			return model.NewOrderNotFoundError(*orderID)
		}
		return err
	}

	fmt.Fprintf(a.out, "査定士を割り当てました: %s -> %s\n", order.ID, order.AppraiserID)
	a.printOrder(a.out, order)
	return nil
}

// runOrderStatus は査定依頼のステータスを更新する。
func (a *App) runOrderStatus(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("order status", flag.ContinueOnError)
	fs.SetOutput(a.out)
	orderID := fs.String("id", "", "査定依頼ID")
	status := fs.String("status", "", "新しいステータス")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *orderID == "" || *status == "" {
		return fmt.Errorf("--id と --status を指定してください")
	}

	if _, err := a.requireUser(); err != nil {
		return err
	}

	order, err := a.client.UpdateOrderStatus(ctx, *orderID, model.OrderStatus(*status))
	if err != nil {
		if api.IsNotFound(err) {
			return model.NewOrderNotFoundError(*orderID)
		}
		return err
	}

	fmt.Fprintf(a.out, "ステータスを更新しました: %s -> %s\n", order.ID, order.Status)
	return nil
}

// printOrderTable は査定依頼の一覧をテーブル形式で出力する。
func (a *App) printOrderTable(w io.Writer, orders []model.Order) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\t車両\t場所\tステータス\t更新日時")
	for _, o := range orders {
		fmt.Fprintf(tw, "%s\t%s %s (%d)\t%s\t%s\t%s\n",
			o.ID,
			o.CarMake, o.CarModel, o.CarYear,
			a.sanitizer.Clean(o.Location),
			o.Status,
			o.UpdatedAt.Format("2006-01-02 15:04"),
		)
	}
	tw.Flush()
}

// printOrder は査定依頼の詳細を出力する。
func (a *App) printOrder(w io.Writer, o *model.Order) {
	fmt.Fprintf(w, "ID:        %s\n", o.ID)
	fmt.Fprintf(w, "車両:      %s %s (%d)\n", o.CarMake, o.CarModel, o.CarYear)
	fmt.Fprintf(w, "場所:      %s\n", a.sanitizer.Clean(o.Location))
	fmt.Fprintf(w, "ステータス: %s\n", o.Status)
	fmt.Fprintf(w, "依頼者:    %s\n", o.UserID)
	if o.AppraiserID != "" {
		fmt.Fprintf(w, "査定士:    %s\n", o.AppraiserID)
	}
	fmt.Fprintf(w, "作成日時:  %s\n", o.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(w, "更新日時:  %s\n", o.UpdatedAt.Format(time.RFC3339))
}
