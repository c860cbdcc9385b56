package app

// Command はCLIのサブコマンドを表す。
type Command string

const (
	// CommandLogin はGoogleアカウントでのログインを示す。
	CommandLogin Command = "login"
	// CommandLogout はサインアウトを示す。
	CommandLogout Command = "logout"
	// CommandWhoami は現在のユーザー表示を示す。
	CommandWhoami Command = "whoami"
	// CommandRefresh はユーザー情報の再取得を示す。
	CommandRefresh Command = "refresh"
	// CommandAppraisers は査定士許可リストの表示を示す。
	CommandAppraisers Command = "appraisers"
	// CommandOrders は査定依頼一覧の表示を示す。
	CommandOrders Command = "orders"
	// CommandOrder は査定依頼の個別操作（create/get/assign/status）を示す。
	CommandOrder Command = "order"
	// CommandReport はレポート操作（upload/get/download）を示す。
	CommandReport Command = "report"
	// CommandHelp は使い方の表示を示す。
	CommandHelp Command = "help"
)

// ParseCommand はコマンドライン引数からサブコマンドと残りの引数を解析する。
// 引数が空またはサポート外のコマンドの場合はCommandHelpを返す。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 {
		return CommandHelp, nil
	}

	switch args[0] {
	case "login":
		return CommandLogin, args[1:]
	case "logout":
		return CommandLogout, args[1:]
	case "whoami":
		return CommandWhoami, args[1:]
	case "refresh":
		return CommandRefresh, args[1:]
	case "appraisers":
		return CommandAppraisers, args[1:]
	case "orders":
		return CommandOrders, args[1:]
	case "order":
		return CommandOrder, args[1:]
	case "report":
		return CommandReport, args[1:]
	default:
		return CommandHelp, nil
	}
}
