package notify

import "context"

// Messageは通知1通分
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
}

// Notifierはbest-effortの通知送信。
// 失敗は呼び出し側でログして握りつぶす（注文処理には波及させない）。
type Notifier interface {
	Send(ctx context.Context, msg Message) error
}

// NopNotifierはブローカー未設定のとき用
type NopNotifier struct{}

func (NopNotifier) Send(ctx context.Context, msg Message) error { return nil }
