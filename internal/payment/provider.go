package payment

import (
	"context"
	"errors"
)

// 署名検証に失敗したwebhookはここで弾く（状態には一切触らせない）
var ErrInvalidSignature = errors.New("invalid webhook signature")

// Intentは決済プロバイダ側の決済意図
type Intent struct {
	ID           string
	ClientSecret string
}

// Eventは検証済みのwebhookイベント
type Event struct {
	ID       string
	Type     string // 例: payment_intent.succeeded
	IntentID string
	Status   string // プロバイダ側のステータス文字列
}

const EventPaymentSucceeded = "payment_intent.succeeded"

// Providerは決済プロバイダとの契約。
// 金額は検証済みのgrandTotalからサーバ側で計算したminor単位の整数。
type Provider interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (Intent, error)
	VerifyWebhookSignature(payload []byte, sigHeader string) (Event, error)
}
