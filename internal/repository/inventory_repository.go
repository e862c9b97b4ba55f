package repository

import "context"

// 在庫はVariant単位で持つ
type InventoryRepository interface {
	// 在庫の現在値を設定
	SetStock(ctx context.Context, variantID int64, newStock int64) error

	// 在庫が足りるときだけ減算（確定時の authoritative チェック）
	DecreaseStockIfEnough(ctx context.Context, variantID int64, qty int64) (bool, error)

	// 0床で減算（webhook確定時のbest-effort用。在庫不足でも0で止める）
	DecreaseStockFloored(ctx context.Context, variantID int64, qty int64) error

	// 在庫戻し（キャンセルなど）
	IncreaseStock(ctx context.Context, variantID int64, qty int64) error
}
