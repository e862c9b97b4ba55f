package usecase

import (
	"context"
	"net/http"
	"strings"
	"time"

	"shop/internal/domain/model"
	repo "shop/internal/repository"
)

type ProductUsecase struct {
	productRepo   repo.ProductRepository
	inventoryRepo repo.InventoryRepository
}

// DI
func NewProductUsecase(
	productRepo repo.ProductRepository,
	inventoryRepo repo.InventoryRepository,
) *ProductUsecase {
	return &ProductUsecase{
		productRepo:   productRepo,
		inventoryRepo: inventoryRepo,
	}
}

// GET /productsの入力DTO
type ListProductsInput struct {
	Page  int
	Limit int
	Q     string
}

type ProductListOutput struct {
	Items []model.Product `json:"items"`
	Total int64           `json:"total"`
	Page  int             `json:"page"`
	Limit int             `json:"limit"`
}

func (u *ProductUsecase) ListPublishedProducts(ctx context.Context, in ListProductsInput) (ProductListOutput, error) {
	if in.Page < 1 {
		return ProductListOutput{}, NewAppError(http.StatusBadRequest, CodeValidationError, "invalid page")
	}
	if in.Limit < 1 || in.Limit > 100 {
		return ProductListOutput{}, NewAppError(http.StatusBadRequest, CodeValidationError, "invalid limit")
	}
	if len(in.Q) > 100 {
		return ProductListOutput{}, NewAppError(http.StatusBadRequest, CodeValidationError, "q too long")
	}

	items, total, err := u.productRepo.ListPublished(ctx, repo.ProductListQuery{
		Page:  in.Page,
		Limit: in.Limit,
		Q:     strings.TrimSpace(in.Q),
	})
	if err != nil {
		return ProductListOutput{}, errInternal()
	}

	return ProductListOutput{
		Items: items,
		Total: total,
		Page:  in.Page,
		Limit: in.Limit,
	}, nil
}

func (u *ProductUsecase) GetProductBySlug(ctx context.Context, slug string) (model.Product, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return model.Product{}, NewAppError(http.StatusBadRequest, CodeValidationError, "invalid slug")
	}

	p, err := u.productRepo.FindBySlug(ctx, slug)
	if err == repo.ErrNotFound {
		return model.Product{}, NewAppError(http.StatusNotFound, CodeProductNotFound, "product not found")
	}
	if err != nil {
		return model.Product{}, errInternal()
	}

	//draftは公開側から見えない
	if p.Status != model.ProductStatusPublished {
		return model.Product{}, NewAppError(http.StatusNotFound, CodeProductNotFound, "product not found")
	}
	return p, nil
}

type AdminVariantInput struct {
	Key   string `json:"key"`
	Price int64  `json:"price"`
	Stock int64  `json:"stock"`
}

type AdminProductInput struct {
	Slug        string              `json:"slug"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
	Status      string              `json:"status"`
	Variants    []AdminVariantInput `json:"variants"`
}

func validateAdminProductInput(in AdminProductInput) error {
	if strings.TrimSpace(in.Slug) == "" {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "slug required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "title required")
	}
	switch model.ProductStatus(in.Status) {
	case model.ProductStatusDraft, model.ProductStatusPublished:
	default:
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid status")
	}
	if len(in.Variants) == 0 {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "at least one variant required")
	}

	seen := map[string]bool{}
	for _, v := range in.Variants {
		key := strings.TrimSpace(v.Key)
		if key == "" {
			return NewAppError(http.StatusBadRequest, CodeValidationError, "variant key required")
		}
		if seen[key] {
			return NewAppError(http.StatusBadRequest, CodeValidationError, "duplicate variant key")
		}
		seen[key] = true
		if v.Price < 0 {
			return NewAppError(http.StatusBadRequest, CodeValidationError, "price must be >= 0")
		}
		if v.Stock < 0 {
			return NewAppError(http.StatusBadRequest, CodeValidationError, "stock must be >= 0")
		}
	}
	return nil
}

func (u *ProductUsecase) AdminCreateProduct(ctx context.Context, in AdminProductInput) (int64, error) {
	if err := validateAdminProductInput(in); err != nil {
		return 0, err
	}

	now := time.Now()
	variants := make([]model.Variant, 0, len(in.Variants))
	for _, v := range in.Variants {
		variants = append(variants, model.Variant{
			Key:   strings.TrimSpace(v.Key),
			Price: v.Price,
			Stock: v.Stock,
		})
	}

	p, err := u.productRepo.Create(ctx, model.Product{
		Slug:        strings.TrimSpace(in.Slug),
		Title:       strings.TrimSpace(in.Title),
		Description: in.Description,
		Image:       in.Image,
		Status:      model.ProductStatus(in.Status),
		Variants:    variants,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return 0, errInternal()
	}
	return p.ID, nil
}

func (u *ProductUsecase) AdminUpdateProduct(ctx context.Context, productID int64, in AdminProductInput) error {
	if productID <= 0 {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid product id")
	}
	if err := validateAdminProductInput(in); err != nil {
		return err
	}

	existing, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return NewAppError(http.StatusNotFound, CodeProductNotFound, "product not found")
	}
	if err != nil {
		return errInternal()
	}

	existing.Slug = strings.TrimSpace(in.Slug)
	existing.Title = strings.TrimSpace(in.Title)
	existing.Description = in.Description
	existing.Image = in.Image
	existing.Status = model.ProductStatus(in.Status)
	existing.UpdatedAt = time.Now()

	//Variantはkeyで突き合わせて更新。既存keyは価格・在庫を上書き、新keyは追加。
	byKey := map[string]*model.Variant{}
	for i := range existing.Variants {
		byKey[existing.Variants[i].Key] = &existing.Variants[i]
	}
	for _, v := range in.Variants {
		key := strings.TrimSpace(v.Key)
		if cur, ok := byKey[key]; ok {
			cur.Price = v.Price
			cur.Stock = v.Stock
		} else {
			existing.Variants = append(existing.Variants, model.Variant{
				ProductID: productID,
				Key:       key,
				Price:     v.Price,
				Stock:     v.Stock,
			})
		}
	}

	if err := u.productRepo.Update(ctx, existing); err != nil {
		if err == repo.ErrNotFound {
			return NewAppError(http.StatusNotFound, CodeProductNotFound, "product not found")
		}
		return errInternal()
	}
	return nil
}

func (u *ProductUsecase) AdminDeleteProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid product id")
	}

	err := u.productRepo.SoftDelete(ctx, productID)
	if err == repo.ErrNotFound {
		return NewAppError(http.StatusNotFound, CodeProductNotFound, "product not found")
	}
	if err != nil {
		return errInternal()
	}
	return nil
}

// AdminSetStockは在庫の現在値を直接設定する（棚卸しなど）
func (u *ProductUsecase) AdminSetStock(ctx context.Context, productID int64, variantKey string, newStock int64) error {
	if productID <= 0 {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "invalid product id")
	}
	if newStock < 0 {
		return NewAppError(http.StatusBadRequest, CodeValidationError, "stock must be >= 0")
	}

	p, err := u.productRepo.FindByID(ctx, productID)
	if err == repo.ErrNotFound {
		return NewAppError(http.StatusNotFound, CodeProductNotFound, "product not found")
	}
	if err != nil {
		return errInternal()
	}

	v, ok := p.FindVariant(strings.TrimSpace(variantKey))
	if !ok {
		return NewAppError(http.StatusNotFound, CodeVariantNotFound, "variant not found")
	}

	if err := u.inventoryRepo.SetStock(ctx, v.ID, newStock); err != nil {
		if err == repo.ErrNotFound {
			return NewAppError(http.StatusNotFound, CodeVariantNotFound, "variant not found")
		}
		return errInternal()
	}
	return nil
}
