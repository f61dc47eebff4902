package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/jhoicas/joyeria-ledger/internal/application/dto"
	"github.com/jhoicas/joyeria-ledger/internal/application/ports"
	"github.com/jhoicas/joyeria-ledger/internal/domain"
	"github.com/jhoicas/joyeria-ledger/internal/domain/entity"
	"github.com/jhoicas/joyeria-ledger/internal/domain/repository"
)

// ProductUseCase mantiene el modelo de lectura de productos contra el que valida el libro.
// La ubicación solo se fija en el primer registro; después la mueven los traslados completados.
type ProductUseCase struct {
	txRunner ports.TxRunner
	repo     repository.ProductRepository
	now      func() time.Time
}

// NewProductUseCase construye el caso de uso.
func NewProductUseCase(txRunner ports.TxRunner, repo repository.ProductRepository) *ProductUseCase {
	return &ProductUseCase{txRunner: txRunner, repo: repo, now: time.Now}
}

// RegisterPlacement crea la pieza con su ubicación inicial o actualiza sus atributos si ya existe.
// Devuelve created=true en el primer registro.
func (uc *ProductUseCase) RegisterPlacement(ctx context.Context, tenantID string, in dto.RegisterProductRequest) (*dto.ProductResponse, bool, error) {
	if tenantID == "" {
		return nil, false, domain.ErrUnauthorized
	}
	in.SKU = strings.TrimSpace(in.SKU)
	if in.ID <= 0 || in.SKU == "" {
		return nil, false, domain.Invalid(domain.ErrInvalidInput, "id y sku son obligatorios")
	}
	if in.UnitValue != nil && in.UnitValue.IsNegative() {
		return nil, false, domain.Invalid(domain.ErrInvalidInput, "valor unitario negativo")
	}

	var (
		out     *entity.Product
		created bool
	)
	err := uc.txRunner.Run(ctx, func(repos repository.Repositories) error {
		current, err := repos.Products.GetForUpdate(ctx, tenantID, in.ID)
		if err != nil {
			return err
		}
		now := uc.now().UTC()
		if current == nil {
			loc := in.Location.ToEntity()
			if !loc.Valid() {
				return domain.Invalid(domain.ErrInvalidLocation, "%s", loc)
			}
			p := &entity.Product{
				ID:         in.ID,
				TenantID:   tenantID,
				SKU:        in.SKU,
				TagLabel:   in.TagLabel,
				CategoryID: in.CategoryID,
				Active:     in.Active == nil || *in.Active,
				UnitValue:  in.UnitValue,
				Location:   loc,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if err := repos.Products.Create(ctx, p); err != nil {
				return err
			}
			out, created = p, true
			return nil
		}
		current.SKU = in.SKU
		current.TagLabel = in.TagLabel
		current.CategoryID = in.CategoryID
		if in.Active != nil {
			current.Active = *in.Active
		}
		current.UnitValue = in.UnitValue
		current.UpdatedAt = now
		if err := repos.Products.Update(ctx, current); err != nil {
			return err
		}
		out = current
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return dto.ToProductResponse(out), created, nil
}

// Get obtiene un producto por ID o domain.ErrNotFound.
func (uc *ProductUseCase) Get(ctx context.Context, tenantID string, id int64) (*dto.ProductResponse, error) {
	if tenantID == "" {
		return nil, domain.ErrUnauthorized
	}
	p, err := uc.repo.GetByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return dto.ToProductResponse(p), nil
}
