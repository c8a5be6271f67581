package catalog_repo

import (
	"context"

	"github.com/Masterminds/squirrel"

	"tradeflow/internal/domain/catalogs/nomenclature"
	"tradeflow/internal/infrastructure/storage/postgres"
)

const nomenclatureTable = "catalog_items"

// NomenclatureRepo implements nomenclature.Repository.
type NomenclatureRepo struct {
	*BaseCatalogRepo[*nomenclature.Nomenclature]
}

// NewNomenclatureRepo creates a new catalog item repository.
func NewNomenclatureRepo(txManager *postgres.TxManager) *NomenclatureRepo {
	return &NomenclatureRepo{
		BaseCatalogRepo: NewBaseCatalogRepo(
			txManager,
			nomenclatureTable,
			postgres.ExtractDBColumns[nomenclature.Nomenclature](),
			func() *nomenclature.Nomenclature { return new(nomenclature.Nomenclature) },
		),
	}
}

// FindByCode retrieves an item whose code or supplier code equals code.
// A catalog code match wins over a supplier code match.
func (r *NomenclatureRepo) FindByCode(ctx context.Context, code string) (*nomenclature.Nomenclature, error) {
	return r.FindOne(ctx, r.findByCodeQuery(code), code)
}

func (r *NomenclatureRepo) findByCodeQuery(code string) squirrel.SelectBuilder {
	return r.baseSelect().
		Where(squirrel.Or{
			squirrel.Eq{"code": code},
			squirrel.Eq{"supplier_code": code},
		}).
		OrderBy("supplier_code IS NOT NULL", "code").
		Limit(1)
}

// FindByBarcode retrieves an item by its exact barcode.
func (r *NomenclatureRepo) FindByBarcode(ctx context.Context, barcode string) (*nomenclature.Nomenclature, error) {
	return r.findBy(ctx, "barcode", barcode)
}

var _ nomenclature.Repository = (*NomenclatureRepo)(nil)
