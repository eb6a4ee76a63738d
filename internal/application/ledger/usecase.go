// Package ledger gestiona los registros locales de consumo casa y deuda:
// los arma a partir de las cantidades tecleadas, los persiste con su marca
// de jornada y los reabre como mapas id→cantidad para la reconciliación.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestoapp/turno-core/internal/domain/counting"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/internal/domain/reconcile"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
	"github.com/gestoapp/turno-core/pkg/logger"
)

// Usecase acceso a los dos ledgers de consumo.
type Usecase struct {
	store storage.Store
	log   *logger.Logger
	now   func() time.Time
}

// New construye el caso de uso.
func New(store storage.Store, log *logger.Logger) *Usecase {
	return &Usecase{store: store, log: log, now: time.Now}
}

func key(kind entity.LedgerKind) string {
	if kind == entity.LedgerDeuda {
		return storage.KeyDeudaData
	}
	return storage.KeyCasaData
}

// Save recolecta las cantidades mayores que cero de la lista y persiste el
// ledger con la marca de guardado actual. Guardar consumo invalida el
// desglose previo: el importe esperado acaba de cambiar.
func (u *Usecase) Save(ctx context.Context, kind entity.LedgerKind, products []entity.ProductEntry) error {
	var items []entity.LedgerItem
	for _, p := range products {
		q := p.Quantity
		if q == "" && len(p.Counts) > 0 {
			if s := counting.SumCounts(p.Counts); !s.IsZero() {
				q = s.String()
			}
		}
		n := counting.ParseAmount(q)
		if n.GreaterThan(decimal.Zero) {
			items = append(items, entity.LedgerItem{ID: p.ID, Quantity: n.String()})
		}
	}

	record := entity.ConsumptionLedger{
		Meta:  entity.RecordMeta{SavedAt: u.now()},
		Items: items,
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := u.store.Set(ctx, key(kind), string(raw)); err != nil {
		return fmt.Errorf("guardar %s: %w", kind, err)
	}
	if err := u.store.Delete(ctx, storage.KeyDesgloseData); err != nil {
		return fmt.Errorf("invalidar desglose: %w", err)
	}
	u.log.Info().Str("ledger", string(kind)).Int("items", len(items)).Msg("consumo guardado")
	return nil
}

// Load reabre un ledger. Ausente o ilegible devuelve nil sin error: para la
// validación ambas cosas cuentan como "no hay registro".
func (u *Usecase) Load(ctx context.Context, kind entity.LedgerKind) (*entity.ConsumptionLedger, error) {
	raw, ok, err := u.store.Get(ctx, key(kind))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var record entity.ConsumptionLedger
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		u.log.Warn().Err(err).Str("ledger", string(kind)).Msg("ledger ilegible, se trata como ausente")
		return nil, nil
	}
	return &record, nil
}

// Quantities devuelve el mapa id→cantidad del ledger si está fresco; un
// ledger de otra jornada aporta el mapa vacío.
func (u *Usecase) Quantities(ctx context.Context, kind entity.LedgerKind) (map[string]decimal.Decimal, error) {
	record, err := u.Load(ctx, kind)
	if err != nil {
		return nil, err
	}
	return reconcile.LedgerQuantities(record, u.now()), nil
}
