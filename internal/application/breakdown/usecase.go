// Package breakdown es el caso de uso de la pantalla de desglose: sanea cada
// tecla, recalcula los totales y persiste el registro completo en el almacén
// local para que cualquier recarga encuentre un snapshot coherente.
package breakdown

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	calc "github.com/gestoapp/turno-core/internal/domain/breakdown"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
	"github.com/gestoapp/turno-core/pkg/logger"
)

// Usecase mantiene el estado de la pantalla de desglose. Importe y comisión
// llegan de la sesión de conteo al entrar a la pantalla.
type Usecase struct {
	mu    sync.Mutex
	store storage.Store
	log   *logger.Logger

	cantidades map[string]string
	rates      map[string]decimal.Decimal
	importe    decimal.Decimal
	comision   decimal.Decimal
	propina    decimal.Decimal // respaldo cuando no hay override manual

	now func() time.Time
}

// New construye el caso de uso sin estado cargado; Focus lo puebla.
func New(store storage.Store, log *logger.Logger) *Usecase {
	return &Usecase{
		store:      store,
		log:        log,
		cantidades: map[string]string{},
		rates:      map[string]decimal.Decimal{},
		now:        time.Now,
	}
}

// Focus carga el estado persistido al tomar foco la pantalla: conteos crudos,
// tasas de cambio (con el registro previo de desglose como respaldo) y la
// propina. Persiste una vez de inmediato para garantizar que el registro
// exista aunque el usuario no toque nada.
func (u *Usecase) Focus(ctx context.Context, importe, comision decimal.Decimal) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	u.importe = importe
	u.comision = comision

	cantidades := map[string]string{}
	if raw, ok, err := u.store.Get(ctx, storage.KeyCajaData); err == nil && ok {
		if err := json.Unmarshal([]byte(raw), &cantidades); err != nil {
			// registro corrupto: se parte de cero, nunca se propaga
			u.log.Warn().Err(err).Msg("registro de caja ilegible, se descarta")
			cantidades = map[string]string{}
		}
	}

	var prev entity.CashBreakdown
	havePrev := false
	if raw, ok, err := u.store.Get(ctx, storage.KeyDesgloseData); err == nil && ok {
		havePrev = json.Unmarshal([]byte(raw), &prev) == nil
	}

	rates := map[string]decimal.Decimal{}
	for _, code := range calc.ExchangeKeys {
		if raw, ok, err := u.store.Get(ctx, storage.ExchangePrefix+code); err == nil && ok {
			if d, err := decimal.NewFromString(raw); err == nil {
				rates[code] = d
			}
		}
		if havePrev {
			if d, ok := prev.ExchangeRates[code]; ok && !d.IsZero() {
				rates[code] = d
			}
		}
	}

	u.propina = decimal.Zero
	if havePrev {
		u.propina = prev.Totals.Propina
	}

	for _, d := range calc.Denominations {
		if _, ok := cantidades[d]; !ok {
			cantidades[d] = "0"
		}
	}
	for k, v := range cantidades {
		cantidades[k] = calc.SanitizeNumeric(v, calc.AllowsDecimal(k))
	}

	u.cantidades = cantidades
	u.rates = rates
	return u.persistLocked(ctx)
}

// SetCantidad registra una tecla en el campo de la denominación y persiste.
func (u *Usecase) SetCantidad(ctx context.Context, key, raw string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cantidades[key] = calc.SanitizeNumeric(raw, calc.AllowsDecimal(key))
	return u.persistLocked(ctx)
}

// SetPropina registra la propina manual, que prevalece sobre la inferida.
func (u *Usecase) SetPropina(ctx context.Context, raw string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.cantidades[calc.TipOverrideKey] = calc.SanitizeNumeric(raw, true)
	return u.persistLocked(ctx)
}

// SetRate actualiza la tasa de una divisa y persiste con los nuevos totales.
func (u *Usecase) SetRate(ctx context.Context, code, raw string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	d, err := decimal.NewFromString(calc.SanitizeNumeric(raw, true))
	if err != nil {
		return fmt.Errorf("tasa de %s: %w", code, err)
	}
	u.rates[code] = d
	if err := u.store.Set(ctx, storage.ExchangePrefix+code, d.String()); err != nil {
		return err
	}
	return u.persistLocked(ctx)
}

// Snapshot devuelve el registro actual completo.
func (u *Usecase) Snapshot() entity.CashBreakdown {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.recordLocked()
}

// recordLocked arma el registro con totales coherentes. Requiere u.mu.
func (u *Usecase) recordLocked() entity.CashBreakdown {
	cantidades := make(map[string]string, len(u.cantidades))
	for k, v := range u.cantidades {
		cantidades[k] = v
	}
	rates := make(map[string]decimal.Decimal, len(u.rates))
	for k, v := range u.rates {
		rates[k] = v
	}
	return entity.CashBreakdown{
		Meta:          entity.RecordMeta{SavedAt: u.now()},
		Denominations: cantidades,
		ExchangeRates: rates,
		Totals:        calc.ComputeTotals(cantidades, rates, u.importe, u.comision, u.propina),
	}
}

// persistLocked escribe el conteo crudo y el registro completo. Son dos
// claves sin transacción: si la segunda escritura no llega, el validador
// tratará el registro viejo como inválido por fecha, nunca como válido.
// Requiere u.mu.
func (u *Usecase) persistLocked(ctx context.Context) error {
	rawCaja, err := json.Marshal(u.cantidades)
	if err != nil {
		return err
	}
	if err := u.store.Set(ctx, storage.KeyCajaData, string(rawCaja)); err != nil {
		return fmt.Errorf("guardar conteo de caja: %w", err)
	}
	record := u.recordLocked()
	rawRecord, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := u.store.Set(ctx, storage.KeyDesgloseData, string(rawRecord)); err != nil {
		return fmt.Errorf("guardar desglose: %w", err)
	}
	return nil
}
