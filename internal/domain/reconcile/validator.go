// Package reconcile decide si el turno puede cerrarse comparando tres cifras
// mantenidas por separado: el ingreso esperado derivado de los productos, el
// desglose de caja contado y los ledgers de consumo casa/deuda. Es una
// función pura de sus entradas; la sesión la reevalúa en cada mutación.
package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/gestoapp/turno-core/internal/domain/counting"
	"github.com/gestoapp/turno-core/internal/domain/entity"
)

// Inputs son las cuatro fuentes independientes de la reconciliación. Los
// punteros nil representan registros ausentes (o ilegibles, que para la
// validación es lo mismo).
type Inputs struct {
	Products  []entity.ProductEntry
	Breakdown *entity.CashBreakdown
	Casa      *entity.ConsumptionLedger
	Deuda     *entity.ConsumptionLedger
	Now       time.Time
}

// Verdict resultado de la evaluación. Los booleanos alimentan directamente
// los indicadores de la UI; Importe y Comision se reutilizan para el desglose.
type Verdict struct {
	DesgloseValido bool
	CasaValida     bool
	DeudaValida    bool
	ImporteValido  bool
	Importe        decimal.Decimal
	Comision       decimal.Decimal
}

// AllValid informa si el cierre puede ejecutarse sin confirmación extra.
func (v Verdict) AllValid() bool {
	return v.DesgloseValido && v.CasaValida && v.DeudaValida && v.ImporteValido
}

// FailureReasons nombra exactamente los términos que fallaron, en el texto
// que la UI muestra en el diálogo de confirmación.
func (v Verdict) FailureReasons() []string {
	var reasons []string
	if !v.DesgloseValido {
		reasons = append(reasons, "el desglose no es válido")
	}
	if !v.CasaValida {
		reasons = append(reasons, "el registro de casa no es de hoy")
	}
	if !v.DeudaValida {
		reasons = append(reasons, "el registro de deuda no es de hoy")
	}
	if !v.ImporteValido {
		reasons = append(reasons, "el importe es menor que 0")
	}
	return reasons
}

// LedgerFresh informa si el ledger existe y fue guardado en la jornada
// actual. Un ledger de ayer se trata como ausente aunque parsee bien.
func LedgerFresh(l *entity.ConsumptionLedger, now time.Time) bool {
	if l == nil {
		return false
	}
	return l.Meta.SameLocalDay(now)
}

// LedgerQuantities aplana un ledger fresco a mapa id→cantidad. Un ledger
// ausente o pasado de fecha aporta el mapa vacío: para el cálculo vale cero.
func LedgerQuantities(l *entity.ConsumptionLedger, now time.Time) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	if !LedgerFresh(l, now) {
		return out
	}
	for _, it := range l.Items {
		out[it.ID] = counting.ParseAmount(it.Quantity)
	}
	return out
}

// ExpectedIncome es Σ (monto − casa×precio − deuda×precio) sobre los
// productos del turno. Los productos sin precio aportan su monto íntegro.
func ExpectedIncome(products []entity.ProductEntry, casa, deuda map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		price := p.PriceOrZero()
		consumed := casa[p.ID].Add(deuda[p.ID])
		total = total.Add(p.Monto.Sub(consumed.Mul(price)))
	}
	return total
}

// ExpectedCommission es Σ (vendido − casa − deuda) × tasa de comisión.
func ExpectedCommission(products []entity.ProductEntry, casa, deuda map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, p := range products {
		qty := p.Sold.Sub(casa[p.ID]).Sub(deuda[p.ID])
		total = total.Add(qty.Mul(p.CommissionRate))
	}
	return total
}

// BreakdownCovers aplica la invariante central del cierre:
//
//	totalCaja >= importe − comisión − transferencia
//
// Un desglose que a primera vista parece corto puede seguir siendo válido
// una vez descontadas la comisión y las transferencias registradas.
func BreakdownCovers(b *entity.CashBreakdown, importe, comision decimal.Decimal) bool {
	if b == nil {
		return false
	}
	transferencia := b.Totals.Transferencia
	if raw, ok := b.Denominations[TransferDenomination]; ok && raw != "" {
		transferencia = counting.ParseAmount(raw)
	}
	return b.Totals.TotalCaja.GreaterThanOrEqual(importe.Sub(comision).Sub(transferencia))
}

// TransferDenomination es la clave de transferencia dentro del registro.
const TransferDenomination = "Transferencia"

// Evaluate ejecuta la reconciliación completa.
func Evaluate(in Inputs) Verdict {
	casaQty := LedgerQuantities(in.Casa, in.Now)
	deudaQty := LedgerQuantities(in.Deuda, in.Now)

	importe := ExpectedIncome(in.Products, casaQty, deudaQty)
	comision := ExpectedCommission(in.Products, casaQty, deudaQty)

	return Verdict{
		DesgloseValido: BreakdownCovers(in.Breakdown, importe, comision),
		CasaValida:     LedgerFresh(in.Casa, in.Now),
		DeudaValida:    LedgerFresh(in.Deuda, in.Now),
		ImporteValido:  importe.GreaterThanOrEqual(decimal.Zero),
		Importe:        importe,
		Comision:       comision,
	}
}
