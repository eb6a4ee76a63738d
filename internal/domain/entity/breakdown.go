package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordMeta marca de guardado de un registro local. La frescura se decide
// comparando año/mes/día locales, nunca distancia entre timestamps.
type RecordMeta struct {
	SavedAt time.Time `json:"savedAt"`
}

// SameLocalDay informa si el registro fue guardado en la jornada de now.
func (m RecordMeta) SameLocalDay(now time.Time) bool {
	s := m.SavedAt
	if s.IsZero() {
		return false
	}
	y1, m1, d1 := s.Local().Date()
	y2, m2, d2 := now.Local().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// BreakdownTotals totales derivados del desglose de caja.
type BreakdownTotals struct {
	TotalCaja     decimal.Decimal `json:"totalCaja"`     // suma de denominaciones, sin transferencia
	Propina       decimal.Decimal `json:"propina"`       // manual o heredada del registro previo
	Comision      decimal.Decimal `json:"comision"`      // ganancia por productos del turno
	Salario       decimal.Decimal `json:"salario"`       // propina + comisión
	Liquidacion   decimal.Decimal `json:"liquidacion"`   // importe − comisión − transferencia
	Importe       decimal.Decimal `json:"importe"`       // venta registrada del turno
	Transferencia decimal.Decimal `json:"transferencia"` // dinero en transferencia, fuera de caja
}

// CashBreakdown es el registro atómico que persiste la pantalla de desglose.
// Denominations conserva el texto crudo por denominación (incluida la
// transferencia y el override manual de propina) tal como lo tecleó el
// usuario; Totals es siempre coherente con él.
type CashBreakdown struct {
	Meta          RecordMeta                 `json:"meta"`
	Denominations map[string]string          `json:"denominations"`
	ExchangeRates map[string]decimal.Decimal `json:"exchangeRates"`
	Totals        BreakdownTotals            `json:"totals"`
}
