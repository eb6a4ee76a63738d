// Package breakdown calcula el desglose de caja: convierte conteos por
// denominación (incluyendo divisas a tasa configurable) en el total de caja y
// los totales derivados del cierre.
package breakdown

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gestoapp/turno-core/internal/domain/entity"
)

// Denominations es el conjunto ordenado y fijo de denominaciones: valores
// faciales de mayor a menor, luego divisas, y al final la pseudo-denominación
// de transferencia.
var Denominations = []string{
	"1000", "500", "200", "100", "50", "20", "10", "5", "3", "1",
	"USD", "EUR", "CAN", TransferKey,
}

// ExchangeKeys divisas con tasa de cambio configurable.
var ExchangeKeys = []string{"USD", "EUR", "CAN"}

const (
	// TransferKey entra al registro pero no a TotalCaja; se rastrea aparte.
	TransferKey = "Transferencia"
	// TipOverrideKey guarda la propina manual dentro del mismo mapa de
	// denominaciones, como una entrada oculta.
	TipOverrideKey = "_PROPINA_OVERRIDE"
)

// IsExchangeKey informa si la clave es una divisa.
func IsExchangeKey(key string) bool {
	for _, k := range ExchangeKeys {
		if k == key {
			return true
		}
	}
	return false
}

// AllowsDecimal informa si la denominación admite decimales en el conteo.
// Los valores faciales se cuentan en billetes enteros; divisas, transferencia
// y propina admiten fracciones.
func AllowsDecimal(key string) bool {
	return IsExchangeKey(key) || key == TransferKey || key == TipOverrideKey
}

// SanitizeNumeric normaliza el texto de un campo numérico: coma a punto,
// descarta caracteres no numéricos, colapsa puntos extra, quita ceros a la
// izquierda y antepone el cero a ".5". Lo vacío queda en "0".
func SanitizeNumeric(text string, allowDecimal bool) string {
	t := strings.ReplaceAll(text, ",", ".")
	var b strings.Builder
	seenDot := false
	for _, r := range t {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && allowDecimal:
			if seenDot {
				continue // puntos extra se descartan
			}
			seenDot = true
			b.WriteRune(r)
		}
	}
	t = b.String()
	t = trimLeadingZeros(t)
	if strings.HasPrefix(t, ".") {
		t = "0" + t
	}
	if t == "" {
		return "0"
	}
	return t
}

func trimLeadingZeros(s string) string {
	i := 0
	for i < len(s)-1 && s[i] == '0' && s[i+1] >= '0' && s[i+1] <= '9' {
		i++
	}
	return s[i:]
}

// parseDec convierte texto saneado a decimal; lo ilegible vale cero.
func parseDec(s string) decimal.Decimal {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ValueOf calcula el aporte de una denominación: facial = conteo × valor;
// divisa = cantidad × tasa; transferencia = su valor crudo. Claves
// desconocidas (incluido el override de propina) aportan cero.
func ValueOf(key string, counts map[string]string, rates map[string]decimal.Decimal) decimal.Decimal {
	raw := parseDec(counts[key])
	if face, err := decimal.NewFromString(key); err == nil {
		return raw.Truncate(0).Mul(face)
	}
	if IsExchangeKey(key) {
		return raw.Mul(rates[key])
	}
	if key == TransferKey {
		return raw
	}
	return decimal.Zero
}

// TotalCash suma todas las denominaciones excepto la transferencia.
func TotalCash(counts map[string]string, rates map[string]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, k := range Denominations {
		if k == TransferKey {
			continue
		}
		total = total.Add(ValueOf(k, counts, rates))
	}
	return total
}

// Transfer devuelve el valor crudo registrado como transferencia.
func Transfer(counts map[string]string) decimal.Decimal {
	return parseDec(counts[TransferKey])
}

// Tip devuelve la propina: el override manual si existe, si no el respaldo.
func Tip(counts map[string]string, fallback decimal.Decimal) decimal.Decimal {
	if raw, ok := counts[TipOverrideKey]; ok && raw != "" {
		return parseDec(raw)
	}
	return fallback
}

// ComputeTotals produce los totales derivados del desglose:
// salario = propina + comisión; liquidación = importe − comisión − transferencia.
func ComputeTotals(counts map[string]string, rates map[string]decimal.Decimal, importe, comision, propinaFallback decimal.Decimal) entity.BreakdownTotals {
	propina := Tip(counts, propinaFallback)
	transferencia := Transfer(counts)
	return entity.BreakdownTotals{
		TotalCaja:     TotalCash(counts, rates),
		Propina:       propina,
		Comision:      comision,
		Salario:       propina.Add(comision),
		Liquidacion:   importe.Sub(comision).Sub(transferencia),
		Importe:       importe,
		Transferencia: transferencia,
	}
}
