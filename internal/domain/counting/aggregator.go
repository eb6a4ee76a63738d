// Package counting implementa el agregador de cantidades: mantiene el arreglo
// de slots de conteo de cada producto sincronizado con la configuración y
// deriva la cantidad total. Todo es puro y determinista; el estado vive en la
// sesión que lo invoca.
package counting

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/gestoapp/turno-core/internal/domain"
	"github.com/gestoapp/turno-core/internal/domain/entity"
)

// quantityPattern valida cantidades con hasta 2 decimales (coma o punto).
// La cadena vacía es válida: equivale a borrar el campo.
var quantityPattern = regexp.MustCompile(`^\d*[.,]?\d{0,2}$`)

// ValidRaw informa si el texto cumple la gramática de cantidades.
func ValidRaw(raw string) bool {
	return quantityPattern.MatchString(raw)
}

// ParseAmount convierte una cadena de cantidad a decimal. Acepta coma como
// separador; lo vacío o ilegible vale cero.
func ParseAmount(raw string) decimal.Decimal {
	s := strings.TrimSpace(strings.ReplaceAll(raw, ",", "."))
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// SumCounts suma los slots de un producto, contando cero por cada slot vacío
// o ilegible.
func SumCounts(counts []string) decimal.Decimal {
	total := decimal.Zero
	for _, c := range counts {
		total = total.Add(ParseAmount(c))
	}
	return total
}

// deriveQuantity aplica la invariante: la suma si es distinta de cero, si no
// el primer slot tal cual (conserva lo tecleado aunque aún no parsee).
func deriveQuantity(counts []string) string {
	total := SumCounts(counts)
	if !total.IsZero() {
		return total.String()
	}
	if len(counts) > 0 {
		return counts[0]
	}
	return ""
}

// ReshapeEntry ajusta Counts de una entrada al número de slots configurado:
// si está vacío siembra el slot 0 con la cantidad previa, si es corto rellena
// con vacíos y si es largo trunca. Reaplicar con el mismo slotCount es no-op.
func ReshapeEntry(p entity.ProductEntry, slotCount int) entity.ProductEntry {
	if slotCount < 1 {
		slotCount = 1
	}
	counts := make([]string, 0, slotCount)
	if len(p.Counts) == 0 {
		counts = append(counts, p.Quantity)
	} else {
		counts = append(counts, p.Counts...)
	}
	for len(counts) < slotCount {
		counts = append(counts, "")
	}
	counts = counts[:slotCount]

	p.Counts = counts
	p.Quantity = deriveQuantity(counts)
	return p
}

// Reshape aplica ReshapeEntry a toda la lista.
func Reshape(entries []entity.ProductEntry, slotCount int) []entity.ProductEntry {
	out := make([]entity.ProductEntry, len(entries))
	for i, p := range entries {
		out[i] = ReshapeEntry(p, slotCount)
	}
	return out
}

// SetSlot escribe el texto crudo en el slot indicado y recalcula Quantity.
// Rechaza sin mutar si el texto no cumple la gramática, si el índice queda
// fuera del arreglo o si la suma resultante de todos los slots supera el
// techo (cuando max no es nil). Borrar un slot siempre se acepta.
func SetSlot(p entity.ProductEntry, idx int, raw string, max *decimal.Decimal) (entity.ProductEntry, error) {
	if !ValidRaw(raw) {
		return p, domain.ErrInputRejected
	}
	if idx < 0 || idx >= len(p.Counts) {
		return p, domain.ErrInputRejected
	}
	counts := make([]string, len(p.Counts))
	copy(counts, p.Counts)
	counts[idx] = raw
	// el techo aplica sobre el total derivado: los slots suman entre sí
	if raw != "" && exceedsTotal(counts, max) {
		return p, domain.ErrOverCeiling
	}

	p.Counts = counts
	p.Quantity = deriveQuantity(counts)
	return p, nil
}

// SetSingle escribe Quantity directamente (flujos sin multi-slot).
func SetSingle(p entity.ProductEntry, raw string, max *decimal.Decimal) (entity.ProductEntry, error) {
	if !ValidRaw(raw) {
		return p, domain.ErrInputRejected
	}
	if exceeds(raw, max) {
		return p, domain.ErrOverCeiling
	}
	p.Quantity = raw
	return p, nil
}

func exceeds(raw string, max *decimal.Decimal) bool {
	if max == nil || raw == "" {
		return false
	}
	return ParseAmount(raw).GreaterThan(*max)
}

func exceedsTotal(counts []string, max *decimal.Decimal) bool {
	if max == nil {
		return false
	}
	return SumCounts(counts).GreaterThan(*max)
}
