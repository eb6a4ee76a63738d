package entity

import "github.com/shopspring/decimal"

// Abreviaturas de presentación por unidad de medida.
var UnitAbbreviations = map[string]string{
	"mass":     "g",
	"units":    "u",
	"volume":   "mL",
	"distance": "cm",
}

// ProductEntry es una línea de conteo de un producto asignado al área.
// Las cantidades viajan como cadenas decimales (coma o punto) porque así las
// entrega la UI y así las espera el colaborador remoto. Quantity es derivada:
// suma de Counts cuando hay slots llenos, o el primer slot como respaldo.
// La entrada se recrea en cada carga, mezclando lo que devuelve el servidor
// con los registros locales de casa/deuda.
type ProductEntry struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	UnitKind       string           `json:"unitOfMeasureId"`
	Price          *decimal.Decimal `json:"price"` // nil = sin precio asignado
	Stock          decimal.Decimal  `json:"stock"`
	NetContent     decimal.Decimal  `json:"netContent"`
	NetContentUnit string           `json:"netContentUnitOfMeasureId"`
	Counts         []string         `json:"counts"`
	Quantity       string           `json:"quantity"`
	Sold           decimal.Decimal  `json:"sold"`
	CommissionRate decimal.Decimal  `json:"comision"`
	Monto          decimal.Decimal  `json:"monto"`
	Reported       bool             `json:"reported"`
	InUse          bool             `json:"inUse"`
	Disponible     decimal.Decimal  `json:"disponible"`
}

// PriceOrZero devuelve el precio o cero si el producto no tiene precio asignado.
func (p ProductEntry) PriceOrZero() decimal.Decimal {
	if p.Price == nil {
		return decimal.Zero
	}
	return *p.Price
}

// Area es un local/área de venta (catálogo remoto).
type Area struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Employee es un responsable asignable a un área.
type Employee struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
