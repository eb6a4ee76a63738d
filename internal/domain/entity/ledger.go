package entity

// LedgerKind distingue los dos ledgers de consumo no vendido.
type LedgerKind string

const (
	LedgerCasa  LedgerKind = "casa"  // consumo de la casa
	LedgerDeuda LedgerKind = "deuda" // consumo a deber
)

// LedgerItem cantidad retirada de inventario para un producto. Solo se
// guardan cantidades mayores que cero.
type LedgerItem struct {
	ID       string `json:"id"`
	Quantity string `json:"quantity"`
}

// ConsumptionLedger registro local de consumo casa o deuda. Ambos comparten
// el mismo techo Sold del producto: casa + deuda nunca debe superarlo, y esa
// restricción se aplica en el momento de teclear, no al validar.
type ConsumptionLedger struct {
	Meta  RecordMeta   `json:"meta"`
	Items []LedgerItem `json:"items"`
}
