// Package storage define el puerto del almacén clave-valor local y sus dos
// implementaciones: Redis para despliegues con caja compartida y un mapa en
// memoria para desarrollo y tests. Cada escritura es last-writer-wins; no hay
// agrupación transaccional entre claves.
package storage

import "context"

// Claves del almacén local. Son una elección de implementación, no un
// contrato, pero las formas JSON de los registros sí lo son.
const (
	KeyCountTimes   = "COUNT_TIMES"
	KeyPosMode      = "POS_MODE"
	KeyCajaData     = "CAJA_DATA"
	KeyDesgloseData = "DESGLOSE_DATA"
	KeyCasaData     = "CASA_DATA"
	KeyDeudaData    = "DEUDA_DATA"
	KeyArea         = "selectedLocal"
	KeyAreaName     = "LOCAL_DENOMINATION"
	KeyUser         = "selectedResponsable"
	KeyServerURL    = "SERVER_URL"

	// ExchangePrefix + código de divisa guarda la tasa como texto plano.
	ExchangePrefix = "EXCHANGE_"
)

// Store es el puerto del almacén clave-valor local. Get devuelve ok=false
// para claves inexistentes sin error.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
}
