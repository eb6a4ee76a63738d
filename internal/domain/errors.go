package domain

import "errors"

// Errores de dominio (sin dependencias externas). Ninguno es fatal: cada uno
// degrada a un estado visible en la capa de UI.
var (
	ErrInputRejected    = errors.New("cantidad rechazada")
	ErrOverCeiling      = errors.New("cantidad supera el máximo permitido")
	ErrSyncFailed       = errors.New("fallo al sincronizar con el servidor")
	ErrConnectivityLost = errors.New("sin conexión con el servidor")
	ErrValidationFailed = errors.New("la validación del cierre falló")
	ErrParseFailed      = errors.New("registro local ilegible")
	ErrNoSelection      = errors.New("no hay local o responsable seleccionado")
	ErrEntryNotFound    = errors.New("producto no encontrado")
	ErrCloseNotPending  = errors.New("no hay cierre pendiente de confirmación")
)
