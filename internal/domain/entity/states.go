package entity

// SyncState estado grueso del motor de sincronización, efímero por pantalla.
type SyncState string

const (
	SyncIdle    SyncState = "idle"
	SyncPending SyncState = "pending" // debounce armado
	SyncLoading SyncState = "loading" // petición en vuelo
	SyncSuccess SyncState = "success"
	SyncError   SyncState = "error"
)

// ConnectivityState estado observable de la sonda de conectividad.
// Son tres estados, no dos: la UI debe distinguir "comprobando" de
// "confirmado sin conexión".
type ConnectivityState string

const (
	ConnOnline   ConnectivityState = "online"
	ConnOffline  ConnectivityState = "offline"
	ConnRetrying ConnectivityState = "retrying"
)

// FlowKind identifica el flujo de conteo activo; coincide con el segmento de
// ruta que espera el colaborador remoto.
type FlowKind string

const (
	FlowInitial   FlowKind = "initial"
	FlowFinal     FlowKind = "final"
	FlowRequest   FlowKind = "request"
	FlowCasa      FlowKind = "casa"
	FlowDeuda     FlowKind = "deuda"
	FlowArea2Area FlowKind = "area2area"
)

// Valid reporta si el valor es uno de los flujos conocidos.
func (f FlowKind) Valid() bool {
	switch f {
	case FlowInitial, FlowFinal, FlowRequest, FlowCasa, FlowDeuda, FlowArea2Area:
		return true
	}
	return false
}

// AutoSync indica si el flujo participa del empuje automático debounced.
// Casa, deuda y traslados entre áreas se envían solo con acción explícita.
func (f FlowKind) AutoSync() bool {
	switch f {
	case FlowCasa, FlowDeuda, FlowArea2Area:
		return false
	}
	return true
}

// MultiSlot indica si el flujo usa varios slots de conteo en paralelo.
func (f FlowKind) MultiSlot() bool {
	return f == FlowInitial || f == FlowFinal
}

// Capped indica si las cantidades del flujo tienen techo (Sold ajustado por
// el ledger hermano).
func (f FlowKind) Capped() bool {
	return f == FlowCasa || f == FlowDeuda || f == FlowArea2Area
}
