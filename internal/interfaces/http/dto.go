package http

import (
	"github.com/gestoapp/turno-core/internal/application/closeout"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/internal/domain/reconcile"
)

// ErrorResponse respuesta de error uniforme de la API local.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SessionResponse estado visible de una pantalla de conteo.
type SessionResponse struct {
	Flow         string                   `json:"flow"`
	AreaID       string                   `json:"areaId"`
	AreaName     string                   `json:"areaName"`
	UserID       string                   `json:"userId"`
	SlotCount    int                      `json:"slotCount"`
	PosMode      bool                     `json:"posMode"`
	SyncState    entity.SyncState         `json:"syncState"`
	Connectivity entity.ConnectivityState `json:"connectivity"`
	Products     []entity.ProductEntry    `json:"products"`
	Verdict      VerdictResponse          `json:"verdict"`
}

// VerdictResponse veredicto de reconciliación plano para la UI.
type VerdictResponse struct {
	DesgloseValido bool     `json:"desgloseValido"`
	CasaValida     bool     `json:"casaValida"`
	DeudaValida    bool     `json:"deudaValida"`
	ImporteValido  bool     `json:"importeValido"`
	Importe        string   `json:"importe"`
	Comision       string   `json:"comision"`
	Reasons        []string `json:"reasons,omitempty"`
}

func toVerdictResponse(v reconcile.Verdict) VerdictResponse {
	return VerdictResponse{
		DesgloseValido: v.DesgloseValido,
		CasaValida:     v.CasaValida,
		DeudaValida:    v.DeudaValida,
		ImporteValido:  v.ImporteValido,
		Importe:        v.Importe.String(),
		Comision:       v.Comision.String(),
		Reasons:        v.FailureReasons(),
	}
}

// SetSlotRequest cuerpo de la escritura de un slot.
type SetSlotRequest struct {
	ProductID string `json:"productId"`
	Slot      int    `json:"slot"`
	Value     string `json:"value"`
}

// SetQuantityRequest cuerpo de la escritura de cantidad directa.
type SetQuantityRequest struct {
	ProductID string `json:"productId"`
	Value     string `json:"value"`
}

// TransferTargetRequest destino de un traslado entre áreas.
type TransferTargetRequest struct {
	ToAreaID string `json:"toAreaId"`
	ToUserID string `json:"toUserId"`
}

// ConfirmationResponse confirmación pendiente de cierre.
type ConfirmationResponse struct {
	Action  string   `json:"action"`
	Text    string   `json:"text"`
	Warning bool     `json:"warning"`
	Reasons []string `json:"reasons,omitempty"`
}

func toConfirmationResponse(c closeout.Confirmation) ConfirmationResponse {
	return ConfirmationResponse{
		Action:  string(c.Action),
		Text:    c.Text,
		Warning: c.Warning,
		Reasons: c.Reasons,
	}
}

// BreakdownValueRequest cuerpo de la escritura de una casilla del desglose.
type BreakdownValueRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RateRequest cuerpo de la escritura de una tasa de cambio.
type RateRequest struct {
	Code  string `json:"code"`
	Value string `json:"value"`
}

// ObservationRequest cuerpo de la observación del responsable.
type ObservationRequest struct {
	Text string `json:"text"`
}

// SettingsRequest selección persistente de pantalla.
type SettingsRequest struct {
	AreaID    *string `json:"areaId,omitempty"`
	AreaName  *string `json:"areaName,omitempty"`
	UserID    *string `json:"userId,omitempty"`
	SlotCount *int    `json:"slotCount,omitempty"`
	PosMode   *bool   `json:"posMode,omitempty"`
}
