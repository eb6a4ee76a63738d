package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/gestoapp/turno-core/internal/application/session"
	"github.com/gestoapp/turno-core/internal/domain"
	"github.com/gestoapp/turno-core/internal/domain/entity"
)

// SessionHandler maneja las peticiones HTTP de las pantallas de conteo.
type SessionHandler struct {
	mgr *session.Manager
}

// NewSessionHandler construye el handler.
func NewSessionHandler(mgr *session.Manager) *SessionHandler {
	return &SessionHandler{mgr: mgr}
}

func (h *SessionHandler) session(c *fiber.Ctx) (*session.Session, error) {
	flow := entity.FlowKind(c.Params("flow"))
	s, err := h.mgr.For(flow)
	if err != nil {
		return nil, c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_FLOW", Message: "flujo desconocido: " + c.Params("flow")})
	}
	return s, nil
}

// Focus carga o refresca la pantalla del flujo.
func (h *SessionHandler) Focus(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	if err := s.Focus(c.Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSessionResponse(s))
}

// Get devuelve el estado vigente sin recargar del colaborador remoto.
func (h *SessionHandler) Get(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	return c.JSON(toSessionResponse(s))
}

// Reload fuerza la recarga de productos del colaborador remoto.
func (h *SessionHandler) Reload(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	if err := s.ForceReload(c.Context()); err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSessionResponse(s))
}

// Search filtra los productos cargados por nombre.
func (h *SessionHandler) Search(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	return c.JSON(s.Search(c.Query("q")))
}

// SetSlot escribe un slot de conteo.
func (h *SessionHandler) SetSlot(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	var in SetSlotRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "productId es requerido"})
	}
	if err := s.SetSlot(c.Context(), in.ProductID, in.Slot, in.Value); err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSessionResponse(s))
}

// SetQuantity escribe la cantidad directa de un producto.
func (h *SessionHandler) SetQuantity(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	var in SetQuantityRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "productId es requerido"})
	}
	if err := s.SetSingle(c.Context(), in.ProductID, in.Value); err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSessionResponse(s))
}

// TransferTarget fija el destino del traslado entre áreas.
func (h *SessionHandler) TransferTarget(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	var in TransferTargetRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	s.SelectTransferTarget(in.ToAreaID, in.ToUserID)
	return c.SendStatus(fiber.StatusNoContent)
}

// SaveLedger persiste el ledger de consumo del flujo (casa o deuda).
func (h *SessionHandler) SaveLedger(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	var kind entity.LedgerKind
	switch s.Flow() {
	case entity.FlowCasa:
		kind = entity.LedgerCasa
	case entity.FlowDeuda:
		kind = entity.LedgerDeuda
	default:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_FLOW", Message: "el flujo no tiene ledger"})
	}
	if err := s.SaveLedger(c.Context(), kind); err != nil {
		return writeError(c, err)
	}
	return c.JSON(toSessionResponse(s))
}

// RequestClose solicita la acción terminal y devuelve la confirmación.
func (h *SessionHandler) RequestClose(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	conf := s.RequestClose(c.Context())
	return c.JSON(toConfirmationResponse(conf))
}

// ConfirmClose ejecuta la confirmación pendiente.
func (h *SessionHandler) ConfirmClose(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	if err := s.ConfirmClose(c.Context()); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// CancelClose descarta la confirmación pendiente.
func (h *SessionHandler) CancelClose(c *fiber.Ctx) error {
	s, err := h.session(c)
	if s == nil {
		return err
	}
	s.CancelClose()
	return c.SendStatus(fiber.StatusNoContent)
}

func toSessionResponse(s *session.Session) SessionResponse {
	areaID, areaName, userID, slotCount, posMode := s.Info()
	return SessionResponse{
		Flow:         string(s.Flow()),
		AreaID:       areaID,
		AreaName:     areaName,
		UserID:       userID,
		SlotCount:    slotCount,
		PosMode:      posMode,
		SyncState:    s.SyncState(),
		Connectivity: s.Connectivity(),
		Products:     s.Products(),
		Verdict:      toVerdictResponse(s.Verdict()),
	}
}

// writeError mapea los errores de dominio a códigos HTTP.
func writeError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, domain.ErrInputRejected):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Code: "INPUT_REJECTED", Message: err.Error()})
	case errors.Is(err, domain.ErrOverCeiling):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse{Code: "OVER_CEILING", Message: err.Error()})
	case errors.Is(err, domain.ErrEntryNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Code: "NOT_FOUND", Message: err.Error()})
	case errors.Is(err, domain.ErrNoSelection):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "NO_SELECTION", Message: err.Error()})
	case errors.Is(err, domain.ErrCloseNotPending):
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "NO_PENDING_CLOSE", Message: err.Error()})
	default:
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Code: "UPSTREAM", Message: err.Error()})
	}
}
