package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	appbreakdown "github.com/gestoapp/turno-core/internal/application/breakdown"
	"github.com/gestoapp/turno-core/internal/application/session"
	"github.com/gestoapp/turno-core/internal/domain/entity"
)

// BreakdownHandler maneja las peticiones HTTP del desglose de caja.
type BreakdownHandler struct {
	uc  *appbreakdown.Usecase
	mgr *session.Manager
}

// NewBreakdownHandler construye el handler.
func NewBreakdownHandler(uc *appbreakdown.Usecase, mgr *session.Manager) *BreakdownHandler {
	return &BreakdownHandler{uc: uc, mgr: mgr}
}

// importeComision toma el importe y la comisión esperados del conteo final
// vigente. Sin pantalla final cargada ambos son cero.
func (h *BreakdownHandler) importeComision() (decimal.Decimal, decimal.Decimal) {
	s, err := h.mgr.For(entity.FlowFinal)
	if err != nil {
		return decimal.Zero, decimal.Zero
	}
	v := s.Verdict()
	return v.Importe, v.Comision
}

// revalidateFinal reevalúa el veredicto del conteo final tras cada mutación
// del desglose, para que la pantalla final lo refleje sin reabrirse.
func (h *BreakdownHandler) revalidateFinal(c *fiber.Ctx) {
	if s, err := h.mgr.For(entity.FlowFinal); err == nil {
		s.Revalidate(c.Context())
	}
}

// Focus abre o reabre el desglose y persiste su estado inicial.
func (h *BreakdownHandler) Focus(c *fiber.Ctx) error {
	importe, comision := h.importeComision()
	if err := h.uc.Focus(c.Context(), importe, comision); err != nil {
		return writeError(c, err)
	}
	h.revalidateFinal(c)
	return c.JSON(h.uc.Snapshot())
}

// Get devuelve el registro vigente del desglose.
func (h *BreakdownHandler) Get(c *fiber.Ctx) error {
	return c.JSON(h.uc.Snapshot())
}

// SetValue escribe la casilla de una denominación.
func (h *BreakdownHandler) SetValue(c *fiber.Ctx) error {
	var in BreakdownValueRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "key es requerido"})
	}
	if err := h.uc.SetCantidad(c.Context(), in.Key, in.Value); err != nil {
		return writeError(c, err)
	}
	h.revalidateFinal(c)
	return c.JSON(h.uc.Snapshot())
}

// SetTip escribe la propina manual.
func (h *BreakdownHandler) SetTip(c *fiber.Ctx) error {
	var in BreakdownValueRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if err := h.uc.SetPropina(c.Context(), in.Value); err != nil {
		return writeError(c, err)
	}
	h.revalidateFinal(c)
	return c.JSON(h.uc.Snapshot())
}

// SetRate escribe la tasa de cambio de una divisa.
func (h *BreakdownHandler) SetRate(c *fiber.Ctx) error {
	var in RateRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Code == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "code es requerido"})
	}
	if err := h.uc.SetRate(c.Context(), in.Code, in.Value); err != nil {
		return writeError(c, err)
	}
	h.revalidateFinal(c)
	return c.JSON(h.uc.Snapshot())
}
