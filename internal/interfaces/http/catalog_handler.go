package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/gestoapp/turno-core/internal/infrastructure/api"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
)

// CatalogHandler expone los catálogos del colaborador remoto: áreas,
// responsables y la observación del turno.
type CatalogHandler struct {
	api   *api.Client
	store storage.Store
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(apiClient *api.Client, store storage.Store) *CatalogHandler {
	return &CatalogHandler{api: apiClient, store: store}
}

// Areas lista los locales disponibles.
func (h *CatalogHandler) Areas(c *fiber.Ctx) error {
	out, err := h.api.Areas(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Employees lista los responsables asignables a un área.
func (h *CatalogHandler) Employees(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "MISSING_ID", Message: "id es requerido"})
	}
	out, err := h.api.EmployeesByArea(c.Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetObservation lee la observación guardada del área seleccionada.
func (h *CatalogHandler) GetObservation(c *fiber.Ctx) error {
	areaID, ok, err := h.store.Get(c.Context(), storage.KeyArea)
	if err != nil || !ok || areaID == "" {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "NO_SELECTION", Message: "no hay área seleccionada"})
	}
	out, err := h.api.Observation(c.Context(), areaID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(fiber.Map{"text": out})
}

// SaveObservation guarda la observación del responsable.
func (h *CatalogHandler) SaveObservation(c *fiber.Ctx) error {
	var in ObservationRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	areaID, okArea, err := h.store.Get(c.Context(), storage.KeyArea)
	if err != nil || !okArea || areaID == "" {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "NO_SELECTION", Message: "no hay área seleccionada"})
	}
	userID, okUser, err := h.store.Get(c.Context(), storage.KeyUser)
	if err != nil || !okUser || userID == "" {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Code: "NO_SELECTION", Message: "no hay responsable seleccionado"})
	}
	if err := h.api.SaveObservation(c.Context(), areaID, userID, in.Text); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
