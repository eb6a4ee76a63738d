package http

import (
	"encoding/json"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
)

// SettingsHandler persiste la selección de pantalla: área, responsable,
// cantidad de conteos y modo POS.
type SettingsHandler struct {
	store storage.Store
}

// NewSettingsHandler construye el handler.
func NewSettingsHandler(store storage.Store) *SettingsHandler {
	return &SettingsHandler{store: store}
}

// Get devuelve la selección vigente.
func (h *SettingsHandler) Get(c *fiber.Ctx) error {
	ctx := c.Context()
	areaID, _, _ := h.store.Get(ctx, storage.KeyArea)
	areaName, _, _ := h.store.Get(ctx, storage.KeyAreaName)
	userID, _, _ := h.store.Get(ctx, storage.KeyUser)

	slotCount := 1
	if raw, ok, _ := h.store.Get(ctx, storage.KeyCountTimes); ok {
		if n, err := strconv.Atoi(raw); err == nil && n >= 1 {
			slotCount = n
		}
	}
	posMode := false
	if raw, ok, _ := h.store.Get(ctx, storage.KeyPosMode); ok {
		_ = json.Unmarshal([]byte(raw), &posMode)
	}

	return c.JSON(fiber.Map{
		"areaId":    areaID,
		"areaName":  areaName,
		"userId":    userID,
		"slotCount": slotCount,
		"posMode":   posMode,
	})
}

// Update escribe los campos presentes del cuerpo; los ausentes no se tocan.
func (h *SettingsHandler) Update(c *fiber.Ctx) error {
	var in SettingsRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	ctx := c.Context()
	if in.AreaID != nil {
		if err := h.store.Set(ctx, storage.KeyArea, *in.AreaID); err != nil {
			return writeError(c, err)
		}
	}
	if in.AreaName != nil {
		if err := h.store.Set(ctx, storage.KeyAreaName, *in.AreaName); err != nil {
			return writeError(c, err)
		}
	}
	if in.UserID != nil {
		if err := h.store.Set(ctx, storage.KeyUser, *in.UserID); err != nil {
			return writeError(c, err)
		}
	}
	if in.SlotCount != nil {
		n := *in.SlotCount
		if n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Code: "VALIDATION", Message: "slotCount debe ser al menos 1"})
		}
		if err := h.store.Set(ctx, storage.KeyCountTimes, strconv.Itoa(n)); err != nil {
			return writeError(c, err)
		}
	}
	if in.PosMode != nil {
		if err := h.store.Set(ctx, storage.KeyPosMode, strconv.FormatBool(*in.PosMode)); err != nil {
			return writeError(c, err)
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}
