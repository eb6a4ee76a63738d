// Package api implementa el cliente HTTP del colaborador remoto (la API del
// almacén). Usa net/http de la stdlib con timeout por petición; los errores
// se envuelven y quedan en manos del motor de sincronización o de la sonda,
// nunca tumban la sesión.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/gestoapp/turno-core/internal/domain"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/pkg/config"
	"github.com/gestoapp/turno-core/pkg/logger"
)

// IdempotencyHeader cabecera con el id de idempotencia de cada envío. El
// servidor puede descartar con ella los duplicados de un mismo reintento.
const IdempotencyHeader = "X-Idempotency-Key"

// Client cliente del colaborador remoto.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *logger.Logger
}

// New construye el cliente con el timeout del snapshot de configuración.
func New(cfg config.ServerConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        log,
	}
}

// SyncRequest payload del empuje de productos.
type SyncRequest struct {
	Productos []entity.ProductEntry `json:"productos"`
	UserID    string                `json:"userId"`
	AreaID    string                `json:"areaId"`
}

// CloseRequest payload de post-initial / post-final.
type CloseRequest struct {
	AreaID string `json:"areaId"`
	UserID string `json:"userId"`
}

// TransferRequest payload del traslado entre áreas.
type TransferRequest struct {
	Productos []entity.ProductEntry `json:"productos"`
	AreaID    string                `json:"areaId"`
	ToAreaID  string                `json:"toAreaId"`
	ToUserID  string                `json:"toUserId"`
}

// ProductsSaved descarga la lista de productos del flujo para el área.
// toAreaID solo aplica al flujo area2area y puede ir vacío.
func (c *Client) ProductsSaved(ctx context.Context, flow entity.FlowKind, areaID, toAreaID string) ([]entity.ProductEntry, error) {
	url := fmt.Sprintf("%s/request/products/saved/%s/%s", c.baseURL, flow, areaID)
	if toAreaID != "" {
		url += "/" + toAreaID
	}
	var out []entity.ProductEntry
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil, fmt.Errorf("productos guardados (%s): %w", flow, err)
	}
	return out, nil
}

// Sync empuja el snapshot local completo. Las cantidades con separador
// decimal colgante ("12.") se recortan antes de enviar.
func (c *Client) Sync(ctx context.Context, flow entity.FlowKind, products []entity.ProductEntry, userID, areaID string) error {
	payload := SyncRequest{
		Productos: trimTrailingSeparators(products),
		UserID:    userID,
		AreaID:    areaID,
	}
	url := fmt.Sprintf("%s/request/sync/%s", c.baseURL, flow)
	if err := c.postJSON(ctx, url, payload, nil); err != nil {
		return fmt.Errorf("sync %s: %w", flow, err)
	}
	return nil
}

// PostInitial congela las cantidades iniciales del turno.
func (c *Client) PostInitial(ctx context.Context, areaID, userID string) error {
	url := c.baseURL + "/request/post/initial"
	return c.postJSON(ctx, url, CloseRequest{AreaID: areaID, UserID: userID}, nil)
}

// PostFinal congela las cantidades finales y cierra el turno.
func (c *Client) PostFinal(ctx context.Context, areaID, userID string) error {
	url := c.baseURL + "/request/post/final"
	return c.postJSON(ctx, url, CloseRequest{AreaID: areaID, UserID: userID}, nil)
}

// SendToWarehouse confirma el pedido de reposición al almacén.
func (c *Client) SendToWarehouse(ctx context.Context, areaID string) error {
	url := c.baseURL + "/request/send-to-warehouse/" + areaID
	return c.postJSON(ctx, url, nil, nil)
}

// PostArea2Area envía la solicitud de traslado entre áreas. Este flujo queda
// fuera del empuje automático: solo se entrega con esta acción explícita.
func (c *Client) PostArea2Area(ctx context.Context, req TransferRequest) error {
	req.Productos = trimTrailingSeparators(req.Productos)
	url := c.baseURL + "/request/area2area/" + req.AreaID
	return c.postJSON(ctx, url, req, nil)
}

// Areas descarga el catálogo de locales.
func (c *Client) Areas(ctx context.Context) ([]entity.Area, error) {
	var out []entity.Area
	if err := c.getJSON(ctx, c.baseURL+"/areas-local", &out); err != nil {
		return nil, fmt.Errorf("áreas: %w", err)
	}
	return out, nil
}

// EmployeesByArea descarga los responsables asignables al área.
func (c *Client) EmployeesByArea(ctx context.Context, areaID string) ([]entity.Employee, error) {
	var out []entity.Employee
	if err := c.getJSON(ctx, c.baseURL+"/get-employes-by-area/"+areaID, &out); err != nil {
		return nil, fmt.Errorf("responsables del área %s: %w", areaID, err)
	}
	return out, nil
}

// Observation lee la observación guardada para el área.
func (c *Client) Observation(ctx context.Context, areaID string) (string, error) {
	var out string
	if err := c.getJSON(ctx, c.baseURL+"/employe/observation/"+areaID, &out); err != nil {
		return "", fmt.Errorf("observación: %w", err)
	}
	return out, nil
}

// SaveObservation guarda la observación del responsable para el área.
func (c *Client) SaveObservation(ctx context.Context, areaID, userID, text string) error {
	body := map[string]string{
		"selectedResponsable": userID,
		"observations":        text,
	}
	return c.postJSON(ctx, c.baseURL+"/employe/observation/"+areaID, body, nil)
}

// Health es la sonda de vida. Cualquier respuesta fuera de 2xx cuenta como
// fallo del ciclo.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("health: estado %d", resp.StatusCode)
	}
	return nil
}

// ── helpers ──────────────────────────────────────────────────────────────────

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) postJSON(ctx context.Context, url string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(buf)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	id := domain.SubmissionID(ctx)
	if id == "" {
		id = uuid.NewString()
	}
	req.Header.Set(IdempotencyHeader, id)
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("%s %s: estado %d: %s", req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decodificar respuesta de %s: %w", req.URL.Path, err)
	}
	return nil
}

func trimTrailingSeparators(products []entity.ProductEntry) []entity.ProductEntry {
	out := make([]entity.ProductEntry, len(products))
	for i, p := range products {
		q := p.Quantity
		if strings.HasSuffix(q, ".") || strings.HasSuffix(q, ",") {
			p.Quantity = q[:len(q)-1]
		}
		out[i] = p
	}
	return out
}
