// Package session orquesta una pantalla de conteo: carga y fusiona los
// productos del colaborador remoto con los registros locales, aplica las
// mutaciones de slots con su política de techo, alimenta el motor de
// sincronización y mantiene el veredicto de reconciliación al día.
//
// Toda mutación entra por aquí y se serializa tras un único mutex: el
// equivalente del hilo de UI del cliente original.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/gestoapp/turno-core/internal/application/closeout"
	"github.com/gestoapp/turno-core/internal/application/connectivity"
	"github.com/gestoapp/turno-core/internal/application/ledger"
	enginesync "github.com/gestoapp/turno-core/internal/application/sync"
	"github.com/gestoapp/turno-core/internal/domain"
	"github.com/gestoapp/turno-core/internal/domain/counting"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/internal/domain/reconcile"
	"github.com/gestoapp/turno-core/internal/infrastructure/api"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
	"github.com/gestoapp/turno-core/pkg/config"
	"github.com/gestoapp/turno-core/pkg/logger"
)

// searchNormalizer quita tildes para la búsqueda (NFD, borra marcas, NFC).
var searchNormalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize normaliza texto para búsquedas: sin tildes, minúsculas, sin
// espacios extremos.
func Normalize(s string) string {
	out, _, err := transform.String(searchNormalizer, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Session estado de una pantalla de conteo para un flujo concreto.
type Session struct {
	mu sync.Mutex

	cfg     *config.Config
	log     *logger.Logger
	store   storage.Store
	api     *api.Client
	ledgers *ledger.Usecase
	closer  *closeout.Usecase

	flow      entity.FlowKind
	slotCount int
	posMode   bool

	areaID   string
	areaName string
	userID   string
	toAreaID string
	toUserID string

	products []entity.ProductEntry
	casaMap  map[string]decimal.Decimal
	deudaMap map[string]decimal.Decimal

	verdict reconcile.Verdict
	pending *closeout.Confirmation

	engine  *enginesync.Engine
	monitor *connectivity.Monitor

	// onOfflineNotice aviso único de pérdida de conexión hacia la UI.
	onOfflineNotice func()

	now func() time.Time
}

// New construye la sesión y cablea el motor de sincronización y la sonda de
// conectividad. Start arranca la sonda; Focus carga el estado.
func New(cfg *config.Config, log *logger.Logger, store storage.Store, apiClient *api.Client, flow entity.FlowKind) *Session {
	s := &Session{
		cfg:      cfg,
		log:      log,
		store:    store,
		api:      apiClient,
		ledgers:  ledger.New(store, log),
		closer:   closeout.New(apiClient, store, log),
		flow:     flow,
		casaMap:  map[string]decimal.Decimal{},
		deudaMap: map[string]decimal.Decimal{},
		now:      time.Now,
	}

	s.engine = enginesync.New(cfg.Sync, enginesync.PusherFunc(s.push), s.snapshot, log)
	s.engine.OnResult(func(error) { s.Revalidate(context.Background()) })

	s.monitor = connectivity.New(cfg.Probe, connectivity.ProberFunc(apiClient.Health), log)
	s.monitor.OnOffline(func() {
		s.mu.Lock()
		notice := s.onOfflineNotice
		s.mu.Unlock()
		if notice != nil {
			notice()
		}
	})
	s.monitor.OnRecover(func(ctx context.Context) {
		// exactamente un re-empuje forzado por recuperación; si ya hay un
		// empuje en vuelo, el motor lo suprime
		if s.flow.AutoSync() {
			s.engine.ForcePush(ctx)
		}
		s.Revalidate(ctx)
	})

	return s
}

// Start arranca la sonda de conectividad.
func (s *Session) Start() {
	s.monitor.Start()
}

// Stop detiene sonda y motor; la sesión no debe usarse después.
func (s *Session) Stop() {
	s.monitor.Stop()
	s.engine.Stop()
}

// OnOfflineNotice registra el aviso que la UI muestra al perder conexión.
func (s *Session) OnOfflineNotice(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOfflineNotice = fn
}

// Flow flujo de la sesión.
func (s *Session) Flow() entity.FlowKind { return s.flow }

// ── carga ────────────────────────────────────────────────────────────────────

// Focus refresca el snapshot de configuración de pantalla (slots y modo POS),
// reevalúa las validaciones y recarga los productos. Equivale a que la
// pantalla tome foco.
func (s *Session) Focus(ctx context.Context) error {
	slotCount := 1
	if raw, ok, err := s.store.Get(ctx, storage.KeyCountTimes); err == nil && ok {
		if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil && n >= 1 {
			slotCount = n
		}
	}
	// solo los conteos de apertura y cierre cuentan en varios slots
	if !s.flow.MultiSlot() {
		slotCount = 1
	}
	posMode := false
	if raw, ok, err := s.store.Get(ctx, storage.KeyPosMode); err == nil && ok {
		_ = json.Unmarshal([]byte(raw), &posMode)
	}

	s.mu.Lock()
	s.slotCount = slotCount
	s.posMode = posMode
	// un cambio de slots reconforma lo ya cargado sin perder totales
	s.products = counting.Reshape(s.products, slotCount)
	s.mu.Unlock()

	if err := s.load(ctx); err != nil {
		return err
	}
	s.Revalidate(ctx)
	return nil
}

// ForceReload recarga los productos del servidor conservando la
// configuración de pantalla ya leída.
func (s *Session) ForceReload(ctx context.Context) error {
	if err := s.load(ctx); err != nil {
		return err
	}
	s.Revalidate(ctx)
	return nil
}

// load trae los productos del flujo y los fusiona con los ledgers locales.
func (s *Session) load(ctx context.Context) error {
	areaID, ok, err := s.store.Get(ctx, storage.KeyArea)
	if err != nil || !ok || areaID == "" {
		return domain.ErrNoSelection
	}
	userID, ok, err := s.store.Get(ctx, storage.KeyUser)
	if err != nil || !ok || userID == "" {
		return domain.ErrNoSelection
	}
	areaName, _, _ := s.store.Get(ctx, storage.KeyAreaName)

	s.mu.Lock()
	toAreaID := s.toAreaID
	slotCount := s.slotCount
	flow := s.flow
	s.mu.Unlock()
	if slotCount < 1 {
		slotCount = 1
	}

	saved, err := s.api.ProductsSaved(ctx, flow, areaID, toAreaID)
	if err != nil {
		return fmt.Errorf("cargar productos: %w", err)
	}

	casaMap, err := s.ledgers.Quantities(ctx, entity.LedgerCasa)
	if err != nil {
		casaMap = map[string]decimal.Decimal{}
	}
	deudaMap, err := s.ledgers.Quantities(ctx, entity.LedgerDeuda)
	if err != nil {
		deudaMap = map[string]decimal.Decimal{}
	}

	// prefill: las pantallas casa/deuda reabren su propio ledger en el slot 0
	if flow == entity.FlowCasa || flow == entity.FlowDeuda {
		source := casaMap
		if flow == entity.FlowDeuda {
			source = deudaMap
		}
		for i, p := range saved {
			q := "0"
			if n, ok := source[p.ID]; ok {
				q = n.String()
			}
			counts := make([]string, slotCount)
			counts[0] = q
			saved[i].Counts = counts
			saved[i].Quantity = q
		}
	}

	shaped := counting.Reshape(saved, slotCount)

	s.mu.Lock()
	s.areaID = areaID
	s.userID = userID
	s.areaName = areaName
	s.products = shaped
	s.casaMap = casaMap
	s.deudaMap = deudaMap
	s.mu.Unlock()

	s.log.Debug().Str("flujo", string(flow)).Int("productos", len(shaped)).Msg("productos cargados")
	return nil
}

// ── mutaciones ───────────────────────────────────────────────────────────────

// SetSlot escribe el texto crudo en un slot del producto. El rechazo por
// gramática o techo no muta nada ni encola sincronización.
func (s *Session) SetSlot(ctx context.Context, id string, idx int, raw string) error {
	return s.mutate(ctx, id, func(p entity.ProductEntry, max *decimal.Decimal) (entity.ProductEntry, error) {
		return counting.SetSlot(p, idx, raw, max)
	})
}

// SetSingle escribe la cantidad directa del producto (flujos sin multi-slot).
func (s *Session) SetSingle(ctx context.Context, id string, raw string) error {
	return s.mutate(ctx, id, func(p entity.ProductEntry, max *decimal.Decimal) (entity.ProductEntry, error) {
		return counting.SetSingle(p, raw, max)
	})
}

func (s *Session) mutate(ctx context.Context, id string, apply func(entity.ProductEntry, *decimal.Decimal) (entity.ProductEntry, error)) error {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.ErrEntryNotFound
	}
	updated, err := apply(s.products[i], s.ceilingLocked(s.products[i]))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.products[i] = updated
	autoSync := s.flow.AutoSync()
	s.mu.Unlock()

	// toda mutación aceptada invalida los registros derivados: el desglose y
	// los ledgers dejaron de corresponder a las cantidades actuales
	if err := s.store.Delete(ctx, storage.KeyDesgloseData, storage.KeyCasaData, storage.KeyDeudaData); err != nil {
		s.log.Warn().Err(err).Msg("no se pudieron invalidar los registros locales")
	}

	if autoSync {
		s.engine.Notify()
	}
	s.Revalidate(ctx)
	return nil
}

// ceilingLocked devuelve el techo de entrada del producto para los flujos con
// tope: Sold menos lo ya reclamado por el ledger hermano. Requiere s.mu.
func (s *Session) ceilingLocked(p entity.ProductEntry) *decimal.Decimal {
	if !s.flow.Capped() {
		return nil
	}
	max := p.Sold
	switch s.flow {
	case entity.FlowCasa:
		max = max.Sub(s.deudaMap[p.ID])
	case entity.FlowDeuda:
		max = max.Sub(s.casaMap[p.ID])
	}
	return &max
}

func (s *Session) indexLocked(id string) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

// SaveLedger persiste el ledger del flujo actual (Guardar Casa / Guardar
// Deuda) a partir de las cantidades tecleadas y reevalúa.
func (s *Session) SaveLedger(ctx context.Context, kind entity.LedgerKind) error {
	s.mu.Lock()
	products := s.copyProductsLocked()
	s.mu.Unlock()

	if err := s.ledgers.Save(ctx, kind, products); err != nil {
		return err
	}

	casaMap, _ := s.ledgers.Quantities(ctx, entity.LedgerCasa)
	deudaMap, _ := s.ledgers.Quantities(ctx, entity.LedgerDeuda)
	s.mu.Lock()
	s.casaMap = casaMap
	s.deudaMap = deudaMap
	s.mu.Unlock()

	s.Revalidate(ctx)
	return nil
}

// SelectTransferTarget fija el área y responsable destino del traslado.
func (s *Session) SelectTransferTarget(toAreaID, toUserID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.toAreaID = toAreaID
	s.toUserID = toUserID
}

// ── sincronización ───────────────────────────────────────────────────────────

// push entrega el snapshot al colaborador remoto (Pusher del motor).
func (s *Session) push(ctx context.Context, products []entity.ProductEntry) error {
	s.mu.Lock()
	areaID, userID, flow := s.areaID, s.userID, s.flow
	s.mu.Unlock()
	if areaID == "" || userID == "" {
		return domain.ErrNoSelection
	}
	if err := s.api.Sync(ctx, flow, products, userID, areaID); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSyncFailed, err)
	}
	return nil
}

// snapshot copia el estado local actual para el motor.
func (s *Session) snapshot() []entity.ProductEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyProductsLocked()
}

func (s *Session) copyProductsLocked() []entity.ProductEntry {
	out := make([]entity.ProductEntry, len(s.products))
	copy(out, s.products)
	for i := range out {
		counts := make([]string, len(out[i].Counts))
		copy(counts, out[i].Counts)
		out[i].Counts = counts
	}
	return out
}

// ── reconciliación ───────────────────────────────────────────────────────────

// Revalidate reevalúa el veredicto contra los registros locales actuales. Es
// reactiva: la sesión la invoca tras cada mutación, cada empuje y cada
// recuperación de conectividad. Nunca deja pasar un pánico del cálculo: un
// veredicto roto se reporta como todo-inválido y la UI conserva la salida de
// la advertencia.
func (s *Session) Revalidate(ctx context.Context) {
	verdict := s.safeEvaluate(ctx)
	s.mu.Lock()
	s.verdict = verdict
	s.mu.Unlock()
}

func (s *Session) safeEvaluate(ctx context.Context) (verdict reconcile.Verdict) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("la evaluación del cierre reventó; se reporta inválido")
			verdict = reconcile.Verdict{}
		}
	}()

	var breakdown *entity.CashBreakdown
	if raw, ok, err := s.store.Get(ctx, storage.KeyDesgloseData); err == nil && ok {
		var b entity.CashBreakdown
		if err := json.Unmarshal([]byte(raw), &b); err == nil {
			breakdown = &b
		} else {
			s.log.Warn().Err(err).Msg("desglose ilegible, se trata como ausente")
		}
	}
	casa, _ := s.ledgers.Load(ctx, entity.LedgerCasa)
	deuda, _ := s.ledgers.Load(ctx, entity.LedgerDeuda)

	s.mu.Lock()
	products := s.copyProductsLocked()
	s.mu.Unlock()

	return reconcile.Evaluate(reconcile.Inputs{
		Products:  products,
		Breakdown: breakdown,
		Casa:      casa,
		Deuda:     deuda,
		Now:       s.now(),
	})
}

// ── cierre ───────────────────────────────────────────────────────────────────

// RequestClose solicita la acción terminal del flujo. Siempre devuelve una
// confirmación pendiente: la estándar si todo valida, o la advertencia que
// nombra exactamente los términos que fallaron.
func (s *Session) RequestClose(ctx context.Context) closeout.Confirmation {
	action := closeout.ActionFor(s.flow)
	if action == closeout.ActionGuardarFinal {
		s.Revalidate(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	conf := closeout.BuildConfirmation(action, s.verdict)
	s.pending = &conf
	return conf
}

// ConfirmClose ejecuta la acción pendiente de confirmación.
func (s *Session) ConfirmClose(ctx context.Context) error {
	s.mu.Lock()
	if s.pending == nil {
		s.mu.Unlock()
		return domain.ErrCloseNotPending
	}
	action := s.pending.Action
	s.pending = nil
	products := s.copyProductsLocked()
	areaID, userID := s.areaID, s.userID
	toAreaID, toUserID := s.toAreaID, s.toUserID
	flow := s.flow
	s.mu.Unlock()

	if err := s.closer.Execute(ctx, action, flow, products, areaID, userID, toAreaID, toUserID); err != nil {
		return err
	}

	if action == closeout.ActionGuardarInicial || action == closeout.ActionEnviarPedido {
		s.mu.Lock()
		for i := range s.products {
			s.products[i].Reported = true
		}
		s.mu.Unlock()
	}
	return nil
}

// CancelClose descarta la confirmación pendiente.
func (s *Session) CancelClose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// ── accesores ────────────────────────────────────────────────────────────────

// Products copia de la lista actual.
func (s *Session) Products() []entity.ProductEntry {
	return s.snapshot()
}

// Search filtra por nombre sin distinguir tildes ni mayúsculas.
func (s *Session) Search(query string) []entity.ProductEntry {
	q := Normalize(query)
	all := s.snapshot()
	if q == "" {
		return all
	}
	var out []entity.ProductEntry
	for _, p := range all {
		if strings.Contains(Normalize(p.Name), q) {
			out = append(out, p)
		}
	}
	return out
}

// SyncState estado del motor de sincronización.
func (s *Session) SyncState() entity.SyncState {
	return s.engine.State()
}

// Connectivity estado de la sonda.
func (s *Session) Connectivity() entity.ConnectivityState {
	return s.monitor.State()
}

// Verdict veredicto vigente de la reconciliación.
func (s *Session) Verdict() reconcile.Verdict {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verdict
}

// Pending confirmación pendiente, o nil.
func (s *Session) Pending() *closeout.Confirmation {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return nil
	}
	c := *s.pending
	return &c
}

// Info datos de cabecera de la pantalla.
func (s *Session) Info() (areaID, areaName, userID string, slotCount int, posMode bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.areaID, s.areaName, s.userID, s.slotCount, s.posMode
}
