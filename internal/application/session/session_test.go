package session_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestoapp/turno-core/internal/application/closeout"
	"github.com/gestoapp/turno-core/internal/application/ledger"
	"github.com/gestoapp/turno-core/internal/application/session"
	"github.com/gestoapp/turno-core/internal/domain"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/internal/infrastructure/api"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
	"github.com/gestoapp/turno-core/pkg/config"
	"github.com/gestoapp/turno-core/pkg/logger"
)

// fakeServer simula al colaborador remoto: sirve productos por flujo y
// cuenta los empujes de sincronización.
type fakeServer struct {
	srv      *httptest.Server
	products []entity.ProductEntry
	syncs    atomic.Int32
	lastSync atomic.Value // api.SyncRequest
	finals   atomic.Int32
}

func newFakeServer(t *testing.T, products []entity.ProductEntry) *fakeServer {
	t.Helper()
	f := &fakeServer{products: products}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/request/products/saved/"):
			json.NewEncoder(w).Encode(f.products)
		case strings.HasPrefix(r.URL.Path, "/request/sync/"):
			var req api.SyncRequest
			json.NewDecoder(r.Body).Decode(&req)
			f.lastSync.Store(req)
			f.syncs.Add(1)
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/request/post/final":
			f.finals.Add(1)
			w.WriteHeader(http.StatusOK)
		case r.URL.Path == "/health":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusOK)
		}
	}))
	t.Cleanup(f.srv.Close)
	return f
}

func testConfig(baseURL string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{BaseURL: baseURL, Timeout: 2 * time.Second},
		Sync:   config.SyncConfig{Debounce: 20 * time.Millisecond, StatusDisplay: 40 * time.Millisecond},
		Probe:  config.ProbeConfig{Interval: 10 * time.Millisecond, Timeout: time.Second},
	}
}

func newSession(t *testing.T, f *fakeServer, flow entity.FlowKind, store storage.Store) *session.Session {
	t.Helper()
	cfg := testConfig(f.srv.URL)
	client := api.New(cfg.Server, logger.Nop())
	s := session.New(cfg, logger.Nop(), store, client, flow)
	t.Cleanup(s.Stop)
	return s
}

func seedSelection(t *testing.T, store storage.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, storage.KeyArea, "a1"))
	require.NoError(t, store.Set(ctx, storage.KeyAreaName, "Terraza"))
	require.NoError(t, store.Set(ctx, storage.KeyUser, "u1"))
	require.NoError(t, store.Set(ctx, storage.KeyCountTimes, "3"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Carga de pantalla.
// ──────────────────────────────────────────────────────────────────────────────

func TestFocus_SinSeleccionFalla(t *testing.T) {
	f := newFakeServer(t, nil)
	s := newSession(t, f, entity.FlowInitial, storage.NewMemoryStore())
	err := s.Focus(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoSelection,
		"sin local o responsable seleccionados la pantalla no carga")
}

func TestFocus_CargaYReconformaSlots(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{
		{ID: "p1", Name: "Cerveza", Quantity: "5"},
		{ID: "p2", Name: "Ron"},
	})
	store := storage.NewMemoryStore()
	seedSelection(t, store)

	s := newSession(t, f, entity.FlowInitial, store)
	require.NoError(t, s.Focus(context.Background()))

	products := s.Products()
	require.Len(t, products, 2)
	require.Len(t, products[0].Counts, 3, "los conteos se conforman al número de slots configurado")
	assert.Equal(t, "5", products[0].Counts[0], "la cantidad previa siembra el slot 0")
	assert.Equal(t, "5", products[0].Quantity)

	areaID, areaName, userID, slotCount, _ := s.Info()
	assert.Equal(t, "a1", areaID)
	assert.Equal(t, "Terraza", areaName)
	assert.Equal(t, "u1", userID)
	assert.Equal(t, 3, slotCount)
}

func TestFocus_SlotCountInvalidoSeAjustaAUno(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1"}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)
	require.NoError(t, store.Set(context.Background(), storage.KeyCountTimes, "0"))

	s := newSession(t, f, entity.FlowInitial, store)
	require.NoError(t, s.Focus(context.Background()))
	require.Len(t, s.Products()[0].Counts, 1)
}

// ──────────────────────────────────────────────────────────────────────────────
// Mutaciones y sincronización automática.
// ──────────────────────────────────────────────────────────────────────────────

func TestSetSlot_RafagaProduceUnEmpuje(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1", Name: "Cerveza"}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)

	s := newSession(t, f, entity.FlowInitial, store)
	ctx := context.Background()
	require.NoError(t, s.Focus(ctx))

	require.NoError(t, s.SetSlot(ctx, "p1", 0, "1"))
	require.NoError(t, s.SetSlot(ctx, "p1", 0, "12"))
	require.NoError(t, s.SetSlot(ctx, "p1", 1, "3"))

	require.Eventually(t, func() bool { return f.syncs.Load() == 1 }, time.Second, 5*time.Millisecond,
		"la ráfaga dentro de la ventana colapsa en un empuje")

	got := f.lastSync.Load().(api.SyncRequest)
	require.Len(t, got.Productos, 1)
	assert.Equal(t, "15", got.Productos[0].Quantity, "el empuje lleva el estado más reciente")
	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, "a1", got.AreaID)
}

func TestSetSlot_RechazoNoEncolaEmpuje(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1"}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)

	s := newSession(t, f, entity.FlowInitial, store)
	ctx := context.Background()
	require.NoError(t, s.Focus(ctx))

	err := s.SetSlot(ctx, "p1", 0, "abc")
	assert.ErrorIs(t, err, domain.ErrInputRejected)
	err = s.SetSlot(ctx, "zzz", 0, "1")
	assert.ErrorIs(t, err, domain.ErrEntryNotFound)

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), f.syncs.Load(), "las mutaciones rechazadas no sincronizan nada")
}

func TestSetSlot_MutacionInvalidaLosRegistrosLocales(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1"}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)
	ctx := context.Background()
	require.NoError(t, store.Set(ctx, storage.KeyDesgloseData, "{}"))
	require.NoError(t, store.Set(ctx, storage.KeyCasaData, "{}"))
	require.NoError(t, store.Set(ctx, storage.KeyDeudaData, "{}"))

	s := newSession(t, f, entity.FlowInitial, store)
	require.NoError(t, s.Focus(ctx))
	require.NoError(t, s.SetSlot(ctx, "p1", 0, "2"))

	for _, k := range []string{storage.KeyDesgloseData, storage.KeyCasaData, storage.KeyDeudaData} {
		_, ok, _ := store.Get(ctx, k)
		assert.False(t, ok, "la mutación debe invalidar %s", k)
	}
}

func TestCasaFlow_NoSincronizaAutomaticamente(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1", Sold: decimal.NewFromInt(10)}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)

	s := newSession(t, f, entity.FlowCasa, store)
	ctx := context.Background()
	require.NoError(t, s.Focus(ctx))
	require.NoError(t, s.SetSlot(ctx, "p1", 0, "2"))

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), f.syncs.Load(),
		"casa solo se envía con acción explícita, nunca por debounce")
}

// ──────────────────────────────────────────────────────────────────────────────
// Techos de casa/deuda: Sold menos lo reclamado por el ledger hermano.
// ──────────────────────────────────────────────────────────────────────────────

func TestCasaFlow_TechoDescuentaElLedgerHermano(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1", Sold: decimal.NewFromInt(10)}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)
	ctx := context.Background()

	// deuda ya reclama 4 de los 10 vendidos
	ledgerUC := ledger.New(store, logger.Nop())
	require.NoError(t, ledgerUC.Save(ctx, entity.LedgerDeuda, []entity.ProductEntry{{ID: "p1", Quantity: "4"}}))

	s := newSession(t, f, entity.FlowCasa, store)
	require.NoError(t, s.Focus(ctx))

	require.NoError(t, s.SetSlot(ctx, "p1", 0, "6"), "6 = 10 - 4 debe aceptarse")
	err := s.SetSlot(ctx, "p1", 0, "7")
	assert.ErrorIs(t, err, domain.ErrOverCeiling, "7 supera lo disponible tras la deuda")
}

// TestCasaFlow_UnSoloSlotAunConMultiConteo verifica que los flujos con techo
// cuentan en un único slot aunque la configuración pida varios: el total no
// puede repartirse entre slots para evadir lo vendido.
func TestCasaFlow_UnSoloSlotAunConMultiConteo(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1", Sold: decimal.NewFromInt(8)}})
	store := storage.NewMemoryStore()
	seedSelection(t, store) // COUNT_TIMES = 3
	ctx := context.Background()

	s := newSession(t, f, entity.FlowCasa, store)
	require.NoError(t, s.Focus(ctx))

	products := s.Products()
	require.Len(t, products, 1)
	assert.Len(t, products[0].Counts, 1, "casa cuenta en un solo slot")

	require.NoError(t, s.SetSlot(ctx, "p1", 0, "5"))
	err := s.SetSlot(ctx, "p1", 1, "5")
	assert.ErrorIs(t, err, domain.ErrInputRejected, "no hay segundo slot donde acumular")

	err = s.SetSlot(ctx, "p1", 0, "9")
	assert.ErrorIs(t, err, domain.ErrOverCeiling)
}

func TestCasaFlow_PrefillDesdeSuPropioLedger(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1", Sold: decimal.NewFromInt(10)}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)
	ctx := context.Background()

	ledgerUC := ledger.New(store, logger.Nop())
	require.NoError(t, ledgerUC.Save(ctx, entity.LedgerCasa, []entity.ProductEntry{{ID: "p1", Quantity: "3"}}))

	s := newSession(t, f, entity.FlowCasa, store)
	require.NoError(t, s.Focus(ctx))

	products := s.Products()
	require.Len(t, products, 1)
	assert.Equal(t, "3", products[0].Counts[0], "reabrir casa recupera su propio ledger en el slot 0")
	assert.Equal(t, "3", products[0].Quantity)
}

// ──────────────────────────────────────────────────────────────────────────────
// Búsqueda sin tildes ni mayúsculas.
// ──────────────────────────────────────────────────────────────────────────────

func TestSearch_IgnoraTildesYMayusculas(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{
		{ID: "p1", Name: "Café con leche"},
		{ID: "p2", Name: "Té verde"},
		{ID: "p3", Name: "Cerveza"},
	})
	store := storage.NewMemoryStore()
	seedSelection(t, store)

	s := newSession(t, f, entity.FlowInitial, store)
	require.NoError(t, s.Focus(context.Background()))

	got := s.Search("cafe")
	require.Len(t, got, 1)
	assert.Equal(t, "p1", got[0].ID, "\"cafe\" debe encontrar \"Café\"")

	got = s.Search("TE")
	require.Len(t, got, 1)
	assert.Equal(t, "p2", got[0].ID)

	assert.Len(t, s.Search(""), 3, "la consulta vacía devuelve todo")
	assert.Empty(t, s.Search("pizza"))
}

// ──────────────────────────────────────────────────────────────────────────────
// Cierre: confirmación, advertencia con salida y ejecución.
// ──────────────────────────────────────────────────────────────────────────────

func TestRequestClose_FinalConTodoInvalidoAdvierte(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1"}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)

	s := newSession(t, f, entity.FlowFinal, store)
	ctx := context.Background()
	require.NoError(t, s.Focus(ctx))

	conf := s.RequestClose(ctx)
	assert.Equal(t, closeout.ActionGuardarFinal, conf.Action)
	assert.True(t, conf.Warning, "sin desglose ni ledgers el cierre solo avisa, nunca bloquea")
	assert.NotEmpty(t, conf.Reasons)
	require.NotNil(t, s.Pending())
}

func TestConfirmClose_EjecutaYLimpia(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1"}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)

	s := newSession(t, f, entity.FlowFinal, store)
	ctx := context.Background()
	require.NoError(t, s.Focus(ctx))

	s.RequestClose(ctx)
	require.NoError(t, s.ConfirmClose(ctx))
	assert.Equal(t, int32(1), f.finals.Load(), "la confirmación ejecuta el cierre en el servidor")
	assert.Nil(t, s.Pending(), "la confirmación consumida desaparece")

	_, ok, _ := store.Get(ctx, storage.KeyArea)
	assert.False(t, ok, "el cierre final limpia la selección de local")
}

func TestConfirmClose_SinPendienteFalla(t *testing.T) {
	f := newFakeServer(t, nil)
	store := storage.NewMemoryStore()
	seedSelection(t, store)

	s := newSession(t, f, entity.FlowFinal, store)
	err := s.ConfirmClose(context.Background())
	assert.ErrorIs(t, err, domain.ErrCloseNotPending)
}

func TestCancelClose_DescartaLaPendiente(t *testing.T) {
	f := newFakeServer(t, []entity.ProductEntry{{ID: "p1"}})
	store := storage.NewMemoryStore()
	seedSelection(t, store)

	s := newSession(t, f, entity.FlowFinal, store)
	ctx := context.Background()
	require.NoError(t, s.Focus(ctx))

	s.RequestClose(ctx)
	s.CancelClose()
	assert.Nil(t, s.Pending())
	assert.ErrorIs(t, s.ConfirmClose(ctx), domain.ErrCloseNotPending)
	assert.Equal(t, int32(0), f.finals.Load(), "cancelar no ejecuta nada")
}

// ──────────────────────────────────────────────────────────────────────────────
// Normalización de búsqueda.
// ──────────────────────────────────────────────────────────────────────────────

func TestNormalize(t *testing.T) {
	assert.Equal(t, "cafe", session.Normalize("  Café "))
	assert.Equal(t, "nino", session.Normalize("NIÑO"))
	assert.Equal(t, "te verde", session.Normalize("Té Verde"))
}
