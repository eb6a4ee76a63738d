package closeout_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestoapp/turno-core/internal/application/closeout"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/internal/domain/reconcile"
	"github.com/gestoapp/turno-core/internal/infrastructure/api"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
	"github.com/gestoapp/turno-core/pkg/config"
	"github.com/gestoapp/turno-core/pkg/logger"
)

func TestActionFor(t *testing.T) {
	assert.Equal(t, closeout.ActionGuardarInicial, closeout.ActionFor(entity.FlowInitial))
	assert.Equal(t, closeout.ActionEnviarPedido, closeout.ActionFor(entity.FlowRequest))
	assert.Equal(t, closeout.ActionGuardarFinal, closeout.ActionFor(entity.FlowFinal))
	assert.Equal(t, closeout.ActionTrasladar, closeout.ActionFor(entity.FlowArea2Area))
}

// ──────────────────────────────────────────────────────────────────────────────
// Texto de confirmación: estándar o advertencia con los términos fallidos.
// ──────────────────────────────────────────────────────────────────────────────

func TestBuildConfirmation_Estandar(t *testing.T) {
	valido := reconcile.Verdict{DesgloseValido: true, CasaValida: true, DeudaValida: true, ImporteValido: true}
	conf := closeout.BuildConfirmation(closeout.ActionGuardarFinal, valido)
	assert.False(t, conf.Warning)
	assert.Equal(t, "¿Desea Guardar Final?", conf.Text)
	assert.Empty(t, conf.Reasons)
}

func TestBuildConfirmation_AdvertenciaNombraLosTerminos(t *testing.T) {
	v := reconcile.Verdict{CasaValida: true, DeudaValida: true, ImporteValido: true}
	conf := closeout.BuildConfirmation(closeout.ActionGuardarFinal, v)
	assert.True(t, conf.Warning)
	assert.Equal(t,
		`Advertencia: el desglose no es válido. ¿Deseas continuar y ejecutar "Guardar Final" de todos modos?`,
		conf.Text)
	assert.Equal(t, []string{"el desglose no es válido"}, conf.Reasons)
}

func TestBuildConfirmation_VariasRazonesUnidasConY(t *testing.T) {
	v := reconcile.Verdict{ImporteValido: true}
	conf := closeout.BuildConfirmation(closeout.ActionGuardarFinal, v)
	assert.Contains(t, conf.Text,
		"el desglose no es válido y el registro de casa no es de hoy y el registro de deuda no es de hoy")
}

func TestBuildConfirmation_OtrasAccionesIgnoranElVeredicto(t *testing.T) {
	invalido := reconcile.Verdict{}
	conf := closeout.BuildConfirmation(closeout.ActionEnviarPedido, invalido)
	assert.False(t, conf.Warning, "solo el cierre final se somete al veredicto")
	assert.Equal(t, "¿Desea Enviar Pedido?", conf.Text)
}

// ──────────────────────────────────────────────────────────────────────────────
// Ejecución de acciones contra el colaborador remoto.
// ──────────────────────────────────────────────────────────────────────────────

func newUsecase(t *testing.T, handler http.HandlerFunc) (*closeout.Usecase, storage.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client := api.New(config.ServerConfig{BaseURL: srv.URL, Timeout: 2 * time.Second}, logger.Nop())
	store := storage.NewMemoryStore()
	return closeout.New(client, store, logger.Nop()), store
}

func TestExecute_GuardarFinalLimpiaLaSeleccion(t *testing.T) {
	ctx := context.Background()
	var gotPath string
	uc, store := newUsecase(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, store.Set(ctx, storage.KeyArea, "a1"))
	require.NoError(t, store.Set(ctx, storage.KeyUser, "u1"))

	require.NoError(t, uc.Execute(ctx, closeout.ActionGuardarFinal, entity.FlowFinal, nil, "a1", "u1", "", ""))
	assert.Equal(t, "/request/post/final", gotPath)

	_, ok, _ := store.Get(ctx, storage.KeyArea)
	assert.False(t, ok, "el cierre final borra el local seleccionado")
	_, ok, _ = store.Get(ctx, storage.KeyUser)
	assert.False(t, ok, "el cierre final borra el responsable seleccionado")
}

func TestExecute_GuardarInicialNoTocaLaSeleccion(t *testing.T) {
	ctx := context.Background()
	uc, store := newUsecase(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	require.NoError(t, store.Set(ctx, storage.KeyArea, "a1"))

	require.NoError(t, uc.Execute(ctx, closeout.ActionGuardarInicial, entity.FlowInitial, nil, "a1", "u1", "", ""))

	_, ok, _ := store.Get(ctx, storage.KeyArea)
	assert.True(t, ok, "las acciones no finales conservan la selección")
}

func TestExecute_TrasladarEnviaDestino(t *testing.T) {
	ctx := context.Background()
	var got api.TransferRequest
	uc, _ := newUsecase(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	products := []entity.ProductEntry{{ID: "p1", Quantity: "2"}}
	require.NoError(t, uc.Execute(ctx, closeout.ActionTrasladar, entity.FlowArea2Area, products, "a1", "u1", "a2", "u2"))
	assert.Equal(t, "a1", got.AreaID)
	assert.Equal(t, "a2", got.ToAreaID)
	assert.Equal(t, "u2", got.ToUserID)
	require.Len(t, got.Productos, 1)
}

func TestExecute_FalloDelServidorNoLimpiaNada(t *testing.T) {
	ctx := context.Background()
	uc, store := newUsecase(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})
	require.NoError(t, store.Set(ctx, storage.KeyArea, "a1"))

	err := uc.Execute(ctx, closeout.ActionGuardarFinal, entity.FlowFinal, nil, "a1", "u1", "", "")
	require.Error(t, err)

	_, ok, _ := store.Get(ctx, storage.KeyArea)
	assert.True(t, ok, "si el cierre no llegó al servidor la selección se conserva")
}
