// Package closeout ejecuta las acciones terminales de cada flujo (guardar
// inicial, enviar pedido, guardar final, trasladar) y arma el texto de la
// confirmación que la UI presenta antes de ejecutar.
package closeout

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gestoapp/turno-core/internal/domain"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/internal/domain/reconcile"
	"github.com/gestoapp/turno-core/internal/infrastructure/api"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
	"github.com/gestoapp/turno-core/pkg/logger"
)

// Action nombre de la acción terminal de un flujo, tal como lo ve el usuario.
type Action string

const (
	ActionGuardarInicial Action = "Guardar Inicial"
	ActionEnviarPedido   Action = "Enviar Pedido"
	ActionGuardarFinal   Action = "Guardar Final"
	ActionTrasladar      Action = "Trasladar"
)

// ActionFor devuelve la acción terminal del flujo.
func ActionFor(flow entity.FlowKind) Action {
	switch flow {
	case entity.FlowInitial:
		return ActionGuardarInicial
	case entity.FlowRequest:
		return ActionEnviarPedido
	case entity.FlowArea2Area:
		return ActionTrasladar
	default:
		return ActionGuardarFinal
	}
}

// Confirmation es la variante "pendiente de confirmación" que la sesión
// expone a la UI: qué acción, con qué texto, y si es una advertencia con
// los términos que fallaron nombrados.
type Confirmation struct {
	Action  Action   `json:"action"`
	Text    string   `json:"text"`
	Warning bool     `json:"warning"`
	Reasons []string `json:"reasons,omitempty"`
}

// BuildConfirmation arma la confirmación para la acción. Solo el cierre
// final se somete al veredicto; el resto usa la pregunta estándar. Este
// camino nunca falla: si la evaluación del veredicto reventó aguas arriba,
// la sesión igual llega aquí con un veredicto de ceros y el usuario conserva
// la salida de la advertencia.
func BuildConfirmation(action Action, verdict reconcile.Verdict) Confirmation {
	if action == ActionGuardarFinal && !verdict.AllValid() {
		reasons := verdict.FailureReasons()
		return Confirmation{
			Action:  action,
			Text:    fmt.Sprintf("Advertencia: %s. ¿Deseas continuar y ejecutar %q de todos modos?", strings.Join(reasons, " y "), action),
			Warning: true,
			Reasons: reasons,
		}
	}
	return Confirmation{
		Action: action,
		Text:   fmt.Sprintf("¿Desea %s?", action),
	}
}

// Usecase ejecutor de acciones terminales.
type Usecase struct {
	api   *api.Client
	store storage.Store
	log   *logger.Logger
}

// New construye el ejecutor.
func New(apiClient *api.Client, store storage.Store, log *logger.Logger) *Usecase {
	return &Usecase{api: apiClient, store: store, log: log}
}

// Execute ejecuta la acción confirmada. El cierre final limpia la selección
// de local/responsable para forzar una nueva selección en el próximo turno.
func (u *Usecase) Execute(ctx context.Context, action Action, flow entity.FlowKind, products []entity.ProductEntry, areaID, userID, toAreaID, toUserID string) error {
	// el mismo id viaja en la cabecera de idempotencia de la petición
	submissionID := uuid.NewString()
	log := u.log.With().Str("accion", string(action)).Str("submission_id", submissionID).Logger()
	ctx = domain.WithSubmissionID(ctx, submissionID)

	switch action {
	case ActionGuardarInicial:
		if err := u.api.PostInitial(ctx, areaID, userID); err != nil {
			return err
		}
	case ActionEnviarPedido:
		if err := u.api.SendToWarehouse(ctx, areaID); err != nil {
			return err
		}
	case ActionGuardarFinal:
		if err := u.api.PostFinal(ctx, areaID, userID); err != nil {
			return err
		}
		if err := u.store.Delete(ctx, storage.KeyArea, storage.KeyUser); err != nil {
			// el cierre ya quedó en el servidor; la selección colgada solo
			// obliga a reelegir manualmente
			log.Warn().Err(err).Msg("no se pudo limpiar la selección local")
		}
	case ActionTrasladar:
		if err := u.api.PostArea2Area(ctx, api.TransferRequest{
			Productos: products,
			AreaID:    areaID,
			ToAreaID:  toAreaID,
			ToUserID:  toUserID,
		}); err != nil {
			return err
		}
	default:
		return fmt.Errorf("acción desconocida %q", action)
	}

	log.Info().Str("flujo", string(flow)).Msg("acción ejecutada")
	return nil
}
