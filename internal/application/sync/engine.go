// Package sync implementa el motor de sincronización: agrupa las mutaciones
// locales en un solo empuje debounced al colaborador remoto y reporta un
// estado grueso a la UI. El estado local es la fuente de verdad: un empuje
// fallido nunca lo revierte; el siguiente empuje exitoso lleva el snapshot
// corregido.
package sync

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gestoapp/turno-core/internal/domain"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/pkg/config"
	"github.com/gestoapp/turno-core/pkg/logger"
)

// Pusher entrega un snapshot al colaborador remoto.
type Pusher interface {
	Push(ctx context.Context, products []entity.ProductEntry) error
}

// PusherFunc adapta una función a Pusher.
type PusherFunc func(ctx context.Context, products []entity.ProductEntry) error

func (f PusherFunc) Push(ctx context.Context, products []entity.ProductEntry) error {
	return f(ctx, products)
}

// Snapshot devuelve una copia del estado local actual. Se invoca justo al
// disparar el empuje, de modo que cada empuje lleva lo último tecleado.
type Snapshot func() []entity.ProductEntry

// Engine máquina de estados del empuje debounced:
//
//	idle → pending (timer armado) → loading (en vuelo) → success|error → idle
//
// A lo sumo un empuje en vuelo; una mutación que llega en pleno vuelo encola
// un nuevo ciclo de debounce en vez de cancelar la petición actual.
type Engine struct {
	mu       sync.Mutex
	pusher   Pusher
	snapshot Snapshot
	log      *logger.Logger

	debounce time.Duration
	display  time.Duration

	state    entity.SyncState
	timer    *time.Timer
	revert   *time.Timer
	inflight bool
	queued   bool
	stopped  bool

	// onResult notifica a la sesión tras cada empuje para reevaluar la
	// reconciliación. Puede ser nil.
	onResult func(err error)
}

// New construye el motor en estado idle.
func New(cfg config.SyncConfig, pusher Pusher, snapshot Snapshot, log *logger.Logger) *Engine {
	return &Engine{
		pusher:   pusher,
		snapshot: snapshot,
		log:      log,
		debounce: cfg.Debounce,
		display:  cfg.StatusDisplay,
		state:    entity.SyncIdle,
	}
}

// OnResult registra el callback de fin de empuje.
func (e *Engine) OnResult(fn func(err error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onResult = fn
}

// State estado observable actual.
func (e *Engine) State() entity.SyncState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Notify registra una mutación local. Reinicia la ventana de debounce
// (trailing edge); si hay un empuje en vuelo, deja encolado un ciclo más.
func (e *Engine) Notify() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped {
		return
	}
	if e.inflight {
		e.queued = true
		return
	}
	e.armLocked()
}

// ForcePush empuja el snapshot actual saltándose el debounce. Un empuje ya
// en vuelo suprime el forzado (el vuelo actual ya llevará el snapshot al
// completarse el ciclo encolado).
func (e *Engine) ForcePush(ctx context.Context) {
	e.mu.Lock()
	if e.stopped || e.inflight {
		e.mu.Unlock()
		return
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.beginFlightLocked()
	e.mu.Unlock()

	// snapshot fuera del lock: toma el lock de la sesión
	e.push(ctx, e.snapshot())
}

// Stop cancela timers y bloquea empujes futuros.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	if e.revert != nil {
		e.revert.Stop()
		e.revert = nil
	}
}

// armLocked arma (o rearma) el timer de debounce. Requiere e.mu.
func (e *Engine) armLocked() {
	e.setStateLocked(entity.SyncPending)
	if e.timer != nil {
		e.timer.Stop()
	}
	e.timer = time.AfterFunc(e.debounce, e.fire)
}

func (e *Engine) fire() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if e.inflight {
		// el timer disparó con un vuelo activo; que termine y reencole
		e.queued = true
		e.mu.Unlock()
		return
	}
	e.beginFlightLocked()
	e.mu.Unlock()

	e.push(context.Background(), e.snapshot())
}

// beginFlightLocked marca el vuelo. Requiere e.mu.
func (e *Engine) beginFlightLocked() {
	e.inflight = true
	e.timer = nil
	e.setStateLocked(entity.SyncLoading)
}

func (e *Engine) push(ctx context.Context, snap []entity.ProductEntry) {
	// el mismo id viaja en la cabecera de idempotencia del empuje
	pushID := uuid.NewString()
	err := e.pusher.Push(domain.WithSubmissionID(ctx, pushID), snap)

	e.mu.Lock()
	e.inflight = false
	if e.stopped {
		e.mu.Unlock()
		return
	}
	if err != nil {
		e.log.Warn().Err(err).Str("push_id", pushID).Msg("empuje al servidor falló")
		e.setStateLocked(entity.SyncError)
	} else {
		e.log.Debug().Str("push_id", pushID).Int("productos", len(snap)).Msg("empuje completado")
		e.setStateLocked(entity.SyncSuccess)
	}
	e.scheduleRevertLocked()
	requeued := e.queued
	e.queued = false
	if requeued {
		e.armLocked()
	}
	cb := e.onResult
	e.mu.Unlock()

	if cb != nil {
		cb(err)
	}
}

// setStateLocked cambia el estado y cancela el auto-revert pendiente.
// Requiere e.mu.
func (e *Engine) setStateLocked(s entity.SyncState) {
	e.state = s
	if e.revert != nil {
		e.revert.Stop()
		e.revert = nil
	}
}

// scheduleRevertLocked programa la vuelta a idle tras la ventana de
// exhibición de success/error. Requiere e.mu.
func (e *Engine) scheduleRevertLocked() {
	shown := e.state
	e.revert = time.AfterFunc(e.display, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.state == shown {
			e.state = entity.SyncIdle
		}
	})
}
