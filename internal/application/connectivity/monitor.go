// Package connectivity implementa la sonda periódica de conectividad contra
// el endpoint de vida del colaborador remoto. Conduce las transiciones
// online/offline/retrying y dispara la recuperación al volver la conexión.
package connectivity

import (
	"context"
	"sync"
	"time"

	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/pkg/config"
	"github.com/gestoapp/turno-core/pkg/logger"
)

// Prober es la sonda de vida; un error o una respuesta no-2xx cuenta como
// fallo del ciclo.
type Prober interface {
	Health(ctx context.Context) error
}

// ProberFunc adapta una función a Prober.
type ProberFunc func(ctx context.Context) error

func (f ProberFunc) Health(ctx context.Context) error { return f(ctx) }

// Monitor sondea en intervalo fijo. Cada ciclo es independiente; una
// respuesta rezagada que llega tras Stop o tras resolverse un ciclo más
// nuevo se descarta.
type Monitor struct {
	mu     sync.Mutex
	prober Prober
	log    *logger.Logger

	interval time.Duration
	timeout  time.Duration

	state   entity.ConnectivityState
	offline bool
	cycle   uint64
	stopped bool
	stopCh  chan struct{}

	// onOffline se dispara una sola vez por transición online→offline;
	// fallos repetidos ya en offline no re-notifican.
	onOffline func()
	// onRecover se dispara exactamente una vez por transición
	// offline→online: re-empuje forzado + reevaluación del validador.
	onRecover func(ctx context.Context)
}

// New construye el monitor en estado online (el optimismo inicial del
// cliente: el primer ciclo lo corrige si hace falta).
func New(cfg config.ProbeConfig, prober Prober, log *logger.Logger) *Monitor {
	return &Monitor{
		prober:   prober,
		log:      log,
		interval: cfg.Interval,
		timeout:  cfg.Timeout,
		state:    entity.ConnOnline,
		stopCh:   make(chan struct{}),
	}
}

// OnOffline registra el aviso único de pérdida de conexión.
func (m *Monitor) OnOffline(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onOffline = fn
}

// OnRecover registra la rutina de recuperación.
func (m *Monitor) OnRecover(fn func(ctx context.Context)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onRecover = fn
}

// State estado observable actual.
func (m *Monitor) State() entity.ConnectivityState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Start arranca el bucle de sondeo.
func (m *Monitor) Start() {
	go m.loop()
}

// Stop detiene el bucle; los ciclos en vuelo se descartan al resolver.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.stopped = true
	close(m.stopCh)
	m.mu.Unlock()
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.probeOnce()
		}
	}
}

func (m *Monitor) probeOnce() {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return
	}
	m.cycle++
	id := m.cycle
	if m.offline {
		// cada ciclo en offline empieza reintentando
		m.state = entity.ConnRetrying
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	err := m.prober.Health(ctx)
	cancel()

	m.mu.Lock()
	if m.stopped || id != m.cycle {
		// resultado rezagado de un ciclo viejo
		m.mu.Unlock()
		return
	}

	if err == nil {
		recovered := m.offline
		m.offline = false
		m.state = entity.ConnOnline
		recover := m.onRecover
		m.mu.Unlock()
		if recovered {
			m.log.Info().Msg("conexión con el servidor restablecida")
			if recover != nil {
				recover(context.Background())
			}
		}
		return
	}

	firstLoss := !m.offline
	m.offline = true
	m.state = entity.ConnOffline
	notify := m.onOffline
	m.mu.Unlock()

	if firstLoss {
		m.log.Warn().Err(err).Msg("conexión con el servidor perdida")
		if notify != nil {
			notify()
		}
	}
}
