package session

import (
	"sync"

	"github.com/gestoapp/turno-core/internal/domain"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/internal/infrastructure/api"
	"github.com/gestoapp/turno-core/internal/infrastructure/storage"
	"github.com/gestoapp/turno-core/pkg/config"
	"github.com/gestoapp/turno-core/pkg/logger"
)

// Manager mantiene una sesión por flujo, creada de forma perezosa al primer
// acceso. Todas comparten almacenamiento, cliente y configuración.
type Manager struct {
	mu       sync.Mutex
	cfg      *config.Config
	log      *logger.Logger
	store    storage.Store
	api      *api.Client
	sessions map[entity.FlowKind]*Session
}

// NewManager construye el administrador de sesiones.
func NewManager(cfg *config.Config, log *logger.Logger, store storage.Store, apiClient *api.Client) *Manager {
	return &Manager{
		cfg:      cfg,
		log:      log,
		store:    store,
		api:      apiClient,
		sessions: map[entity.FlowKind]*Session{},
	}
}

// For devuelve la sesión del flujo, creándola y arrancándola si no existía.
func (m *Manager) For(flow entity.FlowKind) (*Session, error) {
	if !flow.Valid() {
		return nil, domain.ErrInputRejected
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[flow]; ok {
		return s, nil
	}
	s := New(m.cfg, m.log, m.store, m.api, flow)
	s.Start()
	m.sessions[flow] = s
	return s, nil
}

// StopAll detiene todas las sesiones vivas.
func (m *Manager) StopAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		s.Stop()
	}
	m.sessions = map[entity.FlowKind]*Session{}
}
