package connectivity_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gestoapp/turno-core/internal/application/connectivity"
	"github.com/gestoapp/turno-core/internal/domain/entity"
	"github.com/gestoapp/turno-core/pkg/config"
	"github.com/gestoapp/turno-core/pkg/logger"
)

func testCfg() config.ProbeConfig {
	return config.ProbeConfig{
		Interval: 10 * time.Millisecond,
		Timeout:  50 * time.Millisecond,
	}
}

// flakyProber responde según el valor vigente de healthy.
type flakyProber struct {
	healthy atomic.Bool
}

func (p *flakyProber) Health(ctx context.Context) error {
	if p.healthy.Load() {
		return nil
	}
	return errors.New("sin respuesta")
}

func TestMonitor_ArrancaOnline(t *testing.T) {
	p := &flakyProber{}
	p.healthy.Store(true)
	m := connectivity.New(testCfg(), p, logger.Nop())
	assert.Equal(t, entity.ConnOnline, m.State(),
		"antes del primer ciclo el estado es online por optimismo inicial")
}

func TestMonitor_AvisoDeCaidaUnaSolaVez(t *testing.T) {
	p := &flakyProber{}
	m := connectivity.New(testCfg(), p, logger.Nop())

	var notices atomic.Int32
	m.OnOffline(func() { notices.Add(1) })

	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool { return m.State() == entity.ConnOffline },
		time.Second, 5*time.Millisecond)

	// varios ciclos más fallando
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), notices.Load(),
		"los fallos repetidos ya en offline no deben re-notificar")
}

func TestMonitor_UnaRecuperacionPorCaida(t *testing.T) {
	p := &flakyProber{}
	m := connectivity.New(testCfg(), p, logger.Nop())

	var recoveries atomic.Int32
	m.OnRecover(func(ctx context.Context) { recoveries.Add(1) })

	m.Start()
	defer m.Stop()

	require.Eventually(t, func() bool { return m.State() == entity.ConnOffline },
		time.Second, 5*time.Millisecond)

	p.healthy.Store(true)
	require.Eventually(t, func() bool { return m.State() == entity.ConnOnline },
		time.Second, 5*time.Millisecond)

	// muchos ciclos sanos más: la recuperación no se repite
	time.Sleep(80 * time.Millisecond)
	assert.Equal(t, int32(1), recoveries.Load(),
		"la recuperación dispara exactamente una vez por transición offline→online")
}

func TestMonitor_RetryingDuranteSondaEnOffline(t *testing.T) {
	block := make(chan struct{})
	inProbe := make(chan struct{}, 1)
	var failed atomic.Bool

	prober := connectivity.ProberFunc(func(ctx context.Context) error {
		if failed.Load() {
			select {
			case inProbe <- struct{}{}:
			default:
			}
			<-block
		}
		failed.Store(true)
		return errors.New("sin respuesta")
	})

	m := connectivity.New(testCfg(), prober, logger.Nop())
	m.Start()
	defer m.Stop()

	// primer ciclo falla rápido y deja el estado en offline; el segundo queda
	// bloqueado dentro de la sonda, donde el estado visible es retrying
	<-inProbe
	assert.Equal(t, entity.ConnRetrying, m.State(),
		"mientras la sonda está en vuelo desde offline el estado es retrying")
	close(block)
}

func TestMonitor_StopDescartaResultadosRezagados(t *testing.T) {
	release := make(chan struct{})
	prober := connectivity.ProberFunc(func(ctx context.Context) error {
		<-release
		return errors.New("sin respuesta")
	})

	m := connectivity.New(testCfg(), prober, logger.Nop())
	var notices atomic.Int32
	m.OnOffline(func() { notices.Add(1) })

	m.Start()
	time.Sleep(20 * time.Millisecond)
	m.Stop()
	close(release)

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), notices.Load(),
		"una sonda que resuelve después de Stop no debe notificar nada")
	assert.Equal(t, entity.ConnOnline, m.State(),
		"el estado no cambia por resultados rezagados")
}
