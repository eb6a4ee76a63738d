package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env
// y opcionalmente archivo). Es un snapshot inmutable: los componentes lo
// reciben en construcción en vez de leer el almacenamiento por su cuenta.
type Config struct {
	App    AppConfig
	Server ServerConfig
	Sync   SyncConfig
	Probe  ProbeConfig
	Redis  RedisConfig
	HTTP   HTTPConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env  string // development, staging, production
	Name string
}

// ServerConfig datos del colaborador remoto (API del almacén).
type ServerConfig struct {
	BaseURL string        // ej. http://192.168.10.145/api
	Timeout time.Duration // timeout de cada petición
}

// SyncConfig ventanas del motor de sincronización.
type SyncConfig struct {
	Debounce      time.Duration // espera tras la última mutación antes de empujar
	StatusDisplay time.Duration // cuánto se muestra success/error antes de volver a idle
}

// ProbeConfig sonda de conectividad contra /health.
type ProbeConfig struct {
	Interval time.Duration
	Timeout  time.Duration
}

// RedisConfig almacén clave-valor local. Si Addr está vacío se usa el
// almacén en memoria.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// HTTPConfig superficie HTTP que consume la capa de UI externa.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde
// archivo .env). Las env vars tienen prioridad.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:  getString(v, "APP_ENV", "development"),
			Name: getString(v, "APP_NAME", "turno-core"),
		},
		Server: ServerConfig{
			BaseURL: getString(v, "SERVER_URL", "http://192.168.10.145/api"),
			Timeout: getDuration(v, "SERVER_TIMEOUT_MS", 10_000),
		},
		Sync: SyncConfig{
			Debounce:      getDuration(v, "SYNC_DEBOUNCE_MS", 500),
			StatusDisplay: getDuration(v, "SYNC_STATUS_DISPLAY_MS", 2_000),
		},
		Probe: ProbeConfig{
			Interval: getDuration(v, "PROBE_INTERVAL_MS", 5_000),
			Timeout:  getDuration(v, "PROBE_TIMEOUT_MS", 3_000),
		},
		Redis: RedisConfig{
			Addr:     getString(v, "REDIS_ADDR", ""),
			Password: getString(v, "REDIS_PASSWORD", ""),
			DB:       getInt(v, "REDIS_DB", 0),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8081),
		},
	}

	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, _ := strconv.Atoi(v.GetString(key))
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getDuration(v *viper.Viper, key string, defMillis int) time.Duration {
	return time.Duration(getInt(v, key, defMillis)) * time.Millisecond
}
