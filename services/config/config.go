package config

import (
	"context"

	"bmp384-go/bus"
	"bmp384-go/errcode"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

type ctxKey string

// CtxDeviceKey is the context key carrying the board name.
const CtxDeviceKey ctxKey = "device"

// TopicBaro carries the retained Settings for the barometer service.
var TopicBaro = bus.Topic{configPrefix, "baro"}

// EmbeddedConfigLookup resolves a board name to its built-in settings JSON.
var EmbeddedConfigLookup = func(board string) ([]byte, bool) {
	b, ok := embeddedConfigs[board]
	return b, ok
}

// ConfigService publishes a board's Settings as a retained message.
type ConfigService struct {
	Name string

	// Path, when set, is read instead of the embedded board config.
	Path string
}

func NewConfigService() *ConfigService {
	return &ConfigService{Name: serviceName}
}

func (s *ConfigService) settings(ctx context.Context) (Settings, error) {
	if s.Path != "" {
		return Load(s.Path)
	}
	board, _ := ctx.Value(CtxDeviceKey).(string)
	if board == "" {
		return Settings{}, &errcode.E{C: errcode.InvalidParams, Op: serviceName, Msg: "missing board name in context"}
	}
	raw, ok := EmbeddedConfigLookup(board)
	if !ok || len(raw) == 0 {
		return Settings{}, &errcode.E{C: errcode.Unsupported, Op: serviceName, Msg: "no embedded config for board " + board}
	}
	return Parse(raw)
}

func (s *ConfigService) publishConfig(ctx context.Context, conn *bus.Connection) error {
	st, err := s.settings(ctx)
	if err != nil {
		return err
	}
	conn.Publish(conn.NewMessage(TopicBaro, st, true))
	return nil
}

// Start publishes the settings and returns the first error, if any.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) error {
	return s.publishConfig(ctx, conn)
}
