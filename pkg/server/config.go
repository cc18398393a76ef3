package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Config holds configuration for the server.
type Config struct {
	// Address is the address to listen on (e.g., ":8080" or "localhost:3000").
	// Default: ":8080".
	Address string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: allows all origins.
	CheckOrigin func(r *http.Request) bool

	// ReadTimeout is the maximum time to wait for a message or pong from a
	// viewer.
	// Default: 60 seconds.
	ReadTimeout time.Duration

	// WriteTimeout is the maximum time to wait when sending a frame.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the time between pings.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// MaxMessageSize is the maximum size of an incoming WebSocket message.
	// Default: 64KB.
	MaxMessageSize int64

	// SendQueue is the number of outgoing frames buffered per viewer. A
	// viewer whose queue is full is disconnected.
	// Default: 256.
	SendQueue int

	// ReadHeaderTimeout bounds reading request headers.
	// Default: 5 seconds.
	ReadHeaderTimeout time.Duration

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration

	// Logger is the structured logger.
	// Default: slog.Default().
	Logger *slog.Logger

	// Registry receives the server's collectors.
	// Default: prometheus.DefaultRegisterer.
	Registry prometheus.Registerer

	// Gatherer is served at /metrics.
	// Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Address:           ":8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       func(*http.Request) bool { return true },
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		MaxMessageSize:    64 * 1024,
		SendQueue:         256,
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   30 * time.Second,
		Logger:            slog.Default(),
		Registry:          prometheus.DefaultRegisterer,
		Gatherer:          prometheus.DefaultGatherer,
	}
}

// withDefaults returns a copy of c with every unset field defaulted.
func (c *Config) withDefaults() *Config {
	defaults := DefaultConfig()
	if c == nil {
		return defaults
	}
	config := *c
	if config.Address == "" {
		config.Address = defaults.Address
	}
	if config.ReadBufferSize == 0 {
		config.ReadBufferSize = defaults.ReadBufferSize
	}
	if config.WriteBufferSize == 0 {
		config.WriteBufferSize = defaults.WriteBufferSize
	}
	if config.CheckOrigin == nil {
		config.CheckOrigin = defaults.CheckOrigin
	}
	if config.ReadTimeout == 0 {
		config.ReadTimeout = defaults.ReadTimeout
	}
	if config.WriteTimeout == 0 {
		config.WriteTimeout = defaults.WriteTimeout
	}
	if config.HeartbeatInterval == 0 {
		config.HeartbeatInterval = defaults.HeartbeatInterval
	}
	if config.MaxMessageSize == 0 {
		config.MaxMessageSize = defaults.MaxMessageSize
	}
	if config.SendQueue == 0 {
		config.SendQueue = defaults.SendQueue
	}
	if config.ReadHeaderTimeout == 0 {
		config.ReadHeaderTimeout = defaults.ReadHeaderTimeout
	}
	if config.ShutdownTimeout == 0 {
		config.ShutdownTimeout = defaults.ShutdownTimeout
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Registry == nil {
		config.Registry = defaults.Registry
	}
	if config.Gatherer == nil {
		config.Gatherer = defaults.Gatherer
	}
	return &config
}
