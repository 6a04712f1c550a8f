// Package logger wraps zerolog with the component-scoped constructors the
// rest of the plugin runtime uses instead of the bare standard library log
// package.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Global logger instance
var (
	Log zerolog.Logger
)

// Initialize sets up the global logger with configuration
func Initialize(level string, pretty bool) {
	// Parse log level
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(logLevel)

	// Configure output format
	if pretty {
		// Pretty console output for development
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	} else {
		// JSON output for production
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	}

	// Set global logger
	Log = log.With().
		Str("service", "modulo-plugin-runtime").
		Logger()

	Log.Info().
		Str("level", logLevel.String()).
		Bool("pretty", pretty).
		Msg("Logger initialized")
}

// GetLogger returns the global logger instance
func GetLogger() *zerolog.Logger {
	return &Log
}

func component(name string) *zerolog.Logger {
	l := Log.With().Str("component", name).Logger()
	return &l
}

// Runtime creates a logger for the plugin manager's lifecycle state machine.
func Runtime() *zerolog.Logger { return component("runtime") }

// Security creates a logger for the security manager (grants, revocations,
// token mint/verify events).
func Security() *zerolog.Logger { return component("security") }

// EventBus creates a logger for the publish/subscribe event bus.
func EventBus() *zerolog.Logger { return component("event-bus") }

// Local creates a logger for the local bundle loader.
func Local() *zerolog.Logger { return component("local-loader") }

// Remote creates a logger for the remote content-addressed loader.
func Remote() *zerolog.Logger { return component("remote-loader") }

// Validator creates a logger for the submission validator.
func Validator() *zerolog.Logger { return component("validator") }

// Repository creates a logger for the repository client.
func Repository() *zerolog.Logger { return component("repository") }

// RPC creates a logger for the gRPC surface.
func RPC() *zerolog.Logger { return component("rpc") }

// Store creates a logger for the registry store collaborator.
func Store() *zerolog.Logger { return component("registry-store") }
