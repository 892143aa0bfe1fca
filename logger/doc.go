// Package logger provides structured logging for streamkit using zerolog.
//
// Controllers and transport drivers log through component-scoped loggers
// derived from the global logger unless a logger is injected explicitly.
//
// # Configuration
//
//	logger:
//	  level: "debug"
//	  format: "json"
//
// # Usage
//
//	logger.Init(logger.Config{Level: "debug", Format: "json"})
//	log := logger.WithComponent("stream")
//	log.Info("stream started", logger.Fields("stream", "prices", "mode", "sse"))
package logger
