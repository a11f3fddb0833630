// Package logger provides structured logging for whisperjob using zerolog.
//
// It supports JSON and console output, level configuration and
// component-scoped loggers carrying structured fields.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("pipeline")
//	log.Info("job finished", logger.Fields("job_id", id, "words", n))
package logger
