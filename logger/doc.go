// Package logger provides structured logging for pipekit using zerolog.
//
// It supports JSON and console output, level configuration, and
// component-scoped loggers carrying run and node fields.
//
// # Configuration
//
//	logger:
//	  level: "info"
//	  format: "json"
//
// # Usage
//
//	log := logger.Get("runner").WithRun(runID)
//	log.Debug("node completed", logger.Fields(logger.FieldNode, "suffix"))
package logger
