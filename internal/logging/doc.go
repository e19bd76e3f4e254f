// Package logging provides a simple leveled logging interface for the
// frame viewer, backed by zap.
//
// It supports the following log levels:
//   - DEBUG: Verbose debugging information
//   - INFO: General operational messages
//   - WARN: Warning conditions
//   - ERROR: Error conditions
//   - FATAL: Fatal errors that terminate the application
//
// The log level is configured via the DEBUG or LOG_LEVEL environment
// variables and can be overridden at runtime with SetLevel.
package logging
