package logger

import "go.uber.org/zap"

// Symbol-aware logging helpers.
// These functions log with the symbol as a structured field, not in the message,
// so logs stay queryable by origin without string matching on the message text.
//
// Usage:
//
//	// Instead of:
//	logger.Infow(logger.SymbolRemote + " applied batch", "diagram_id", id)
//
//	// Use:
//	logger.RemoteInfow("applied batch", "diagram_id", id)
const (
	SymbolLocal   = "local"   // change originated in this process and is being broadcast out
	SymbolRemote  = "remote"  // change arrived from a peer and is being applied inward
	SymbolBatch   = "batch"   // batch-scoped mutation activity
	SymbolSession = "session" // session/participant roster activity
)

// LocalInfow logs an info message tagged with the local-origin symbol.
func LocalInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, append([]interface{}{FieldSymbol, SymbolLocal}, keysAndValues...)...)
	}
}

// LocalDebugw logs a debug message tagged with the local-origin symbol.
func LocalDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, append([]interface{}{FieldSymbol, SymbolLocal}, keysAndValues...)...)
	}
}

// RemoteInfow logs an info message tagged with the remote-origin symbol.
func RemoteInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, append([]interface{}{FieldSymbol, SymbolRemote}, keysAndValues...)...)
	}
}

// RemoteDebugw logs a debug message tagged with the remote-origin symbol.
func RemoteDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, append([]interface{}{FieldSymbol, SymbolRemote}, keysAndValues...)...)
	}
}

// RemoteWarnw logs a warning tagged with the remote-origin symbol.
func RemoteWarnw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Warnw(msg, append([]interface{}{FieldSymbol, SymbolRemote}, keysAndValues...)...)
	}
}

// BatchDebugw logs a debug message tagged with the batch symbol.
func BatchDebugw(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Debugw(msg, append([]interface{}{FieldSymbol, SymbolBatch}, keysAndValues...)...)
	}
}

// SessionInfow logs an info message tagged with the session symbol.
func SessionInfow(msg string, keysAndValues ...interface{}) {
	if Logger != nil {
		Logger.Infow(msg, append([]interface{}{FieldSymbol, SymbolSession}, keysAndValues...)...)
	}
}

// WithSymbol returns a logger with the given symbol as a field, for ad-hoc use
// not covered by the helpers above.
func WithSymbol(symbol string) *zap.SugaredLogger {
	return Logger.With(FieldSymbol, symbol)
}
