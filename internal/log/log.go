package log

import "context"

// Kv is a helper type for structured logging key-value pairs.
type Kv = map[string]any

// Logger is the interface that the loggers used by the application must implement.
type Logger interface {
	Infof(format string, args ...any)
	Warningf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
	WithValues(values Kv) Logger
	WithCtxValues(ctx context.Context) Logger
	SetValuesOnCtx(parent context.Context, values Kv) context.Context
}

type contextKey string

// contextLogValuesKey used as unique key to store log values in the context.
const contextLogValuesKey = contextKey("internal-log-values")

// CtxWithValues returns a copy of parent in which the key values passed have been
// stored ready to be used using log.Logger.
func CtxWithValues(parent context.Context, kv Kv) context.Context {
	// Merge the new values with the existing ones.
	current := ValuesFromCtx(parent)
	merged := make(Kv, len(current)+len(kv))
	for k, v := range current {
		merged[k] = v
	}
	for k, v := range kv {
		merged[k] = v
	}

	return context.WithValue(parent, contextLogValuesKey, merged)
}

// ValuesFromCtx gets the log Key values from a context.
func ValuesFromCtx(ctx context.Context) Kv {
	values, ok := ctx.Value(contextLogValuesKey).(Kv)
	if !ok {
		return Kv{}
	}

	return values
}

// Noop logger doesn't log anything.
const Noop = noop(0)

type noop int

func (n noop) Infof(format string, args ...any) {}
func (n noop) Warningf(format string, args ...any) {}
func (n noop) Errorf(format string, args ...any) {}
func (n noop) Debugf(format string, args ...any) {}
func (n noop) WithValues(Kv) Logger { return n }
func (n noop) WithCtxValues(context.Context) Logger { return n }
func (n noop) SetValuesOnCtx(parent context.Context, values Kv) context.Context {
	return CtxWithValues(parent, values)
}
