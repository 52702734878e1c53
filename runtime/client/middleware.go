package client

import (
	"log/slog"
	"time"

	"github.com/satishbabariya/sqlchain/query/executor"
)

// ObserverFunc adapts a function to executor.Observer
type ObserverFunc func(executor.Event)

// Observe calls f(ev)
func (f ObserverFunc) Observe(ev executor.Event) { f(ev) }

type observers []executor.Observer

func (o observers) Observe(ev executor.Event) {
	for _, obs := range o {
		obs.Observe(ev)
	}
}

// Observers fans every event out to each observer in order; nil when given none
func Observers(list ...executor.Observer) executor.Observer {
	var out observers
	for _, o := range list {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}

// LoggingObserver logs every statement at info level and failures at error level
func LoggingObserver(logger *slog.Logger) executor.Observer {
	return ObserverFunc(func(ev executor.Event) {
		if ev.Err != nil {
			logger.Error("query failed", "op", ev.Op, "sql", ev.SQL, "duration", ev.Duration, "error", ev.Err)
			return
		}
		logger.Info("query", "op", ev.Op, "sql", ev.SQL, "rows", ev.Rows, "duration", ev.Duration)
	})
}

// SlowQueryObserver calls onSlow for statements that took at least threshold
func SlowQueryObserver(threshold time.Duration, onSlow func(executor.Event)) executor.Observer {
	return ObserverFunc(func(ev executor.Event) {
		if ev.Duration >= threshold && onSlow != nil {
			onSlow(ev)
		}
	})
}

// ErrorObserver calls onError for failed statements
func ErrorObserver(onError func(executor.Event)) executor.Observer {
	return ObserverFunc(func(ev executor.Event) {
		if ev.Err != nil && onError != nil {
			onError(ev)
		}
	})
}
