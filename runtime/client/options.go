package client

import (
	"log/slog"
	"time"

	"github.com/satishbabariya/sqlchain/query/dialect"
	"github.com/satishbabariya/sqlchain/query/executor"
)

type settings struct {
	logger    *slog.Logger
	cacheSize int
	clock     func() time.Time
	like      *dialect.LikePolicy
	observers []executor.Observer
}

// Option configures a Client
type Option func(*settings)

// WithLogger sends statement logs to l instead of the debug logger
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		s.logger = l
	}
}

// WithStatementCache keeps up to n prepared statements, keyed by SQL text
func WithStatementCache(n int) Option {
	return func(s *settings) {
		s.cacheSize = n
	}
}

// WithClientClock makes Now bind clock() instead of reading the database
// clock; a nil clock uses time.Now
func WithClientClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock == nil {
			clock = time.Now
		}
		s.clock = clock
	}
}

// WithLikePolicy overrides the dialect's pattern matching policy
func WithLikePolicy(p dialect.LikePolicy) Option {
	return func(s *settings) {
		s.like = &p
	}
}

// WithObserver reports every statement to o. It may be given several times.
func WithObserver(o executor.Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observers = append(s.observers, o)
		}
	}
}
