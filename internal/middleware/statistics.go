package middleware

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Statistics are counters shared by every server of the process.
type Statistics struct {
	Replayed       atomic.Uint64
	PassedThrough  atomic.Uint64
	UpstreamErrors atomic.Uint64
	BytesReplayed  atomic.Uint64
	BytesForwarded atomic.Uint64
}

type StatisticsSnapshot struct {
	Replayed       uint64 `json:"replayed"`
	PassedThrough  uint64 `json:"passedThrough"`
	UpstreamErrors uint64 `json:"upstreamErrors"`
	BytesReplayed  uint64 `json:"bytesReplayed"`
	BytesForwarded uint64 `json:"bytesForwarded"`
}

func (s *Statistics) Snapshot() StatisticsSnapshot {
	return StatisticsSnapshot{
		Replayed:       s.Replayed.Load(),
		PassedThrough:  s.PassedThrough.Load(),
		UpstreamErrors: s.UpstreamErrors.Load(),
		BytesReplayed:  s.BytesReplayed.Load(),
		BytesForwarded: s.BytesForwarded.Load(),
	}
}

func (s StatisticsSnapshot) MarshalZerologObject(e *zerolog.Event) {
	e.Uint64("replayed", s.Replayed).
		Uint64("passedThrough", s.PassedThrough).
		Uint64("upstreamErrors", s.UpstreamErrors).
		Uint64("bytesReplayed", s.BytesReplayed).
		Uint64("bytesForwarded", s.BytesForwarded)
}
