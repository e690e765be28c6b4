package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/model"
	"github.com/iliyamo/stadium-hospitality/internal/repository"
)

// StatsService serves the dashboard counters.  Every call recomputes from
// the ledger; there is no cache.
type StatsService struct {
	stats  *repository.StatsRepo
	rooms  *repository.RoomRepo
	log    *zap.Logger
	budget time.Duration
}

func NewStatsService(stats *repository.StatsRepo, rooms *repository.RoomRepo, log *zap.Logger, budget time.Duration) *StatsService {
	return &StatsService{stats: stats, rooms: rooms, log: log, budget: budget}
}

// RoomStats returns the counters of roomID, optionally narrowed to eventID.
func (s *StatsService) RoomStats(ctx context.Context, actor model.Actor, roomID, eventID uint64) (*repository.RoomStats, error) {
	scope := stadiumScope(actor, 0)
	fields := []zap.Field{zap.Uint64("room_id", roomID), zap.Uint64("event_id", eventID), zap.Uint64("stadium_id", scope)}
	if _, err := s.rooms.RoomInStadium(ctx, roomID, scope); err != nil {
		logFailure(s.log, "room_stats", err, fields...)
		return nil, err
	}
	if eventID > 0 {
		if _, err := s.rooms.EventInStadium(ctx, eventID, scope); err != nil {
			logFailure(s.log, "room_stats", err, fields...)
			return nil, err
		}
	}
	started := time.Now()
	st, err := s.stats.RoomStats(ctx, roomID, eventID)
	observe(s.log, "room_stats", started, s.budget, fields...)
	if err != nil {
		logFailure(s.log, "room_stats", err, fields...)
		return nil, err
	}
	return st, nil
}

// EventStats returns the counters of eventID.
func (s *StatsService) EventStats(ctx context.Context, actor model.Actor, eventID uint64) (*repository.EventStats, error) {
	scope := stadiumScope(actor, 0)
	fields := []zap.Field{zap.Uint64("event_id", eventID), zap.Uint64("stadium_id", scope)}
	if _, err := s.rooms.EventInStadium(ctx, eventID, scope); err != nil {
		logFailure(s.log, "event_stats", err, fields...)
		return nil, err
	}
	started := time.Now()
	st, err := s.stats.EventStats(ctx, eventID)
	observe(s.log, "event_stats", started, s.budget, fields...)
	if err != nil {
		logFailure(s.log, "event_stats", err, fields...)
		return nil, err
	}
	return st, nil
}
