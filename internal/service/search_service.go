package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/model"
	"github.com/iliyamo/stadium-hospitality/internal/repository"
)

// SuggestRequest drives autocomplete.  StadiumID is only read for super
// admins, who must name a stadium.
type SuggestRequest struct {
	Prefix    string `validate:"max=100"`
	StadiumID uint64
	RoomIDs   []uint64
	Limit     int `validate:"gte=0"`
}

// SearchService answers guest searches on behalf of an actor.
type SearchService struct {
	search *repository.SearchRepo
	rooms  *repository.RoomRepo
	log    *zap.Logger
	budget time.Duration
	export int
}

func NewSearchService(search *repository.SearchRepo, rooms *repository.RoomRepo, log *zap.Logger, budget time.Duration, exportMax int) *SearchService {
	return &SearchService{search: search, rooms: rooms, log: log, budget: budget, export: exportMax}
}

// Search validates f, pins it to the actor's tenant and rooms, and runs it.
// Queries slower than the search budget are logged at Warn.
func (s *SearchService) Search(ctx context.Context, actor model.Actor, f repository.SearchFilters) (*repository.SearchResult, error) {
	if err := validateStruct(f); err != nil {
		logFailure(s.log, "search", err, zap.Uint64("stadium_id", actor.StadiumID))
		return nil, err
	}
	f.StadiumID = stadiumScope(actor, f.StadiumID)
	rooms, ok := actor.ScopeRooms(f.RoomIDs)
	if !ok {
		return emptyResult(f), nil
	}
	f.RoomIDs = rooms

	started := time.Now()
	res, err := s.search.Search(ctx, f)
	fields := []zap.Field{
		zap.Uint64("stadium_id", f.StadiumID),
		zap.String("q", f.Query),
		zap.Int("rooms", len(f.RoomIDs)),
		zap.String("access_status", f.AccessStatus),
	}
	observe(s.log, "search", started, s.budget, fields...)
	if err != nil {
		logFailure(s.log, "search", err, fields...)
		return nil, err
	}
	return res, nil
}

func emptyResult(f repository.SearchFilters) *repository.SearchResult {
	limit := f.Limit
	if limit <= 0 {
		limit = repository.DefaultSearchLimit
	}
	if limit > repository.MaxSearchLimit {
		limit = repository.MaxSearchLimit
	}
	return &repository.SearchResult{Results: []repository.GuestWithStatus{}, Limit: limit, Offset: f.Offset}
}

// QuickSuggest returns prefix matches for autocomplete.
func (s *SearchService) QuickSuggest(ctx context.Context, actor model.Actor, req SuggestRequest) ([]repository.Suggestion, error) {
	if err := validateStruct(req); err != nil {
		logFailure(s.log, "suggest", err, zap.Uint64("stadium_id", actor.StadiumID))
		return nil, err
	}
	stadiumID := stadiumScope(actor, req.StadiumID)
	if stadiumID == 0 {
		err := fmt.Errorf("%w: stadium_id is required", repository.ErrValidation)
		logFailure(s.log, "suggest", err)
		return nil, err
	}
	rooms, ok := actor.ScopeRooms(req.RoomIDs)
	if !ok {
		return []repository.Suggestion{}, nil
	}
	started := time.Now()
	out, err := s.search.QuickSuggest(ctx, repository.SuggestQuery{
		Prefix: req.Prefix, StadiumID: stadiumID, RoomIDs: rooms, Limit: req.Limit,
	})
	observe(s.log, "suggest", started, s.budget, zap.Uint64("stadium_id", stadiumID))
	if err != nil {
		logFailure(s.log, "suggest", err, zap.Uint64("stadium_id", stadiumID))
		return nil, err
	}
	return out, nil
}

// RoomGuests pages through every active guest of roomID with its presence,
// up to the export cap.  The room is returned for labelling.
func (s *SearchService) RoomGuests(ctx context.Context, actor model.Actor, roomID uint64) (*model.Room, []repository.GuestWithStatus, error) {
	fields := []zap.Field{zap.Uint64("room_id", roomID), zap.Uint64("stadium_id", actor.StadiumID)}
	if !actor.CanAccessRoom(roomID) {
		err := fmt.Errorf("%w: room %d", repository.ErrNotFound, roomID)
		logFailure(s.log, "room_export", err, fields...)
		return nil, nil, err
	}
	room, err := s.rooms.RoomInStadium(ctx, roomID, stadiumScope(actor, 0))
	if err != nil {
		logFailure(s.log, "room_export", err, fields...)
		return nil, nil, err
	}
	out := []repository.GuestWithStatus{}
	f := repository.SearchFilters{StadiumID: room.StadiumID, RoomIDs: []uint64{roomID}, Limit: repository.MaxSearchLimit}
	for len(out) < s.export {
		page, err := s.search.Search(ctx, f)
		if err != nil {
			logFailure(s.log, "room_export", err, fields...)
			return nil, nil, err
		}
		out = append(out, page.Results...)
		if !page.HasMore || int64(f.Offset+len(page.Results)) >= page.TotalFound {
			break
		}
		f.Offset += len(page.Results)
	}
	if len(out) > s.export {
		out = out[:s.export]
	}
	return room, out, nil
}
