package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/stadium-hospitality/internal/model"
	"github.com/iliyamo/stadium-hospitality/internal/queue"
	"github.com/iliyamo/stadium-hospitality/internal/repository"
)

// AccessRequest is the body of a check-in or check-out.  StadiumID is only
// honoured for super admins; everyone else acts inside their own tenant.
type AccessRequest struct {
	GuestID    uint64 `json:"-" validate:"required"`
	StadiumID  uint64 `json:"stadium_id"`
	DeviceType string `json:"device_type" validate:"max=50"`
	Companions int    `json:"companions" validate:"gte=0,lte=20"`
	Notes      string `json:"notes" validate:"max=500"`
}

// CheckinResult is returned by a successful check-in.
type CheckinResult struct {
	AccessID       uint64               `json:"access_id"`
	GuestID        uint64               `json:"guest_id"`
	GuestName      string               `json:"guest_name"`
	RoomName       string               `json:"room_name"`
	PreviousStatus model.PresenceStatus `json:"previous_status"`
	AccessTime     time.Time            `json:"access_time"`
}

// CheckoutResult is returned by a successful check-out.  DurationMinutes is
// measured from the entry that the check-out closes.
type CheckoutResult struct {
	AccessID        uint64    `json:"access_id"`
	GuestID         uint64    `json:"guest_id"`
	GuestName       string    `json:"guest_name"`
	DurationMinutes int64     `json:"duration_minutes"`
	CheckinTime     time.Time `json:"checkin_time"`
	AccessTime      time.Time `json:"access_time"`
}

// AccessService records check-ins and check-outs and answers presence
// questions about single guests and rooms.
type AccessService struct {
	ledger      *repository.AccessRepo
	presence    *repository.PresenceRepo
	guests      *repository.GuestRepo
	rooms       *repository.RoomRepo
	audit       AuditSink
	log         *zap.Logger
	writeBudget time.Duration
	readBudget  time.Duration
}

func NewAccessService(
	ledger *repository.AccessRepo,
	presence *repository.PresenceRepo,
	guests *repository.GuestRepo,
	rooms *repository.RoomRepo,
	audit AuditSink,
	log *zap.Logger,
	writeBudget, readBudget time.Duration,
) *AccessService {
	return &AccessService{
		ledger:      ledger,
		presence:    presence,
		guests:      guests,
		rooms:       rooms,
		audit:       audit,
		log:         log,
		writeBudget: writeBudget,
		readBudget:  readBudget,
	}
}

// Checkin records an entry for the guest.  It fails with ErrInvalidTransition
// when the guest is already checked in.
func (s *AccessService) Checkin(ctx context.Context, actor model.Actor, req AccessRequest) (*CheckinResult, error) {
	res, err := s.record(ctx, actor, req, model.AccessEntry)
	if err != nil {
		return nil, err
	}
	out := &CheckinResult{
		AccessID:       res.Event.ID,
		GuestID:        res.Guest.ID,
		GuestName:      model.DisplayName(res.Guest.FirstName, res.Guest.LastName),
		RoomName:       res.Guest.RoomName,
		PreviousStatus: res.PreviousStatus(),
		AccessTime:     res.Event.AccessTime,
	}
	s.emit(actor, queue.OpGuestCheckin, res, map[string]any{
		"previous_status": string(out.PreviousStatus),
		"room_id":         res.Event.RoomID,
		"device_type":     res.Event.DeviceType,
		"companions":      res.Event.Companions,
	})
	return out, nil
}

// Checkout records an exit for the guest.  It fails with
// ErrInvalidTransition unless the guest is checked in.
func (s *AccessService) Checkout(ctx context.Context, actor model.Actor, req AccessRequest) (*CheckoutResult, error) {
	res, err := s.record(ctx, actor, req, model.AccessExit)
	if err != nil {
		return nil, err
	}
	out := &CheckoutResult{
		AccessID:   res.Event.ID,
		GuestID:    res.Guest.ID,
		GuestName:  model.DisplayName(res.Guest.FirstName, res.Guest.LastName),
		AccessTime: res.Event.AccessTime,
	}
	if res.Previous != nil {
		out.CheckinTime = res.Previous.AccessTime
		out.DurationMinutes = durationMinutes(res.Previous.AccessTime, res.Event.AccessTime)
	}
	s.emit(actor, queue.OpGuestCheckout, res, map[string]any{
		"room_id":          res.Event.RoomID,
		"device_type":      res.Event.DeviceType,
		"duration_minutes": out.DurationMinutes,
	})
	return out, nil
}

// durationMinutes rounds to the nearest minute and never goes negative.
func durationMinutes(from, to time.Time) int64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int64(math.Round(d.Minutes()))
}

func (s *AccessService) record(ctx context.Context, actor model.Actor, req AccessRequest, typ model.AccessType) (*repository.AppendResult, error) {
	op := "checkin"
	if typ == model.AccessExit {
		op = "checkout"
	}
	fields := []zap.Field{zap.Uint64("guest_id", req.GuestID), zap.Uint64("actor_id", actor.UserID)}
	if err := validateStruct(req); err != nil {
		logFailure(s.log, op, err, fields...)
		return nil, err
	}
	stadiumID, err := s.writeStadium(ctx, actor, req)
	if err != nil {
		logFailure(s.log, op, err, fields...)
		return nil, err
	}
	fields = append(fields, zap.Uint64("stadium_id", stadiumID))

	areq := repository.AppendRequest{
		GuestID:    req.GuestID,
		HostessID:  actor.UserID,
		StadiumID:  stadiumID,
		Type:       typ,
		DeviceType: req.DeviceType,
		Companions: uint8(req.Companions),
		Notes:      req.Notes,
	}
	if actor.IsHostess() {
		areq.AllowedRooms = append([]uint64{}, actor.RoomIDs...)
	}

	started := time.Now()
	res, err := s.ledger.Append(ctx, areq)
	observe(s.log, op, started, s.writeBudget, fields...)
	if err != nil {
		logFailure(s.log, op, err, fields...)
		return nil, err
	}
	s.log.Info("access recorded", append(fields,
		zap.String("op", op),
		zap.Uint64("access_id", res.Event.ID),
		zap.Uint64("room_id", res.Event.RoomID),
	)...)
	return res, nil
}

// writeStadium resolves the tenant a write runs in.  A super admin without
// an explicit stadium acts in the guest's own stadium.
func (s *AccessService) writeStadium(ctx context.Context, actor model.Actor, req AccessRequest) (uint64, error) {
	if !actor.IsSuperAdmin() {
		return actor.StadiumID, nil
	}
	if req.StadiumID > 0 {
		return req.StadiumID, nil
	}
	g, err := s.guests.GetByID(ctx, req.GuestID, 0)
	if err != nil {
		return 0, err
	}
	return g.StadiumID, nil
}

func (s *AccessService) emit(actor model.Actor, op string, res *repository.AppendResult, meta map[string]any) {
	if s.audit == nil {
		return
	}
	s.audit.Emit(queue.AuditEvent{
		Operation:  op,
		ActorID:    actor.UserID,
		StadiumID:  res.Event.StadiumID,
		EntityType: "guest",
		EntityID:   res.Event.GuestID,
		Metadata:   meta,
		OccurredAt: res.Event.AccessTime,
	})
}

// visibleGuest loads a guest the actor may see: same tenant (unless super
// admin) and, for hostesses, an assigned room.
func (s *AccessService) visibleGuest(ctx context.Context, actor model.Actor, guestID uint64) (*model.Guest, error) {
	g, err := s.guests.GetByID(ctx, guestID, stadiumScope(actor, 0))
	if err != nil {
		return nil, err
	}
	if !actor.CanAccessRoom(g.RoomID) {
		return nil, fmt.Errorf("%w: guest %d", repository.ErrNotFound, guestID)
	}
	return g, nil
}

// History returns the guest's ledger rows, most recent first.
func (s *AccessService) History(ctx context.Context, actor model.Actor, guestID uint64, limit int) ([]model.AccessEvent, error) {
	fields := []zap.Field{zap.Uint64("guest_id", guestID), zap.Uint64("stadium_id", actor.StadiumID)}
	if limit < 0 {
		err := fmt.Errorf("%w: limit must not be negative", repository.ErrValidation)
		logFailure(s.log, "history", err, fields...)
		return nil, err
	}
	started := time.Now()
	defer func() { observe(s.log, "history", started, s.readBudget, fields...) }()
	if _, err := s.visibleGuest(ctx, actor, guestID); err != nil {
		logFailure(s.log, "history", err, fields...)
		return nil, err
	}
	out, err := s.ledger.History(ctx, guestID, limit)
	if err != nil {
		logFailure(s.log, "history", err, fields...)
		return nil, err
	}
	return out, nil
}

// CurrentStatus returns the derived presence of one guest.
func (s *AccessService) CurrentStatus(ctx context.Context, actor model.Actor, guestID uint64) (*model.Presence, error) {
	fields := []zap.Field{zap.Uint64("guest_id", guestID), zap.Uint64("stadium_id", actor.StadiumID)}
	started := time.Now()
	defer func() { observe(s.log, "current_status", started, s.readBudget, fields...) }()
	if _, err := s.visibleGuest(ctx, actor, guestID); err != nil {
		logFailure(s.log, "current_status", err, fields...)
		return nil, err
	}
	p, err := s.presence.CurrentStatus(ctx, guestID)
	if err != nil {
		logFailure(s.log, "current_status", err, fields...)
		return nil, err
	}
	return &p, nil
}

// MaxBulkStatus bounds the ids of a single BulkStatus call.
const MaxBulkStatus = 5000

// BulkStatus resolves many guests at once.  Ledger rows of other tenants
// are ignored, so foreign ids report never_accessed.  A hostess only sees
// guests seated in an assigned room; everyone else reports never_accessed,
// the same answer as for an unknown id.
func (s *AccessService) BulkStatus(ctx context.Context, actor model.Actor, stadiumID uint64, guestIDs []uint64) (map[uint64]model.Presence, error) {
	scope := stadiumScope(actor, stadiumID)
	fields := []zap.Field{zap.Uint64("stadium_id", scope), zap.Int("ids", len(guestIDs))}
	if len(guestIDs) > MaxBulkStatus {
		err := fmt.Errorf("%w: at most %d ids", repository.ErrValidation, MaxBulkStatus)
		logFailure(s.log, "bulk_status", err, fields...)
		return nil, err
	}
	var rooms []uint64
	if actor.IsHostess() {
		rooms, _ = actor.ScopeRooms(nil)
		if rooms == nil {
			rooms = []uint64{}
		}
	}
	started := time.Now()
	out, err := s.presence.BulkStatus(ctx, scope, rooms, guestIDs)
	observe(s.log, "bulk_status", started, s.readBudget, fields...)
	if err != nil {
		logFailure(s.log, "bulk_status", err, fields...)
		return nil, err
	}
	return out, nil
}

// RoomOccupants lists the guests currently inside roomID.
func (s *AccessService) RoomOccupants(ctx context.Context, actor model.Actor, roomID uint64) ([]repository.Occupant, error) {
	fields := []zap.Field{zap.Uint64("room_id", roomID), zap.Uint64("stadium_id", actor.StadiumID)}
	if !actor.CanAccessRoom(roomID) {
		err := fmt.Errorf("%w: room %d", repository.ErrNotFound, roomID)
		logFailure(s.log, "room_occupants", err, fields...)
		return nil, err
	}
	if _, err := s.rooms.RoomInStadium(ctx, roomID, stadiumScope(actor, 0)); err != nil {
		logFailure(s.log, "room_occupants", err, fields...)
		return nil, err
	}
	started := time.Now()
	out, err := s.presence.RoomOccupants(ctx, roomID)
	observe(s.log, "room_occupants", started, s.readBudget, fields...)
	if err != nil {
		logFailure(s.log, "room_occupants", err, fields...)
		return nil, err
	}
	return out, nil
}
