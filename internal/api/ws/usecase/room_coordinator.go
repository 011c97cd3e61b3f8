package wsUsecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"room-broker/domain"
	"room-broker/internal/api/ws/hub"

	"github.com/fasthttp/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CloseReason      = "Coordinator is closing WebSocket"
	closeReasonError = "Coordinator closed WebSocket after a transport error"
)

// Dependencies are shared by every actor a hub builds over its lifetime.
type Dependencies struct {
	Store  RoomStore
	Events EventPublisher
	// NewRoomID mints candidate room ids. Defaults to the first segment of a
	// random UUID.
	NewRoomID func() string
	// Owns reports whether a room id belongs to this coordinator. Nil means
	// every id does.
	Owns func(roomID string) bool
	// Shards is the number of coordinators ids are spread over. Only a
	// 1/Shards share of minted ids passes Owns, so it scales the number of
	// candidates mintRoom may draw.
	Shards int
	// MaxIDAttempts bounds store collisions while minting a room id.
	MaxIDAttempts int
	// TouchInterval is the minimum gap between two store refreshes of a room
	// that is only chatting.
	TouchInterval time.Duration
	Now           func() time.Time
}

func NewRoomID() string {
	return strings.Split(uuid.NewString(), "-")[0]
}

// NewRoomCoordinatorFactory returns the hub factory for the room coordinator.
func NewRoomCoordinatorFactory(deps Dependencies) hub.Factory {
	if deps.Events == nil {
		deps.Events = discardEvents{}
	}
	if deps.NewRoomID == nil {
		deps.NewRoomID = NewRoomID
	}
	if deps.Owns == nil {
		deps.Owns = func(string) bool { return true }
	}
	if deps.Shards <= 0 {
		deps.Shards = 1
	}
	if deps.MaxIDAttempts <= 0 {
		deps.MaxIDAttempts = 32
	}
	if deps.TouchInterval <= 0 {
		deps.TouchInterval = time.Minute
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}

	return func(state hub.State) hub.Actor {
		return &roomCoordinator{
			state: state,
			deps:  deps,
			rooms: make(map[string]*cachedRoom),
		}
	}
}

// cachedRoom is the in-memory view of a stored room. It is dropped with the
// actor on hibernation and rebuilt from the store on first touch.
type cachedRoom struct {
	room      domain.Room
	members   map[string]*hub.Socket
	touchedAt time.Time
}

type roomCoordinator struct {
	state hub.State
	deps  Dependencies
	rooms map[string]*cachedRoom
}

func (c *roomCoordinator) WebSocketMessage(ctx context.Context, ws *hub.Socket, message []byte) {
	req, err := DecodeRequest(message)
	if err != nil {
		c.sendError(ws, err)
		return
	}

	switch r := req.(type) {
	case CreateRequest:
		err = c.create(ctx, ws, r)
	case JoinRequest:
		err = c.join(ctx, ws, r)
	case MessageRequest:
		err = c.message(ctx, ws, r)
	}
	if err != nil {
		c.sendError(ws, err)
	}
}

func (c *roomCoordinator) WebSocketClose(ctx context.Context, ws *hub.Socket, code int, reason string, wasClean bool) {
	zap.L().Debug("websocket closed by peer",
		zap.String("hub", c.state.Name()),
		zap.String("socket_id", ws.ID()),
		zap.Int("code", code),
		zap.String("reason", reason),
		zap.Bool("was_clean", wasClean))

	c.leave(ctx, ws)
	ws.Close(websocket.CloseNormalClosure, CloseReason)
}

func (c *roomCoordinator) WebSocketError(ctx context.Context, ws *hub.Socket, err error) {
	zap.L().Warn("websocket transport error",
		zap.String("hub", c.state.Name()),
		zap.String("socket_id", ws.ID()),
		zap.Error(err))

	c.leave(ctx, ws)
	ws.Close(websocket.CloseInternalServerErr, closeReasonError)
}

func (c *roomCoordinator) create(ctx context.Context, ws *hub.Socket, req CreateRequest) error {
	if _, ok, err := c.association(ws); err != nil {
		return err
	} else if ok {
		return domain.ErrAlreadyInRoom
	}

	room, err := c.mintRoom(ctx, ws.ID())
	if err != nil {
		return err
	}

	if err := c.attach(ws, room.ID, req.Username); err != nil {
		c.discardRoom(ctx, room.ID)
		return err
	}
	c.rooms[room.ID] = &cachedRoom{
		room:    room,
		members: map[string]*hub.Socket{ws.ID(): ws},
	}

	// The reply is queued before this handler returns, so it reaches the
	// creator before any later event can expose the room to someone else.
	c.reply(ws, domain.NewSocketResponse(domain.TypeRoomCreated,
		domain.RoomCreatedData{RoomID: room.ID},
		domain.RoomCreatedMessage))
	c.publish(ctx, domain.EventRoomCreated, room.ID, ws.ID(), 1)

	zap.L().Info("room created",
		zap.String("hub", c.state.Name()),
		zap.String("room_id", room.ID),
		zap.String("socket_id", ws.ID()))
	return nil
}

// mintRoom allocates an unused id owned by this coordinator and stores the
// room with creatorID as its only member. Ids routed to another shard and ids
// already taken in the store are retried against separate budgets.
func (c *roomCoordinator) mintRoom(ctx context.Context, creatorID string) (domain.Room, error) {
	maxDraws := c.deps.MaxIDAttempts * c.deps.Shards
	collisions := 0
	for draw := 0; draw < maxDraws && collisions < c.deps.MaxIDAttempts; draw++ {
		id := c.deps.NewRoomID()
		if !c.deps.Owns(id) {
			continue
		}

		room := domain.Room{
			ID:        id,
			Members:   []string{creatorID},
			CreatedAt: c.deps.Now().UTC(),
		}
		err := c.deps.Store.Create(ctx, room)
		if errors.Is(err, domain.ErrConflict) {
			zap.L().Debug("room id collision", zap.String("room_id", id))
			collisions++
			continue
		}
		if err != nil {
			return domain.Room{}, fmt.Errorf("failed to create room: %w", err)
		}
		return room, nil
	}
	return domain.Room{}, domain.ErrRoomIDExhausted
}

func (c *roomCoordinator) join(ctx context.Context, ws *hub.Socket, req JoinRequest) error {
	if _, ok, err := c.association(ws); err != nil {
		return err
	} else if ok {
		return domain.ErrAlreadyInRoom
	}
	if !c.deps.Owns(req.RoomID) {
		return domain.ErrRoomNotOwned
	}

	cached, err := c.loadRoom(ctx, req.RoomID)
	if err != nil {
		return err
	}

	updated := cached.room.WithMember(ws.ID())
	if err := c.deps.Store.Put(ctx, updated); err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if err := c.attach(ws, req.RoomID, req.Username); err != nil {
		if rbErr := c.deps.Store.Put(ctx, cached.room); rbErr != nil {
			zap.L().Error("failed to roll back member",
				zap.String("room_id", req.RoomID),
				zap.String("socket_id", ws.ID()),
				zap.Error(rbErr))
		}
		return err
	}
	cached.room = updated
	cached.members[ws.ID()] = ws

	c.reply(ws, domain.NewSocketResponse(domain.TypeRoomJoined,
		domain.RoomJoinedData{RoomID: req.RoomID, Members: len(cached.members)},
		"Joined room"))
	c.broadcast(cached, ws.ID(), domain.NewSocketResponse(domain.TypeMemberJoined,
		domain.MemberData{ConnectionID: ws.ID(), Username: req.Username},
		"A new member joined the room"))
	c.publish(ctx, domain.EventMemberJoined, req.RoomID, ws.ID(), len(cached.members))
	return nil
}

func (c *roomCoordinator) message(ctx context.Context, ws *hub.Socket, req MessageRequest) error {
	assoc, ok, err := c.association(ws)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotInRoom
	}

	cached, err := c.loadRoom(ctx, assoc.RoomID)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return domain.ErrNotInRoom
	}
	if err != nil {
		return err
	}
	if !cached.room.HasMember(ws.ID()) {
		return domain.ErrNotInRoom
	}

	c.touch(ctx, cached)

	from := assoc.Username
	if from == "" {
		from = ws.ID()
	}
	c.broadcast(cached, ws.ID(), domain.NewSocketResponse(domain.TypeMessage,
		domain.ChatData{RoomID: assoc.RoomID, From: from, Content: req.Content},
		"New message"))
	return nil
}

// leave removes ws from its room. It is safe to call for sockets that never
// joined a room and for sockets that already left.
func (c *roomCoordinator) leave(ctx context.Context, ws *hub.Socket) {
	assoc, ok, err := c.association(ws)
	if err != nil || !ok {
		return
	}

	cached, err := c.loadRoom(ctx, assoc.RoomID)
	if err != nil {
		if !errors.Is(err, domain.ErrRoomNotFound) {
			zap.L().Error("failed to load room on leave",
				zap.String("room_id", assoc.RoomID),
				zap.String("socket_id", ws.ID()),
				zap.Error(err))
		}
		return
	}
	if !cached.room.HasMember(ws.ID()) {
		return
	}

	delete(cached.members, ws.ID())
	cached.room = cached.room.WithoutMember(ws.ID())

	if len(cached.members) == 0 {
		c.discardRoom(ctx, assoc.RoomID)
		c.publish(ctx, domain.EventRoomClosed, assoc.RoomID, ws.ID(), 0)
		zap.L().Info("room closed",
			zap.String("hub", c.state.Name()),
			zap.String("room_id", assoc.RoomID))
		return
	}

	if err := c.deps.Store.Put(ctx, cached.room); err != nil {
		zap.L().Error("failed to remove member",
			zap.String("room_id", assoc.RoomID),
			zap.String("socket_id", ws.ID()),
			zap.Error(err))
	}
	c.broadcast(cached, ws.ID(), domain.NewSocketResponse(domain.TypeMemberLeft,
		domain.MemberData{ConnectionID: ws.ID(), Username: assoc.Username},
		"A member left the room"))
	c.publish(ctx, domain.EventMemberLeft, assoc.RoomID, ws.ID(), len(cached.members))
}

// loadRoom returns the cached room, rebuilding it from the store after a
// wake. Members whose sockets are gone are pruned from the stored record.
func (c *roomCoordinator) loadRoom(ctx context.Context, roomID string) (*cachedRoom, error) {
	if cached, ok := c.rooms[roomID]; ok {
		return cached, nil
	}

	room, err := c.deps.Store.Get(ctx, roomID)
	if err != nil {
		return nil, err
	}

	members := make(map[string]*hub.Socket, len(room.Members))
	live := make([]string, 0, len(room.Members))
	for _, id := range room.Members {
		if ws, ok := c.state.Socket(id); ok {
			members[id] = ws
			live = append(live, id)
		}
	}

	if len(live) != len(room.Members) {
		zap.L().Info("pruning stale room members",
			zap.String("room_id", roomID),
			zap.Int("stored", len(room.Members)),
			zap.Int("live", len(live)))

		if len(live) == 0 {
			c.discardRoom(ctx, roomID)
			return nil, domain.ErrRoomNotFound
		}
		room.Members = live
		if err := c.deps.Store.Put(ctx, room); err != nil {
			return nil, fmt.Errorf("failed to prune room: %w", err)
		}
	}

	cached := &cachedRoom{room: room, members: members}
	c.rooms[roomID] = cached
	return cached, nil
}

// touch keeps a chatting room from expiring in the store. Writes are spaced
// at least TouchInterval apart per room.
func (c *roomCoordinator) touch(ctx context.Context, cached *cachedRoom) {
	now := c.deps.Now()
	if now.Sub(cached.touchedAt) < c.deps.TouchInterval {
		return
	}
	if err := c.deps.Store.Touch(ctx, cached.room.ID); err != nil {
		zap.L().Warn("failed to touch room", zap.String("room_id", cached.room.ID), zap.Error(err))
		return
	}
	cached.touchedAt = now
}

func (c *roomCoordinator) discardRoom(ctx context.Context, roomID string) {
	delete(c.rooms, roomID)
	if err := c.deps.Store.Delete(ctx, roomID); err != nil {
		zap.L().Error("failed to delete room", zap.String("room_id", roomID), zap.Error(err))
	}
}

func (c *roomCoordinator) association(ws *hub.Socket) (domain.Association, bool, error) {
	var assoc domain.Association
	ok, err := ws.DeserializeAttachment(&assoc)
	if err != nil {
		return assoc, false, err
	}
	return assoc, ok && assoc.RoomID != "", nil
}

func (c *roomCoordinator) attach(ws *hub.Socket, roomID, username string) error {
	return ws.SerializeAttachment(domain.Association{
		RoomID:   roomID,
		Username: username,
		JoinedAt: c.deps.Now().UTC(),
	})
}

// broadcast sends resp to every member except the one with id except. A
// failed send only affects that peer.
func (c *roomCoordinator) broadcast(cached *cachedRoom, except string, resp any) {
	payload, err := json.Marshal(resp)
	if err != nil {
		zap.L().Error("failed to marshal broadcast", zap.Error(err))
		return
	}

	for id, member := range cached.members {
		if id == except {
			continue
		}
		if err := member.Send(payload); err != nil {
			zap.L().Debug("dropping message for peer",
				zap.String("room_id", cached.room.ID),
				zap.String("socket_id", id),
				zap.Error(err))
		}
	}
}

func (c *roomCoordinator) reply(ws *hub.Socket, resp any) {
	if err := ws.SendJSON(resp); err != nil {
		zap.L().Debug("failed to reply", zap.String("socket_id", ws.ID()), zap.Error(err))
	}
}

func (c *roomCoordinator) sendError(ws *hub.Socket, err error) {
	if errors.Is(err, domain.ErrConnectionClosed) {
		return
	}
	code := errorCode(err)
	message := err.Error()
	if code == domain.CodeInternal {
		zap.L().Error("coordinator handler failed",
			zap.String("hub", c.state.Name()),
			zap.String("socket_id", ws.ID()),
			zap.Error(err))
		message = "internal error"
	}
	c.reply(ws, domain.NewSocketResponse(domain.TypeError, domain.ErrorData{Code: code}, message))
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidPayload):
		return domain.CodeInvalidPayload
	case errors.Is(err, domain.ErrUnsupportedType):
		return domain.CodeUnsupportedType
	case errors.Is(err, domain.ErrRoomNotFound):
		return domain.CodeRoomNotFound
	case errors.Is(err, domain.ErrRoomNotOwned):
		return domain.CodeRoomNotOwned
	case errors.Is(err, domain.ErrNotInRoom):
		return domain.CodeNotInRoom
	case errors.Is(err, domain.ErrAlreadyInRoom):
		return domain.CodeAlreadyInRoom
	default:
		return domain.CodeInternal
	}
}

func (c *roomCoordinator) publish(ctx context.Context, typ, roomID, connectionID string, members int) {
	c.deps.Events.Publish(ctx, domain.RoomEvent{
		Type:         typ,
		RoomID:       roomID,
		ConnectionID: connectionID,
		Coordinator:  c.state.Name(),
		Members:      members,
		OccurredAt:   c.deps.Now().UTC(),
	})
}
