package websocket

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"diagramsync/application/commands"
	"diagramsync/application/commands/bus"
	"diagramsync/application/ports"
	"diagramsync/application/presence"
	"diagramsync/domain/config"
	"diagramsync/pkg/auth"
	"diagramsync/pkg/errors"
	"diagramsync/pkg/observability"
	"diagramsync/pkg/utils"

	"go.uber.org/zap"
)

// Gateway dispatches the inbound events of every connection. Presence
// changes are handled here; mutations and locks go through the command bus.
type Gateway struct {
	hub        *Hub
	tracker    *presence.Tracker
	membership ports.MembershipResolver
	commands   *bus.CommandBus
	limiter    *auth.SlidingWindowLimiter
	cfg        *config.SyncConfig
	metrics    *observability.Collector
	logger     *zap.Logger
}

var _ MessageHandler = (*Gateway)(nil)

// NewGateway creates the gateway. limiter may be nil to accept every event.
func NewGateway(
	hub *Hub,
	tracker *presence.Tracker,
	membership ports.MembershipResolver,
	commandBus *bus.CommandBus,
	limiter *auth.SlidingWindowLimiter,
	cfg *config.SyncConfig,
	metrics *observability.Collector,
	logger *zap.Logger,
) *Gateway {
	return &Gateway{
		hub:        hub,
		tracker:    tracker,
		membership: membership,
		commands:   commandBus,
		limiter:    limiter,
		cfg:        cfg,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleMessage implements MessageHandler. Failures never close the
// connection; they are reported to the sender as a warning or error event.
func (g *Gateway) HandleMessage(ctx context.Context, c *Client, message []byte) {
	if g.limiter != nil {
		if allowed, _ := g.limiter.Allow(ctx, c.id); !allowed {
			g.notify(c, "", errors.NewRateLimitError(g.limiter.Limit(), "minute"))
			return
		}
	}

	var msg InboundMessage
	if err := json.Unmarshal(bytes.TrimSpace(message), &msg); err != nil || msg.Type == "" {
		g.notify(c, msg.Type, errors.NewMalformedInput("invalid event envelope"))
		return
	}

	var err error
	switch msg.Type {
	case EventJoin:
		err = g.handleJoin(ctx, c, msg.Data)
	case EventHeartbeat:
		err = g.handleHeartbeat(ctx, c, msg.Data)
	case EventLeave:
		err = g.handleLeave(c, msg.Data)
	case EventMutate:
		err = g.handleMutate(ctx, c, msg.Data)
	case EventLockAcquire:
		err = g.handleLockAcquire(ctx, c, msg.Data)
	case EventLockRelease:
		err = g.handleLockRelease(ctx, c, msg.Data)
	default:
		err = errors.NewMalformedInput(fmt.Sprintf("unknown event type %q", msg.Type))
	}

	if err != nil {
		g.notify(c, msg.Type, err)
	}
}

// Disconnect implements MessageHandler. The connection's presence entry is
// removed and the room is told; locks it holds are left to expire.
func (g *Gateway) Disconnect(c *Client) {
	if sess := c.Session(); sess.Bound() {
		g.leaveRoom(c, sess)
	}
	if g.limiter != nil {
		_ = g.limiter.Reset(context.Background(), c.id)
	}
	g.hub.Unregister(c)
}

func (g *Gateway) handleJoin(ctx context.Context, c *Client, data json.RawMessage) error {
	var p JoinPayload
	if err := decode(data, &p); err != nil {
		return err
	}

	// A token-proven identity cannot be overridden by the payload
	if c.authIdentity != "" {
		if p.Identity != "" && p.Identity != c.authIdentity {
			return errors.NewNotAuthenticated()
		}
		p.Identity = c.authIdentity
		if p.DisplayName == "" {
			p.DisplayName = c.authName
		}
	}
	if err := utils.ValidateStruct(&p); err != nil {
		return err
	}

	sess := c.Session()
	sameBinding := sess.Room == p.Room && sess.Identity == p.Identity
	if sameBinding {
		if entry, ok := g.tracker.Member(p.Room, p.Identity); ok && entry.ConnectionID == c.id {
			return nil
		}
	}

	role, found, err := g.membership.ResolveRole(ctx, p.Room, p.Identity)
	if err != nil {
		return errors.NewExternalError("membership", err)
	}
	if !found {
		return errors.NewNotFoundError("project").WithCode(errors.CodeProjectNotFound)
	}

	if sess.Bound() && !sameBinding {
		g.leaveRoom(c, sess)
	}

	list, err := g.tracker.Join(p.Room, p.Identity, p.DisplayName, role, c.id)
	if err != nil {
		return err
	}
	c.bind(Session{
		Room:        p.Room,
		Identity:    p.Identity,
		DisplayName: p.DisplayName,
		Role:        role,
	})
	g.hub.JoinRoom(c, p.Room)
	g.hub.BroadcastToRoom(p.Room, "", ports.EventPresenceUpdate, ports.PresenceUpdate{Room: p.Room, Users: list})
	g.metrics.SetRooms(g.tracker.RoomCount())

	g.logger.Info("Connection joined room",
		zap.String("connectionID", c.id),
		zap.String("room", p.Room),
		zap.String("identity", p.Identity),
		zap.String("role", role.String()),
	)
	return nil
}

// handleHeartbeat never reports an error: late or foreign heartbeats are swallowed
func (g *Gateway) handleHeartbeat(ctx context.Context, c *Client, data json.RawMessage) error {
	var p HeartbeatPayload
	if err := decode(data, &p); err != nil {
		return nil
	}

	sess := c.Session()
	if !sess.Bound() || !matches(p.Room, sess.Room) || !matches(p.Identity, sess.Identity) {
		return nil
	}
	if !g.tracker.Heartbeat(sess.Room, sess.Identity) {
		return nil
	}
	if !g.cfg.RefreshRoleOnHeartbeat {
		return nil
	}

	role, found, err := g.membership.ResolveRole(ctx, sess.Room, sess.Identity)
	if err != nil {
		g.logger.Warn("Failed to refresh role on heartbeat",
			zap.String("room", sess.Room),
			zap.String("identity", sess.Identity),
			zap.Error(err),
		)
		return nil
	}
	if !found {
		// membership was revoked: the connection keeps its socket but loses the room
		g.leaveRoom(c, sess)
		return nil
	}

	list, changed := g.tracker.SetRole(sess.Room, sess.Identity, role)
	if !changed {
		return nil
	}
	c.setRole(role)
	g.hub.BroadcastToRoom(sess.Room, "", ports.EventPresenceUpdate, ports.PresenceUpdate{Room: sess.Room, Users: list})

	g.logger.Info("Role changed",
		zap.String("room", sess.Room),
		zap.String("identity", sess.Identity),
		zap.String("role", role.String()),
	)
	return nil
}

func (g *Gateway) handleLeave(c *Client, data json.RawMessage) error {
	var p LeavePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	sess := c.Session()
	if !sess.Bound() || !matches(p.Room, sess.Room) {
		return nil
	}
	g.leaveRoom(c, sess)
	return nil
}

func (g *Gateway) handleMutate(ctx context.Context, c *Client, data json.RawMessage) error {
	var p MutatePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	sess := c.Session()
	start := time.Now()
	err := g.commands.Send(ctx, &commands.MutateDiagramCommand{
		ConnectionID:  c.id,
		ProjectID:     sess.Room,
		RequestedRoom: p.Room,
		Identity:      sess.Identity,
		Role:          sess.Role,
		Action:        p.Action,
		Payload:       p.Payload,
	})
	if err != nil {
		g.metrics.RecordMutation(actionLabel(p.Action), mutationOutcome(err), time.Since(start))
	}
	return err
}

func (g *Gateway) handleLockAcquire(ctx context.Context, c *Client, data json.RawMessage) error {
	var p LockAcquirePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	sess := c.Session()
	return g.commands.Send(ctx, &commands.AcquireLockCommand{
		ConnectionID:  c.id,
		ProjectID:     sess.Room,
		RequestedRoom: p.Room,
		Identity:      sess.Identity,
		ResourceID:    p.ResourceID,
		OwnerID:       p.OwnerID,
	})
}

func (g *Gateway) handleLockRelease(ctx context.Context, c *Client, data json.RawMessage) error {
	var p LockReleasePayload
	if err := decode(data, &p); err != nil {
		return err
	}

	sess := c.Session()
	return g.commands.Send(ctx, &commands.ReleaseLockCommand{
		ConnectionID:  c.id,
		ProjectID:     sess.Room,
		RequestedRoom: p.Room,
		Identity:      sess.Identity,
		LockID:        p.LockID,
	})
}

// leaveRoom drops the connection's entry and binding. The room hears about
// it only when an entry was actually removed.
func (g *Gateway) leaveRoom(c *Client, sess Session) {
	list, removed := g.tracker.LeaveConnection(sess.Room, sess.Identity, c.id)
	g.hub.LeaveRoom(c, sess.Room)
	c.unbind()

	if removed {
		g.hub.BroadcastToRoom(sess.Room, "", ports.EventPresenceUpdate, ports.PresenceUpdate{Room: sess.Room, Users: list})
	}
	g.metrics.SetRooms(g.tracker.RoomCount())

	g.logger.Info("Connection left room",
		zap.String("connectionID", c.id),
		zap.String("room", sess.Room),
		zap.String("identity", sess.Identity),
		zap.Bool("removed", removed),
	)
}

// notify reports a failure to the sender only
func (g *Gateway) notify(c *Client, event string, err error) {
	eventType := ports.EventError
	if errors.IsWarning(err) {
		eventType = ports.EventWarning
	}

	code, message := errors.Public(err)
	notice := ports.Notice{Code: code, Message: message, Event: event}
	g.hub.SendTo(c.id, eventType, notice)

	g.logger.Debug("Event rejected",
		zap.String("connectionID", c.id),
		zap.String("event", event),
		zap.String("notice", eventType),
		zap.String("code", notice.Code),
		zap.Error(err),
	)
}

func decode(data json.RawMessage, v interface{}) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, v); err != nil {
		return errors.NewMalformedInput("invalid event payload")
	}
	return nil
}

// matches treats an omitted value as the bound one
func matches(given, bound string) bool {
	return given == "" || given == bound
}

func mutationOutcome(err error) string {
	switch {
	case errors.IsForbidden(err):
		return "denied"
	case errors.IsValidation(err):
		return "rejected"
	default:
		return "failed"
	}
}
