package collab

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const mutateTimeout = 5 * time.Second

func (h *Hub) handleHoverUpdate(sender *Client, msg *Message) {
	var hover HoverPayload
	if err := json.Unmarshal(msg.Payload, &hover); err != nil {
		slog.Warn("invalid hover payload", "error", err)
		return
	}

	hover.DisplayName = sender.DisplayName

	h.mu.RLock()
	room, ok := h.rooms[sender.MapID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	room.presence.Update(sender.ClientID, &hover)

	out := newMessage(TypeHoverUpdate, hover)
	out.ClientID = sender.ClientID
	out.UserID = sender.UserID
	h.broadcastToRoom(sender.MapID, out, sender.ClientID)
}

func (h *Hub) handleStateSet(sender *Client, msg *Message) {
	var req StateSetPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		h.sendNack(sender, "", "invalid payload")
		return
	}
	if !h.authorize(sender, req.RequestID) {
		return
	}
	if req.ShapeID == "" {
		h.sendNack(sender, req.RequestID, "shapeId is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mutateTimeout)
	defer cancel()
	ctx, seq := withSeq(ctx)

	var err error
	if req.State == nil {
		err = h.mutator.ClearShapeState(ctx, sender.MapID, req.ShapeID)
	} else {
		err = h.mutator.SetShapeState(ctx, sender.MapID, req.ShapeID, *req.State)
	}
	h.finish(sender, req.RequestID, *seq, err)
}

func (h *Hub) handleStyleSet(sender *Client, msg *Message) {
	var req StyleSetPayload
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		h.sendNack(sender, "", "invalid payload")
		return
	}
	if !h.authorize(sender, req.RequestID) {
		return
	}
	if req.Style == "" {
		h.sendNack(sender, req.RequestID, "style is required")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), mutateTimeout)
	defer cancel()
	ctx, seq := withSeq(ctx)

	err := h.mutator.SetStateStyle(ctx, sender.MapID, req.State, req.Style)
	h.finish(sender, req.RequestID, *seq, err)
}

func (h *Hub) authorize(sender *Client, requestID string) bool {
	if sender.Anonymous || h.mutator == nil {
		h.sendNack(sender, requestID, "not allowed")
		return false
	}
	return true
}

// finish acks or nacks a mutation. The broadcast of an accepted change has
// already gone out through the notifier, so the ack carries its sequence.
func (h *Hub) finish(sender *Client, requestID string, seq int64, err error) {
	if err != nil {
		slog.Warn("mutation rejected", "error", err, "client", sender.ClientID, "map", sender.MapID)
		h.sendNack(sender, requestID, err.Error())
		return
	}
	sender.Send(newMessage(TypeAck, AckPayload{
		RequestID: requestID,
		ServerSeq: seq,
	}))
}

func (h *Hub) sendNack(sender *Client, requestID, reason string) {
	sender.Send(newMessage(TypeNack, NackPayload{RequestID: requestID, Reason: reason}))
}
