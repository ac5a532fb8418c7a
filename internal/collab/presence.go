package collab

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// PresenceManager tracks which shape each viewer in a room hovers.
type PresenceManager struct {
	mu        sync.RWMutex
	presences map[string]*HoverPayload // clientID -> hover
}

func NewPresenceManager() *PresenceManager {
	return &PresenceManager{
		presences: make(map[string]*HoverPayload),
	}
}

func (pm *PresenceManager) Update(clientID string, p *HoverPayload) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	pm.presences[clientID] = p
}

func (pm *PresenceManager) Remove(clientID string) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	delete(pm.presences, clientID)
}

func (pm *PresenceManager) GetAll() map[string]*HoverPayload {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	result := make(map[string]*HoverPayload, len(pm.presences))
	for k, v := range pm.presences {
		result[k] = v
	}
	return result
}

func (pm *PresenceManager) StateMessage() *Message {
	payload, err := json.Marshal(PresenceStatePayload{Presences: pm.GetAll()})
	if err != nil {
		slog.Error("marshal presence state", "error", err)
		return nil
	}
	return &Message{
		Type:    TypePresenceState,
		Payload: payload,
	}
}
