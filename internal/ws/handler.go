package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"ems_simulator/internal/model"
	"ems_simulator/internal/timeengine"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler manages WebSocket connections and routes scenario control messages
// to the time engine.
type Handler struct {
	hub    *Hub
	engine *timeengine.Engine
}

func NewHandler(hub *Hub, engine *timeengine.Engine) *Handler {
	return &Handler{hub: hub, engine: engine}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	client := &Client{
		hub:  h.hub,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.hub.Register(client)
	go client.writePump()

	// Send current scenario state
	h.sendScenarioState(client)

	// Read messages from client
	h.readPump(client)
}

func (h *Handler) readPump(c *Client) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}

		h.handleMessage(msg)
	}
}

func (h *Handler) handleMessage(msg []byte) {
	var env Envelope
	if err := json.Unmarshal(msg, &env); err != nil {
		log.Printf("Invalid message: %v", err)
		return
	}

	switch env.Type {
	case TypeScenarioStart:
		h.engine.Start()

	case TypeScenarioPause:
		h.engine.Pause()

	case TypeScenarioResume:
		h.engine.Resume()

	case TypeScenarioSetSpeed:
		var p SetSpeedPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid set_speed payload: %v", err)
			return
		}
		h.engine.SetSpeed(p.Speed)

	case TypeScenarioJump:
		var p JumpPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid jump payload: %v", err)
			return
		}
		t, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil {
			log.Printf("Invalid jump timestamp: %v", err)
			return
		}
		h.engine.JumpTo(t)

	case TypeScenarioStep:
		var p StepPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid step payload: %v", err)
			return
		}
		h.engine.StepForward(time.Duration(p.Seconds * float64(time.Second)))

	case TypeScenarioSet:
		var p SetScenarioPayload
		if err := json.Unmarshal(env.Payload, &p); err != nil {
			log.Printf("Invalid scenario payload: %v", err)
			return
		}
		h.engine.SetScenario(scenarioUpdateFromPayload(p))

	default:
		log.Printf("Unknown message type: %s", env.Type)
	}

	h.broadcastScenarioState()
}

func scenarioUpdateFromPayload(p SetScenarioPayload) model.ScenarioUpdate {
	var update model.ScenarioUpdate
	if p.Mode != nil {
		mode := model.ScenarioMode(*p.Mode)
		update.Mode = &mode
	}
	if p.StartTime != nil {
		if t, err := time.Parse(time.RFC3339, *p.StartTime); err == nil {
			update.StartTime = &t
		} else {
			log.Printf("Invalid scenario start time: %v", err)
		}
	}
	update.SpeedMultiplier = p.Speed
	update.Paused = p.Paused
	return update
}

func (h *Handler) broadcastScenarioState() {
	msg, err := NewEnvelope(TypeScenarioState, ScenarioStateFromEngine(h.engine.GetStatus()))
	if err != nil {
		log.Printf("Error marshaling scenario state: %v", err)
		return
	}
	h.hub.Broadcast(msg)
}

func (h *Handler) sendScenarioState(c *Client) {
	msg, err := NewEnvelope(TypeScenarioState, ScenarioStateFromEngine(h.engine.GetStatus()))
	if err != nil {
		return
	}
	select {
	case c.send <- msg:
	default:
	}
}
