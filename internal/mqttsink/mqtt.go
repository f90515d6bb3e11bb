// Package mqttsink implements SPEC_FULL.md §4.12: an optional point/frame
// sink that republishes each tick's payload to an MQTT broker for a
// remote monitoring dashboard, built with
// github.com/eclipse/paho.mqtt.golang. Grounded on
// _examples/e7canasta-orion-care-sensor/References/orion-prototipe's
// internal/emitter/mqtt.go — same NewClientOptions/SetAutoReconnect/
// OnConnect/OnConnectionLost shape, same JSON-payload Publish call.
package mqttsink

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/zwostein/pointird/internal/types"
)

// Sink publishes frames and points to MQTT topics. It implements
// processor.FrameSink, processor.PointSink, and
// processor.TrackingPointSink structurally (no import of the processor
// package is needed for that).
type Sink struct {
	client      mqtt.Client
	pointsTopic string
	framesTopic string
	qos         byte

	mu        sync.RWMutex
	connected bool
	errors    uint64
}

// Config parameterizes a Sink.
type Config struct {
	Broker      string
	ClientID    string
	PointsTopic string
	FramesTopic string
	QoS         byte
}

// New creates and connects a Sink. It returns once the connection is
// established or the 5 second connect timeout expires.
func New(cfg Config) (*Sink, error) {
	s := &Sink{pointsTopic: cfg.PointsTopic, framesTopic: cfg.FramesTopic, qos: cfg.QoS}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s", cfg.Broker))
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		s.mu.Lock()
		s.connected = true
		s.mu.Unlock()
		slog.Info("mqttsink: connected", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		s.mu.Lock()
		s.connected = false
		s.mu.Unlock()
		slog.Warn("mqttsink: connection lost, will auto-reconnect", "error", err, "broker", cfg.Broker)
	}

	s.client = mqtt.NewClient(opts)
	token := s.client.Connect()
	if !token.WaitTimeout(5 * time.Second) {
		return nil, fmt.Errorf("mqttsink: connect timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqttsink: connect failed: %w", err)
	}

	s.mu.Lock()
	s.connected = true
	s.mu.Unlock()
	return s, nil
}

// Close disconnects from the broker.
func (s *Sink) Close() {
	if s.client != nil && s.client.IsConnected() {
		s.client.Disconnect(250)
	}
}

func (s *Sink) isConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.connected
}

func (s *Sink) publish(topic string, payload any) {
	if !s.isConnected() {
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Warn("mqttsink: marshal failed", "topic", topic, "error", err)
		return
	}
	token := s.client.Publish(topic, s.qos, false, body)
	if !token.WaitTimeout(2 * time.Second) {
		slog.Warn("mqttsink: publish timeout", "topic", topic)
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
		return
	}
	if err := token.Error(); err != nil {
		slog.Warn("mqttsink: publish failed", "topic", topic, "error", err)
		s.mu.Lock()
		s.errors++
		s.mu.Unlock()
	}
}

type framePayload struct {
	Width  int `json:"width"`
	Height int `json:"height"`
	Size   int `json:"size"`
}

// EmitFrame publishes the frame's dimensions to FramesTopic. The raw
// greyscale bytes are not republished over MQTT — the local frame socket
// (spec.md §4.6) is the transport for full-resolution frames; MQTT is
// sized for a dashboard's lightweight telemetry needs.
func (s *Sink) EmitFrame(f *types.Frame) {
	if s.framesTopic == "" {
		return
	}
	s.publish(s.framesTopic, framePayload{Width: f.Width, Height: f.Height, Size: len(f.Data)})
}

type pointJSON struct {
	X  float32 `json:"x"`
	Y  float32 `json:"y"`
	ID int     `json:"id,omitempty"`
}

type pointsPayload struct {
	Count  int         `json:"count"`
	Points []pointJSON `json:"points"`
}

// EmitPoints publishes untracked points (no ID) to PointsTopic.
func (s *Sink) EmitPoints(pa *types.PointArray) {
	s.emitPoints(pa, nil)
}

// EmitTrackedPoints publishes points with their tracker-assigned IDs,
// matching processor.TrackingPointSink.
func (s *Sink) EmitTrackedPoints(pa *types.PointArray, ids []int) {
	s.emitPoints(pa, ids)
}

func (s *Sink) emitPoints(pa *types.PointArray, ids []int) {
	if s.pointsTopic == "" {
		return
	}
	s.publish(s.pointsTopic, buildPointsPayload(pa, ids))
}

func buildPointsPayload(pa *types.PointArray, ids []int) pointsPayload {
	payload := pointsPayload{Count: pa.Len(), Points: make([]pointJSON, pa.Len())}
	for i, p := range pa.Points {
		pj := pointJSON{X: p.X, Y: p.Y}
		if ids != nil && i < len(ids) {
			pj.ID = ids[i]
		}
		payload.Points[i] = pj
	}
	return payload
}
