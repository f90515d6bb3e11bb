// Package control implements spec.md §4.9's controller registry and
// SPEC_FULL.md §4.11's HookController: the external control surfaces the
// Processor can be paired with. Grounded in shape (start/stop a
// background dispatcher, invoke callbacks into the pipeline) on
// _examples/e7canasta-orion-care-sensor/References/orion-prototipe's
// internal/control/handler.go, minus its MQTT transport — no control
// transport is specified for PointIR, only the two synchronous shell
// hooks named in spec.md §6.
package control

import (
	"context"
	"log/slog"
	"os/exec"
	"time"
)

// hookTimeout bounds how long a calibration hook may run before it's
// killed; a hung hook would otherwise stall the paused pipeline
// indefinitely.
const hookTimeout = 5 * time.Second

// Controller is the closed capability set spec.md §4.9 names for the
// "controller" registry: something started and stopped alongside the
// Processor. Most controllers additionally implement
// processor.CalibrationListener to react to calibration events; that is
// a separate, optional interface so packages that only need one of the
// two never have to import the other.
type Controller interface {
	Start() error
	Stop() error
}

// Noop is a Controller that does nothing, used by tests and registered
// under "none" in the controller registry.
type Noop struct{}

func (Noop) Start() error { return nil }
func (Noop) Stop() error  { return nil }

// HookController runs the two shell commands named in spec.md §6
// synchronously, with the pipeline paused, around a calibration attempt.
// The end hook receives a single argument, "1" or "0".
//
// Start/Stop are no-ops: unlike a polling controller, HookController has
// no background dispatcher of its own — it only reacts to calibration
// events it's registered for via Processor.AddCalibrationListener.
type HookController struct {
	BeginCommand string
	EndCommand   string
}

// NewHookController returns a HookController for the given commands.
// Either may be empty, in which case that hook is skipped.
func NewHookController(beginCommand, endCommand string) *HookController {
	return &HookController{BeginCommand: beginCommand, EndCommand: endCommand}
}

func (h *HookController) Start() error { return nil }
func (h *HookController) Stop() error  { return nil }

// CalibrationBegin runs BeginCommand, if configured.
func (h *HookController) CalibrationBegin() {
	if h.BeginCommand == "" {
		return
	}
	runHook(h.BeginCommand)
}

// CalibrationEnd runs EndCommand with "1" or "0", if configured.
func (h *HookController) CalibrationEnd(success bool) {
	if h.EndCommand == "" {
		return
	}
	arg := "0"
	if success {
		arg = "1"
	}
	runHook(h.EndCommand, arg)
}

func runHook(command string, args ...string) {
	ctx, cancel := context.WithTimeout(context.Background(), hookTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, command, args...)
	if out, err := cmd.CombinedOutput(); err != nil {
		slog.Warn("control: calibration hook failed", "command", command, "error", err, "output", string(out))
	}
}
