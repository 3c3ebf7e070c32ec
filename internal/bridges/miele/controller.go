package miele

import (
	"fmt"
	"math"

	"github.com/nerrad567/hood-bridge/internal/accessory"
	mieleapi "github.com/nerrad567/hood-bridge/internal/miele"
)

// Controller binds one accessory to one hood.
type Controller struct {
	Identity    accessory.Identity
	Name        string
	UniqueID    string
	ModelNumber string
}

func newController(entry *accessory.Entry, modelNumber, uniqueID string) *Controller {
	return &Controller{
		Identity:    entry.Identity,
		Name:        entry.DisplayName,
		UniqueID:    uniqueID,
		ModelNumber: modelNumber,
	}
}

// actionFor translates a command into a cloud action. read_state has no
// action and returns ok=false.
func actionFor(cmd CommandMessage) (action mieleapi.Action, ok bool, err error) {
	switch cmd.Command {
	case CommandOn:
		return mieleapi.PowerOnAction(), true, nil
	case CommandOff:
		return mieleapi.PowerOffAction(), true, nil
	case CommandLightOn:
		return mieleapi.LightAction(true), true, nil
	case CommandLightOff:
		return mieleapi.LightAction(false), true, nil
	case CommandSetFanSpeed:
		speed, err := intParam(cmd.Parameters, "speed")
		if err != nil {
			return mieleapi.Action{}, false, err
		}
		if speed < 0 || speed > mieleapi.MaxVentilationStep {
			return mieleapi.Action{}, false, fmt.Errorf("%w: speed %d out of range 0-%d",
				ErrInvalidParameters, speed, mieleapi.MaxVentilationStep)
		}
		return mieleapi.VentilationAction(speed), true, nil
	case CommandReadState:
		return mieleapi.Action{}, false, nil
	default:
		return mieleapi.Action{}, false, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd.Command)
	}
}

// intParam reads a whole number from JSON-decoded parameters.
func intParam(params map[string]any, key string) (int, error) {
	raw, ok := params[key]
	if !ok {
		return 0, fmt.Errorf("%w: %s is required", ErrInvalidParameters, key)
	}
	f, ok := raw.(float64)
	if !ok || f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s must be a whole number", ErrInvalidParameters, key)
	}
	return int(f), nil
}
