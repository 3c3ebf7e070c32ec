package miele

// TypeCodeHood is the ident.type.value_raw of a cooker hood.
const TypeCodeHood = 18

// DeviceRecord is one value of the device directory, decoded into the
// fields the bridge uses. Pointers distinguish absent fields from empty ones.
type DeviceRecord struct {
	// Handle is the directory key the record was listed under.
	Handle string `json:"-"`

	Ident Ident `json:"ident"`

	// SchemaErr is set when the value was valid JSON but did not fit this
	// type (for example a string where an object was expected).
	SchemaErr error `json:"-"`
}

// Ident is the identification block of a device.
type Ident struct {
	Type             *LocalizedValue `json:"type"`
	DeviceName       *string         `json:"deviceName"`
	DeviceIdentLabel *IdentLabel     `json:"deviceIdentLabel"`
}

// LocalizedValue is the API's {value_raw, value_localized} pair.
type LocalizedValue struct {
	ValueRaw       *int   `json:"value_raw"`
	ValueLocalized string `json:"value_localized"`
}

// Raw returns ValueRaw, or -1 when absent.
func (v *LocalizedValue) Raw() int {
	if v == nil || v.ValueRaw == nil {
		return -1
	}
	return *v.ValueRaw
}

// IdentLabel carries the serial (fabNumber) and model (techType).
type IdentLabel struct {
	FabNumber *string `json:"fabNumber"`
	TechType  *string `json:"techType"`
}

// HoodDevice is a classified hood: the bridge's view of one appliance.
// UniqueID is the serial number and never empty.
type HoodDevice struct {
	UniqueID    string `json:"uniqueId"`
	DisplayName string `json:"displayName"`
	ModelNumber string `json:"modelNumber"`
}

// Device status codes (state.status.value_raw) the bridge interprets.
const (
	StatusOff          = 1
	StatusOn           = 2
	StatusNotConnected = 255
)

// Light values in state.light and the light action.
const (
	LightNotSupported = 0
	LightOn           = 1
	LightOff          = 2
)

// MaxVentilationStep is the highest fan level a hood accepts.
const MaxVentilationStep = 4

// DeviceState is the subset of GET /devices/{id}/state the bridge reads.
type DeviceState struct {
	Status          LocalizedValue `json:"status"`
	VentilationStep LocalizedValue `json:"ventilationStep"`
	Light           int            `json:"light"`
}

// PoweredOn reports whether the hood is running.
func (s DeviceState) PoweredOn() bool {
	switch s.Status.Raw() {
	case StatusOff, StatusNotConnected, -1:
		return false
	default:
		return true
	}
}

// LightOn reports whether the hood light is lit.
func (s DeviceState) LightOn() bool {
	return s.Light == LightOn
}

// FanSpeed returns the ventilation step, 0 when unknown.
func (s DeviceState) FanSpeed() int {
	if n := s.VentilationStep.Raw(); n > 0 {
		return n
	}
	return 0
}

// Action is the body of PUT /devices/{id}/actions. Set exactly the fields
// to change; use the constructors below.
type Action struct {
	PowerOn         bool `json:"powerOn,omitempty"`
	PowerOff        bool `json:"powerOff,omitempty"`
	Light           int  `json:"light,omitempty"`
	VentilationStep *int `json:"ventilationStep,omitempty"`
}

// IsZero reports whether the action would change nothing.
func (a Action) IsZero() bool {
	return !a.PowerOn && !a.PowerOff && a.Light == 0 && a.VentilationStep == nil
}

// PowerOnAction switches the hood on.
func PowerOnAction() Action { return Action{PowerOn: true} }

// PowerOffAction switches the hood off.
func PowerOffAction() Action { return Action{PowerOff: true} }

// LightAction switches the hood light.
func LightAction(on bool) Action {
	if on {
		return Action{Light: LightOn}
	}
	return Action{Light: LightOff}
}

// VentilationAction sets the fan level (0 to MaxVentilationStep).
func VentilationAction(step int) Action {
	return Action{VentilationStep: &step}
}
