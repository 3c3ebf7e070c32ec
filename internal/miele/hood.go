package miele

import (
	"strings"
)

// Field paths reported by MalformedRecordError.
const (
	FieldTypeCode   = "ident.type.value_raw"
	FieldFabNumber  = "ident.deviceIdentLabel.fabNumber"
	FieldTechType   = "ident.deviceIdentLabel.techType"
	FieldDeviceName = "ident.deviceName"
)

// ClassifyHood applies the appliance filter to one record.
//
// DisplayName is the cloud deviceName when it is non-empty. An empty name
// is replaced by the localized type name and serial, so the stored display
// name may differ from what the Miele app shows.
//
// Returns:
//   - (hood, true, nil) for a usable type-18 record
//   - (zero, false, nil) for any other appliance type
//   - (zero, false, *MalformedRecordError) when the record cannot be
//     classified or a hood record lacks a required field
func ClassifyHood(rec DeviceRecord) (HoodDevice, bool, error) {
	if rec.SchemaErr != nil {
		return HoodDevice{}, false, &MalformedRecordError{Handle: rec.Handle, Err: rec.SchemaErr}
	}

	ident := rec.Ident
	if ident.Type == nil || ident.Type.ValueRaw == nil {
		return HoodDevice{}, false, &MalformedRecordError{Handle: rec.Handle, Field: FieldTypeCode}
	}
	if *ident.Type.ValueRaw != TypeCodeHood {
		return HoodDevice{}, false, nil
	}

	label := ident.DeviceIdentLabel
	if label == nil || label.FabNumber == nil || strings.TrimSpace(*label.FabNumber) == "" {
		return HoodDevice{}, false, &MalformedRecordError{Handle: rec.Handle, Field: FieldFabNumber}
	}
	if label.TechType == nil {
		return HoodDevice{}, false, &MalformedRecordError{Handle: rec.Handle, Field: FieldTechType}
	}
	if ident.DeviceName == nil {
		return HoodDevice{}, false, &MalformedRecordError{Handle: rec.Handle, Field: FieldDeviceName}
	}

	hood := HoodDevice{
		UniqueID:    *label.FabNumber,
		DisplayName: *ident.DeviceName,
		ModelNumber: *label.TechType,
	}
	if strings.TrimSpace(hood.DisplayName) == "" {
		hood.DisplayName = fallbackName(ident.Type.ValueLocalized, hood.UniqueID)
	}
	return hood, true, nil
}

// fallbackName names a hood the user never named in the Miele app.
func fallbackName(localizedType, serial string) string {
	kind := strings.TrimSpace(localizedType)
	if kind == "" {
		kind = "Hood"
	}
	return kind + " " + serial
}

// FilterHoods classifies every record, returning the hoods in directory
// order and one error per malformed record.
func FilterHoods(records []DeviceRecord) ([]HoodDevice, []error) {
	var (
		hoods     []HoodDevice
		malformed []error
	)
	for _, rec := range records {
		hood, ok, err := ClassifyHood(rec)
		if err != nil {
			malformed = append(malformed, err)
			continue
		}
		if ok {
			hoods = append(hoods, hood)
		}
	}
	return hoods, malformed
}
