// Package units defines the closed set of measurement units a user can
// assert for the scale annotations in a photo.
package units

import (
	"fmt"
	"strings"
)

// Unit is the unit the user selected. The zero value is Unset.
type Unit int

const (
	// Unset means no unit has been chosen yet.
	Unset Unit = iota
	// Centimeters is sent as "cm".
	Centimeters
	// Inches is sent as "inches".
	Inches
	// Meters is sent as "meters".
	Meters
	// Custom lets the server interpret the annotations without a fixed scale.
	Custom
)

// All lists the selectable units in display order.
var All = []Unit{Centimeters, Inches, Meters, Custom}

var wireValues = map[Unit]string{
	Centimeters: "cm",
	Inches:      "inches",
	Meters:      "meters",
	Custom:      "custom",
}

// aliases accepted by Parse in addition to the wire values.
var aliases = map[string]Unit{
	"centimeters": Centimeters,
	"centimetres": Centimeters,
	"in":          Inches,
	"inch":        Inches,
	"m":           Meters,
	"metres":      Meters,
	"meter":       Meters,
}

// Parse resolves a user-entered or wire value into a Unit.
func Parse(s string) (Unit, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for u, w := range wireValues {
		if s == w {
			return u, nil
		}
	}
	if u, ok := aliases[s]; ok {
		return u, nil
	}
	return Unset, fmt.Errorf("unknown unit %q (expected one of %s)", s, strings.Join(Names(), ", "))
}

// Names returns the wire values of All.
func Names() []string {
	names := make([]string, 0, len(All))
	for _, u := range All {
		names = append(names, u.String())
	}
	return names
}

// IsSet reports whether u is one of the selectable units.
func (u Unit) IsSet() bool {
	_, ok := wireValues[u]
	return ok
}

// String returns the value sent in the "unit" form part, or "" for Unset.
func (u Unit) String() string {
	return wireValues[u]
}
