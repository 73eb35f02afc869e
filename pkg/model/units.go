package model

// Units are kept as plain float64 fields with a documented unit per
// field (spec §3 "Units") rather than as distinct wrapper types: the
// teacher's device parameters (Diode.Is, Resistor.Value, ...) follow the
// same plain-float-with-doc-comment convention, and wrapping every
// scalar in a named type would not add safety here since every
// conversion is a simple scale, not a type the compiler can check
// structurally.

// PerUnit converts a megawatt/megavar quantity to per-unit on baseMVA.
func PerUnit(physical, baseMVA float64) float64 {
	if baseMVA == 0 {
		return 0
	}
	return physical / baseMVA
}

// Physical converts a per-unit quantity back to megawatts/megavars on
// baseMVA.
func Physical(pu, baseMVA float64) float64 {
	return pu * baseMVA
}

// DegToRad converts degrees to radians, used at the boundary of any
// caller-facing angle (phase shift, AC source phase) expressed in
// degrees.
func DegToRad(deg float64) float64 {
	return deg * 3.141592653589793 / 180.0
}

// RadToDeg converts radians to degrees.
func RadToDeg(rad float64) float64 {
	return rad * 180.0 / 3.141592653589793
}
