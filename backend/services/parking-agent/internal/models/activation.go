package models

// Address optionally pins an activation to a street address.
type Address struct {
	Street   string
	Number   string
	District string
}

// ActivationRequest describes a parking activation.
type ActivationRequest struct {
	Plate                string
	Latitude             float64
	Longitude            float64
	RuleID               int
	VehicleTypeID        int
	Extend               bool
	PreviousActivationID int64
	Address              *Address
}

// RuleTable maps a vehicle type id to its default pricing rule.
type RuleTable map[int]int

// Resolve returns the explicit rule when set and positive, else the type default.
func (t RuleTable) Resolve(explicit *int, vehicleTypeID int) (int, bool) {
	if explicit != nil && *explicit > 0 {
		return *explicit, true
	}
	rule, ok := t[vehicleTypeID]
	if !ok || rule <= 0 {
		return 0, false
	}
	return rule, true
}
