package models

// Warning is an arrival notice asking for a parking activation.
type Warning struct {
	VehiclePlate string `json:"veiculo_placa,omitempty"`
	Plate        string `json:"placa,omitempty"`
	RuleID       *int   `json:"regra_valor_tempo_id,omitempty"`
}

// WarningList is the warnings listing envelope.
type WarningList struct {
	Warnings []Warning `json:"avisos"`
}

// ResolvedPlate prefers the vehicle plate field over the generic one.
func (w Warning) ResolvedPlate() string {
	if w.VehiclePlate != "" {
		return w.VehiclePlate
	}
	return w.Plate
}
