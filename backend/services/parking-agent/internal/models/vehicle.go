package models

// Vehicle is a car registered to the account.
type Vehicle struct {
	Plate       string      `json:"placa"`
	VehicleType VehicleType `json:"tipo_veiculo"`
}

// VehicleType identifies the pricing class of a vehicle.
type VehicleType struct {
	ID int `json:"id"`
}

// TypeID returns the vehicle type id.
func (v Vehicle) TypeID() int {
	return v.VehicleType.ID
}

// Plates returns the plates of the given vehicles, in order.
func Plates(vehicles []Vehicle) []string {
	plates := make([]string, 0, len(vehicles))
	for _, v := range vehicles {
		plates = append(plates, v.Plate)
	}
	return plates
}
