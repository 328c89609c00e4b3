package types

// Resident is the slice of the external member record this subsystem
// needs to decorate requests and exports.
type Resident struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MemberCode string `json:"member_code"`
}
