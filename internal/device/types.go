package device

import "fmt"

// Type classifies a field controller. The set is closed; configuration
// values outside it are rejected at load time.
type Type string

const (
	TypeGreenhouse  Type = "greenhouse"
	TypeChickenCoop Type = "chicken_coop"
	TypeBarn        Type = "barn"
	TypeField       Type = "field"
)

// ValidTypes lists every recognised device type.
var ValidTypes = []Type{TypeGreenhouse, TypeChickenCoop, TypeBarn, TypeField}

// IsValid reports whether t is a recognised device type.
func (t Type) IsValid() bool {
	for _, v := range ValidTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Device represents one field controller behind the gateway.
//
// Devices are value types: they are created once when the registry loads
// and never mutated afterwards. The ID doubles as the nginx upstream name
// and the path prefix the reverse proxy routes on (/{id}/), so it must be
// safe in both grammars.
type Device struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Icon        string `json:"icon"`
	Type        Type   `json:"type"`
	Description string `json:"description"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
}

// Addr returns the host:port address of the device's HTTP server.
func (d Device) Addr() string {
	return fmt.Sprintf("%s:%d", d.Host, d.Port)
}

// StatusURL returns the device's status endpoint.
func (d Device) StatusURL() string {
	return fmt.Sprintf("http://%s/api/status", d.Addr())
}
