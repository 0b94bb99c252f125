package device

import (
	"errors"
	"testing"

	"github.com/farmhub/farmhub-core/internal/infrastructure/config"
)

func testConfigs() []config.DeviceConfig {
	return []config.DeviceConfig{
		{ID: "greenhouse", Name: "Greenhouse", Icon: "🌱", Type: "greenhouse",
			Description: "Main greenhouse", Host: "192.0.2.10", Port: 80},
		{ID: "coop1", Name: "Coop Alpha", Icon: "🐔", Type: "chicken_coop",
			Description: "Layer hens", Host: "192.0.2.11", Port: 80},
		{ID: "coop2", Name: "Coop Beta", Icon: "🐓", Type: "chicken_coop",
			Description: "Broilers", Host: "192.0.2.12", Port: 8080},
	}
}

func TestNewRegistry_Valid(t *testing.T) {
	r, err := NewRegistry(testConfigs())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	if r.Count() != 3 {
		t.Errorf("Count() = %d, want 3", r.Count())
	}

	d, err := r.Get("coop2")
	if err != nil {
		t.Fatalf("Get(coop2) error = %v", err)
	}
	if d.Addr() != "192.0.2.12:8080" {
		t.Errorf("Addr() = %q, want %q", d.Addr(), "192.0.2.12:8080")
	}
	if d.StatusURL() != "http://192.0.2.12:8080/api/status" {
		t.Errorf("StatusURL() = %q", d.StatusURL())
	}
}

func TestNewRegistry_PreservesOrder(t *testing.T) {
	r, err := NewRegistry(testConfigs())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	want := []string{"greenhouse", "coop1", "coop2"}
	got := r.IDs()
	if len(got) != len(want) {
		t.Fatalf("IDs() length = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("IDs()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNewRegistry_Empty(t *testing.T) {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry(nil) error = %v", err)
	}
	if r.Count() != 0 {
		t.Errorf("Count() = %d, want 0", r.Count())
	}
	if len(r.Devices()) != 0 {
		t.Errorf("Devices() not empty for empty registry")
	}
}

func TestNewRegistry_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.DeviceConfig
		wantErr error
	}{
		{
			name:    "empty id",
			cfg:     config.DeviceConfig{Type: "greenhouse", Host: "10.0.0.1", Port: 80},
			wantErr: ErrInvalidID,
		},
		{
			name:    "id with slash",
			cfg:     config.DeviceConfig{ID: "coop/1", Type: "chicken_coop", Host: "10.0.0.1", Port: 80},
			wantErr: ErrInvalidID,
		},
		{
			name:    "id with uppercase",
			cfg:     config.DeviceConfig{ID: "Coop1", Type: "chicken_coop", Host: "10.0.0.1", Port: 80},
			wantErr: ErrInvalidID,
		},
		{
			name:    "unknown type",
			cfg:     config.DeviceConfig{ID: "silo", Type: "silo", Host: "10.0.0.1", Port: 80},
			wantErr: ErrInvalidType,
		},
		{
			name:    "empty host",
			cfg:     config.DeviceConfig{ID: "coop1", Type: "chicken_coop", Port: 80},
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "port out of range",
			cfg:     config.DeviceConfig{ID: "coop1", Type: "chicken_coop", Host: "10.0.0.1", Port: 70000},
			wantErr: ErrInvalidAddress,
		},
		{
			name:    "zero port",
			cfg:     config.DeviceConfig{ID: "coop1", Type: "chicken_coop", Host: "10.0.0.1"},
			wantErr: ErrInvalidAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry([]config.DeviceConfig{tt.cfg})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("NewRegistry() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewRegistry_DuplicateID(t *testing.T) {
	cfgs := []config.DeviceConfig{
		{ID: "coop1", Type: "chicken_coop", Host: "10.0.0.1", Port: 80},
		{ID: "coop1", Type: "chicken_coop", Host: "10.0.0.2", Port: 80},
	}
	_, err := NewRegistry(cfgs)
	if !errors.Is(err, ErrDuplicateID) {
		t.Errorf("NewRegistry() error = %v, want ErrDuplicateID", err)
	}
}

func TestRegistry_GetNotFound(t *testing.T) {
	r, err := NewRegistry(testConfigs())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	_, err = r.Get("windmill")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(windmill) error = %v, want ErrNotFound", err)
	}
}

func TestRegistry_DevicesReturnsCopy(t *testing.T) {
	r, err := NewRegistry(testConfigs())
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	devices := r.Devices()
	devices[0].ID = "mutated"

	d, err := r.Get("greenhouse")
	if err != nil || d.ID != "greenhouse" {
		t.Errorf("registry mutated through Devices() slice")
	}
}

func TestType_IsValid(t *testing.T) {
	for _, v := range ValidTypes {
		if !v.IsValid() {
			t.Errorf("Type(%q).IsValid() = false, want true", v)
		}
	}
	if Type("tractor").IsValid() {
		t.Error(`Type("tractor").IsValid() = true, want false`)
	}
}
