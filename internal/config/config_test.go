package config

import (
	"testing"
	"time"

	"github.com/draftcore/draftcore/backend-go/internal/viewport"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StorageDriver != "sqlite" || cfg.AutosaveInterval != 30*time.Second {
		t.Errorf("defaults = %+v", cfg)
	}
	opts, err := cfg.EngineOptions()
	if err != nil {
		t.Fatal(err)
	}
	if opts.ViewBox != viewport.DefaultViewBox() || opts.Aspect != viewport.Meet {
		t.Errorf("engine options = %+v", opts)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("VIEWBOX", "-50,-50,200,100")
	t.Setenv("ASPECT_RATIO", "slice")
	t.Setenv("BISECTOR_LENGTH", "42")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	opts, _ := cfg.EngineOptions()
	want := viewport.ViewBox{MinX: -50, MinY: -50, Width: 200, Height: 100}
	if opts.ViewBox != want || opts.Aspect != viewport.Slice || opts.BisectorLength != 42 {
		t.Errorf("engine options = %+v", opts)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"viewbox arity", "VIEWBOX", "0,0,10"},
		{"viewbox size", "VIEWBOX", "0,0,0,10"},
		{"aspect", "ASPECT_RATIO", "stretch"},
		{"driver", "STORAGE_DRIVER", "mysql"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("%s=%s accepted", tt.key, tt.value)
			}
		})
	}
}
