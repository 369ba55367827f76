package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewRunConfig_FieldEquivalence(t *testing.T) {
	got := NewRunConfig(50, 0.01, 1e-4, 1e-8, 1000, 1e-9, 1e-3)
	want := RunConfig{
		Horizon:    50,
		FirstStep:  0.01,
		RelTol:     1e-4,
		AbsTol:     1e-8,
		MaxSteps:   1000,
		MinStep:    1e-9,
		Prevalence: 1e-3,
	}
	assert.Equal(t, want, got)
}

func TestDefaultRunConfig(t *testing.T) {
	cfg := DefaultRunConfig()
	assert.Equal(t, 100.0, cfg.Horizon)
	assert.Equal(t, 0.001, cfg.FirstStep)
	assert.Equal(t, 1e-3, cfg.RelTol)
	assert.Equal(t, 1e-6, cfg.AbsTol)
	assert.Equal(t, 1e-5, cfg.Prevalence)
	assert.NoError(t, cfg.Validate())
}

func TestRunConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*RunConfig)
	}{
		{"zero horizon", func(c *RunConfig) { c.Horizon = 0 }},
		{"infinite horizon", func(c *RunConfig) { c.Horizon = math.Inf(1) }},
		{"negative first step", func(c *RunConfig) { c.FirstStep = -1 }},
		{"zero relative tolerance", func(c *RunConfig) { c.RelTol = 0 }},
		{"NaN absolute tolerance", func(c *RunConfig) { c.AbsTol = math.NaN() }},
		{"negative max steps", func(c *RunConfig) { c.MaxSteps = -1 }},
		{"negative min step", func(c *RunConfig) { c.MinStep = -1 }},
		{"negative prevalence", func(c *RunConfig) { c.Prevalence = -0.1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultRunConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
