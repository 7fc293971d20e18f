package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcile(t *testing.T) {
	generated := 0
	gen := func() string {
		generated++
		return "generated"
	}

	tests := []struct {
		name          string
		persisted     Optional
		override      Optional
		expectValue   string
		expectChanged bool
		expectGen     bool
	}{
		{"persisted only keeps value", Some("A"), None, "A", false, false},
		{"override replaces persisted", Some("A"), Some("B"), "B", true, false},
		{"override equal to persisted is not a change", Some("A"), Some("A"), "A", false, false},
		{"override with nothing persisted", None, Some("B"), "B", true, false},
		{"neither generates default", None, None, "generated", true, true},
		{"empty persisted value is still persisted", Some(""), None, "", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			generated = 0
			value, changed := Reconcile(tt.persisted, tt.override, gen)
			assert.Equal(t, tt.expectValue, value)
			assert.Equal(t, tt.expectChanged, changed)
			assert.Equal(t, tt.expectGen, generated == 1)
		})
	}
}
