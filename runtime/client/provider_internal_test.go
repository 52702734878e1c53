package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderCheck(t *testing.T) {
	tests := []struct {
		provider string
		version  string
		warnings int
	}{
		{"sqlite", "3.31.1", 1},
		{"sqlite3", "3.45.1", 0},
		{"mysql", "5.7.44-log", 1},
		{"mysql", "8.0.36-0ubuntu0.22.04.1", 0},
		{"mariadb", "10.11.6-MariaDB", 0},
		{"postgres", "9.6", 0},
	}
	for _, tt := range tests {
		t.Run(tt.provider+"@"+tt.version, func(t *testing.T) {
			p, err := LookupProvider(tt.provider)
			require.NoError(t, err)
			v, err := ParseServerVersion(tt.version)
			require.NoError(t, err)
			assert.Len(t, p.check(v), tt.warnings)
		})
	}
}
