// Copyright 2025 The placehold authors.
// SPDX-License-Identifier: Apache-2.0

package placehold

import (
	"net/url"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T, names ...string) Registry {
	t.Helper()
	fs := afero.NewMemMapFs()
	for _, n := range names {
		require.NoError(t, afero.WriteFile(fs, n, []byte("x"), 0o644))
	}
	return NewFsRegistry(fs)
}

func TestResolvedKeyString(t *testing.T) {
	k := ResolvedKey{Name: "placeholder.png", Ratio: 35}
	assert.Equal(t, "placeholder.png#r=35", k.String())
}

func TestParseRequest(t *testing.T) {
	registry := newTestRegistry(t, "placeholder.png", "other.png", "logo.jpg", "logo_v2.png")

	tests := []struct {
		name     string
		path     string
		query    string
		want     ResolvedKey
		fallback bool
		wantErr  error
	}{
		{"plain name", "/placeholder.png", "", ResolvedKey{"placeholder.png", 0}, false, nil},
		{"embedded ratio", "/placeholder_20.png", "", ResolvedKey{"placeholder.png", 20}, false, nil},
		{"query ratio", "/placeholder.png", "ratio=35", ResolvedKey{"placeholder.png", 35}, false, nil},
		{"query wins over suffix", "/placeholder_20.png", "ratio=90", ResolvedKey{"placeholder.png", 90}, true, nil},
		{"fallback on other base", "/other_50.png", "ratio=75", ResolvedKey{"other.png", 75}, true, nil},
		{"empty query value defaults", "/placeholder.png", "ratio=", ResolvedKey{"placeholder.png", 0}, false, nil},
		{"jpg extension", "/logo.jpg", "ratio=50", ResolvedKey{"logo.jpg", 50}, false, nil},
		{"literal name with numeric suffix", "/logo_v2.png", "", ResolvedKey{"logo_v2.png", 0}, false, nil},

		{"embedded ratio not accepted", "/placeholder_13.png", "", ResolvedKey{}, false, ErrInvalidRatio},
		{"query ratio not accepted", "/placeholder.png", "ratio=13", ResolvedKey{}, false, ErrInvalidRatio},
		{"negative ratio", "/placeholder.png", "ratio=-5", ResolvedKey{}, false, ErrInvalidRatio},
		{"non numeric ratio", "/placeholder.png", "ratio=abc", ResolvedKey{}, false, ErrInvalidRatio},
		{"leading zero ratio", "/placeholder.png", "ratio=020", ResolvedKey{}, false, ErrInvalidRatio},
		{"signed ratio", "/placeholder.png", "ratio=%2B20", ResolvedKey{}, false, ErrInvalidRatio},

		{"unknown name", "/missing.png", "", ResolvedKey{}, false, ErrUnknownImage},
		{"unknown suffixed name", "/missing_20.png", "", ResolvedKey{}, false, ErrUnknownImage},
		{"unknown name with query", "/missing.png", "ratio=50", ResolvedKey{}, false, ErrUnknownImage},
		{"unknown base after fallback", "/missing_20.png", "ratio=50", ResolvedKey{}, false, ErrUnknownImage},

		{"empty path", "/", "", ResolvedKey{}, false, ErrInvalidRequest},
		{"nested path", "/a/b.png", "", ResolvedKey{}, false, ErrInvalidRequest},
		{"unsupported extension", "/placeholder.txt", "", ResolvedKey{}, false, ErrInvalidRequest},
		{"no extension", "/placeholder", "", ResolvedKey{}, false, ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			require.NoError(t, err)

			key, fallback, err := ParseRequest(tt.path, q, registry, nil, 0)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, key)
			assert.Equal(t, tt.fallback, fallback)
		})
	}
}

func TestParseRequestFallbackLaw(t *testing.T) {
	registry := newTestRegistry(t, "placeholder.png")
	q, _ := url.ParseQuery("ratio=90")

	suffixed, _, err := ParseRequest("/placeholder_20.png", q, registry, nil, 0)
	require.NoError(t, err)
	plain, _, err := ParseRequest("/placeholder.png", q, registry, nil, 0)
	require.NoError(t, err)

	assert.Equal(t, plain, suffixed)
}

func TestParseRequestCustomRatios(t *testing.T) {
	registry := newTestRegistry(t, "placeholder.png")

	key, _, err := ParseRequest("/placeholder_10.png", nil, registry, []int{0, 10}, 0)
	require.NoError(t, err)
	assert.Equal(t, ResolvedKey{"placeholder.png", 10}, key)

	_, _, err = ParseRequest("/placeholder_20.png", nil, registry, []int{0, 10}, 0)
	require.ErrorIs(t, err, ErrInvalidRatio)
}

func TestParseRequestDefaultRatio(t *testing.T) {
	registry := newTestRegistry(t, "placeholder.png")

	key, _, err := ParseRequest("/placeholder.png", nil, registry, nil, 35)
	require.NoError(t, err)
	assert.Equal(t, ResolvedKey{"placeholder.png", 35}, key)

	// naming a ratio, embedded or by query, overrides the default
	key, _, err = ParseRequest("/placeholder_20.png", nil, registry, nil, 35)
	require.NoError(t, err)
	assert.Equal(t, ResolvedKey{"placeholder.png", 20}, key)
}
