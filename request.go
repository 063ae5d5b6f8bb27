// Copyright 2025 The placehold authors.
// SPDX-License-Identifier: Apache-2.0

package placehold

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// DefaultRatios is the set of blend ratios accepted when a Server does not
// configure its own set.
var DefaultRatios = []int{0, 20, 35, 50, 75, 90}

// Errors reported while resolving a request to an image variant.
var (
	// ErrInvalidRequest reports a malformed request path.
	ErrInvalidRequest = errors.New("invalid request path")

	// ErrInvalidRatio reports a blend ratio outside the accepted set.
	ErrInvalidRatio = errors.New("ratio not in accepted set")

	// ErrUnknownImage reports a base image name that is not registered.
	ErrUnknownImage = errors.New("unknown image")
)

// ResolvedKey identifies a single blended variant of a registered base
// image.  Two requests resolving to the same key return byte-identical
// artifacts.
type ResolvedKey struct {
	Name  string // registered base image name, including extension
	Ratio int    // blend ratio, one of the accepted set
}

// String returns the canonical artifact cache key for k.
func (k ResolvedKey) String() string {
	return fmt.Sprintf("%s#r=%d", k.Name, k.Ratio)
}

// ratioSuffix matches a trailing _<digits> ratio embedded in a file stem.
var ratioSuffix = regexp.MustCompile(`^(.+)_([0-9]+)$`)

// imageExts lists the file extensions accepted in request paths.  Formats
// beyond gif/jpeg/png are decode-only; their variants encode as png.
var imageExts = map[string]bool{
	".bmp":  true,
	".gif":  true,
	".jpeg": true,
	".jpg":  true,
	".png":  true,
	".tiff": true,
	".webp": true,
}

// ParseRequest resolves a request path and query into the key of the image
// variant to serve.  The path has the form "/<name>[_<ratio>].<ext>" and may
// carry a "ratio" query parameter.
//
// An explicit ratio query wins over an embedded suffix: the suffix is
// stripped and the remaining base name is looked up instead of failing, with
// fallback reporting that this happened.  Without a query, an embedded
// suffix naming a registered base supplies the ratio; otherwise the full
// name is looked up at defaultRatio.
//
// ParseRequest is a pure function of its inputs; the registry is only
// consulted for name membership.  Requests naming no ratio at all resolve to
// defaultRatio, which must be a member of the accepted set.
func ParseRequest(rawPath string, query url.Values, registry Registry, ratios []int, defaultRatio int) (key ResolvedKey, fallback bool, err error) {
	if len(ratios) == 0 {
		ratios = DefaultRatios
	}

	name := strings.TrimPrefix(path.Clean("/"+rawPath), "/")
	if name == "" || strings.Contains(name, "/") {
		return ResolvedKey{}, false, fmt.Errorf("%w: %q", ErrInvalidRequest, rawPath)
	}
	ext := strings.ToLower(path.Ext(name))
	if !imageExts[ext] {
		return ResolvedKey{}, false, fmt.Errorf("%w: unsupported extension in %q", ErrInvalidRequest, name)
	}
	stem := strings.TrimSuffix(name, path.Ext(name))
	base, suffix := splitRatioSuffix(stem)

	if v := query.Get("ratio"); v != "" {
		ratio, perr := parseRatio(v, ratios)
		if perr != nil {
			return ResolvedKey{}, false, perr
		}
		resolved := name
		if suffix != "" {
			// explicit query wins; the suffixed path collapses to
			// its base name
			resolved = base + ext
			fallback = true
		}
		if !registry.Contains(resolved) {
			return ResolvedKey{}, false, fmt.Errorf("%w: %q", ErrUnknownImage, resolved)
		}
		return ResolvedKey{Name: resolved, Ratio: ratio}, fallback, nil
	}

	if suffix != "" && registry.Contains(base+ext) {
		ratio, perr := parseRatio(suffix, ratios)
		if perr != nil {
			return ResolvedKey{}, false, perr
		}
		return ResolvedKey{Name: base + ext, Ratio: ratio}, false, nil
	}
	if registry.Contains(name) {
		return ResolvedKey{Name: name, Ratio: defaultRatio}, false, nil
	}
	return ResolvedKey{}, false, fmt.Errorf("%w: %q", ErrUnknownImage, name)
}

// splitRatioSuffix splits a file stem into its base name and embedded ratio
// suffix, if any.
func splitRatioSuffix(stem string) (base, suffix string) {
	m := ratioSuffix.FindStringSubmatch(stem)
	if m == nil {
		return stem, ""
	}
	return m[1], m[2]
}

// parseRatio validates a requested ratio value against the accepted set.
// The value must exactly match an accepted ratio's decimal form; "020" or
// "+20" are rejected even though they parse to an accepted value.
func parseRatio(s string, ratios []int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || strconv.Itoa(n) != s {
		return 0, fmt.Errorf("%w: %q", ErrInvalidRatio, s)
	}
	for _, r := range ratios {
		if n == r {
			return n, nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidRatio, n)
}
