package encoder

import (
	"fmt"
	"strings"
)

// Registry holds all known encoders, available or not. A job asking for a
// format whose encoder is missing gets a descriptive error rather than a
// silently substituted format: the requester named the format, and gets
// that format or a failure.
type Registry struct {
	encoders map[string]Encoder
}

// NewRegistry creates a registry over every known encoder.
func NewRegistry() *Registry {
	r := &Registry{
		encoders: make(map[string]Encoder),
	}
	for _, enc := range []Encoder{
		&PNGEncoder{},
		&JPEGEncoder{},
		&WebPEncoder{},
		&AVIFEncoder{},
	} {
		r.encoders[enc.Format()] = enc
	}
	return r
}

// Resolve returns the encoder for the requested format. "jpg" normalizes
// to "jpeg"; unknown and unavailable formats are errors.
func (r *Registry) Resolve(format string) (Encoder, error) {
	f := strings.ToLower(strings.TrimSpace(format))
	if f == "jpg" {
		f = "jpeg"
	}
	enc, ok := r.encoders[f]
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (have: %s)", format, strings.Join(r.Known(), ", "))
	}
	if !enc.Available() {
		return nil, fmt.Errorf("format %q requires an external encoder that is not installed", format)
	}
	return enc, nil
}

// Available returns the names of formats that can actually encode right
// now, in priority order.
func (r *Registry) Available() []string {
	var result []string
	for _, f := range []string{"png", "jpeg", "webp", "avif"} {
		if enc, ok := r.encoders[f]; ok && enc.Available() {
			result = append(result, f)
		}
	}
	return result
}

// Known returns every format name the registry models, installed or not.
func (r *Registry) Known() []string {
	return []string{"png", "jpeg", "webp", "avif"}
}

// String returns a summary of available encoders.
func (r *Registry) String() string {
	avail := r.Available()
	if len(avail) == 0 {
		return "no encoders available"
	}
	return fmt.Sprintf("encoders: %s", strings.Join(avail, ", "))
}
