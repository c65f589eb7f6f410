package authz

import (
	"context"
	"sort"
)

// Profile is a role with a set of capabilities.
type Profile interface {
	Name() string
	Has(c Capability) bool
	Capabilities() []Capability
}

// ProfileResolver resolves a key (a role name in production) to its profile.
// A nil profile with a nil error means the key grants nothing.
type ProfileResolver[K comparable] interface {
	Resolve(ctx context.Context, key K) (Profile, error)
}

// StaticProfile is an in-memory profile.
type StaticProfile struct {
	name string
	caps map[Capability]bool
}

// NewStaticProfile creates a profile with the given capabilities.
func NewStaticProfile(name string, caps ...Capability) *StaticProfile {
	p := &StaticProfile{name: name, caps: make(map[Capability]bool, len(caps))}
	for _, c := range caps {
		p.caps[c] = true
	}
	return p
}

func (p *StaticProfile) Name() string { return p.name }

// Capabilities returns the profile's grants in sorted order.
func (p *StaticProfile) Capabilities() []Capability {
	out := make([]Capability, 0, len(p.caps))
	for c := range p.caps {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Has reports whether any grant of the profile matches requested, wildcards included.
func (p *StaticProfile) Has(requested Capability) bool {
	for c := range p.caps {
		if c.Matches(requested) {
			return true
		}
	}
	return false
}

// StaticResolver maps keys to fixed profiles. Not safe for concurrent Set.
type StaticResolver[K comparable] struct {
	profiles map[K]Profile
}

func NewStaticResolver[K comparable]() *StaticResolver[K] {
	return &StaticResolver[K]{profiles: make(map[K]Profile)}
}

// Set assigns a profile to a key.
func (r *StaticResolver[K]) Set(key K, profile Profile) {
	r.profiles[key] = profile
}

func (r *StaticResolver[K]) Resolve(_ context.Context, key K) (Profile, error) {
	if p, ok := r.profiles[key]; ok {
		return p, nil
	}
	return nil, nil
}
