// Package events publishes gate pass lifecycle events for downstream
// consumers such as notification delivery.
package events

import (
	"context"
	"sync"
	"time"

	"github.com/diewo77/gatepass/internal/models"
)

// Event topic constants
const (
	TopicGateOutIssued   = "gatepass.gate_out.issued"
	TopicGateOutVerified = "gatepass.gate_out.verified"
	TopicGateInIssued    = "gatepass.gate_in.issued"
	TopicGateInVerified  = "gatepass.gate_in.verified"

	// TopicAll matches every gate pass topic.
	TopicAll = "gatepass.>"
)

// Kind is the lifecycle step an event reports.
type Kind string

const (
	KindIssued   Kind = "issued"
	KindVerified Kind = "verified"
)

// Topic returns the subject for a lifecycle step in one direction.
func Topic(dir models.Direction, kind Kind) string {
	switch {
	case dir == models.DirectionOut && kind == KindIssued:
		return TopicGateOutIssued
	case dir == models.DirectionOut && kind == KindVerified:
		return TopicGateOutVerified
	case dir == models.DirectionIn && kind == KindIssued:
		return TopicGateInIssued
	case dir == models.DirectionIn && kind == KindVerified:
		return TopicGateInVerified
	}
	return ""
}

// PassEvent is the payload of every gate pass topic. It never carries the secret.
type PassEvent struct {
	PermissionID uint             `json:"permission_id"`
	EmployeeID   uint             `json:"employee_id"`
	Direction    models.Direction `json:"direction"`
	At           time.Time        `json:"at"`
	// Actor is the account that requested (issued) or scanned (verified).
	Actor uint `json:"actor"`
}

// Publisher sends events to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, event any) error
	Close() error
}

// Published is one event captured by a Recorder.
type Published struct {
	Topic string
	Event any
}

// Recorder is a Publisher that keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Published
	// Err, when set, is returned from every Publish after recording.
	Err error
}

func (r *Recorder) Publish(_ context.Context, topic string, event any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Published{Topic: topic, Event: event})
	return r.Err
}

func (r *Recorder) Close() error { return nil }

// Events returns a copy of everything published so far.
func (r *Recorder) Events() []Published {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Published(nil), r.events...)
}

// Topics returns the topics published so far, in order.
func (r *Recorder) Topics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.Topic
	}
	return out
}
