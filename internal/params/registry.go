// Package params holds the closed set of runtime-configurable stage roles and
// the parameter names each role accepts.
package params

import (
	"fmt"
	"slices"
	"strings"
)

// Role identifies the class of an addressable stage inside a pipeline.
type Role int

// Roles in lookup priority order.
const (
	VideoCapture Role = iota
	VideoCaps
	AudioCapture
	AudioQueue
)

// roleOrder is the lookup priority used when resolving a parameter name.
var roleOrder = []Role{VideoCapture, VideoCaps, AudioCapture, AudioQueue}

// String returns the role name used in logs and API responses.
func (r Role) String() string {
	switch r {
	case VideoCapture:
		return "video-capture"
	case VideoCaps:
		return "video-caps"
	case AudioCapture:
		return "audio-capture"
	case AudioQueue:
		return "audio-queue"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// StageName returns the element name a stage of this role carries in every
// pipeline description built by the assembler.
func (r Role) StageName() string {
	switch r {
	case VideoCapture:
		return "videosrc1"
	case VideoCaps:
		return "videocaps1"
	case AudioCapture:
		return "audiosrc1"
	case AudioQueue:
		return "qaudio1"
	default:
		return ""
	}
}

// Roles returns all roles in lookup priority order.
func Roles() []Role {
	return slices.Clone(roleOrder)
}

// RoleForStage returns the role whose stage carries the given element name.
func RoleForStage(name string) (Role, bool) {
	for _, r := range roleOrder {
		if r.StageName() == name {
			return r, true
		}
	}
	return 0, false
}

// Stage is a single live, configurable unit of a pipeline instance.
type Stage interface {
	// SetParameter coerces value to the parameter's native type and applies it.
	SetParameter(key, value string) error
}

// Instance is a handle to a live pipeline instance.
type Instance interface {
	// FindStage returns the stage playing the given role, if the instance
	// topology has one.
	FindStage(role Role) (Stage, bool)
}

// Default whitelists.
var (
	VideoCaptureParams = []string{
		"camera-number", "bitrate", "sensor-mode", "quantisation-parameter", "do-timestamp",
		"rotation", "hflip", "vflip", "roi-x", "roi-y", "roi-w", "roi-h",
		"sharpness", "contrast", "brightness", "saturation", "iso", "inline-headers",
		"shutter-speed", "drc", "vstab", "video-stabilisation", "exposure-mode",
		"exposure-compensation", "metering-mode", "image-effect", "awb-mode",
		"awb-gain-red", "awb-gain-blue", "keyframe-interval", "intra-refresh-type",
		"annotation-mode", "annotation-text", "annotation-text-size",
		"annotation-text-colour", "annotation-text-bg-colour",
	}
	VideoCapsParams    = []string{"caps"}
	AudioCaptureParams = []string{"device"}
	AudioQueueParams   = []string{
		"flush-on-eos", "leaky", "max-size-buffers", "max-size-bytes", "max-size-time",
		"min-threshold-buffers", "min-threshold-bytes", "min-threshold-time", "silent",
	}
)

// Registry is an immutable mapping of role to legal parameter names.
type Registry struct {
	lists map[Role][]string
}

// NewRegistry builds a registry from the given whitelists. A parameter name
// listed under more than one role is rejected.
func NewRegistry(lists map[Role][]string) (*Registry, error) {
	r := &Registry{lists: make(map[Role][]string, len(lists))}
	owners := make(map[string]Role)

	var overlaps []string
	for _, role := range roleOrder {
		names, ok := lists[role]
		if !ok {
			continue
		}
		r.lists[role] = slices.Clone(names)
		for _, name := range names {
			if owner, dup := owners[name]; dup && owner != role {
				overlaps = append(overlaps, fmt.Sprintf("%s (%s, %s)", name, owner, role))
				continue
			}
			owners[name] = role
		}
	}

	for role := range lists {
		if !slices.Contains(roleOrder, role) {
			return nil, fmt.Errorf("unknown role %s", role)
		}
	}

	if len(overlaps) > 0 {
		return nil, fmt.Errorf("parameter whitelists overlap: %s", strings.Join(overlaps, ", "))
	}
	return r, nil
}

// DefaultRegistry returns the registry for the stock stage roles.
func DefaultRegistry() *Registry {
	r, err := NewRegistry(map[Role][]string{
		VideoCapture: VideoCaptureParams,
		VideoCaps:    VideoCapsParams,
		AudioCapture: AudioCaptureParams,
		AudioQueue:   AudioQueueParams,
	})
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the role owning a parameter name. Matching is exact and
// case-sensitive; roles are searched in priority order.
func (r *Registry) Lookup(key string) (Role, bool) {
	for _, role := range roleOrder {
		if slices.Contains(r.lists[role], key) {
			return role, true
		}
	}
	return 0, false
}

// Whitelist returns a copy of the parameter names legal for a role.
func (r *Registry) Whitelist(role Role) []string {
	return slices.Clone(r.lists[role])
}
