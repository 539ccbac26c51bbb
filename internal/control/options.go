package control

import (
	"errors"
	"slices"

	"github.com/smazurov/rpirtspd/internal/params"
)

// StoredOption is a parameter value kept for replay onto new instances.
type StoredOption struct {
	Key   string `json:"key" example:"bitrate" doc:"Parameter name"`
	Value string `json:"value" example:"500000" doc:"Last applied raw value"`
}

// OptionStore remembers the last value applied to each parameter name,
// process-wide and shared across streams. A disabled store ignores every
// call. It is not safe for concurrent use; the Controller serializes access.
type OptionStore struct {
	enabled bool
	keys    []string // last-write order
	values  map[string]string
}

// NewOptionStore creates a store. When enabled is false all operations are
// no-ops.
func NewOptionStore(enabled bool) *OptionStore {
	return &OptionStore{
		enabled: enabled,
		values:  make(map[string]string),
	}
}

// Enabled reports whether options are persisted.
func (s *OptionStore) Enabled() bool {
	return s != nil && s.enabled
}

// Record inserts or overwrites key. An overwritten key moves to the end of
// the replay order.
func (s *OptionStore) Record(key, value string) {
	if !s.Enabled() {
		return
	}
	if _, exists := s.values[key]; exists {
		s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == key })
	}
	s.keys = append(s.keys, key)
	s.values[key] = value
}

// Clear removes all stored options and returns how many there were.
func (s *OptionStore) Clear() int {
	if !s.Enabled() {
		return 0
	}
	n := len(s.keys)
	s.keys = nil
	clear(s.values)
	return n
}

// Len returns the number of stored options.
func (s *OptionStore) Len() int {
	if !s.Enabled() {
		return 0
	}
	return len(s.keys)
}

// Get returns the stored value for key.
func (s *OptionStore) Get(key string) (string, bool) {
	if !s.Enabled() {
		return "", false
	}
	v, ok := s.values[key]
	return v, ok
}

// Options returns the stored options in replay order.
func (s *OptionStore) Options() []StoredOption {
	if !s.Enabled() {
		return nil
	}
	out := make([]StoredOption, len(s.keys))
	for i, k := range s.keys {
		out[i] = StoredOption{Key: k, Value: s.values[k]}
	}
	return out
}

// ReplayOnto applies every stored option to inst through r. Options whose
// stage is absent from this topology are skipped; no failure stops the
// replay.
func (s *OptionStore) ReplayOnto(stream string, inst params.Instance, r *Resolver) []Result {
	if !s.Enabled() {
		return nil
	}

	results := make([]Result, 0, len(s.keys))
	for _, opt := range s.Options() {
		res := Result{
			Kind:  SetParam,
			Token: opt.Key + "=" + opt.Value,
			Key:   opt.Key,
			Value: opt.Value,
		}
		role, err := r.Role(opt.Key)
		if err == nil {
			res.Role = role.String()
			err = r.Apply(stream, inst, role, opt.Key, opt.Value)
		}
		res.Stream = stream
		res.Err = err
		res.Applied = err == nil
		results = append(results, res)
	}
	return results
}

// skippable reports whether a replay failure is an expected topology gap.
func skippable(err error) bool {
	return errors.Is(err, ErrStageNotFound)
}
