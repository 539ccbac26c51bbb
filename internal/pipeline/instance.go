package pipeline

import (
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/smazurov/rpirtspd/internal/params"
)

// Link connects two elements by name.
type Link struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Instance is one live instantiation of a launch description.
type Instance struct {
	description string
	created     time.Time

	elements []*Element
	byName   map[string]*Element
	links    []Link
	roles    map[params.Role]*Element

	closed atomic.Bool
}

func newInstance(description string) *Instance {
	return &Instance{
		description: description,
		created:     time.Now(),
		byName:      make(map[string]*Element),
		roles:       make(map[params.Role]*Element),
	}
}

func (i *Instance) add(el *Element) {
	i.elements = append(i.elements, el)
	i.byName[el.Name()] = el
	if role, ok := params.RoleForStage(el.Name()); ok {
		i.roles[role] = el
	}
}

// FindStage returns the stage playing role, if this topology has one.
func (i *Instance) FindStage(role params.Role) (params.Stage, bool) {
	el, ok := i.roles[role]
	if !ok {
		return nil, false
	}
	return el, true
}

// Roles returns the roles this instance provides, in lookup priority order.
func (i *Instance) Roles() []params.Role {
	var out []params.Role
	for _, r := range params.Roles() {
		if _, ok := i.roles[r]; ok {
			out = append(out, r)
		}
	}
	return out
}

// Element returns an element by name.
func (i *Instance) Element(name string) (*Element, bool) {
	el, ok := i.byName[name]
	return el, ok
}

// Elements returns the elements in description order.
func (i *Instance) Elements() []*Element {
	return slices.Clone(i.elements)
}

// Links returns the links between elements in description order.
func (i *Instance) Links() []Link {
	return slices.Clone(i.links)
}

// Payloaders returns the payN elements ordered by N.
func (i *Instance) Payloaders() []*Element {
	type indexed struct {
		n  int
		el *Element
	}
	var found []indexed
	for _, el := range i.elements {
		rest, ok := strings.CutPrefix(el.Name(), "pay")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(rest); err == nil && n >= 0 {
			found = append(found, indexed{n, el})
		}
	}
	sort.Slice(found, func(a, b int) bool { return found[a].n < found[b].n })

	out := make([]*Element, len(found))
	for k, f := range found {
		out[k] = f.el
	}
	return out
}

// Description returns the launch description the instance was built from.
func (i *Instance) Description() string {
	return i.description
}

// Created returns the construction time.
func (i *Instance) Created() time.Time {
	return i.created
}

// Close marks the instance as torn down.
func (i *Instance) Close() {
	i.closed.Store(true)
}

// Closed reports whether Close was called.
func (i *Instance) Closed() bool {
	return i.closed.Load()
}
