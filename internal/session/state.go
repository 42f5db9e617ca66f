// Package session persists the small amount of state xcf keeps between
// invocations: which project is selected and whether automation is allowed.
package session

import "time"

// Selection identifies a catalog entry by its path. The name is kept only for
// display when the entry can no longer be found.
type Selection struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

// State is the persisted session record.
type State struct {
	Selected          *Selection `json:"selected_project,omitempty"`
	PermissionGranted bool       `json:"permission_granted"`
	GrantedAt         *time.Time `json:"granted_at,omitempty"`
	LastActivated     *time.Time `json:"last_activated,omitempty"`
}

// Default is the state used when nothing has been saved yet.
func Default() State {
	return State{}
}

// HasSelection reports whether a project is selected.
func (s State) HasSelection() bool {
	return s.Selected != nil && s.Selected.Path != ""
}

// Select points the session at a project.
func (s *State) Select(name, path string) {
	s.Selected = &Selection{Name: name, Path: path}
}

// ClearSelection drops the selected project.
func (s *State) ClearSelection() {
	s.Selected = nil
}

// Grant records that automation is permitted.
func (s *State) Grant(now time.Time) {
	s.PermissionGranted = true
	s.GrantedAt = &now
}

// Activate records the time interactive mode was last engaged.
func (s *State) Activate(now time.Time) {
	s.LastActivated = &now
}

// Equal compares two states field by field.
func (s State) Equal(o State) bool {
	if s.PermissionGranted != o.PermissionGranted {
		return false
	}
	if s.HasSelection() != o.HasSelection() {
		return false
	}
	if s.HasSelection() && *s.Selected != *o.Selected {
		return false
	}
	return timeEqual(s.GrantedAt, o.GrantedAt) && timeEqual(s.LastActivated, o.LastActivated)
}

func timeEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
