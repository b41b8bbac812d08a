package listing

import "github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"

// DrawerState is the observable drawer: Closed, or Open with its subject.
type DrawerState struct {
	Open    bool
	Profile *entity.Profile
}

// Drawer is the two-state detail drawer. Closing keeps the last selection.
type Drawer struct {
	open     bool
	selected *entity.Profile
}

// Show opens the drawer on p, replacing any current subject.
func (d *Drawer) Show(p entity.Profile) {
	d.selected = &p
	d.open = true
}

// Close closes the drawer. It is a no-op when already closed.
func (d *Drawer) Close() {
	d.open = false
}

// IsOpen reports whether the drawer is showing a profile.
func (d *Drawer) IsOpen() bool { return d.open }

// Selected returns the last profile shown, open or not.
func (d *Drawer) Selected() (entity.Profile, bool) {
	if d.selected == nil {
		return entity.Profile{}, false
	}
	return *d.selected, true
}

// State returns a copy of the observable state.
func (d *Drawer) State() DrawerState {
	if !d.open {
		return DrawerState{}
	}
	p := *d.selected
	return DrawerState{Open: true, Profile: &p}
}
