package listing

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-profile-admin/internal/profile/entity"
)

// Lister is the read side of the remote directory.
type Lister interface {
	ListProfiles(ctx context.Context) ([]entity.Profile, error)
}

// BeginFetch marks the single fetch of this view as in flight. It returns
// false when a fetch was already started.
func (v *View) BeginFetch() bool {
	if v.phase != phaseIdle {
		return false
	}
	v.phase = phaseLoading
	return true
}

// CompleteFetch records the fetch result. On success the snapshot is stored,
// possibly empty; on failure only the error message is kept. Results that
// arrive without an outstanding fetch are dropped.
func (v *View) CompleteFetch(profiles []entity.Profile, err error) {
	if v.phase != phaseLoading {
		return
	}
	if err != nil {
		v.phase = phaseFailed
		v.errMsg = err.Error()
		v.snapshot = nil
		return
	}
	v.snapshot = append(make([]entity.Profile, 0, len(profiles)), profiles...)
	v.errMsg = ""
	v.phase = phaseReady
	v.recompute()
}

// Load runs the fetch synchronously against l. It returns the fetch error,
// which is also reflected in ErrorMessage.
func (v *View) Load(ctx context.Context, l Lister) error {
	if !v.BeginFetch() {
		return nil
	}
	profiles, err := l.ListProfiles(ctx)
	v.CompleteFetch(profiles, err)
	return err
}
