package gallery

import "fmt"

// State is the gallery session state.
type State int

const (
	// Inactive means no gallery navigation is available.
	Inactive State = iota
	// Active means the session is walking an ordered image sequence.
	Active
)

func (s State) String() string {
	if s == Active {
		return "active"
	}
	return "inactive"
}

// Image is one entry of the ordered image subset of a group.
type Image struct {
	StorageName string
	DisplayName string
}

// ViewUpdate describes the minimal on-screen mutations a transition
// requires: swap the image source and title, refresh the position
// counter and navigation enablement. Nothing else on screen needs to
// be rebuilt, so navigation cost does not grow with document size.
type ViewUpdate struct {
	ImageURL    string
	Title       string
	Counter     string
	PrevEnabled bool
	NextEnabled bool

	// EnableKeys / DisableKeys mark the edges where exactly one
	// keyboard handler must be attached or detached.
	EnableKeys  bool
	DisableKeys bool
}

// Session is the gallery navigation state machine over the image
// subset of the currently viewed group. It holds a read-only, possibly
// stale copy of the sequence; Refresh replaces it whenever the server
// returns a new group snapshot. All transitions are synchronous and
// pure functions of (current state, event).
type Session struct {
	state       State
	groupID     string
	images      []Image
	index       int
	keysEnabled bool
}

// NewSession returns an inactive Session.
func NewSession() *Session {
	return &Session{index: -1}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Index returns the current image index, or -1 when inactive.
func (s *Session) Index() int {
	if s.state != Active {
		return -1
	}
	return s.index
}

// Current returns the currently displayed image.
func (s *Session) Current() (Image, bool) {
	if s.state != Active || s.index < 0 || s.index >= len(s.images) {
		return Image{}, false
	}
	return s.images[s.index], true
}

// Enter starts a session for a group view. Gallery mode activates only
// when the group has two or more images; the index starts at the
// just-opened image, matched by display name, falling back to 0.
func (s *Session) Enter(groupID string, images []Image, currentDisplayName string) ViewUpdate {
	if len(images) < 2 {
		return s.deactivate()
	}

	wasActive := s.state == Active
	s.state = Active
	s.groupID = groupID
	s.images = images
	s.index = indexOf(images, currentDisplayName)

	update := s.viewUpdate()
	if !wasActive && !s.keysEnabled {
		s.keysEnabled = true
		update.EnableKeys = true
	}
	return update
}

// Leave ends the session when the group view closes.
func (s *Session) Leave() ViewUpdate {
	return s.deactivate()
}

// Next advances to the next image. At the last index it is a no-op.
func (s *Session) Next() (ViewUpdate, bool) {
	if s.state != Active || s.index >= len(s.images)-1 {
		return ViewUpdate{}, false
	}
	s.index++
	return s.viewUpdate(), true
}

// Previous steps back to the previous image. At index 0 it is a no-op.
func (s *Session) Previous() (ViewUpdate, bool) {
	if s.state != Active || s.index <= 0 {
		return ViewUpdate{}, false
	}
	s.index--
	return s.viewUpdate(), true
}

// Refresh feeds a new snapshot of the group's image sequence into the
// session after the file list changed. Snapshots for a different group
// are stale responses and are ignored. The index is re-resolved by
// display name; if the displayed image was removed the session falls
// back to index 0, and below two images the session deactivates.
func (s *Session) Refresh(groupID string, images []Image) (ViewUpdate, bool) {
	if s.state != Active || groupID != s.groupID {
		return ViewUpdate{}, false
	}

	if len(images) < 2 {
		return s.deactivate(), true
	}

	current := ""
	if img, ok := s.Current(); ok {
		current = img.DisplayName
	}
	s.images = images
	s.index = indexOf(images, current)
	return s.viewUpdate(), true
}

// KeysEnabled reports whether the keyboard handler should be attached.
func (s *Session) KeysEnabled() bool { return s.keysEnabled }

func (s *Session) deactivate() ViewUpdate {
	var update ViewUpdate
	if s.keysEnabled {
		s.keysEnabled = false
		update.DisableKeys = true
	}
	s.state = Inactive
	s.groupID = ""
	s.images = nil
	s.index = -1
	return update
}

func (s *Session) viewUpdate() ViewUpdate {
	img := s.images[s.index]
	return ViewUpdate{
		ImageURL:    fmt.Sprintf("/api/groups/%s/files/%s", s.groupID, img.StorageName),
		Title:       img.DisplayName,
		Counter:     fmt.Sprintf("%d / %d", s.index+1, len(s.images)),
		PrevEnabled: s.index > 0,
		NextEnabled: s.index < len(s.images)-1,
	}
}

func indexOf(images []Image, displayName string) int {
	for i, img := range images {
		if img.DisplayName == displayName {
			return i
		}
	}
	return 0
}
