package overlay

import (
	"fmt"
	"hash/fnv"
	"io"
	"strconv"
	"time"
)

// Theme represents the visual intent of an overlay item.
type Theme string

const (
	ThemeNote    Theme = "note"
	ThemeSuccess Theme = "success"
	ThemeWarning Theme = "warning"
	ThemeDanger  Theme = "danger"
)

// Action is a call-to-action attached to a notification. The renderer decides
// what clicking it does; the engine only carries it through.
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// DismissReason explains why a notification is being removed. It drives the
// archival semantics for persistent notifications.
type DismissReason string

const (
	// ReasonClose means the user dismissed the notification explicitly.
	ReasonClose DismissReason = "close"
	// ReasonTimeout means the auto-dismiss timer elapsed.
	ReasonTimeout DismissReason = "timeout"
	// ReasonAction means the user clicked a non-dismiss action. For
	// persistent notifications this fully suppresses the id.
	ReasonAction DismissReason = "action"
	// ReasonAPI means programmatic removal (owner teardown, Dismiss calls).
	// It never archives and never suppresses.
	ReasonAPI DismissReason = "api"
)

// Mode selects where a Notify call routes its payload.
type Mode string

const (
	// ModeOverlay shows the notification on the overlay. Default.
	ModeOverlay Mode = "overlay"
	// ModeStored writes straight into the persistent archive without
	// showing anything.
	ModeStored Mode = "stored"
)

// Options describes a notification request.
//
// Duration semantics: nil means the store default; a non-positive value
// disables auto-dismiss entirely.
type Options struct {
	// ID is the caller-supplied logical key. Calls reusing an ID upsert the
	// visible notification instead of stacking a duplicate. Required in
	// practice for Persistent notifications; without it identity degrades
	// to the generated internal id and every occurrence archives anew.
	ID          string
	Mode        Mode
	Theme       Theme
	Title       string
	Description string
	Icon        string
	Actions     []Action
	// Dismissible defaults to true when nil.
	Dismissible *bool
	Duration    *time.Duration
	// Persistent marks the notification for archival once it leaves the
	// overlay via timeout or close.
	Persistent bool
}

// ToastOptions describes a toast request. Duration semantics match Options.
type ToastOptions struct {
	ID          string
	Theme       Theme
	Title       string
	Description string
	Duration    *time.Duration
}

// Toast is a short transient status message.
type Toast struct {
	InternalID  string         `json:"internalId"`
	ID          string         `json:"id,omitempty"`
	DedupeKey   string         `json:"dedupeKey"`
	Theme       Theme          `json:"theme,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Duration    *time.Duration `json:"duration,omitempty"`
	Progress    bool           `json:"isProgress"`
	CreatedAt   time.Time      `json:"createdAt"`
	Exiting     bool           `json:"isExiting,omitempty"`
}

// Notification is a richer, action-bearing overlay message.
type Notification struct {
	InternalID  string         `json:"internalId"`
	ID          string         `json:"id,omitempty"`
	Theme       Theme          `json:"theme,omitempty"`
	Title       string         `json:"title,omitempty"`
	Description string         `json:"description,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	Actions     []Action       `json:"actions,omitempty"`
	Dismissible bool           `json:"isDismissible"`
	Duration    *time.Duration `json:"duration,omitempty"`
	Persistent  bool           `json:"persistent,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
	Exiting     bool           `json:"isExiting,omitempty"`
	OwnerID     string         `json:"ownerId,omitempty"`
}

// ArchivedItem is a notification snapshot that survives past its overlay
// lifetime in the in-memory archive.
type ArchivedItem struct {
	ID          string    `json:"id"`
	Theme       Theme     `json:"theme,omitempty"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	Actions     []Action  `json:"actions,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Read        bool      `json:"isRead"`
	OwnerID     string    `json:"ownerId,omitempty"`
}

// Snapshot is the renderer-facing view of the current overlay state.
type Snapshot struct {
	Toasts        []Toast        `json:"toasts"`
	Notifications []Notification `json:"notifications"`
}

// ArchiveCounts summarizes the persistent archive.
type ArchiveCounts struct {
	Total  int `json:"total"`
	Unread int `json:"unread"`
}

// Handle references a created item. Dismiss on a handle whose item already
// expired, or that came from a torn-down owner scope, is a silent no-op.
type Handle struct {
	ID      string
	dismiss func()
}

// Dismiss removes the referenced item.
func (h Handle) Dismiss() {
	if h.dismiss != nil {
		h.dismiss()
	}
}

// ToastPatch is a partial toast update. Nil fields are left untouched.
type ToastPatch struct {
	Theme       *Theme
	Title       *string
	Description *string
}

// NotificationPatch is a partial notification update. Nil fields are left
// untouched; a non-nil Actions slice replaces the previous one.
type NotificationPatch struct {
	Theme       *Theme
	Title       *string
	Description *string
	Icon        *string
	Actions     []Action
}

// internalID builds the stable engine-side handle for an item:
// category-counter-timestamp.
func internalID(category string, seq uint64, now time.Time) string {
	return fmt.Sprintf("%s-%d-%d", category, seq, now.UnixMilli())
}

// dedupeKey collapses accidental duplicate toast calls into one visible
// instance: the explicit id when present, otherwise a stable hash of the
// visible content.
func dedupeKey(id string, theme Theme, title, description string) string {
	if id != "" {
		return id
	}
	h := fnv.New64a()
	io.WriteString(h, string(theme))
	io.WriteString(h, "\x1f")
	io.WriteString(h, title)
	io.WriteString(h, "\x1f")
	io.WriteString(h, description)
	return "dedupe-" + strconv.FormatUint(h.Sum64(), 16)
}
