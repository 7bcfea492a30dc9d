package model

import "fmt"

// TargetItem is an item a batch action is applied to.
// It is immutable for the whole batch run.
type TargetItem struct {
	ID           string
	DisplayName  string
	ThumbnailURL string
	// OwnerID is the user that owns the item, empty when unknown.
	OwnerID string
}

// Validate validates the item.
func (t TargetItem) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("item id is required: %w", ErrNotValid)
	}

	return nil
}

// ActionKind selects the executor used for every item of a batch.
type ActionKind string

const (
	ActionKindRepost      ActionKind = "repost"
	ActionKindLike        ActionKind = "like"
	ActionKindFollow      ActionKind = "follow"
	ActionKindGenericNoOp ActionKind = "noop"
)

// ActionKinds returns all the known action kinds.
func ActionKinds() []ActionKind {
	return []ActionKind{ActionKindRepost, ActionKindLike, ActionKindFollow, ActionKindGenericNoOp}
}

// ParseActionKind returns the action kind for s.
func ParseActionKind(s string) (ActionKind, error) {
	k := ActionKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("unknown action %q: %w", s, ErrNotValid)
	}

	return k, nil
}

// Valid returns true if the action kind is one of the known ones.
func (a ActionKind) Valid() bool {
	for _, k := range ActionKinds() {
		if a == k {
			return true
		}
	}
	return false
}

// Credentials are the session credentials of the signed user.
// They are owned by an external provider and passed through unexamined by the batch.
type Credentials struct {
	CSRFToken string
	Domain    string
	// ProxyURL is the relay used to fetch source images, required only for reposts.
	ProxyURL string
	// Cookie is the raw session cookie header, optional.
	Cookie string
}

// Validate validates the credentials.
func (c Credentials) Validate() error {
	if c.Domain == "" {
		return fmt.Errorf("domain is required: %w", ErrNotValid)
	}

	if c.CSRFToken == "" {
		return fmt.Errorf("csrf token is required: %w", ErrNotValid)
	}

	return nil
}
