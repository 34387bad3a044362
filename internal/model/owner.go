package model

import "errors"

var ErrMissingOwner = errors.New("exactly one of user id or guest id is required")

// Owner is the key every task read and write is scoped by.
// Exactly one of UserID and GuestID is set.
type Owner struct {
	UserID  int64
	GuestID string
}

func UserOwner(id int64) Owner {
	return Owner{UserID: id}
}

func GuestOwner(id string) Owner {
	return Owner{GuestID: id}
}

func (o Owner) Validate() error {
	hasUser := o.UserID != 0
	hasGuest := o.GuestID != ""
	if hasUser == hasGuest {
		return ErrMissingOwner
	}
	return nil
}

func (o Owner) IsGuest() bool {
	return o.GuestID != ""
}

// Column returns the owner column and its value for a scoped query.
func (o Owner) Column() (string, any) {
	if o.IsGuest() {
		return "guest_id", o.GuestID
	}
	return "user_id", o.UserID
}
