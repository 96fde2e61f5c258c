package models

import "time"

// FieldPassword is the only field that can be changed through a change request.
const FieldPassword = "password"

// ChangeRequest is a pending, single-use change of a sensitive account field.
// NewValue holds the value to apply; for passwords it is already hashed.
type ChangeRequest struct {
	ID          int64
	UserID      int64
	Field       string
	NewValue    string
	ConfirmCode string
	CreatedAt   time.Time
}
