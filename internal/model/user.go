package model

import "time"

// Group names stored in users.group_name.
const (
    GroupUser      = "user"
    GroupModerator = "moderator"
    GroupAdmin     = "admin"
)

// User represents an application user record as stored in the `users`
// table.  Accounts are managed by a separate service; this one only reads
// them for login and group checks.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Group        string    // users.group_name
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
}
