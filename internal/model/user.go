package model

import "time"

// User represents an account record as stored in the `users` table.
// Each field corresponds to a column.  HashedPassword carries the bcrypt
// digest and is never serialized; handlers respond with PublicUser.
//
// Fields:
//  ID             – primary key identifier, assigned by the store.
//  Email          – unique email address.
//  Username       – unique login name.
//  FullName       – optional display name.
//  HashedPassword – bcrypt hash of the password.
//  IsActive       – whether the account may log in and use protected routes.
//  IsSuperuser    – whether the account may use administrative routes.
//  CreatedAt      – creation timestamp (UTC).
//  UpdatedAt      – last modification timestamp (UTC).
type User struct {
    ID             uint64    `json:"id"`
    Email          string    `json:"email"`
    Username       string    `json:"username"`
    FullName       *string   `json:"full_name"`
    HashedPassword string    `json:"-"`
    IsActive       bool      `json:"is_active"`
    IsSuperuser    bool      `json:"is_superuser"`
    CreatedAt      time.Time `json:"created_at"`
    UpdatedAt      time.Time `json:"updated_at"`
}

// UserCreate is the input to signup.  Password is plaintext and is
// replaced by its hash before anything reaches the store.  IsActive and
// IsSuperuser are overrides; nil means the defaults (active, not superuser).
type UserCreate struct {
    Email       string
    Username    string
    FullName    *string
    Password    string
    IsActive    *bool
    IsSuperuser *bool
}

// UserUpdate is a partial update.  Nil fields are left untouched.
type UserUpdate struct {
    Email    *string
    Username *string
    FullName *string
    Password *string
}

// NewUser is the row handed to the store on insert: the hash is already
// computed and flags are resolved.
type NewUser struct {
    Email          string
    Username       string
    FullName       *string
    HashedPassword string
    IsActive       bool
    IsSuperuser    bool
}

// UserChanges lists the columns an update writes.  Nil fields are not
// written.
type UserChanges struct {
    Email          *string
    Username       *string
    FullName       *string
    HashedPassword *string
    IsActive       *bool
    IsSuperuser    *bool
}

// Empty reports whether the change set writes nothing.
func (c UserChanges) Empty() bool {
    return c.Email == nil && c.Username == nil && c.FullName == nil &&
        c.HashedPassword == nil && c.IsActive == nil && c.IsSuperuser == nil
}

// Apply copies the set fields onto u.
func (c UserChanges) Apply(u *User) {
    if c.Email != nil {
        u.Email = *c.Email
    }
    if c.Username != nil {
        u.Username = *c.Username
    }
    if c.FullName != nil {
        name := *c.FullName
        u.FullName = &name
    }
    if c.HashedPassword != nil {
        u.HashedPassword = *c.HashedPassword
    }
    if c.IsActive != nil {
        u.IsActive = *c.IsActive
    }
    if c.IsSuperuser != nil {
        u.IsSuperuser = *c.IsSuperuser
    }
}

// PublicUser is the response shape for an account.  It omits the hash.
type PublicUser struct {
    ID          uint64    `json:"id"`
    Email       string    `json:"email"`
    Username    string    `json:"username"`
    FullName    *string   `json:"full_name"`
    IsActive    bool      `json:"is_active"`
    IsSuperuser bool      `json:"is_superuser"`
    CreatedAt   time.Time `json:"created_at"`
    UpdatedAt   time.Time `json:"updated_at"`
}

// Public returns the response view of u.
func (u User) Public() PublicUser {
    return PublicUser{
        ID:          u.ID,
        Email:       u.Email,
        Username:    u.Username,
        FullName:    u.FullName,
        IsActive:    u.IsActive,
        IsSuperuser: u.IsSuperuser,
        CreatedAt:   u.CreatedAt,
        UpdatedAt:   u.UpdatedAt,
    }
}

// PublicUsers maps Public over us.
func PublicUsers(us []User) []PublicUser {
    out := make([]PublicUser, 0, len(us))
    for _, u := range us {
        out = append(out, u.Public())
    }
    return out
}
