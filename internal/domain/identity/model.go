package identity

import (
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Account roles. New accounts always start as RoleUser; promotion to admin
// happens out of band.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User maps to the users table. The password hash never leaves the server.
type User struct {
	ID           uuid.UUID `db:"id" json:"_id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// Public is the account projection returned by the API.
type Public struct {
	ID    uuid.UUID `json:"_id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  string    `json:"role"`
}

func (u *User) Public() Public {
	return Public{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
}

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// RegisterInput carries the registration form fields.
type RegisterInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// validate returns one message per invalid field, in field order.
func (in *RegisterInput) validate() []string {
	var msgs []string
	if in.Name == "" {
		msgs = append(msgs, "Please add a name")
	}
	if in.Email == "" {
		msgs = append(msgs, "Please add an email")
	} else if !emailPattern.MatchString(in.Email) {
		msgs = append(msgs, "Please add a valid email")
	}
	if in.Password == "" {
		msgs = append(msgs, "Please add a password")
	} else if len(in.Password) < 6 {
		msgs = append(msgs, "Password must be at least 6 characters")
	}
	return msgs
}
