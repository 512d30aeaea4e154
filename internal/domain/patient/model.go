// Package patient implements the patient registry: demographic records with
// a generated medical record number, an optional profile image, and free-text
// search over names, email, and MRN.
package patient

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"

	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

func emailValid(email string) bool {
	return emailPattern.MatchString(email)
}

// Gender values accepted on intake.
var allowedGenders = map[string]bool{
	"Male":              true,
	"Female":            true,
	"Other":             true,
	"Prefer not to say": true,
}

// Address is the embedded postal address, stored as a jsonb document.
type Address struct {
	Street  string `json:"street,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zipCode,omitempty"`
	Country string `json:"country,omitempty"`
}

// EmergencyContact is the embedded contact person, stored as a jsonb document.
type EmergencyContact struct {
	Name         string `json:"name,omitempty"`
	Relationship string `json:"relationship,omitempty"`
	Phone        string `json:"phone,omitempty"`
}

// Patient maps to the patients table.
type Patient struct {
	ID                  uuid.UUID         `db:"id" json:"_id"`
	FirstName           string            `db:"first_name" json:"firstName"`
	LastName            string            `db:"last_name" json:"lastName"`
	DateOfBirth         time.Time         `db:"date_of_birth" json:"dateOfBirth"`
	Gender              string            `db:"gender" json:"gender,omitempty"`
	ContactNumber       string            `db:"contact_number" json:"contactNumber,omitempty"`
	Email               string            `db:"email" json:"email,omitempty"`
	Address             *Address          `db:"address" json:"address,omitempty"`
	MedicalRecordNumber string            `db:"medical_record_number" json:"medicalRecordNumber"`
	ProfileImage        string            `db:"profile_image" json:"profileImage"`
	EmergencyContact    *EmergencyContact `db:"emergency_contact" json:"emergencyContact,omitempty"`
	RegistrationDate    time.Time         `db:"registration_date" json:"registrationDate"`
	LastUpdated         time.Time         `db:"last_updated" json:"lastUpdated"`
	CreatedAt           time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt           time.Time         `db:"updated_at" json:"updatedAt"`
}

// NewMRN generates a medical record number like MRN-2026-48213. The five
// digit suffix is random; the unique index on the column catches the rare
// collision and the caller retries.
func NewMRN() string {
	return fmt.Sprintf("MRN-%d-%05d", time.Now().Year(), 10000+rand.Intn(90000))
}
