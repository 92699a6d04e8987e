// shared/models/registration.go
package models

import (
	"fmt"
	"time"
)

// Gender is the participant's self-reported gender.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// Department is the academic department a participant belongs to.
type Department string

const (
	DepartmentCSE        Department = "Computer Science Engineering"
	DepartmentECE        Department = "Electronics & Communication"
	DepartmentEEE        Department = "Electrical & Electronics"
	DepartmentMechanical Department = "Mechanical Engineering"
	DepartmentCivil      Department = "Civil Engineering"
)

// Batch is the semester batch (odd semesters only).
type Batch string

const (
	BatchS1 Batch = "S1"
	BatchS3 Batch = "S3"
	BatchS5 Batch = "S5"
	BatchS7 Batch = "S7"
)

// YearOfStudy is the participant's current year.
type YearOfStudy string

const (
	YearFirst  YearOfStudy = "First Year"
	YearSecond YearOfStudy = "Second Year"
	YearThird  YearOfStudy = "Third Year"
	YearFourth YearOfStudy = "Fourth Year"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderOther:
		return true
	}
	return false
}

func (d Department) Valid() bool {
	switch d {
	case DepartmentCSE, DepartmentECE, DepartmentEEE, DepartmentMechanical, DepartmentCivil:
		return true
	}
	return false
}

func (b Batch) Valid() bool {
	switch b {
	case BatchS1, BatchS3, BatchS5, BatchS7:
		return true
	}
	return false
}

func (y YearOfStudy) Valid() bool {
	switch y {
	case YearFirst, YearSecond, YearThird, YearFourth:
		return true
	}
	return false
}

// UnmarshalText rejects values outside the closed set so bad input never
// reaches the service layer as a typed value.
func (g *Gender) UnmarshalText(b []byte) error {
	v, err := ParseGender(string(b))
	if err != nil {
		return err
	}
	*g = v
	return nil
}

func (d *Department) UnmarshalText(b []byte) error {
	v, err := ParseDepartment(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

func (b *Batch) UnmarshalText(text []byte) error {
	v, err := ParseBatch(string(text))
	if err != nil {
		return err
	}
	*b = v
	return nil
}

func (y *YearOfStudy) UnmarshalText(b []byte) error {
	v, err := ParseYearOfStudy(string(b))
	if err != nil {
		return err
	}
	*y = v
	return nil
}

// ErrInvalidChoice is returned by the Parse functions for unknown values.
var ErrInvalidChoice = fmt.Errorf("invalid choice")

func ParseGender(s string) (Gender, error) {
	g := Gender(s)
	if !g.Valid() {
		return "", fmt.Errorf("%w: gender %q", ErrInvalidChoice, s)
	}
	return g, nil
}

func ParseDepartment(s string) (Department, error) {
	d := Department(s)
	if !d.Valid() {
		return "", fmt.Errorf("%w: department %q", ErrInvalidChoice, s)
	}
	return d, nil
}

func ParseBatch(s string) (Batch, error) {
	b := Batch(s)
	if !b.Valid() {
		return "", fmt.Errorf("%w: batch %q", ErrInvalidChoice, s)
	}
	return b, nil
}

func ParseYearOfStudy(s string) (YearOfStudy, error) {
	y := YearOfStudy(s)
	if !y.Valid() {
		return "", fmt.Errorf("%w: year of study %q", ErrInvalidChoice, s)
	}
	return y, nil
}

// AllGenders lists the accepted genders in display order.
func AllGenders() []Gender {
	return []Gender{GenderMale, GenderFemale, GenderOther}
}

// AllDepartments lists the accepted departments in display order.
func AllDepartments() []Department {
	return []Department{DepartmentCSE, DepartmentECE, DepartmentEEE, DepartmentMechanical, DepartmentCivil}
}

// AllBatches lists the accepted batches in display order.
func AllBatches() []Batch {
	return []Batch{BatchS1, BatchS3, BatchS5, BatchS7}
}

// AllYearsOfStudy lists the accepted years in display order.
func AllYearsOfStudy() []YearOfStudy {
	return []YearOfStudy{YearFirst, YearSecond, YearThird, YearFourth}
}

// Registration is a participant's one-time profile, keyed by email.
type Registration struct {
	Email       string      `bson:"email" json:"email"` // Lowercased, unique index
	FullName    string      `bson:"full_name" json:"full_name"`
	Gender      Gender      `bson:"gender" json:"gender"`
	PhoneNumber string      `bson:"phone_number" json:"phone_number"`
	Department  Department  `bson:"department" json:"department"`
	Batch       Batch       `bson:"batch" json:"batch"`
	YearOfStudy YearOfStudy `bson:"year_of_study" json:"year_of_study"`
	CreatedAt   time.Time   `bson:"created_at" json:"created_at"`
}
