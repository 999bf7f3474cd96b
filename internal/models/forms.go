package models

import "strings"

// SignupForm — закрытая структура формы регистрации.
// Ограничения полей повторяют форму на странице /signup.
type SignupForm struct {
	FirstName       string `json:"first_name" form:"first_name" validate:"required"`
	LastName        string `json:"last_name" form:"last_name" validate:"required"`
	Email           string `json:"email" form:"email" validate:"required,email"`
	Username        string `json:"username" form:"username" validate:"required,min=3,max=50"`
	Password        string `json:"password" form:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" validate:"required,eqfield=Password"`
	Certification   string `json:"certification_level" form:"certification_level" validate:"required,oneof=EMT-B AEMT EMTI EMTP CCPC/FPC"`
	AgencyName      string `json:"agency_name,omitempty" form:"agency_name" validate:"omitempty,max=120"`
	AgreeToTerms    bool   `json:"agree_to_terms" form:"agree_to_terms" validate:"required"`
}

// Normalize обрезает пробелы и приводит email к нижнему регистру до валидации.
func (f *SignupForm) Normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.ToLower(strings.TrimSpace(f.Email))
	f.Username = strings.TrimSpace(f.Username)
	f.AgencyName = strings.TrimSpace(f.AgencyName)
}

// LoginMethod — способ идентификации при входе.
type LoginMethod string

const (
	LoginByEmail    LoginMethod = "email"
	LoginByUsername LoginMethod = "username"
)

// LoginForm — форма входа по email или username.
type LoginForm struct {
	Method     LoginMethod `json:"method" form:"method" validate:"omitempty,oneof=email username"`
	Identifier string      `json:"identifier" form:"identifier" validate:"required"`
	Password   string      `json:"password" form:"password" validate:"required"`
}

// Normalize подставляет способ входа по умолчанию и обрезает идентификатор.
func (f *LoginForm) Normalize() {
	f.Identifier = strings.TrimSpace(f.Identifier)
	if f.Method == "" {
		f.Method = LoginByEmail
	}
	if f.Method == LoginByEmail {
		f.Identifier = strings.ToLower(f.Identifier)
	}
}
