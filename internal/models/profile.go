package models

import "time"

// Certification — уровень сертификации EMS-специалиста.
type Certification string

const (
	CertificationEMTB Certification = "EMT-B"
	CertificationAEMT Certification = "AEMT"
	CertificationEMTI Certification = "EMTI"
	CertificationEMTP Certification = "EMTP"
	CertificationCCPC Certification = "CCPC/FPC"
)

// Certifications перечисляет допустимые уровни сертификации в порядке отображения.
var Certifications = []Certification{
	CertificationEMTB,
	CertificationAEMT,
	CertificationEMTI,
	CertificationEMTP,
	CertificationCCPC,
}

// Valid сообщает, входит ли значение в перечисление.
func (c Certification) Valid() bool {
	for _, v := range Certifications {
		if v == c {
			return true
		}
	}
	return false
}

// Role — роль пользователя на платформе.
type Role string

const (
	RoleStudent    Role = "student"
	RoleInstructor Role = "instructor"
	RoleManager    Role = "manager"
	RoleAdmin      Role = "admin"
)

// Profile — прикладная запись пользователя, связанная с принципалом один к одному.
// Создаётся на сервере при регистрации, портал её только читает.
type Profile struct {
	ID                   string           `json:"id"`
	Username             string           `json:"username"`
	FirstName            string           `json:"first_name"`
	LastName             string           `json:"last_name"`
	PrimaryCertification Certification    `json:"primary_certification"`
	RenewalDate          *time.Time       `json:"renewal_date,omitempty"`
	SubscriptionType     SubscriptionType `json:"subscription_type"`
	TrialEndDate         *time.Time       `json:"trial_end_date,omitempty"`
	Role                 Role             `json:"role"`
	AgencyName           string           `json:"agency_name,omitempty"`
}

// DisplayName возвращает имя для приветствия на дашборде.
func (p *Profile) DisplayName() string {
	if p.FirstName != "" {
		return p.FirstName
	}
	return p.Username
}

// ProfileContact — профиль на пробном периоде вместе с адресом для уведомлений.
type ProfileContact struct {
	Profile Profile
	Email   string
}
