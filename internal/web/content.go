package web

// Plan — тарифный план на странице /pricing.
type Plan struct {
	Name         string
	Description  string
	MonthlyPrice int
	YearlyPrice  int
	Popular      bool
	PerUser      bool
	MinimumSeats int
	Features     []string
}

// Module — раздел демонстрации платформы.
type Module struct {
	Title       string
	Subtitle    string
	Description string
}

// Plans тарифы Individual, Team и Pro.
var Plans = []Plan{
	{
		Name:         "Individual",
		Description:  "Perfect for providers serious about their professional development",
		MonthlyPrice: 29,
		YearlyPrice:  290,
		Features: []string{
			"Access to all course content",
			"Tamper-proof CE tracking",
			"Progress analytics",
			"Certificate downloads",
			"Mobile app access",
			"Community forums",
			"Email support",
		},
	},
	{
		Name:         "Team",
		Description:  "For small departments and agencies who learn together",
		MonthlyPrice: 25,
		YearlyPrice:  250,
		Popular:      true,
		PerUser:      true,
		MinimumSeats: 5,
		Features: []string{
			"Everything in Individual",
			"Team progress dashboard",
			"Shared learning goals",
			"Group discussions",
			"Basic reporting",
			"Bulk enrollment",
			"Shared certificates",
			"Priority support",
		},
	},
	{
		Name:         "Pro",
		Description:  "Advanced features for career-focused providers",
		MonthlyPrice: 49,
		YearlyPrice:  490,
		Features: []string{
			"Everything in Individual",
			"Priority access to new content",
			"Advanced analytics & insights",
			"Personalized learning paths",
			"1-on-1 education consultations",
			"Early access to beta features",
			"Direct instructor access",
			"Career development tools",
		},
	},
}

// Modules разделы страницы /demo.
var Modules = []Module{
	{
		Title:       "Interactive Case Studies",
		Subtitle:    "Real scenarios with branching decisions",
		Description: "Experience how we turn complex medical scenarios into engaging, decision-based learning that mirrors actual field work.",
	},
	{
		Title:       "Professional Video Content",
		Subtitle:    "Current techniques from working providers",
		Description: "High-quality instructional videos that respect your intelligence and time, created by providers who know the field.",
	},
	{
		Title:       "Deep Pathophysiology",
		Subtitle:    `Understanding the "why" behind conditions`,
		Description: "Interactive modules that build foundational knowledge, helping you understand disease processes at a deeper level.",
	},
	{
		Title:       "Expert Podcasts",
		Subtitle:    "Learn during commutes and downtime",
		Description: "Conversations with specialists and experienced providers covering topics you won't find in traditional CE.",
	},
	{
		Title:       "Smart Progress Tracking",
		Subtitle:    "See your growth and stay compliant",
		Description: "Comprehensive tracking that shows not just completion, but actual learning progress and skill development.",
	},
}
