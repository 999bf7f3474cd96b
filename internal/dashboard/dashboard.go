// Package dashboard собирает данные дашборда. Виджеты пока заполняются
// демонстрационными данными, реальны только приветствие и статус пробного периода.
package dashboard

import (
	"slices"
	"time"

	"github.com/magabrotheeeer/ems-portal/internal/models"
	"github.com/magabrotheeeer/ems-portal/internal/trial"
)

// Welcome — шапка дашборда.
type Welcome struct {
	Greeting      string               `json:"greeting"`
	FirstName     string               `json:"first_name"`
	Certification models.Certification `json:"certification"`
	StreakDays    int                  `json:"streak_days"`
}

// Deadline — ближайший срок по обучению.
type Deadline struct {
	Name     string `json:"name"`
	DueDate  string `json:"due_date"`
	DaysLeft int    `json:"days_left"`
}

// Progress — сводка прогресса по часам непрерывного образования.
type Progress struct {
	CEHoursCompleted float64    `json:"ce_hours_completed"`
	CEHoursRequired  float64    `json:"ce_hours_required"`
	CEPercentage     int        `json:"ce_percentage"`
	CoursesCompleted int        `json:"courses_completed"`
	AverageScore     int        `json:"average_score"`
	CurrentStreak    int        `json:"current_streak"`
	Deadlines        []Deadline `json:"upcoming_deadlines"`
}

// Course — курс в процессе прохождения.
type Course struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Instructor    string `json:"instructor"`
	Progress      int    `json:"progress"`
	TimeRemaining string `json:"time_remaining"`
	LastWatched   string `json:"last_watched"`
	Type          string `json:"type"`
}

// Activity — событие ленты недавней активности.
type Activity struct {
	ID          string `json:"id"`
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Timestamp   string `json:"timestamp"`
}

// Recommendation — рекомендованный курс.
type Recommendation struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Instructor string  `json:"instructor"`
	Duration   string  `json:"duration"`
	Rating     float64 `json:"rating"`
	Enrolled   int     `json:"enrolled_count"`
	Category   string  `json:"category"`
	Reason     string  `json:"reason"`
	Difficulty string  `json:"difficulty"`

	// пустой список означает курс для всех уровней
	levels []models.Certification
}

// QuickAction — ссылка быстрого действия.
type QuickAction struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Href        string `json:"href"`
}

// Overview — всё, что показывает дашборд.
type Overview struct {
	Welcome          Welcome          `json:"welcome"`
	Trial            trial.Status     `json:"trial"`
	Progress         Progress         `json:"progress"`
	ContinueLearning []Course         `json:"continue_learning"`
	RecentActivity   []Activity       `json:"recent_activity"`
	Recommended      []Recommendation `json:"recommended"`
	QuickActions     []QuickAction    `json:"quick_actions"`
}

// Build собирает дашборд для профиля на момент now.
func Build(profile *models.Profile, status trial.Status, now time.Time) Overview {
	return Overview{
		Welcome: Welcome{
			Greeting:      Greeting(now),
			FirstName:     profile.DisplayName(),
			Certification: profile.PrimaryCertification,
			StreakDays:    7,
		},
		Trial:            status,
		Progress:         progress(),
		ContinueLearning: continueLearning(),
		RecentActivity:   recentActivity(),
		Recommended:      Recommended(profile.PrimaryCertification),
		QuickActions:     quickActions(),
	}
}

// Greeting возвращает приветствие по времени суток.
func Greeting(now time.Time) string {
	switch h := now.Hour(); {
	case h < 12:
		return "Good morning"
	case h < 18:
		return "Good afternoon"
	default:
		return "Good evening"
	}
}

// Recommended возвращает курсы, подходящие уровню сертификации.
func Recommended(level models.Certification) []Recommendation {
	var res []Recommendation
	for _, r := range catalog {
		if len(r.levels) == 0 || slices.Contains(r.levels, level) {
			res = append(res, r)
		}
	}
	return res
}

var catalog = []Recommendation{
	{
		ID: "airway", Title: "Advanced Airway Management", Instructor: "Dr. Michael Torres",
		Duration: "2.5 hrs", Rating: 4.9, Enrolled: 1247, Category: "Critical Care",
		Reason: "Recommended for critical care providers", Difficulty: "Advanced",
		levels: []models.Certification{models.CertificationEMTP, models.CertificationCCPC},
	},
	{
		ID: "ecg", Title: "ECG Interpretation Mastery", Instructor: "Sarah Johnson, RN",
		Duration: "3.0 hrs", Rating: 4.8, Enrolled: 2103, Category: "Cardiology",
		Reason: "Popular with similar providers", Difficulty: "Intermediate",
		levels: []models.Certification{models.CertificationAEMT, models.CertificationEMTI, models.CertificationEMTP, models.CertificationCCPC},
	},
	{
		ID: "trauma-psych", Title: "Trauma Psychology & PTSD", Instructor: "Dr. Amanda Chen",
		Duration: "1.5 hrs", Rating: 4.9, Enrolled: 892, Category: "Wellness",
		Reason: "Trending in your area", Difficulty: "Beginner",
	},
	{
		ID: "patient-assessment", Title: "Patient Assessment Fundamentals", Instructor: "Marcus Rodriguez",
		Duration: "2.0 hrs", Rating: 4.7, Enrolled: 3318, Category: "Assessment",
		Reason: "Builds on your certification", Difficulty: "Beginner",
		levels: []models.Certification{models.CertificationEMTB, models.CertificationAEMT},
	},
}

func progress() Progress {
	return Progress{
		CEHoursCompleted: 24.5,
		CEHoursRequired:  40,
		CEPercentage:     61,
		CoursesCompleted: 12,
		AverageScore:     94,
		CurrentStreak:    7,
		Deadlines: []Deadline{
			{Name: "Advanced Cardiac", DueDate: "Dec 15", DaysLeft: 3},
			{Name: "Annual Recert", DueDate: "Jan 31", DaysLeft: 47},
		},
	}
}

func continueLearning() []Course {
	return []Course{
		{ID: "1", Title: "Advanced Cardiac Assessment", Instructor: "Dr. Sarah Chen", Progress: 75,
			TimeRemaining: "18 min", LastWatched: "2 hours ago", Type: "video"},
		{ID: "2", Title: "Critical Thinking in EMS", Instructor: "Marcus Rodriguez", Progress: 45,
			TimeRemaining: "1.2 hrs", LastWatched: "Yesterday", Type: "interactive"},
		{ID: "3", Title: "Pathophysiology Deep Dive", Instructor: "Dr. Jennifer Walsh", Progress: 30,
			TimeRemaining: "2.5 hrs", LastWatched: "3 days ago", Type: "audio"},
	}
}

func recentActivity() []Activity {
	return []Activity{
		{ID: "1", Type: "course_completed", Title: "Completed Advanced Cardiac Assessment",
			Description: "Excellent work! You scored 96%", Timestamp: "2 hours ago"},
		{ID: "2", Type: "certificate_earned", Title: "Certificate Earned",
			Description: "Trauma Assessment Excellence", Timestamp: "1 day ago"},
		{ID: "3", Type: "milestone_reached", Title: "Learning Streak Milestone",
			Description: "7-day learning streak achieved!", Timestamp: "2 days ago"},
		{ID: "4", Type: "course_started", Title: "Started Critical Thinking in EMS",
			Description: "Interactive decision-making course", Timestamp: "3 days ago"},
	}
}

func quickActions() []QuickAction {
	return []QuickAction{
		{ID: "browse-courses", Title: "Browse Courses", Description: "Explore our full catalog", Href: "/courses"},
		{ID: "certificates", Title: "My Certificates", Description: "Download your achievements", Href: "/certificates"},
		{ID: "schedule", Title: "Study Schedule", Description: "Plan your learning time", Href: "/schedule"},
		{ID: "community", Title: "Join Discussions", Description: "Connect with other providers", Href: "/community"},
	}
}
