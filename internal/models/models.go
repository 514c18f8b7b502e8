package models

import "time"

type User struct {
	ID           string     `db:"id"`
	Email        string     `db:"email"`
	PasswordHash string     `db:"password_hash"`
	FullName     string     `db:"full_name"`
	Phone        *string    `db:"phone"`
	Role         string     `db:"role"`
	Status       string     `db:"status"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`
	LastLoginAt  *time.Time `db:"last_login_at"`
}

type UserSession struct {
	ID          string    `db:"id"`
	UserID      string    `db:"user_id"`
	JWTID       string    `db:"jwt_id"`
	RefreshHash string    `db:"refresh_hash"`
	ExpiresAt   time.Time `db:"expires_at"`
	CreatedAt   time.Time `db:"created_at"`
}

type Course struct {
	ID          string    `db:"id"`
	Slug        string    `db:"slug"`
	Title       string    `db:"title"`
	Description string    `db:"description"`
	PriceCents  int       `db:"price_cents"`
	IsPublished bool      `db:"is_published"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type CourseOffering struct {
	ID          string     `db:"id"`
	CourseID    string     `db:"course_id"`
	ProgramType string     `db:"program_type"`
	Title       string     `db:"title"`
	StartsAt    *time.Time `db:"starts_at"`
	EndsAt      *time.Time `db:"ends_at"`
	IsActive    bool       `db:"is_active"`
	CreatedAt   time.Time  `db:"created_at"`
}

type Registration struct {
	ID                    string     `db:"id"`
	OfferingID            string     `db:"offering_id"`
	UserID                *string    `db:"user_id"`
	FullName              string     `db:"full_name"`
	Email                 string     `db:"email"`
	PhoneNumber           string     `db:"phone_number"`
	CollegeName           string     `db:"college_name"`
	YearOfPassing         string     `db:"year_of_passing"`
	Branch                string     `db:"branch"`
	ReferredBy            *string    `db:"referred_by"`
	SelectedSlot          *string    `db:"selected_slot"`
	SessionTime           *string    `db:"session_time"`
	Mode                  *string    `db:"mode"`
	Status                string     `db:"status"`
	Answers               []byte     `db:"answers"`
	QuestionsSnapshot     []byte     `db:"questions_snapshot"`
	AssessmentSubmittedAt *time.Time `db:"assessment_submitted_at"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

type AssessmentQuestion struct {
	ID             string    `db:"id"`
	OfferingID     *string   `db:"offering_id"`
	ProgramType    string    `db:"program_type"`
	QuestionNumber int       `db:"question_number"`
	Question       string    `db:"question"`
	Options        []byte    `db:"options"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
}

type TutorProfile struct {
	ID        string    `db:"id"`
	UserID    string    `db:"user_id"`
	Headline  *string   `db:"headline"`
	Bio       *string   `db:"bio"`
	CreatedAt time.Time `db:"created_at"`
}

type CourseTutor struct {
	ID         string    `db:"id"`
	CourseID   string    `db:"course_id"`
	TutorID    string    `db:"tutor_id"`
	MemberRole string    `db:"member_role"`
	IsActive   bool      `db:"is_active"`
	CreatedAt  time.Time `db:"created_at"`
}

type TutorApplication struct {
	ID                  string    `db:"id"`
	FullName            string    `db:"full_name"`
	Email               string    `db:"email"`
	Phone               *string   `db:"phone"`
	ExpertiseArea       string    `db:"expertise_area"`
	ProposedCourseTitle string    `db:"proposed_course_title"`
	CourseLevel         *string   `db:"course_level"`
	DeliveryFormat      *string   `db:"delivery_format"`
	Availability        *string   `db:"availability"`
	ExperienceYears     *int      `db:"experience_years"`
	Outline             string    `db:"outline"`
	Motivation          string    `db:"motivation"`
	Status              string    `db:"status"`
	CreatedAt           time.Time `db:"created_at"`
}

type Enrollment struct {
	ID             string     `db:"id"`
	UserID         string     `db:"user_id"`
	CourseID       string     `db:"course_id"`
	Status         string     `db:"status"`
	Progress       int        `db:"progress"`
	EnrolledAt     time.Time  `db:"enrolled_at"`
	CompletedAt    *time.Time `db:"completed_at"`
	LastAccessedAt *time.Time `db:"last_accessed_at"`
}

type Certificate struct {
	ID       string    `db:"id"`
	UserID   string    `db:"user_id"`
	CourseID string    `db:"course_id"`
	Serial   string    `db:"serial"`
	IssuedAt time.Time `db:"issued_at"`
}

type QuizQuestion struct {
	ID             string    `db:"id"`
	CourseID       string    `db:"course_id"`
	ModuleNo       int       `db:"module_no"`
	TopicPairIndex int       `db:"topic_pair_index"`
	Question       string    `db:"question"`
	Explanation    *string   `db:"explanation"`
	OrderIndex     int       `db:"order_index"`
	IsActive       bool      `db:"is_active"`
	CreatedAt      time.Time `db:"created_at"`
}

type QuizOption struct {
	ID         string `db:"id"`
	QuestionID string `db:"question_id"`
	Label      string `db:"label"`
	IsCorrect  bool   `db:"is_correct"`
	OrderIndex int    `db:"order_index"`
}

type QuizAttempt struct {
	ID             string     `db:"id"`
	UserID         string     `db:"user_id"`
	CourseID       string     `db:"course_id"`
	ModuleNo       int        `db:"module_no"`
	TopicPairIndex int        `db:"topic_pair_index"`
	QuestionIDs    []byte     `db:"question_ids"`
	Status         string     `db:"status"`
	Score          *int       `db:"score"`
	TotalQuestions int        `db:"total_questions"`
	CorrectAnswers *int       `db:"correct_answers"`
	StartedAt      time.Time  `db:"started_at"`
	SubmittedAt    *time.Time `db:"submitted_at"`
}

// ActivityEvent is one row of the append-only learner interaction log.
// Rows are never updated or deleted by the application.
type ActivityEvent struct {
	ID            string     `db:"id"`
	UserID        string     `db:"user_id"`
	CourseID      string     `db:"course_id"`
	ModuleNo      *int       `db:"module_no"`
	TopicID       *string    `db:"topic_id"`
	EventType     string     `db:"event_type"`
	Payload       []byte     `db:"payload"`
	DerivedStatus *string    `db:"derived_status"`
	StatusReason  *string    `db:"status_reason"`
	OccurredAt    *time.Time `db:"occurred_at"`
	CreatedAt     time.Time  `db:"created_at"`
}

type PlatformMetricSample struct {
	ID                string    `db:"id"`
	CapturedAt        time.Time `db:"captured_at"`
	ProcessRSSBytes   int64     `db:"process_rss_bytes"`
	SystemMemoryTotal int64     `db:"system_memory_total_bytes"`
	SystemMemoryUsed  int64     `db:"system_memory_used_bytes"`
	DiskTotalBytes    int64     `db:"disk_total_bytes"`
	DiskUsedBytes     int64     `db:"disk_used_bytes"`
	ProcessCpuLoad    float64   `db:"process_cpu_load"`
	SystemCpuLoad     float64   `db:"system_cpu_load"`
}

type SiteVisit struct {
	ID        string    `db:"id"`
	IPAddress *string   `db:"ip_address"`
	UserAgent *string   `db:"user_agent"`
	Path      *string   `db:"path"`
	Referrer  *string   `db:"referrer"`
	CreatedAt time.Time `db:"created_at"`
}
