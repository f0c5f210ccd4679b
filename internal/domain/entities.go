package domain

import (
	"context"
	"time"
)

// Strictness selects how the shared parse path treats a model reply it cannot read.
type Strictness string

const (
	// StrictnessLenient recovers from unreadable replies with an empty result set.
	StrictnessLenient Strictness = "lenient"
	// StrictnessStrict surfaces unreadable replies as ErrFormat.
	StrictnessStrict Strictness = "strict"
)

// Variant names the two pipeline invocations.
type Variant string

const (
	VariantSearch  Variant = "search"
	VariantCatalog Variant = "catalog"
)

// SourceAIGenerated marks every record emitted by the pipeline.
const SourceAIGenerated = "ai-generated"

// Priority levels attached to catalog recommendations.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// StudentProfile is the normalized, read-only input of one pipeline run.
// Optional numeric fields are nil when the student did not provide them.
type StudentProfile struct {
	GPA               *float64 `json:"gpa,omitempty" validate:"omitempty,gte=0,lte=5"`
	SATScore          *int     `json:"satScore,omitempty" validate:"omitempty,gte=400,lte=1600"`
	ACTScore          *int     `json:"actScore,omitempty" validate:"omitempty,gte=1,lte=36"`
	State             string   `json:"state,omitempty" validate:"max=64"`
	IntendedMajor     string   `json:"intendedMajor,omitempty" validate:"max=200"`
	Ethnicity         string   `json:"ethnicity,omitempty" validate:"max=100"`
	FamilyIncome      string   `json:"familyIncome,omitempty" validate:"max=100"`
	IsFirstGeneration bool     `json:"isFirstGeneration"`
	IsLowIncome       bool     `json:"isLowIncome"`
	IsInternational   bool     `json:"isInternational"`
	IsMinority        bool     `json:"isMinority"`
	IsWomen           bool     `json:"isWomen"`
}

// CandidateDocument is one search result eligible to be cited in a recommendation.
type CandidateDocument struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// ScholarshipRecommendation is the record emitted by the ad-hoc variant.
type ScholarshipRecommendation struct {
	Name         string    `json:"name"`
	Provider     string    `json:"provider"`
	AmountMin    float64   `json:"amountMin"`
	AmountMax    float64   `json:"amountMax"`
	Deadline     string    `json:"deadline"`
	MatchScore   int       `json:"matchScore"`
	Description  string    `json:"description"`
	Requirements []string  `json:"requirements"`
	URL          string    `json:"url"`
	Source       string    `json:"source"`
	GeneratedAt  time.Time `json:"generatedAt"`
}

// CatalogScholarship is one row of the pre-populated scholarship table.
type CatalogScholarship struct {
	ID           string   `json:"id" yaml:"id"`
	Name         string   `json:"name" yaml:"name"`
	Provider     string   `json:"provider" yaml:"provider"`
	AmountMin    float64  `json:"amount_min" yaml:"amount_min"`
	AmountMax    float64  `json:"amount_max" yaml:"amount_max"`
	Deadline     string   `json:"deadline" yaml:"deadline"`
	Description  string   `json:"description" yaml:"description"`
	Requirements []string `json:"requirements" yaml:"requirements"`
	URL          string   `json:"url" yaml:"url"`
	Tags         []string `json:"tags" yaml:"tags"`
	IsActive     bool     `json:"is_active" yaml:"is_active"`
}

// CatalogRecommendation is the record emitted by the catalog variant.
type CatalogRecommendation struct {
	ScholarshipID string    `json:"scholarship_id"`
	Name          string    `json:"name"`
	Provider      string    `json:"provider"`
	AmountMin     float64   `json:"amount_min"`
	AmountMax     float64   `json:"amount_max"`
	Deadline      string    `json:"deadline"`
	MatchScore    int       `json:"match_score"`
	PriorityLevel string    `json:"priority_level"`
	MatchReasons  []string  `json:"match_reasons"`
	Description   string    `json:"description"`
	Requirements  []string  `json:"requirements"`
	URL           string    `json:"url"`
	Source        string    `json:"source"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// CatalogQuery bounds the catalog rows a run may consider.
type CatalogQuery struct {
	// ActiveOn excludes rows whose deadline is before this date.
	ActiveOn time.Time
	Limit    int
}

// SearchProvider (port) retrieves candidate documents for a free-text query.
type SearchProvider interface {
	// CheckConfig reports ErrConfiguration when credentials are missing. It never
	// touches the network.
	CheckConfig() error
	// Search issues exactly one request for num results, in provider relevance order.
	Search(ctx Context, query string, num int) ([]CandidateDocument, error)
}

// ChatRequest is a single system+user completion call.
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  float64
	MaxTokens    int
}

// ChatClient (port) returns the raw text of one completion.
type ChatClient interface {
	CheckConfig() error
	Chat(ctx Context, req ChatRequest) (string, error)
}

// CatalogRepository (port) loads the scholarships the catalog variant re-ranks.
type CatalogRepository interface {
	ListActive(ctx Context, q CatalogQuery) ([]CatalogScholarship, error)
}

// RecommendationStore (port) records catalog recommendations for a user.
type RecommendationStore interface {
	SaveRecommendations(ctx Context, userID string, recs []CatalogRecommendation) error
}

// Context is an alias of context.Context so ports read naturally in the domain.
type Context = context.Context
