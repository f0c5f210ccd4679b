package usecase

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/scholarship-matcher/internal/domain"
	"github.com/fairyhunter13/scholarship-matcher/pkg/textx"
)

// RawProfile is the profile as the request layer sends it: partially filled,
// loosely typed, and with a few alternate field names.
type RawProfile struct {
	GPA               FlexNumber `json:"gpa"`
	SATScore          FlexNumber `json:"satScore"`
	ACTScore          FlexNumber `json:"actScore"`
	State             string     `json:"state"`
	IntendedMajor     string     `json:"intendedMajor"`
	Major             string     `json:"major"`
	Ethnicity         string     `json:"ethnicity"`
	FamilyIncome      string     `json:"familyIncome"`
	IsFirstGeneration FlexBool   `json:"isFirstGeneration"`
	FirstGeneration   FlexBool   `json:"firstGeneration"`
	IsLowIncome       FlexBool   `json:"isLowIncome"`
	LowIncome         FlexBool   `json:"lowIncome"`
	IsInternational   FlexBool   `json:"isInternational"`
	International     FlexBool   `json:"international"`
	IsMinority        FlexBool   `json:"isMinority"`
	Minority          FlexBool   `json:"minority"`
	IsWomen           FlexBool   `json:"isWomen"`
	Women             FlexBool   `json:"women"`
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// NormalizeProfile canonicalizes a raw profile into the fields used downstream.
// It fails only with ErrInvalidArgument when a provided value is out of range.
func NormalizeProfile(raw RawProfile) (domain.StudentProfile, error) {
	p := domain.StudentProfile{
		GPA:               raw.GPA.Ptr(),
		SATScore:          raw.SATScore.IntPtr(),
		ACTScore:          raw.ACTScore.IntPtr(),
		State:             normalizeState(raw.State),
		IntendedMajor:     cleanField(firstString(raw.IntendedMajor, raw.Major)),
		Ethnicity:         cleanField(raw.Ethnicity),
		FamilyIncome:      cleanField(raw.FamilyIncome),
		IsFirstGeneration: firstBool(raw.IsFirstGeneration, raw.FirstGeneration),
		IsLowIncome:       firstBool(raw.IsLowIncome, raw.LowIncome),
		IsInternational:   firstBool(raw.IsInternational, raw.International),
		IsMinority:        firstBool(raw.IsMinority, raw.Minority),
		IsWomen:           firstBool(raw.IsWomen, raw.Women),
	}
	if err := getValidator().Struct(p); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			fields := make([]string, 0, len(ve))
			for _, fe := range ve {
				fields = append(fields, fe.Field()+":"+fe.Tag())
			}
			return domain.StudentProfile{}, fmt.Errorf("%w: profile %s", domain.ErrInvalidArgument, strings.Join(fields, ","))
		}
		return domain.StudentProfile{}, fmt.Errorf("%w: profile: %v", domain.ErrInvalidArgument, err)
	}
	return p, nil
}

func cleanField(s string) string {
	s = textx.SanitizeText(s)
	return strings.Join(strings.Fields(s), " ")
}

// normalizeState upper-cases two-letter postal codes and leaves state names as typed.
func normalizeState(s string) string {
	s = cleanField(s)
	if len(s) == 2 {
		return strings.ToUpper(s)
	}
	return s
}
