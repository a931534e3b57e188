package usecase

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"match-engine/internal/domain/matching"

	"github.com/go-playground/validator/v10"
)

var ErrValidation = errors.New("invalid request")

// ValidationError lists the failing request fields, keyed by their JSON path.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

type CVData struct {
	Name            string   `json:"nom"`
	Skills          []string `json:"competences" validate:"required,min=1,dive,required"`
	YearsExperience *float64 `json:"annees_experience,omitempty" validate:"omitempty,min=0,max=60"`
	SoftSkills      []string `json:"soft_skills"`
	Languages       []string `json:"langues"`
	Tools           []string `json:"outils"`
	Summary         string   `json:"resume"`
}

type QuestionnaireData struct {
	Address           string          `json:"adresse"`
	DesiredSalary     *float64        `json:"salaire_souhaite,omitempty" validate:"omitempty,min=0"`
	Mobility          *bool           `json:"mobilite,omitempty"`
	TransportMode     string          `json:"mode_transport"`
	MaxCommuteMinutes *float64        `json:"temps_trajet_max,omitempty" validate:"omitempty,min=0"`
	PreferredContract string          `json:"contrat_souhaite"`
	Priorities        map[string]bool `json:"criteres_importants"`
	Objectives        map[string]bool `json:"objectifs_carriere"`
}

type JobData struct {
	ID                string   `json:"id" validate:"required"`
	Title             string   `json:"titre"`
	Company           string   `json:"entreprise"`
	RequiredSkills    []string `json:"competences"`
	PreferredSkills   []string `json:"competences_souhaitees"`
	Location          string   `json:"localisation"`
	SalaryMin         float64  `json:"salaire_min" validate:"min=0"`
	SalaryMax         float64  `json:"salaire_max" validate:"min=0"`
	RequiredYears     float64  `json:"experience_requise" validate:"min=0,max=60"`
	ContractType      string   `json:"type_contrat"`
	GrowthPerspective bool     `json:"perspectives_evolution"`
	Culture           []string `json:"culture"`
	RequiredLanguages []string `json:"langues_requises"`
	RequiredTools     []string `json:"outils_requis"`
	PeopleManagement  bool     `json:"management_equipe"`
	TechnicalLevel    string   `json:"niveau_technique"`
	Remote            bool     `json:"teletravail"`
	StrictOnSite      bool     `json:"presentiel_strict"`
	Description       string   `json:"description"`
	DistanceKm        *float64 `json:"distance_km,omitempty" validate:"omitempty,min=0"`
	TravelMinutes     *float64 `json:"temps_trajet_minutes,omitempty" validate:"omitempty,min=0"`
}

type CandidateData struct {
	ID            string            `json:"id" validate:"required"`
	CV            CVData            `json:"cv_data"`
	Questionnaire QuestionnaireData `json:"questionnaire_data"`
}

// MatchRequest scores one candidate against many jobs.
type MatchRequest struct {
	CandidateID   string            `json:"candidate_id"`
	CV            CVData            `json:"cv_data"`
	Questionnaire QuestionnaireData `json:"questionnaire_data"`
	Jobs          []JobData         `json:"job_data" validate:"required,min=1,max=500,dive"`
	Algorithm     string            `json:"algorithm"`
	Limit         int               `json:"limit" validate:"min=0,max=100"`
}

// ReverseMatchRequest scores many candidates against one job.
type ReverseMatchRequest struct {
	Job        JobData         `json:"job_data"`
	Candidates []CandidateData `json:"candidates_data" validate:"required,min=1,max=500,dive"`
	Algorithm  string          `json:"algorithm"`
	Limit      int             `json:"limit" validate:"min=0,max=100"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (r *MatchRequest) Validate() (matching.Strategy, error) {
	fields := structErrors(validate.Struct(r))
	for i, j := range r.Jobs {
		checkSalaryRange(fields, fmt.Sprintf("job_data[%d]", i), j)
	}
	s, err := matching.ParseStrategy(r.Algorithm)
	if err != nil {
		fields["algorithm"] = fmt.Sprintf("unknown algorithm %q", r.Algorithm)
	}
	if len(fields) > 0 {
		return "", &ValidationError{Fields: fields}
	}
	return s, nil
}

func (r *ReverseMatchRequest) Validate() (matching.Strategy, error) {
	fields := structErrors(validate.Struct(r))
	checkSalaryRange(fields, "job_data", r.Job)
	s, err := matching.ParseStrategy(r.Algorithm)
	if err != nil {
		fields["algorithm"] = fmt.Sprintf("unknown algorithm %q", r.Algorithm)
	}
	if len(fields) > 0 {
		return "", &ValidationError{Fields: fields}
	}
	return s, nil
}

func checkSalaryRange(fields map[string]string, path string, j JobData) {
	if j.SalaryMin > 0 && j.SalaryMax > 0 && j.SalaryMax < j.SalaryMin {
		fields[path+".salaire_max"] = "must be greater than or equal to salaire_min"
	}
}

func structErrors(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		out["body"] = err.Error()
		return out
	}
	for _, fe := range ves {
		out[fieldPath(fe.Namespace())] = fieldMessage(fe)
	}
	return out
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		if fe.Kind() == reflect.Slice {
			return "must contain at least " + fe.Param() + " item(s)"
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.Slice {
			return "must contain at most " + fe.Param() + " item(s)"
		}
		return "must be at most " + fe.Param()
	default:
		return "failed on " + fe.Tag()
	}
}

// completeness counts the core answers: adresse, salaire_souhaite, criteres_importants and
// objectifs_carriere. Mobility and commute fields are optional refinements.
const questionnaireCoreFields = 4

func (q QuestionnaireData) completeness() float64 {
	filled := 0
	if strings.TrimSpace(q.Address) != "" {
		filled++
	}
	if q.DesiredSalary != nil {
		filled++
	}
	if len(q.Priorities) > 0 {
		filled++
	}
	if len(q.Objectives) > 0 {
		filled++
	}
	return float64(filled) / questionnaireCoreFields
}

func toCandidate(id string, cv CVData, q QuestionnaireData) matching.Candidate {
	c := matching.Candidate{
		ID:                        id,
		Name:                      cv.Name,
		Skills:                    cv.Skills,
		YearsExperience:           cv.YearsExperience,
		DesiredSalary:             q.DesiredSalary,
		Address:                   q.Address,
		SoftSkills:                cv.SoftSkills,
		Languages:                 cv.Languages,
		Tools:                     cv.Tools,
		Objectives:                q.Objectives,
		Priorities:                q.Priorities,
		TransportMode:             q.TransportMode,
		MaxCommuteMinutes:         q.MaxCommuteMinutes,
		PreferredContract:         q.PreferredContract,
		Summary:                   cv.Summary,
		QuestionnaireCompleteness: q.completeness(),
	}
	if q.Mobility != nil {
		c.Mobility = *q.Mobility
	}
	return c
}

func toJob(j JobData) matching.Job {
	return matching.Job{
		ID:                j.ID,
		Title:             j.Title,
		Company:           j.Company,
		RequiredSkills:    j.RequiredSkills,
		PreferredSkills:   j.PreferredSkills,
		Location:          j.Location,
		SalaryMin:         j.SalaryMin,
		SalaryMax:         j.SalaryMax,
		RequiredYears:     j.RequiredYears,
		ContractType:      j.ContractType,
		GrowthPerspective: j.GrowthPerspective,
		Culture:           j.Culture,
		RequiredLanguages: j.RequiredLanguages,
		RequiredTools:     j.RequiredTools,
		PeopleManagement:  j.PeopleManagement,
		TechnicalLevel:    j.TechnicalLevel,
		Remote:            j.Remote,
		StrictOnSite:      j.StrictOnSite,
		Description:       j.Description,
		DistanceKm:        j.DistanceKm,
		TravelMinutes:     j.TravelMinutes,
	}
}
