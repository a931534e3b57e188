package matching

type Candidate struct {
	ID                string
	Name              string
	Skills            []string
	YearsExperience   *float64
	DesiredSalary     *float64
	Address           string
	SoftSkills        []string
	Languages         []string
	Tools             []string
	Objectives        map[string]bool
	Priorities        map[string]bool
	Mobility          bool
	TransportMode     string
	MaxCommuteMinutes *float64
	PreferredContract string
	Summary           string

	// QuestionnaireCompleteness is the filled share of the core questionnaire fields, in [0,1].
	QuestionnaireCompleteness float64
}

func (c Candidate) QuestionnaireComplete() bool {
	return c.QuestionnaireCompleteness >= 1
}

// QuestionnairePartial is true when some, but not all, core fields were answered.
func (c Candidate) QuestionnairePartial() bool {
	return c.QuestionnaireCompleteness > 0 && c.QuestionnaireCompleteness < 1
}

type Job struct {
	ID                string
	Title             string
	Company           string
	RequiredSkills    []string
	PreferredSkills   []string
	Location          string
	SalaryMin         float64
	SalaryMax         float64
	RequiredYears     float64
	ContractType      string
	GrowthPerspective bool
	Culture           []string
	RequiredLanguages []string
	RequiredTools     []string
	PeopleManagement  bool
	TechnicalLevel    string
	Remote            bool
	StrictOnSite      bool
	Description       string
	DistanceKm        *float64
	TravelMinutes     *float64
}
