package matching

type Trait string

const (
	TraitAmbitious        Trait = "ambitious"
	TraitStabilitySeeking Trait = "stability_seeking"
	TraitCreative         Trait = "creative"
	TraitLeadership       Trait = "leadership"
	TraitSpecialist       Trait = "specialist"
	TraitGeneralist       Trait = "generalist"
)

type JobTrait string

const (
	JobTraitGrowth           JobTrait = "growth"
	JobTraitLongTerm         JobTrait = "long_term"
	JobTraitInnovation       JobTrait = "innovation"
	JobTraitPeopleManagement JobTrait = "people_management"
	JobTraitHighlyTechnical  JobTrait = "highly_technical"
	JobTraitAgile            JobTrait = "agile"
)

type TraitSource string

const (
	SourceCV            TraitSource = "cv"
	SourceQuestionnaire TraitSource = "questionnaire"
)

// CandidateTraits maps each detected trait to where it was found.
// A trait found in the CV wins over the questionnaire.
type CandidateTraits map[Trait]TraitSource

func (t CandidateTraits) Has(tr Trait) bool {
	_, ok := t[tr]
	return ok
}

type JobTraits map[JobTrait]struct{}

func (t JobTraits) Has(tr JobTrait) bool {
	_, ok := t[tr]
	return ok
}

var objectiveTraits = map[string]Trait{
	"evolution_rapide":    TraitAmbitious,
	"evolution":           TraitAmbitious,
	"progression":         TraitAmbitious,
	"ambition":            TraitAmbitious,
	"carriere":            TraitAmbitious,
	"stabilite":           TraitStabilitySeeking,
	"securite":            TraitStabilitySeeking,
	"securite_emploi":     TraitStabilitySeeking,
	"long_terme":          TraitStabilitySeeking,
	"creativite":          TraitCreative,
	"innovation":          TraitCreative,
	"creation":            TraitCreative,
	"leadership":          TraitLeadership,
	"management":          TraitLeadership,
	"encadrement":         TraitLeadership,
	"manager":             TraitLeadership,
	"expertise_technique": TraitSpecialist,
	"expertise":           TraitSpecialist,
	"specialisation":      TraitSpecialist,
	"polyvalence":         TraitGeneralist,
	"diversite":           TraitGeneralist,
	"generaliste":         TraitGeneralist,
}

var softSkillTraits = map[string]Trait{
	"creativite":  TraitCreative,
	"creatif":     TraitCreative,
	"creative":    TraitCreative,
	"creativity":  TraitCreative,
	"innovation":  TraitCreative,
	"leadership":  TraitLeadership,
	"management":  TraitLeadership,
	"encadrement": TraitLeadership,
	"polyvalence": TraitGeneralist,
	"polyvalent":  TraitGeneralist,
	"polyvalente": TraitGeneralist,
	"versatile":   TraitGeneralist,
	"ambitieux":   TraitAmbitious,
	"ambitieuse":  TraitAmbitious,
	"ambitious":   TraitAmbitious,
}

var (
	longTermContracts = map[string]struct{}{"cdi": {}, "permanent": {}, "long_terme": {}}
	innovationTags    = map[string]struct{}{"innovation": {}, "innovant": {}, "innovante": {}, "r_d": {}, "recherche": {}, "creativite": {}}
	agileTags         = map[string]struct{}{"agile": {}, "startup": {}, "start_up": {}, "scale_up": {}, "scaleup": {}, "changement_rapide": {}, "fast_paced": {}, "polyvalence": {}}
	technicalLevels   = map[string]struct{}{"expert": {}, "avance": {}, "high": {}, "eleve": {}, "senior": {}}
)

const (
	specialistMinSkills      = 8
	specialistMinYears       = 7.0
	highlyTechnicalMinSkills = 6
)

func CandidateTraitsOf(c Candidate) CandidateTraits {
	out := make(CandidateTraits)

	for key, on := range c.Objectives {
		if !on {
			continue
		}
		if tr, ok := objectiveTraits[NormalizeKey(key)]; ok {
			out[tr] = SourceQuestionnaire
		}
	}
	for _, s := range c.SoftSkills {
		if tr, ok := softSkillTraits[NormalizeKey(s)]; ok {
			out[tr] = SourceCV
		}
	}
	if len(normalizeList(c.Skills)) >= specialistMinSkills && c.YearsExperience != nil && *c.YearsExperience >= specialistMinYears {
		out[TraitSpecialist] = SourceCV
	}
	return out
}

func JobTraitsOf(j Job) JobTraits {
	out := make(JobTraits)
	if j.GrowthPerspective {
		out[JobTraitGrowth] = struct{}{}
	}
	if _, ok := longTermContracts[NormalizeKey(j.ContractType)]; ok {
		out[JobTraitLongTerm] = struct{}{}
	}
	for _, tag := range j.Culture {
		k := NormalizeKey(tag)
		if _, ok := innovationTags[k]; ok {
			out[JobTraitInnovation] = struct{}{}
		}
		if _, ok := agileTags[k]; ok {
			out[JobTraitAgile] = struct{}{}
		}
	}
	if j.PeopleManagement {
		out[JobTraitPeopleManagement] = struct{}{}
	}
	if _, ok := technicalLevels[NormalizeKey(j.TechnicalLevel)]; ok || len(normalizeList(j.RequiredSkills)) >= highlyTechnicalMinSkills {
		out[JobTraitHighlyTechnical] = struct{}{}
	}
	return out
}
