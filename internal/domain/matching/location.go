package matching

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	mobilityBonus = 10

	samePostcodeKm    = 3.0
	sameCityKm        = 8.0
	sameDepartmentKm  = 35.0
	otherDepartmentKm = 150.0

	minutesPenalty = 0.75
)

type metricKind string

const (
	metricMinutes   metricKind = "minutes"
	metricDistance  metricKind = "km"
	metricEstimated metricKind = "estimation"
)

type travelMetric struct {
	kind  metricKind
	value float64
}

func (m travelMetric) score() int {
	if m.kind == metricMinutes {
		return percent(100 - minutesPenalty*m.value)
	}
	return percent(100 - m.value)
}

func (m travelMetric) describe() string {
	switch m.kind {
	case metricMinutes:
		return fmt.Sprintf("temps de trajet %.0f min", m.value)
	case metricDistance:
		return fmt.Sprintf("distance %.0f km", m.value)
	default:
		return fmt.Sprintf("distance estimée %.0f km d'après les adresses", m.value)
	}
}

func locationBand(score int) string {
	switch {
	case score >= 85:
		return "même secteur"
	case score >= 70:
		return "même région"
	case score >= 50:
		return "trajet acceptable"
	default:
		return "trajet long"
	}
}

func ScoreLocation(c Candidate, j Job) CriterionScore {
	if j.Remote {
		return CriterionScore{
			Criterion:  CriterionLocation,
			Percentage: 100,
			Details:    []string{"poste en télétravail"},
		}
	}

	m, ok := estimateTravel(c, j)
	if !ok {
		return neutral(CriterionLocation, "adresse du candidat ou du poste inexploitable")
	}

	base := m.score()
	score := base
	details := []string{m.describe(), locationBand(base)}

	if c.MaxCommuteMinutes != nil && m.kind == metricMinutes && m.value > *c.MaxCommuteMinutes {
		details = append(details, fmt.Sprintf("dépasse le trajet maximum souhaité (%.0f min)", *c.MaxCommuteMinutes))
	}
	if c.Mobility {
		score = clampInt(score+mobilityBonus, minPercentage, maxPercentage)
		details = append(details, fmt.Sprintf("mobilité déclarée (+%d)", mobilityBonus))
	}

	return CriterionScore{
		Criterion:  CriterionLocation,
		Percentage: score,
		Details:    details,
	}
}

// baseLocationScore is the location score before mobility, and false when no metric is usable.
func baseLocationScore(c Candidate, j Job) (int, bool) {
	if j.Remote {
		return 100, true
	}
	m, ok := estimateTravel(c, j)
	if !ok {
		return 0, false
	}
	return m.score(), true
}

func estimateTravel(c Candidate, j Job) (travelMetric, bool) {
	if j.TravelMinutes != nil && strings.TrimSpace(c.TransportMode) != "" && validMetric(*j.TravelMinutes) {
		return travelMetric{kind: metricMinutes, value: *j.TravelMinutes}, true
	}
	if j.DistanceKm != nil && validMetric(*j.DistanceKm) {
		return travelMetric{kind: metricDistance, value: *j.DistanceKm}, true
	}
	km, ok := estimateDistance(c.Address, j.Location)
	if !ok {
		return travelMetric{}, false
	}
	return travelMetric{kind: metricEstimated, value: km}, true
}

func validMetric(v float64) bool {
	return v >= 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}

var postcodePattern = regexp.MustCompile(`\b(\d{5})\b`)

// Département codes of the largest cities, for addresses given without a postcode.
var cityDepartments = map[string]string{
	"paris":       "75",
	"marseille":   "13",
	"lyon":        "69",
	"toulouse":    "31",
	"nice":        "06",
	"nantes":      "44",
	"montpellier": "34",
	"strasbourg":  "67",
	"bordeaux":    "33",
	"lille":       "59",
	"rennes":      "35",
	"reims":       "51",
	"grenoble":    "38",
	"dijon":       "21",
	"angers":      "49",
	"nimes":       "30",
	"brest":       "29",
	"tours":       "37",
	"limoges":     "87",
	"rouen":       "76",
}

type address struct {
	postcode   string
	city       string
	department string
}

func parseAddress(raw string) address {
	var a address
	if m := postcodePattern.FindStringSubmatch(raw); m != nil {
		a.postcode = m[1]
		a.department = departmentOf(a.postcode)
		rest := raw[strings.Index(raw, m[1])+len(m[1]):]
		a.city = NormalizeText(strings.Split(rest, ",")[0])
	}
	if a.city == "" {
		parts := strings.Split(raw, ",")
		a.city = NormalizeText(postcodePattern.ReplaceAllString(parts[len(parts)-1], ""))
	}
	if a.department == "" {
		a.department = cityDepartments[a.city]
	}
	return a
}

func departmentOf(postcode string) string {
	if strings.HasPrefix(postcode, "97") || strings.HasPrefix(postcode, "98") {
		return postcode[:3]
	}
	if strings.HasPrefix(postcode, "20") {
		return "2A"
	}
	return postcode[:2]
}

func estimateDistance(candidateAddress, jobLocation string) (float64, bool) {
	if strings.TrimSpace(candidateAddress) == "" || strings.TrimSpace(jobLocation) == "" {
		return 0, false
	}
	ca := parseAddress(candidateAddress)
	ja := parseAddress(jobLocation)

	switch {
	case ca.postcode != "" && ca.postcode == ja.postcode:
		return samePostcodeKm, true
	case ca.city != "" && ca.city == ja.city:
		return sameCityKm, true
	case ca.department != "" && ca.department == ja.department:
		return sameDepartmentKm, true
	case ca.department != "" && ja.department != "":
		return otherDepartmentKm, true
	default:
		return 0, false
	}
}
