package matching

import "strings"

var skillAliases = map[string]string{
	"golang":              "go",
	"js":                  "javascript",
	"ecmascript":          "javascript",
	"ts":                  "typescript",
	"py":                  "python",
	"postgres":            "postgresql",
	"psql":                "postgresql",
	"k8s":                 "kubernetes",
	"reactjs":             "react",
	"react js":            "react",
	"vuejs":               "vue",
	"angularjs":           "angular",
	"nodejs":              "node",
	"node js":             "node",
	"gcp":                 "google cloud",
	"amazon web services": "aws",
	"ms excel":            "excel",
	"microsoft excel":     "excel",
	"ms office":           "office",
	"microsoft office":    "office",
	"gitlab ci":           "gitlab",
	"github actions":      "github",
	"anglais":             "english",
	"francais":            "french",
	"espagnol":            "spanish",
	"allemand":            "german",
	"italien":             "italian",
	"portugais":           "portuguese",
	"chinois":             "chinese",
	"arabe":               "arabic",
}

// skillFamilies groups canonical skills that can stand in for each other.
var skillFamilies = map[string][]string{
	"sql":        {"postgresql", "mysql", "mariadb", "sqlite", "sql server", "oracle", "sql"},
	"frontend":   {"react", "vue", "angular", "svelte"},
	"script":     {"javascript", "typescript"},
	"cloud":      {"aws", "google cloud", "azure"},
	"containers": {"docker", "kubernetes", "podman", "openshift"},
	"ci":         {"jenkins", "gitlab", "github", "circleci"},
	"tracking":   {"jira", "trello", "asana", "monday"},
	"sheets":     {"excel", "google sheets", "libreoffice calc"},
	"design":     {"figma", "sketch", "adobe xd"},
	"python web": {"django", "flask", "fastapi"},
	"jvm":        {"java", "kotlin", "scala"},
}

var familyOf = buildFamilyIndex(skillFamilies)

func buildFamilyIndex(families map[string][]string) map[string]string {
	out := make(map[string]string)
	for family, members := range families {
		for _, m := range members {
			out[m] = family
		}
	}
	return out
}

// nearMatch reports whether two canonical skills are related without being equal:
// same family, or one is a whole-word part of the other ("react" and "react native").
func nearMatch(a, b string) bool {
	if a == "" || b == "" || a == b {
		return false
	}
	if fa, ok := familyOf[a]; ok && fa == familyOf[b] {
		return true
	}
	return containsWord(a, b) || containsWord(b, a)
}

func containsWord(haystack, needle string) bool {
	for _, w := range strings.Fields(haystack) {
		if w == needle {
			return true
		}
	}
	return false
}
