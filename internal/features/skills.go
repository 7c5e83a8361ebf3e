// Package features turns (employee, task) pairs into fixed numeric
// signatures for scoring and training-data logging.
package features

import (
	"math"
	"sort"
	"strings"
)

// skillSynonyms groups near-synonym terms so that, for example, "ml" on an
// employee matches "machine learning" on a task.
var skillSynonyms = map[string][]string{
	"ml":       {"machine learning", "ml", "ai"},
	"frontend": {"frontend", "front-end", "ui", "user interface"},
	"backend":  {"backend", "back-end", "server-side"},
	"database": {"database", "db", "sql", "postgresql", "mysql"},
	"api":      {"api", "rest", "restful", "web service"},
}

// SkillMatcher computes [0,1] similarity between two skill sets. It is
// stateless and safe for concurrent use.
type SkillMatcher struct {
	// overlapWeight balances exact term overlap against soft cosine
	// similarity. Remaining weight goes to the cosine component.
	overlapWeight float64
}

// NewSkillMatcher returns a matcher with the default 0.5/0.5 blend of
// exact overlap and cosine similarity.
func NewSkillMatcher() *SkillMatcher {
	return &SkillMatcher{overlapWeight: 0.5}
}

// ParseSkills splits a raw skill string on commas and semicolons,
// lowercases and trims each term, and drops empties.
func ParseSkills(raw string) []string {
	if raw == "" {
		return nil
	}
	raw = strings.ReplaceAll(raw, ";", ",")
	parts := strings.Split(raw, ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			skills = append(skills, p)
		}
	}
	return skills
}

// expand adds synonym-group members for every term that belongs to a group.
func expand(skills []string) []string {
	set := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		set[s] = struct{}{}
	}
	for _, s := range skills {
		for _, group := range skillSynonyms {
			for _, syn := range group {
				if s == syn {
					for _, g := range group {
						set[g] = struct{}{}
					}
					break
				}
			}
		}
	}
	out := make([]string, 0, len(set))
	for s := range set {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Similarity returns a [0,1] similarity between two skill strings.
// If either parses to an empty set the similarity is 0.
func (m *SkillMatcher) Similarity(employeeSkills, taskSkills string) float64 {
	a := expand(ParseSkills(employeeSkills))
	b := expand(ParseSkills(taskSkills))
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	jac := jaccard(a, b)
	cos := tokenCosine(a, b)

	sim := m.overlapWeight*jac + (1-m.overlapWeight)*cos
	return clamp01(sim)
}

// Overlap describes the exact-term relationship between an employee's
// skills and a task's requirements.
type Overlap struct {
	Matching      []string `json:"matching_skills"`
	Missing       []string `json:"missing_skills"`
	Extra         []string `json:"extra_skills"`
	OverlapRatio  float64  `json:"overlap_ratio"`
	TotalRequired int      `json:"total_required"`
	TotalEmployee int      `json:"total_employee"`
}

// Overlap reports the exact-term overlap detail without synonym expansion,
// so the lists reflect what was literally written on each side.
func (m *SkillMatcher) Overlap(employeeSkills, taskSkills string) Overlap {
	emp := ParseSkills(employeeSkills)
	req := ParseSkills(taskSkills)

	empSet := toSet(emp)
	reqSet := toSet(req)

	var matching, missing, extra []string
	for _, s := range req {
		if _, ok := empSet[s]; ok {
			matching = append(matching, s)
		} else {
			missing = append(missing, s)
		}
	}
	for _, s := range emp {
		if _, ok := reqSet[s]; !ok {
			extra = append(extra, s)
		}
	}

	ratio := 0.0
	if len(reqSet) > 0 {
		ratio = float64(len(matching)) / float64(len(reqSet))
	}

	return Overlap{
		Matching:      matching,
		Missing:       missing,
		Extra:         extra,
		OverlapRatio:  ratio,
		TotalRequired: len(reqSet),
		TotalEmployee: len(empSet),
	}
}

func toSet(terms []string) map[string]struct{} {
	set := make(map[string]struct{}, len(terms))
	for _, t := range terms {
		set[t] = struct{}{}
	}
	return set
}

func jaccard(a, b []string) float64 {
	as := toSet(a)
	bs := toSet(b)
	inter := 0
	for t := range as {
		if _, ok := bs[t]; ok {
			inter++
		}
	}
	union := len(as) + len(bs) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// tokenCosine computes cosine similarity over word-level term frequencies.
// Multi-word skills contribute their individual words, so "machine
// learning" and "machine vision" retain partial similarity.
func tokenCosine(a, b []string) float64 {
	av := wordFreq(a)
	bv := wordFreq(b)

	var dot, na, nb float64
	for w, ca := range av {
		if cb, ok := bv[w]; ok {
			dot += float64(ca * cb)
		}
		na += float64(ca * ca)
	}
	for _, cb := range bv {
		nb += float64(cb * cb)
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func wordFreq(terms []string) map[string]int {
	freq := make(map[string]int)
	for _, t := range terms {
		for _, w := range strings.Fields(t) {
			freq[w]++
		}
	}
	return freq
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
