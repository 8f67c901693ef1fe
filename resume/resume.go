package resume

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Data is the pre-parsed resume shared read-only across a run
type Data struct {
	Personal   Personal     `yaml:"personal"`
	Summary    string       `yaml:"summary"`
	Experience []Experience `yaml:"experience"`
	Education  []Education  `yaml:"education"`
	Skills     []string     `yaml:"skills"`
	Languages  []string     `yaml:"languages"`
	Defaults   Defaults     `yaml:"defaults"`
}

// Personal holds contact and identity fields
type Personal struct {
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Email     string `yaml:"email"`
	Phone     string `yaml:"phone"`
	City      string `yaml:"city"`
	Country   string `yaml:"country"`
	LinkedIn  string `yaml:"linkedin"`
	Website   string `yaml:"website"`
}

// Experience is one dated role. EndYear 0 means current.
type Experience struct {
	Title       string   `yaml:"title"`
	Company     string   `yaml:"company"`
	StartYear   int      `yaml:"start_year"`
	EndYear     int      `yaml:"end_year"`
	Description string   `yaml:"description"`
	Skills      []string `yaml:"skills"`
}

// Education is one degree entry
type Education struct {
	Degree string `yaml:"degree"`
	School string `yaml:"school"`
	Field  string `yaml:"field"`
	Year   int    `yaml:"year"`
}

// Defaults are bounded fallback answers for common screening questions
type Defaults struct {
	NoticePeriodWeeks int    `yaml:"notice_period_weeks"`
	SalaryExpectation string `yaml:"salary_expectation"`
	WorkAuthorization bool   `yaml:"work_authorization"`
	RequiresSponsorship bool `yaml:"requires_sponsorship"`
	WillingToRelocate bool   `yaml:"willing_to_relocate"`
}

// Load reads resume data from a YAML file
func Load(path string) (*Data, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume file: %w", err)
	}

	var data Data
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("failed to parse resume file: %w", err)
	}

	if data.Personal.FirstName == "" || data.Personal.Email == "" {
		return nil, fmt.Errorf("resume is missing required personal fields")
	}

	return &data, nil
}

// FullName returns the candidate's display name
func (d *Data) FullName() string {
	return strings.TrimSpace(d.Personal.FirstName + " " + d.Personal.LastName)
}

// YearsOfExperience computes total years across experience entries whose
// title, description, or skill list mentions the keyword. Overlapping roles
// count once per calendar year.
func (d *Data) YearsOfExperience(keyword string) int {
	needle := strings.ToLower(strings.TrimSpace(keyword))
	if needle == "" {
		return d.totalYears()
	}

	currentYear := time.Now().Year()
	years := make(map[int]struct{})

	for _, exp := range d.Experience {
		if !exp.mentions(needle) {
			continue
		}
		end := exp.EndYear
		if end == 0 {
			end = currentYear
		}
		for y := exp.StartYear; y <= end; y++ {
			years[y] = struct{}{}
		}
	}

	if len(years) == 0 {
		return 0
	}
	// N distinct calendar years spans N-1 full years plus the partial ends;
	// report the inclusive span the way a candidate would.
	return len(years) - 1
}

func (e Experience) mentions(needle string) bool {
	if strings.Contains(strings.ToLower(e.Title), needle) {
		return true
	}
	if strings.Contains(strings.ToLower(e.Description), needle) {
		return true
	}
	for _, skill := range e.Skills {
		if strings.Contains(strings.ToLower(skill), needle) {
			return true
		}
	}
	return false
}

func (d *Data) totalYears() int {
	currentYear := time.Now().Year()
	years := make(map[int]struct{})
	for _, exp := range d.Experience {
		end := exp.EndYear
		if end == 0 {
			end = currentYear
		}
		for y := exp.StartYear; y <= end; y++ {
			years[y] = struct{}{}
		}
	}
	if len(years) == 0 {
		return 0
	}
	return len(years) - 1
}

// Excerpt selects the resume slice most relevant to a question, for use in
// text-generation prompts
func (d *Data) Excerpt(question string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\n", d.FullName())
	if d.Summary != "" {
		fmt.Fprintf(&b, "Summary: %s\n", d.Summary)
	}
	if len(d.Skills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(d.Skills, ", "))
	}

	q := strings.ToLower(question)
	for _, exp := range d.Experience {
		if exp.mentions(extractTopic(q)) || len(d.Experience) <= 3 {
			end := "present"
			if exp.EndYear != 0 {
				end = fmt.Sprintf("%d", exp.EndYear)
			}
			fmt.Fprintf(&b, "Role: %s at %s (%d-%s): %s\n", exp.Title, exp.Company, exp.StartYear, end, exp.Description)
		}
	}
	for _, edu := range d.Education {
		fmt.Fprintf(&b, "Education: %s in %s, %s (%d)\n", edu.Degree, edu.Field, edu.School, edu.Year)
	}
	return b.String()
}

// extractTopic pulls the most distinctive word from a question to pick
// relevant experience entries
func extractTopic(question string) string {
	words := strings.Fields(question)
	best := ""
	for _, w := range words {
		w = strings.Trim(w, "?.,:;()\"'")
		if len(w) > len(best) && !isCommonWord(w) {
			best = w
		}
	}
	return best
}

func isCommonWord(w string) bool {
	common := map[string]struct{}{
		"experience": {}, "years": {}, "many": {}, "much": {}, "have": {},
		"with": {}, "what": {}, "your": {}, "how": {}, "about": {},
		"work": {}, "working": {}, "would": {}, "please": {}, "describe": {},
	}
	_, ok := common[strings.ToLower(w)]
	return ok
}
