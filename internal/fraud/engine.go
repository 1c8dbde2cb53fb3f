package fraud

import (
	"net/url"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/horizontego/job-ingest/internal/domain"
)

const (
	MaxScore = 100
	MinScore = 0
)

// Result is the trust assessment of one posting
type Result struct {
	Score        int      `json:"score"`
	RedFlags     []string `json:"redFlags"`
	Warnings     []string `json:"warnings"`
	IsLikelySafe bool     `json:"isLikelySafe"`
}

// Engine scores postings against a rule set. It holds no mutable state and
// may be shared between goroutines.
type Engine struct {
	rules   Rules
	phrases [][]string
	sources map[string]bool
	domains []string
	tlds    map[string]bool
}

var defaultEngine = NewEngine(DefaultRules())

// Score evaluates p with the default rules
func Score(p *domain.Posting) Result {
	return defaultEngine.Score(p)
}

// NewEngine prepares rules for matching
func NewEngine(rules Rules) *Engine {
	lower := cases.Lower(language.Und)

	e := &Engine{
		rules:   rules,
		phrases: make([][]string, len(rules.Phrases)),
		sources: make(map[string]bool, len(rules.TrustedSources)),
		tlds:    make(map[string]bool, len(rules.SuspiciousTLDs)),
	}
	for i, pr := range rules.Phrases {
		for _, ph := range pr.Phrases {
			e.phrases[i] = append(e.phrases[i], lower.String(ph))
		}
	}
	for _, s := range rules.TrustedSources {
		e.sources[s] = true
	}
	for _, d := range rules.TrustedDomains {
		e.domains = append(e.domains, strings.ToLower(strings.TrimPrefix(d, ".")))
	}
	for _, t := range rules.SuspiciousTLDs {
		e.tlds[strings.ToLower(strings.TrimPrefix(t, "."))] = true
	}
	return e
}

// Score evaluates p. It never fails; a nil posting is scored as empty.
func (e *Engine) Score(p *domain.Posting) Result {
	if p == nil {
		p = &domain.Posting{}
	}
	// Casers keep state between calls
	lower := cases.Lower(language.Und)

	r := Result{
		Score:    MaxScore,
		RedFlags: []string{},
		Warnings: []string{},
	}

	fullText := lower.String(strings.Join([]string{
		p.Title,
		p.Company,
		p.Description,
		strings.Join(p.Requirements, "\n"),
		p.Salary,
	}, "\n"))
	salaryText := lower.String(p.Salary)

	for i, pr := range e.rules.Phrases {
		text := fullText
		if pr.Scope == ScopeSalary {
			text = salaryText
		}
		if !containsAny(text, e.phrases[i]) {
			continue
		}
		if pr.Severity == SeverityRedFlag {
			r.RedFlags = append(r.RedFlags, pr.Label)
		} else {
			r.Warnings = append(r.Warnings, pr.Label)
		}
		r.Score -= pr.Deduction
	}

	if utf8.RuneCountInString(strings.TrimSpace(p.Company)) < e.rules.MinCompanyLength {
		r.Warnings = append(r.Warnings, e.rules.CompanyLabel)
		r.Score -= e.rules.CompanyDeduction
	}
	if utf8.RuneCountInString(strings.TrimSpace(p.Description)) < e.rules.MinDescriptionLength {
		r.Warnings = append(r.Warnings, e.rules.DescriptionLabel)
		r.Score -= e.rules.DescriptionDeduction
	}

	if e.sources[p.SourceName] {
		r.Score = min(r.Score+e.rules.TrustBonus, MaxScore)
	}

	if host := hostOf(p.ExternalURL); host != "" {
		if e.trustedHost(host) {
			r.Score = min(r.Score+e.rules.TrustBonus, MaxScore)
		} else if e.tlds[tld(host)] {
			r.Warnings = append(r.Warnings, e.rules.SuspiciousDomainLabel)
			r.Score -= e.rules.SuspiciousDomainDeduction
		}
	}

	r.Score = max(MinScore, min(MaxScore, r.Score))
	r.IsLikelySafe = r.Score >= e.rules.SafeThreshold && len(r.RedFlags) == 0
	return r
}

func containsAny(text string, phrases []string) bool {
	for _, ph := range phrases {
		if ph != "" && strings.Contains(text, ph) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	if rawURL == "" {
		return ""
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
}

func (e *Engine) trustedHost(host string) bool {
	for _, d := range e.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func tld(host string) string {
	if i := strings.LastIndexByte(host, '.'); i >= 0 {
		return host[i+1:]
	}
	return host
}

// Summary describes r in one sentence for the user
func Summary(r Result) string {
	switch {
	case r.Score >= 90:
		return "Vaga altamente confiável"
	case r.Score >= 70:
		return "Vaga parece segura"
	case r.Score >= 50:
		return "Vaga requer atenção - verifique detalhes"
	case r.Score >= 30:
		return "Vaga suspeita - proceda com cautela"
	default:
		return "Vaga altamente suspeita - NÃO recomendada"
	}
}
