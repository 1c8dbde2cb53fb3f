package fraud

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Severity decides whether a matched rule is a red flag or a warning
type Severity string

const (
	SeverityRedFlag Severity = "red_flag"
	SeverityWarning Severity = "warning"
)

// Scope is the text a phrase rule is matched against
type Scope string

const (
	ScopeFullText Scope = "full_text"
	ScopeSalary   Scope = "salary"
)

// PhraseRule fires when any of its phrases occurs in the scoped text
type PhraseRule struct {
	ID        string   `yaml:"id"`
	Label     string   `yaml:"label"`
	Severity  Severity `yaml:"severity"`
	Scope     Scope    `yaml:"scope"`
	Phrases   []string `yaml:"phrases"`
	Deduction int      `yaml:"deduction"`
}

// Rules holds every weight and list the engine uses
type Rules struct {
	Phrases []PhraseRule `yaml:"phrases"`

	MinCompanyLength int    `yaml:"min_company_length"`
	CompanyDeduction int    `yaml:"company_deduction"`
	CompanyLabel     string `yaml:"company_label"`

	MinDescriptionLength int    `yaml:"min_description_length"`
	DescriptionDeduction int    `yaml:"description_deduction"`
	DescriptionLabel     string `yaml:"description_label"`

	TrustedSources []string `yaml:"trusted_sources"`
	TrustedDomains []string `yaml:"trusted_domains"`
	TrustBonus     int      `yaml:"trust_bonus"`

	SuspiciousTLDs            []string `yaml:"suspicious_tlds"`
	SuspiciousDomainDeduction int      `yaml:"suspicious_domain_deduction"`
	SuspiciousDomainLabel     string   `yaml:"suspicious_domain_label"`

	SafeThreshold int `yaml:"safe_threshold"`
}

// Finding labels, shown to Portuguese-speaking users
const (
	LabelMoneyTransfer    = "Solicita transferência ou recebimento de dinheiro"
	LabelBankDetails      = "Pede informações bancárias no início do processo"
	LabelUpfrontPayment   = "Solicita pagamento antecipado (taxas, vistos, etc)"
	LabelUrgentPressure   = "Pressão excessiva para decisão rápida"
	LabelTooGoodToBeTrue  = "Salário ou benefícios irrealisticamente altos"
	LabelNoCompanyInfo    = "Informações limitadas sobre a empresa"
	LabelGenericJobDesc   = "Descrição de trabalho muito genérica"
	LabelSuspiciousDomain = "Domínio suspeito detectado"
)

// DefaultRules returns the built-in rule set
func DefaultRules() Rules {
	return Rules{
		Phrases: []PhraseRule{
			{
				ID:        "money_transfer",
				Label:     LabelMoneyTransfer,
				Severity:  SeverityRedFlag,
				Scope:     ScopeFullText,
				Phrases:   []string{"transfer", "transferência", "enviar dinheiro", "send money"},
				Deduction: 40,
			},
			{
				ID:        "bank_details",
				Label:     LabelBankDetails,
				Severity:  SeverityRedFlag,
				Scope:     ScopeFullText,
				Phrases:   []string{"bank account", "conta bancária", "dados bancários", "banking details"},
				Deduction: 35,
			},
			{
				ID:        "upfront_payment",
				Label:     LabelUpfrontPayment,
				Severity:  SeverityRedFlag,
				Scope:     ScopeFullText,
				Phrases:   []string{"pagamento antecipado", "upfront payment", "taxa de", "processing fee"},
				Deduction: 40,
			},
			{
				ID:        "urgent_pressure",
				Label:     LabelUrgentPressure,
				Severity:  SeverityWarning,
				Scope:     ScopeFullText,
				Phrases:   []string{"urgente", "urgent", "imediatamente", "immediately", "hoje mesmo"},
				Deduction: 10,
			},
			{
				ID:        "too_good_to_be_true",
				Label:     LabelTooGoodToBeTrue,
				Severity:  SeverityWarning,
				Scope:     ScopeSalary,
				Phrases:   []string{"$10,000", "$20,000", "€10,000", "muito alto", "extremely high"},
				Deduction: 15,
			},
		},

		MinCompanyLength: 3,
		CompanyDeduction: 10,
		CompanyLabel:     LabelNoCompanyInfo,

		MinDescriptionLength: 50,
		DescriptionDeduction: 10,
		DescriptionLabel:     LabelGenericJobDesc,

		TrustedSources: []string{"NAV.NO", "Job Bank Canada", "PickingJobs.com", "EURES", "arbeidsplassen.nav.no"},
		TrustedDomains: []string{"nav.no", "jobbank.gc.ca", "pickingjobs.com", "eures.europa.eu"},
		TrustBonus:     10,

		SuspiciousTLDs:            []string{"xyz", "tk", "ml", "ga", "cf", "gq"},
		SuspiciousDomainDeduction: 15,
		SuspiciousDomainLabel:     LabelSuspiciousDomain,

		SafeThreshold: 70,
	}
}

// LoadRules reads a YAML rule file. Keys missing from the file keep their
// default values; a list given in the file replaces the default list.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read rules: %w", err)
	}
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse rules %s: %w", path, err)
	}
	if err := rules.Validate(); err != nil {
		return Rules{}, fmt.Errorf("invalid rules %s: %w", path, err)
	}

	return rules, nil
}

// Validate checks that every phrase rule can fire and every weight is sane
func (r Rules) Validate() error {
	for i, pr := range r.Phrases {
		name := pr.ID
		if name == "" {
			name = fmt.Sprintf("#%d", i)
		}
		if len(pr.Phrases) == 0 {
			return fmt.Errorf("rule %s: no phrases", name)
		}
		if pr.Label == "" {
			return fmt.Errorf("rule %s: empty label", name)
		}
		switch pr.Severity {
		case SeverityRedFlag, SeverityWarning:
		default:
			return fmt.Errorf("rule %s: unknown severity %q", name, pr.Severity)
		}
		switch pr.Scope {
		case "", ScopeFullText, ScopeSalary:
		default:
			return fmt.Errorf("rule %s: unknown scope %q", name, pr.Scope)
		}
		if pr.Deduction < 0 {
			return fmt.Errorf("rule %s: negative deduction", name)
		}
	}

	if r.CompanyDeduction < 0 || r.DescriptionDeduction < 0 || r.SuspiciousDomainDeduction < 0 {
		return errors.New("negative deduction")
	}
	if r.TrustBonus < 0 {
		return errors.New("negative trust bonus")
	}
	if r.SafeThreshold < 0 || r.SafeThreshold > MaxScore {
		return fmt.Errorf("safe threshold %d out of range", r.SafeThreshold)
	}

	return nil
}
