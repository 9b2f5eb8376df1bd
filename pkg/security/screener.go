package security

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/zricethezav/gitleaks/v8/detect"

	"agenticsearch/pkg/proto"
)

// Rejection reasons, used as metric labels and log fields.
const (
	ReasonRateLimited = "rate_limited"
	ReasonEmail       = "pii_email"
	ReasonPhone       = "pii_phone"
	ReasonCredential  = "credential"
	ReasonInjection   = "prompt_injection"
)

type namedPattern struct {
	name string
	re   *regexp.Regexp
}

// piiPatterns are checked in order; the first match wins.
//
//nolint:gochecknoglobals // compiled once
var piiPatterns = []namedPattern{
	{ReasonEmail, regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Z|a-z]{2,}\b`)},
	{ReasonPhone, regexp.MustCompile(`\b(?:\+?\d{1,3}[-.\s]?)?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}\b`)},
}

// injectionPatterns are case-insensitive and checked in order.
//
//nolint:gochecknoglobals // compiled once
var injectionPatterns = []namedPattern{
	{"ignore_previous_instructions", regexp.MustCompile(`(?i)ignore previous instructions`)},
	{"disregard_prior_directives", regexp.MustCompile(`(?i)disregard all prior directives`)},
	{"reveal_system_prompt", regexp.MustCompile(`(?i)reveal your system prompt`)},
	{"you_are_now", regexp.MustCompile(`(?i)you are now`)},
	// Word-bounded so "interact as" and "exact ascii" are not rejected.
	{"act_as", regexp.MustCompile(`(?i)\bact as\b`)},
}

// SecretFinding is one credential found in a query.
type SecretFinding struct {
	RuleID      string
	Description string
}

// SecretDetector finds credentials in text.
type SecretDetector interface {
	Detect(text string) ([]SecretFinding, error)
}

// GitleaksDetector detects credentials with the gitleaks default rule set.
// The detector is built on first use and rebuilt after every hit, since it
// keeps its findings for the lifetime of the instance.
type GitleaksDetector struct {
	mu       sync.Mutex
	detector *detect.Detector
}

// NewGitleaksDetector returns a lazily initialised gitleaks detector.
func NewGitleaksDetector() *GitleaksDetector {
	return &GitleaksDetector{}
}

// Detect scans text for credentials.
func (g *GitleaksDetector) Detect(text string) ([]SecretFinding, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.detector == nil {
		d, err := detect.NewDetectorDefaultConfig()
		if err != nil {
			return nil, fmt.Errorf("failed to initialise gitleaks detector: %w", err)
		}
		g.detector = d
	}

	found := g.detector.DetectString(text)
	if len(found) == 0 {
		return nil, nil
	}
	g.detector = nil

	out := make([]SecretFinding, 0, len(found))
	for i := range found {
		out = append(out, SecretFinding{RuleID: found[i].RuleID, Description: found[i].Description})
	}
	return out, nil
}

// Verdict is the outcome of content screening.
type Verdict struct {
	Kind   proto.Kind
	Reason string // one of the Reason* constants or an injection pattern name
	Detail string // matched rule, for logs only; never the matched text
}

// Screener checks query text for personal data, credentials and prompt injection.
type Screener struct {
	secrets SecretDetector
}

// NewScreener creates a screener. A nil detector disables the credential scan.
func NewScreener(secrets SecretDetector) *Screener {
	return &Screener{secrets: secrets}
}

// Screen returns nil when the query is acceptable. PII patterns are checked
// first, then credentials, then injection patterns. A failing credential
// scan is returned as an error and does not reject the query by itself.
func (s *Screener) Screen(query string) (*Verdict, error) {
	for _, p := range piiPatterns {
		if p.re.MatchString(query) {
			return &Verdict{Kind: proto.KindPIIDetected, Reason: p.name, Detail: p.name}, nil
		}
	}

	var scanErr error
	if s.secrets != nil {
		findings, err := s.secrets.Detect(query)
		switch {
		case err != nil:
			scanErr = err
		case len(findings) > 0:
			return &Verdict{Kind: proto.KindPIIDetected, Reason: ReasonCredential, Detail: findings[0].RuleID}, nil
		}
	}

	for _, p := range injectionPatterns {
		if p.re.MatchString(query) {
			return &Verdict{Kind: proto.KindPromptInjectionDetected, Reason: ReasonInjection, Detail: p.name}, scanErr
		}
	}
	return nil, scanErr
}

// Message returns the user-facing message for a verdict.
func (v *Verdict) Message() string {
	switch {
	case v.Reason == ReasonCredential:
		return proto.MsgCredentialDetected
	case v.Kind == proto.KindPIIDetected:
		return proto.MsgPIIDetected
	case v.Kind == proto.KindPromptInjectionDetected:
		return proto.MsgPromptInjection
	default:
		return string(v.Kind)
	}
}
