package patterns

import (
	"regexp"
)

// CheckFinding is one lint hit from Check.
type CheckFinding struct {
	Rule     string `json:"rule"`
	Severity string `json:"severity"`
	Line     int    `json:"line"`
	Message  string `json:"message"`
}

type checkRule struct {
	name     string
	severity string
	re       *regexp.Regexp
	message  string
}

var checkRules = []checkRule{
	{
		name:     "bash-arithmetic-exit",
		severity: "high",
		re:       regexp.MustCompile(`\(\(\s*\w+\+\+\s*\)\)`),
		message:  "((var++)) returns exit 1 when var was 0; use ((var+=1)) or var=$((var+1))",
	},
	{
		name:     "baked-credential",
		severity: "critical",
		re:       regexp.MustCompile(`(?i)(password|secret|api[_-]?key|token)\s*=\s*['"][^'"$]{4,}['"]`),
		message:  "credential literal baked into code; read it from the environment or a secret store",
	},
	{
		name:     "set-e-no-trap",
		severity: "medium",
		re:       regexp.MustCompile(`(?m)^\s*set\s+-e`),
		message:  "set -e without a trap handler hides where the script died; add trap ... ERR",
	},
	{
		name:     "unsafe-rm",
		severity: "critical",
		re:       regexp.MustCompile(`rm\s+(-[rRf]+\s+)+["']?\$\{?\w+\}?/?["']?(\s|$)`),
		message:  "rm -rf on an unquoted/unchecked variable; an empty value deletes from /",
	},
}

// Check runs the regex code checks over a blob of code and returns all
// findings. The set-e rule only fires when no trap appears anywhere in
// the input.
func Check(code string) []CheckFinding {
	hasTrap := regexp.MustCompile(`(?m)^\s*trap\s`).MatchString(code)
	var findings []CheckFinding
	lines := regexp.MustCompile(`\r?\n`).Split(code, -1)
	for i, line := range lines {
		for _, rule := range checkRules {
			if rule.name == "set-e-no-trap" && hasTrap {
				continue
			}
			if rule.re.MatchString(line) {
				findings = append(findings, CheckFinding{
					Rule:     rule.name,
					Severity: rule.severity,
					Line:     i + 1,
					Message:  rule.message,
				})
			}
		}
	}
	return findings
}
