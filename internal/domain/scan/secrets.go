package scan

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/PromptForge/internal/domain/content"
)

// Secret-shaped token patterns. Advisory only: a match attaches a warning to
// the commit result but never blocks it.
var secretPatterns = []struct {
	name string
	re   *regexp.Regexp
}{
	{"Anthropic API key", regexp.MustCompile(`sk-ant-[a-zA-Z0-9-]{20,}`)},
	{"OpenAI API key", regexp.MustCompile(`sk-[a-zA-Z0-9]{20,}`)},
	{"GitHub PAT", regexp.MustCompile(`ghp_[a-zA-Z0-9]{36}`)},
	{"JWT token", regexp.MustCompile(`eyJ[a-zA-Z0-9_-]{50,}`)},
	{"AWS access key", regexp.MustCompile(`AKIA[0-9A-Z]{16}`)},
	{"Slack token", regexp.MustCompile(`xox[bporas]-[a-zA-Z0-9-]+`)},
}

// MaxContentSize caps serialized document size for the advisory check.
const MaxContentSize = 50 * 1024

// ContentWarnings runs the advisory checks a commit attaches alongside
// injection findings: secret-shaped tokens anywhere in the serialized
// document, and total size over MaxContentSize.
func ContentWarnings(doc content.Document) []string {
	var warnings []string

	data, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	text := string(data)

	var secrets []string
	for _, p := range secretPatterns {
		if p.re.MatchString(text) {
			secrets = append(secrets, p.name)
		}
	}
	if len(secrets) > 0 {
		warnings = append(warnings, "potential secrets detected: "+strings.Join(secrets, ", "))
	}

	if len(data) > MaxContentSize {
		warnings = append(warnings, fmt.Sprintf("content exceeds %dKB limit", MaxContentSize/1024))
	}
	return warnings
}
