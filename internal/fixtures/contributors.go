// Package fixtures loads the contributor identities and binary payloads the
// contributor scenario replays.
package fixtures

import (
	"errors"
	"fmt"
	"os"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/xeipuuv/gojsonschema"

	"github.com/FairForge/heritageload/internal/archive"
)

// ErrInvalidContributors marks a contributor list that fails the schema.
var ErrInvalidContributors = errors.New("fixtures: invalid contributor list")

const contributorSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["user"],
    "properties": {
      "user":       {"type": "string", "minLength": 1},
      "ldap_cn":    {"type": "string"},
      "kd_org":     {"type": "string"},
      "peran_user": {"type": "string"},
      "npm":        {"type": "string"},
      "nama":       {"type": "string"}
    }
  }
}`

// LoadContributors reads and validates a contributor_logins.json file.
func LoadContributors(path string) ([]archive.Contributor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("fixtures: read contributors: %w", err)
	}
	return ParseContributors(data)
}

// ParseContributors validates data against the contributor schema and
// decodes it.
func ParseContributors(data []byte) ([]archive.Contributor, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(contributorSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContributors, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidContributors, strings.Join(msgs, "; "))
	}

	var out []archive.Contributor
	if err := jsoniter.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidContributors, err)
	}
	return out, nil
}
