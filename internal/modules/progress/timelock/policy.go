package timelock

import (
	"embed"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mentiby/tracker-backend/internal/domain/catalogue"
	"github.com/mentiby/tracker-backend/internal/platform/logger"
)

const policyEnv = "TIMELOCK_POLICY_YAML"

//go:embed timelock.yaml
var policyFS embed.FS

// fallback table used when YAML is missing or invalid
var fallbackMinutes = map[catalogue.Difficulty]int{
	catalogue.DifficultyEasy:   30,
	catalogue.DifficultyMedium: 40,
	catalogue.DifficultyHard:   60,
}

const fallbackDefaultTier = catalogue.DifficultyHard

type yamlPolicy struct {
	Policy      string     `yaml:"policy"`
	Version     int        `yaml:"version"`
	DefaultTier string     `yaml:"default_tier"`
	Tiers       []yamlTier `yaml:"tiers"`
}

type yamlTier struct {
	Name               string `yaml:"name"`
	RecommendedMinutes int    `yaml:"recommended_minutes"`
}

// Policy maps a difficulty tier to the minimum minutes before completion is allowed.
// Unknown or empty tiers resolve to the default tier.
type Policy struct {
	minutes     map[catalogue.Difficulty]int
	defaultTier catalogue.Difficulty
}

var (
	defaultOnce   sync.Once
	defaultPolicy *Policy
	defaultErr    error
)

// Default returns the process-wide policy, loaded once from the embedded table
// (or TIMELOCK_POLICY_YAML when set) and falling back to the built-in table.
func Default(log *logger.Logger) *Policy {
	defaultOnce.Do(func() {
		defaultPolicy, defaultErr = load()
	})
	if defaultErr != nil {
		if log != nil {
			log.Warn("timelock: policy load failed; using fallback", "error", defaultErr)
		}
		return Fallback()
	}
	return defaultPolicy
}

// Fallback is the built-in Easy 30 / Medium 40 / Hard 60 table with Hard as default.
func Fallback() *Policy {
	m := make(map[catalogue.Difficulty]int, len(fallbackMinutes))
	for k, v := range fallbackMinutes {
		m[k] = v
	}
	return &Policy{minutes: m, defaultTier: fallbackDefaultTier}
}

// Parse builds a policy from YAML bytes.
func Parse(data []byte) (*Policy, error) {
	var doc yamlPolicy
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if strings.TrimSpace(doc.Policy) != "timelock" {
		return nil, fmt.Errorf("unexpected policy: %s", doc.Policy)
	}
	if len(doc.Tiers) == 0 {
		return nil, errors.New("no tiers defined")
	}
	p := &Policy{minutes: map[catalogue.Difficulty]int{}}
	for _, t := range doc.Tiers {
		tier := catalogue.ParseDifficulty(t.Name)
		if !tier.Known() {
			return nil, fmt.Errorf("unknown tier: %q", t.Name)
		}
		if t.RecommendedMinutes <= 0 {
			return nil, fmt.Errorf("tier %s: recommended_minutes must be > 0", tier)
		}
		if _, dup := p.minutes[tier]; dup {
			return nil, fmt.Errorf("duplicate tier: %s", tier)
		}
		p.minutes[tier] = t.RecommendedMinutes
	}
	p.defaultTier = catalogue.ParseDifficulty(doc.DefaultTier)
	if _, ok := p.minutes[p.defaultTier]; !ok {
		return nil, fmt.Errorf("default_tier %q has no minutes", doc.DefaultTier)
	}
	return p, nil
}

func load() (*Policy, error) {
	var (
		data []byte
		err  error
	)
	if path := strings.TrimSpace(os.Getenv(policyEnv)); path != "" {
		data, err = os.ReadFile(path)
	} else {
		data, err = policyFS.ReadFile("timelock.yaml")
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Resolve returns the tier the policy actually applies for d.
func (p *Policy) Resolve(d catalogue.Difficulty) catalogue.Difficulty {
	d = catalogue.ParseDifficulty(string(d))
	if _, ok := p.minutes[d]; ok {
		return d
	}
	return p.defaultTier
}

func (p *Policy) RecommendedMinutes(d catalogue.Difficulty) int {
	return p.minutes[p.Resolve(d)]
}

func (p *Policy) EarliestCompleteAt(firstStart time.Time, d catalogue.Difficulty) time.Time {
	return firstStart.Add(time.Duration(p.RecommendedMinutes(d)) * time.Minute)
}

// RemainingMinutes is the whole minutes (rounded up) until earliest; zero once reached.
func RemainingMinutes(now, earliest time.Time) int {
	if !now.Before(earliest) {
		return 0
	}
	return int(math.Ceil(earliest.Sub(now).Minutes()))
}

// Locked reports whether completion is still gated at now.
func Locked(now, earliest time.Time) bool {
	return now.Before(earliest)
}
