// Package tuning loads the per-fleet bot parameters from YAML.
package tuning

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"arenabot.ai/internal/bot/agent"
	"arenabot.ai/internal/bot/engage"
	"arenabot.ai/internal/bot/evade"
	"arenabot.ai/internal/bot/targeting"
)

var ErrInvalid = errors.New("invalid tuning")

type Tuning struct {
	TurnRate   int `yaml:"turn_rate"`
	AttackRate int `yaml:"attack_rate"`
	ScanRate   int `yaml:"scan_rate"`

	FireRange    float64 `yaml:"fire_range"`
	LeadDistance float64 `yaml:"lead_distance"`
	OffsetRange  int     `yaml:"offset_range"`
	ScanRadius   int     `yaml:"scan_radius"`

	Strategy     string `yaml:"strategy"`
	TargetPolicy string `yaml:"target_policy"`
}

func Defaults() Tuning {
	return Tuning{
		TurnRate:     60,
		AttackRate:   10,
		ScanRate:     10,
		FireRange:    7,
		LeadDistance: 2,
		OffsetRange:  3,
		ScanRadius:   3,
		Strategy:     string(agent.KindEngage),
		TargetPolicy: string(targeting.PolicyRandom),
	}
}

// Load reads path over Defaults(). An empty path returns the defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	if strings.TrimSpace(path) == "" {
		return t, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(b, &t); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func (t Tuning) Validate() error {
	if t.TurnRate <= 0 || t.AttackRate <= 0 || t.ScanRate <= 0 {
		return fmt.Errorf("%w: rates must be > 0 (turn=%d attack=%d scan=%d)", ErrInvalid, t.TurnRate, t.AttackRate, t.ScanRate)
	}
	if t.FireRange <= 0 {
		return fmt.Errorf("%w: fire_range must be > 0", ErrInvalid)
	}
	if t.LeadDistance < 0 {
		return fmt.Errorf("%w: lead_distance must be >= 0", ErrInvalid)
	}
	if t.OffsetRange < 0 || t.ScanRadius < 0 {
		return fmt.Errorf("%w: offset_range and scan_radius must be >= 0", ErrInvalid)
	}
	if _, err := agent.ParseKind(t.Strategy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := targeting.ParsePolicy(t.TargetPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (t Tuning) Kind() agent.Kind {
	k, _ := agent.ParseKind(t.Strategy)
	return k
}

func (t Tuning) Policy() targeting.Policy {
	p, _ := targeting.ParsePolicy(t.TargetPolicy)
	return p
}

func (t Tuning) Engage() engage.Config {
	return engage.Config{
		TurnRate:     t.TurnRate,
		AttackRate:   t.AttackRate,
		Range:        t.FireRange,
		LeadDistance: t.LeadDistance,
	}
}

func (t Tuning) Evade() evade.Config {
	return evade.Config{ScanRate: t.ScanRate, Radius: t.ScanRadius}
}
