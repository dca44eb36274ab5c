// Package config holds the scoring weights that steer the decision engine and
// the YAML files they are stored in.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Weights are the coefficients of the individual and full-turn scores.
// They are read-only while a decision is running.
type Weights struct {
	// Full-turn score.
	Death      float64 `yaml:"death_penalty"`
	Territory  float64 `yaml:"territory_weight"`
	Kill       float64 `yaml:"kill_weight"`
	HealthDiff float64 `yaml:"health_difference_weight"`
	MaxWetness float64 `yaml:"max_wetness_weight"`

	MultiHit   float64 `yaml:"multi_hit_penalty"`
	DangerZone float64 `yaml:"danger_zone_penalty"`
	HazardZone float64 `yaml:"hazard_zone_penalty"`
	EarlyGame  float64 `yaml:"early_game_penalty"`
	Proximity  float64 `yaml:"proximity_bonus"`
	Cover      float64 `yaml:"cover_bonus"`
	Hunker     float64 `yaml:"hunker_bonus"`

	CooldownPenalty float64 `yaml:"cooldown_penalty_factor"`
	WastedShoot     float64 `yaml:"wasted_shoot_penalty"`

	ThrowWaste       float64 `yaml:"throw_waste_penalty"`
	ThrowCenterHit   float64 `yaml:"throw_center_hit_bonus"`
	ThrowAdjacentHit float64 `yaml:"throw_adjacent_hit_bonus"`
	ThrowNearEnemy   float64 `yaml:"throw_near_enemy_bonus"`

	// Forecast on the strongest agent of each side.
	ForecastEnemyWetness float64 `yaml:"forecast_enemy_wetness"`
	ForecastEnemyKill    float64 `yaml:"forecast_enemy_kill"`
	ForecastAllyHealth   float64 `yaml:"forecast_ally_health"`
	ForecastAllyLoss     float64 `yaml:"forecast_ally_loss"`
}

// Default returns the hand-set starting weights.
func Default() Weights {
	return Weights{
		Death:      10000,
		Territory:  5,
		Kill:       50,
		HealthDiff: 0.1,
		MaxWetness: 0.15,

		MultiHit:   35,
		DangerZone: 20,
		HazardZone: 5,
		EarlyGame:  5,
		Proximity:  0.3,
		Cover:      3,
		Hunker:     0.5,

		CooldownPenalty: 0.1,
		WastedShoot:     10,

		ThrowWaste:       12,
		ThrowCenterHit:   10,
		ThrowAdjacentHit: 4,
		ThrowNearEnemy:   2,

		ForecastEnemyWetness: 0.3,
		ForecastEnemyKill:    20,
		ForecastAllyHealth:   0.2,
		ForecastAllyLoss:     30,
	}
}

// Tuned returns the best set found by hill climbing against Default (54.8%
// win rate over the tuning seeds).
func Tuned() Weights {
	w := Default()
	w.Death = 8081.3574
	w.Territory = 5.0497
	w.Kill = 50.5288
	w.HealthDiff = 0.0764
	w.MaxWetness = 0.1251
	w.MultiHit = 39.2052
	w.DangerZone = 24.1444
	w.HazardZone = 5.6161
	w.EarlyGame = 4.5863
	w.Proximity = 0.3349
	w.Cover = 3.0501
	w.CooldownPenalty = 0.1118
	w.WastedShoot = 8.5808
	w.ThrowWaste = 12.0152
	w.ThrowCenterHit = 11.8759
	w.ThrowAdjacentHit = 4.8011
	w.ThrowNearEnemy = 2.1615
	return w
}

// Field names one weight and gives mutable access to it.
type Field struct {
	Name string
	Ptr  func(w *Weights) *float64
}

var fields = []Field{
	{"death_penalty", func(w *Weights) *float64 { return &w.Death }},
	{"territory_weight", func(w *Weights) *float64 { return &w.Territory }},
	{"kill_weight", func(w *Weights) *float64 { return &w.Kill }},
	{"health_difference_weight", func(w *Weights) *float64 { return &w.HealthDiff }},
	{"max_wetness_weight", func(w *Weights) *float64 { return &w.MaxWetness }},
	{"multi_hit_penalty", func(w *Weights) *float64 { return &w.MultiHit }},
	{"danger_zone_penalty", func(w *Weights) *float64 { return &w.DangerZone }},
	{"hazard_zone_penalty", func(w *Weights) *float64 { return &w.HazardZone }},
	{"early_game_penalty", func(w *Weights) *float64 { return &w.EarlyGame }},
	{"proximity_bonus", func(w *Weights) *float64 { return &w.Proximity }},
	{"cover_bonus", func(w *Weights) *float64 { return &w.Cover }},
	{"hunker_bonus", func(w *Weights) *float64 { return &w.Hunker }},
	{"cooldown_penalty_factor", func(w *Weights) *float64 { return &w.CooldownPenalty }},
	{"wasted_shoot_penalty", func(w *Weights) *float64 { return &w.WastedShoot }},
	{"throw_waste_penalty", func(w *Weights) *float64 { return &w.ThrowWaste }},
	{"throw_center_hit_bonus", func(w *Weights) *float64 { return &w.ThrowCenterHit }},
	{"throw_adjacent_hit_bonus", func(w *Weights) *float64 { return &w.ThrowAdjacentHit }},
	{"throw_near_enemy_bonus", func(w *Weights) *float64 { return &w.ThrowNearEnemy }},
	{"forecast_enemy_wetness", func(w *Weights) *float64 { return &w.ForecastEnemyWetness }},
	{"forecast_enemy_kill", func(w *Weights) *float64 { return &w.ForecastEnemyKill }},
	{"forecast_ally_health", func(w *Weights) *float64 { return &w.ForecastAllyHealth }},
	{"forecast_ally_loss", func(w *Weights) *float64 { return &w.ForecastAllyLoss }},
}

// Fields lists every weight in declaration order. The slice is shared; do
// not modify it.
func Fields() []Field { return fields }

// Lookup returns the field with the given yaml name.
func Lookup(name string) (Field, bool) {
	for _, f := range fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate rejects weights that would poison every score.
func (w Weights) Validate() error {
	for _, f := range fields {
		v := *f.Ptr(&w)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("weight %s is not finite: %v", f.Name, v)
		}
	}
	return nil
}

// Load reads a YAML weights file. Fields missing from the file keep their
// Default value.
func Load(path string) (Weights, error) {
	w := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return w, fmt.Errorf("read weights: %w", err)
	}
	if err := yaml.Unmarshal(b, &w); err != nil {
		return w, fmt.Errorf("parse weights %s: %w", path, err)
	}
	if err := w.Validate(); err != nil {
		return w, fmt.Errorf("weights %s: %w", path, err)
	}
	return w, nil
}

// Save writes w to path, replacing it atomically.
func Save(path string, w Weights) error {
	b, err := yaml.Marshal(w)
	if err != nil {
		return fmt.Errorf("encode weights: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create weights dir: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write weights: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("rename weights: %w", err)
	}
	return nil
}

// LoadOrDefault returns Default for an empty path and the file otherwise.
// The names "default" and "tuned" select the built-in presets.
func LoadOrDefault(path string) (Weights, error) {
	switch path {
	case "", "default":
		return Default(), nil
	case "tuned":
		return Tuned(), nil
	}
	return Load(path)
}
