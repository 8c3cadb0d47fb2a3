package promutil

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AlertRule is one alerting rule in Prometheus rule-file form.
type AlertRule struct {
	Alert       string            `yaml:"alert" json:"alert"`
	Expr        string            `yaml:"expr" json:"expr"`
	For         string            `yaml:"for,omitempty" json:"for,omitempty"`
	Labels      map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
	Annotations map[string]string `yaml:"annotations,omitempty" json:"annotations,omitempty"`
}

// RecordingRule is one recording rule in Prometheus rule-file form.
type RecordingRule struct {
	Record string            `yaml:"record" json:"record"`
	Expr   string            `yaml:"expr" json:"expr"`
	Labels map[string]string `yaml:"labels,omitempty" json:"labels,omitempty"`
}

// RuleGroup bundles rules under one evaluation interval.
type RuleGroup struct {
	Name     string `yaml:"name" json:"name"`
	Interval string `yaml:"interval,omitempty" json:"interval,omitempty"`
	Rules    []any  `yaml:"rules" json:"rules"`
}

// RuleFile is a complete Prometheus rule file.
type RuleFile struct {
	Groups []RuleGroup `yaml:"groups" json:"groups"`
}

// NewAlertRule builds an alerting rule. severity becomes a label when
// non-empty; forDuration of zero omits the for clause.
func NewAlertRule(name, expr string, forDuration time.Duration, severity, summary string) AlertRule {
	rule := AlertRule{
		Alert: name,
		Expr:  expr,
	}
	if forDuration > 0 {
		rule.For = FormatDuration(forDuration)
	}
	if severity != "" {
		rule.Labels = map[string]string{"severity": severity}
	}
	if summary != "" {
		rule.Annotations = map[string]string{"summary": summary}
	}
	return rule
}

// NewRecordingRule builds a recording rule, sanitizing the record name.
func NewRecordingRule(record, expr string, labels map[string]string) RecordingRule {
	return RecordingRule{
		Record: SanitizeMetricName(record),
		Expr:   expr,
		Labels: labels,
	}
}

// NewRuleGroup bundles alerting and recording rules into one group.
func NewRuleGroup(name string, interval time.Duration, rules ...any) RuleGroup {
	g := RuleGroup{Name: name, Rules: rules}
	if interval > 0 {
		g.Interval = FormatDuration(interval)
	}
	return g
}

// WriteRuleFile renders groups as a Prometheus rule file at path.
func WriteRuleFile(path string, groups ...RuleGroup) error {
	data, err := yaml.Marshal(RuleFile{Groups: groups})
	if err != nil {
		return fmt.Errorf("marshal rule file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write rule file %s: %w", path, err)
	}
	return nil
}

// LoadRuleFile reads a Prometheus rule file from path.
func LoadRuleFile(path string) (RuleFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleFile{}, fmt.Errorf("read rule file %s: %w", path, err)
	}
	var f RuleFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return RuleFile{}, fmt.Errorf("unmarshal rule file %s: %w", path, err)
	}
	return f, nil
}
