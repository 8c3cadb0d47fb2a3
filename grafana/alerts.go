package grafana

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// AlertRuleState is one alert rule with its current state, as reported by
// the provisioning API.
type AlertRuleState struct {
	ID        int64             `json:"id"`
	UID       string            `json:"uid"`
	Title     string            `json:"title"`
	FolderUID string            `json:"folderUID"`
	RuleGroup string            `json:"ruleGroup"`
	Condition string            `json:"condition"`
	Paused    bool              `json:"isPaused"`
	Labels    map[string]string `json:"labels"`
}

// AlertRules lists the provisioned alert rules.
func (c *Client) AlertRules(ctx context.Context) ([]AlertRuleState, error) {
	var rules []AlertRuleState
	if err := c.getJSON(ctx, "api/v1/provisioning/alert-rules", nil, &rules); err != nil {
		return nil, fmt.Errorf("list alert rules: %w", err)
	}
	return rules, nil
}

// AlertRule fetches one alert rule by UID, returning the raw definition.
func (c *Client) AlertRule(ctx context.Context, uid string) (json.RawMessage, error) {
	body, err := c.exec.Execute(ctx, "GET", "api/v1/provisioning/alert-rules/"+url.PathEscape(uid), nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("get alert rule %s: %w", uid, err)
	}
	return body, nil
}

// PauseAlert pauses or resumes an alert rule.
func (c *Client) PauseAlert(ctx context.Context, uid string, paused bool) error {
	rule, err := c.AlertRule(ctx, uid)
	if err != nil {
		return err
	}

	var model map[string]any
	if err := json.Unmarshal(rule, &model); err != nil {
		return fmt.Errorf("decode alert rule %s: %w", uid, err)
	}
	model["isPaused"] = paused

	endpoint := "api/v1/provisioning/alert-rules/" + url.PathEscape(uid)
	if err := c.putJSON(ctx, endpoint, model, nil); err != nil {
		return fmt.Errorf("pause alert rule %s: %w", uid, err)
	}
	return nil
}

// NotificationChannel is a contact point for alert delivery.
type NotificationChannel struct {
	UID      string         `json:"uid,omitempty"`
	Name     string         `json:"name"`
	Type     string         `json:"type"`
	Settings map[string]any `json:"settings"`
}

// NotificationChannels lists the configured contact points.
func (c *Client) NotificationChannels(ctx context.Context) ([]NotificationChannel, error) {
	var channels []NotificationChannel
	if err := c.getJSON(ctx, "api/v1/provisioning/contact-points", nil, &channels); err != nil {
		return nil, fmt.Errorf("list notification channels: %w", err)
	}
	return channels, nil
}

// CreateNotificationChannel adds a contact point.
func (c *Client) CreateNotificationChannel(ctx context.Context, ch NotificationChannel) (NotificationChannel, error) {
	var out NotificationChannel
	if err := c.postJSON(ctx, "api/v1/provisioning/contact-points", ch, &out); err != nil {
		return NotificationChannel{}, fmt.Errorf("create notification channel %q: %w", ch.Name, err)
	}
	return out, nil
}

// DeleteNotificationChannel removes a contact point by UID.
func (c *Client) DeleteNotificationChannel(ctx context.Context, uid string) error {
	endpoint := "api/v1/provisioning/contact-points/" + url.PathEscape(uid)
	if err := c.delete(ctx, endpoint); err != nil {
		return fmt.Errorf("delete notification channel %s: %w", uid, err)
	}
	return nil
}

// TestNotificationChannel sends a test notification through the given
// contact point configuration.
func (c *Client) TestNotificationChannel(ctx context.Context, ch NotificationChannel) error {
	req := map[string]any{
		"receivers": []map[string]any{{
			"name": ch.Name,
			"grafana_managed_receiver_configs": []map[string]any{{
				"name":     ch.Name,
				"type":     ch.Type,
				"settings": ch.Settings,
			}},
		}},
	}
	if err := c.postJSON(ctx, "api/alertmanager/grafana/config/api/v1/receivers/test", req, nil); err != nil {
		return fmt.Errorf("test notification channel %q: %w", ch.Name, err)
	}
	return nil
}

// Annotations lists annotations in the given time window. Zero bounds are
// omitted.
func (c *Client) Annotations(ctx context.Context, from, to int64, limit int) (json.RawMessage, error) {
	params := url.Values{}
	if from > 0 {
		params.Set("from", strconv.FormatInt(from, 10))
	}
	if to > 0 {
		params.Set("to", strconv.FormatInt(to, 10))
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := c.exec.Execute(ctx, "GET", "api/annotations", params, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("list annotations: %w", err)
	}
	return body, nil
}
