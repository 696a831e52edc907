package dom

import (
	"fmt"
	"os"
	"reflect"
	"strings"

	"gopkg.in/yaml.v3"
)

// Selectors names every host UI contract point the observer relies on.
// If the host markup changes, only this table should need editing.
type Selectors struct {
	MessageGroup     string `yaml:"message_group"`
	LatestGroupClass string `yaml:"latest_group_class"`
	Message          string `yaml:"message"`
	SenderName       string `yaml:"sender_name"`
	Body             string `yaml:"body"`
	TimeElement      string `yaml:"time_element"`
	Avatar           string `yaml:"avatar"`
	ClosePanel       string `yaml:"close_panel"`

	ConversationAttr string `yaml:"conversation_attr"`
	MessageAttr      string `yaml:"message_attr"`
	TimestampAttr    string `yaml:"timestamp_attr"`
	DisplayTimeAttr  string `yaml:"display_time_attr"`

	// ProfileMarker is the substring that marks an addressable profile URL.
	ProfileMarker string `yaml:"profile_marker"`
}

// DefaultSelectors matches the Telegram Web K client.
func DefaultSelectors() Selectors {
	return Selectors{
		MessageGroup:     ".bubbles-group",
		LatestGroupClass: "bubbles-group-last",
		Message:          ".bubble:not(.service)",
		SenderName:       ".peer-title",
		Body:             ".translatable-message",
		TimeElement:      ".time-inner",
		Avatar:           ".user-avatar, .bubbles-group-avatar",
		ClosePanel:       ".btn-icon.sidebar-close-button",
		ConversationAttr: "data-peer-id",
		MessageAttr:      "data-mid",
		TimestampAttr:    "data-timestamp",
		DisplayTimeAttr:  "title",
		ProfileMarker:    "@",
	}
}

// LatestGroup selects every message group carrying the latest-group marker.
func (s Selectors) LatestGroup() string {
	return s.MessageGroup + "." + s.LatestGroupClass
}

// Validate reports every empty contract point.
func (s Selectors) Validate() error {
	var missing []string
	v := reflect.ValueOf(s)
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if strings.TrimSpace(v.Field(i).String()) == "" {
			missing = append(missing, t.Field(i).Tag.Get("yaml"))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("selectors: empty fields: %s", strings.Join(missing, ", "))
	}
	if strings.ContainsAny(s.LatestGroupClass, " .#") {
		return fmt.Errorf("selectors: latest_group_class must be a bare class name, got %q", s.LatestGroupClass)
	}
	return nil
}

// LoadSelectors overlays the YAML file at path onto DefaultSelectors.
// An empty path returns the defaults.
func LoadSelectors(path string) (Selectors, error) {
	sel := DefaultSelectors()
	if path == "" {
		return sel, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return sel, fmt.Errorf("read selectors: %w", err)
	}
	if err := yaml.Unmarshal(data, &sel); err != nil {
		return sel, fmt.Errorf("parse selectors %s: %w", path, err)
	}
	if err := sel.Validate(); err != nil {
		return sel, err
	}
	return sel, nil
}
