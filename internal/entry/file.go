package entry

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/viper"
)

type fileEntry struct {
	ID      string         `mapstructure:"id"`
	Title   string         `mapstructure:"title"`
	Data    map[string]any `mapstructure:"data"`
	Options map[string]any `mapstructure:"options"`
}

// LoadFile reads the entries declared under the top-level "entries" key of a
// YAML, JSON or TOML file. Entries without an id get a generated one.
func LoadFile(path string) ([]*Entry, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read entries file: %w", err)
	}

	var raw []fileEntry
	if err := v.UnmarshalKey("entries", &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entries: %w", err)
	}

	entries := make([]*Entry, 0, len(raw))
	for _, r := range raw {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		title := r.Title
		if title == "" {
			if name, ok := r.Data[KeyName].(string); ok {
				title = name
			}
		}
		entries = append(entries, &Entry{
			ID:      id,
			Title:   title,
			Data:    r.Data,
			Options: r.Options,
		})
	}
	return entries, nil
}
