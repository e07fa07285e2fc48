package sheetstore

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
)

// ConfigStore persists key/value pairs in a dedicated two-column sheet,
// auto-created on first use. It backs the sync cursor.
type ConfigStore struct {
	api   API
	sheet string
}

// NewConfigStore creates a config store using the given sheet title.
func NewConfigStore(api API, sheet string) *ConfigStore {
	return &ConfigStore{api: api, sheet: sheet}
}

// Get returns the value for key and whether it was present.
func (c *ConfigStore) Get(ctx context.Context, key string) (string, bool, error) {
	if err := c.ensureSheet(ctx); err != nil {
		return "", false, err
	}

	rows, err := c.api.Read(ctx, c.sheet+"!A:B")
	if err != nil {
		return "", false, fmt.Errorf("reading config sheet: %w", err)
	}
	for _, row := range rows {
		if len(row) >= 1 && row[0] == key {
			if len(row) >= 2 {
				return row[1], true, nil
			}
			return "", true, nil
		}
	}
	return "", false, nil
}

// Set upserts the value for key: the existing row is updated in place when
// present, otherwise a new row is appended.
func (c *ConfigStore) Set(ctx context.Context, key, value string) error {
	if err := c.ensureSheet(ctx); err != nil {
		return err
	}

	rows, err := c.api.Read(ctx, c.sheet+"!A:B")
	if err != nil {
		return fmt.Errorf("reading config sheet: %w", err)
	}
	for i, row := range rows {
		if len(row) >= 1 && row[0] == key {
			rng := fmt.Sprintf("%s!A%d:B%d", c.sheet, i+1, i+1)
			if err := c.api.Update(ctx, rng, [][]string{{key, value}}); err != nil {
				return fmt.Errorf("updating config key %s: %w", key, err)
			}
			return nil
		}
	}

	if err := c.api.Append(ctx, c.sheet+"!A1", [][]string{{key, value}}); err != nil {
		return fmt.Errorf("appending config key %s: %w", key, err)
	}
	return nil
}

func (c *ConfigStore) ensureSheet(ctx context.Context) error {
	meta, err := c.api.Metadata(ctx)
	if err != nil {
		return fmt.Errorf("resolving spreadsheet metadata: %w", err)
	}
	if _, ok := meta.Sheets[c.sheet]; ok {
		return nil
	}

	logrus.Infof("Creating config sheet %q", c.sheet)
	if _, err := c.api.AddSheet(ctx, c.sheet); err != nil {
		return fmt.Errorf("creating config sheet: %w", err)
	}
	return nil
}
