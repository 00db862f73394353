package main

import (
	"context"
	"fmt"
	"sort"

	"github.com/desertthunder/medley/internal/shared"
	"github.com/urfave/cli/v3"
)

// SettingsList prints every app setting.
func (r *Runner) SettingsList(ctx context.Context, cmd *cli.Command) error {
	settings, err := r.library.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch settings: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(settings, true)
	}

	keys := make([]string, 0, len(settings))
	for key := range settings {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	r.writePlainHeader("Settings")
	for _, key := range keys {
		setting := settings[key]
		r.writePlain("%s = %s\n", key, setting.Value)
		if setting.Description != "" {
			r.writePlain("  %s\n", setting.Description)
		}
	}

	return nil
}

// SettingsGet prints one setting value.
func (r *Runner) SettingsGet(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	if key == "" {
		return fmt.Errorf("%w: key", shared.ErrMissingArgument)
	}

	settings, err := r.library.Settings(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch settings: %w", err)
	}

	setting, ok := settings[key]
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrSettingNotFound, key)
	}

	r.writePlain("%s\n", setting.Value)
	return nil
}

// SettingsSet updates one setting value.
func (r *Runner) SettingsSet(ctx context.Context, cmd *cli.Command) error {
	key := cmd.StringArg("key")
	value := cmd.StringArg("value")
	if key == "" || value == "" {
		return fmt.Errorf("%w: key and value", shared.ErrMissingArgument)
	}

	if err := r.library.UpdateSettings(ctx, map[string]string{key: value}); err != nil {
		return fmt.Errorf("failed to update setting: %w", err)
	}

	r.writePlain("✓ %s = %s\n", key, value)
	return nil
}
