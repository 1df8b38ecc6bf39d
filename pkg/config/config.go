// Package config loads tabtree settings from .tabtree.yaml and TABTREE_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"tableflip.dev/tabtree/pkg/tree"
)

const (
	KeyPath                                         = "path"
	KeyInsertNewChildAt                             = "insertNewChildAt"
	KeyCloseParentBehavior                          = "closeParentBehavior"
	KeyMoveFocusOnActiveTabClosed                   = "moveFocusOnActiveTabClosed"
	KeyPromoteFirstChildForClosedRoot               = "promoteFirstChildForClosedRoot"
	KeyPromoteAllChildrenWhenLastChild              = "promoteAllChildrenWhenLastChild"
	KeyMoveTabsToBottomWhenDetachedFromClosedParent = "moveTabsToBottomWhenDetachedFromClosedParent"
	KeyAutoCollapseExpandSubtreeOnSelect            = "autoCollapseExpandSubtreeOnSelect"
	KeyGroupTabURLPrefix                            = "groupTabURLPrefix"
	KeyMaxDelayForDuplication                       = "maxDelayForDuplication"
	KeyPollInterval                                 = "pollInterval"
)

// Config is the loaded configuration.
type Config struct {
	// Path is the session store directory, with ~ expanded.
	Path   string
	Policy tree.Policy
}

// BasePath returns the session store directory.
func (c *Config) BasePath() string {
	return c.Path
}

// Load reads .tabtree.yaml from $TABTREE_CONFIG_PATH or the working
// directory. A missing file is not an error.
func Load() (*Config, error) {
	v := viper.New()
	def := tree.DefaultPolicy()
	v.SetDefault(KeyPath, "~/.tabtree")
	v.SetDefault(KeyInsertNewChildAt, string(def.InsertNewChildAt))
	v.SetDefault(KeyCloseParentBehavior, string(def.CloseParentBehavior))
	v.SetDefault(KeyMoveFocusOnActiveTabClosed, def.MoveFocusOnActiveTabClosed)
	v.SetDefault(KeyPromoteFirstChildForClosedRoot, def.PromoteFirstChildForClosedRoot)
	v.SetDefault(KeyPromoteAllChildrenWhenLastChild, def.PromoteAllChildrenWhenLastChild)
	v.SetDefault(KeyMoveTabsToBottomWhenDetachedFromClosedParent, def.MoveTabsToBottomWhenDetachedFromClosedParent)
	v.SetDefault(KeyAutoCollapseExpandSubtreeOnSelect, def.AutoCollapseExpandSubtreeOnSelect)
	v.SetDefault(KeyGroupTabURLPrefix, def.GroupTabURLPrefix)
	v.SetDefault(KeyMaxDelayForDuplication, def.MaxDelayForDuplication)
	v.SetDefault(KeyPollInterval, def.PollInterval)

	v.SetConfigName(".tabtree") // .yaml is implicit
	v.SetEnvPrefix("TABTREE")
	v.AutomaticEnv()

	if override := os.Getenv("TABTREE_CONFIG_PATH"); override != "" {
		v.AddConfigPath(override)
	}
	v.AddConfigPath("./")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("config: read: %w", err)
		}
	}
	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	insertAt, err := tree.ParseInsertPosition(v.GetString(KeyInsertNewChildAt))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", KeyInsertNewChildAt, err)
	}
	closeParent, err := tree.ParseCloseParentBehavior(v.GetString(KeyCloseParentBehavior))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", KeyCloseParentBehavior, err)
	}
	path, err := homedir.Expand(v.GetString(KeyPath))
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", KeyPath, err)
	}
	maxDelay := v.GetDuration(KeyMaxDelayForDuplication)
	if maxDelay <= 0 {
		return nil, fmt.Errorf("config: %s must be positive", KeyMaxDelayForDuplication)
	}
	poll := v.GetDuration(KeyPollInterval)
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	return &Config{
		Path: path,
		Policy: tree.Policy{
			InsertNewChildAt:                  insertAt,
			CloseParentBehavior:               closeParent,
			MoveFocusOnActiveTabClosed:        v.GetBool(KeyMoveFocusOnActiveTabClosed),
			PromoteFirstChildForClosedRoot:    v.GetBool(KeyPromoteFirstChildForClosedRoot),
			PromoteAllChildrenWhenLastChild:   v.GetBool(KeyPromoteAllChildrenWhenLastChild),
			AutoCollapseExpandSubtreeOnSelect: v.GetBool(KeyAutoCollapseExpandSubtreeOnSelect),

			MoveTabsToBottomWhenDetachedFromClosedParent: v.GetBool(KeyMoveTabsToBottomWhenDetachedFromClosedParent),

			GroupTabURLPrefix:      v.GetString(KeyGroupTabURLPrefix),
			MaxDelayForDuplication: maxDelay,
			PollInterval:           poll,
		},
	}, nil
}
