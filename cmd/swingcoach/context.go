package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"swingcoach/internal/apiclient"
	"swingcoach/internal/config"
)

type commandContext struct {
	configFlag *string
	apiFlag    *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag, apiFlag *string) *commandContext {
	return &commandContext{
		configFlag: configFlag,
		apiFlag:    apiFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) apiAddress() string {
	if c.apiFlag != nil && strings.TrimSpace(*c.apiFlag) != "" {
		return strings.TrimSpace(*c.apiFlag)
	}
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		return cfg.Paths.APIBind
	}
	return ""
}

func (c *commandContext) client() (*apiclient.Client, error) {
	var opts []apiclient.Option
	if cfg, err := c.ensureConfig(); err == nil && cfg != nil {
		opts = append(opts, apiclient.WithToken(cfg.Paths.APIToken))
	}
	client, err := apiclient.New(c.apiAddress(), opts...)
	if err != nil {
		return nil, err
	}
	if client == nil {
		return nil, fmt.Errorf("daemon API address not configured; set paths.api_bind or pass --api")
	}
	return client, nil
}

// withClient runs fn against the daemon and rewrites connection failures
// into a hint about starting it.
func (c *commandContext) withClient(fn func(*apiclient.Client) error) error {
	client, err := c.client()
	if err != nil {
		return err
	}
	if err := fn(client); err != nil {
		return wrapAPIError(err, c.apiAddress())
	}
	return nil
}

func wrapAPIError(err error, address string) error {
	if apiclient.IsAPIUnavailable(err) {
		return fmt.Errorf("connect to daemon at %s: not running; start it with `swingcoach serve`", address)
	}
	return err
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
