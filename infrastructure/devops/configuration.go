package devops

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// StoreConfig selects and parameterizes the credential store backend.
type StoreConfig struct {
	Backend   string `yaml:"backend"` // memory, file, redis, mysql, s3
	Dir       string `yaml:"dir"`
	RedisAddr string `yaml:"redis_addr"`
	DSN       string `yaml:"dsn"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
}

// AppConfig is the deployed application configuration, stored as one yaml
// document in Parameter Store.
type AppConfig struct {
	ClientID     string      `yaml:"client_id"`
	ClientSecret string      `yaml:"client_secret"`
	RedirectURI  string      `yaml:"redirect_uri"`
	Environment  string      `yaml:"environment"` // sandbox or production
	JWTSecret    string      `yaml:"jwt_secret"`
	Store        StoreConfig `yaml:"store"`
}

var (
	once      sync.Once
	appConfig *AppConfig
	loadErr   error
)

// LoadAppConfig fetches and caches the application configuration from SSM.
// The parameter name defaults to "timedock-config" and can be overridden
// with CONFIG_PARAMETER.
func LoadAppConfig(ctx context.Context) (*AppConfig, error) {
	once.Do(func() {
		paramName := os.Getenv("CONFIG_PARAMETER")
		if paramName == "" {
			paramName = "timedock-config"
		}

		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			loadErr = fmt.Errorf("load aws config: %w", err)
			return
		}

		client := ssm.NewFromConfig(cfg)

		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(paramName),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			loadErr = fmt.Errorf("get parameter: %w", err)
			return
		}

		var parsed AppConfig
		if err := yaml.Unmarshal([]byte(*out.Parameter.Value), &parsed); err != nil {
			loadErr = fmt.Errorf("unmarshal yaml: %w", err)
			return
		}

		appConfig = &parsed
	})

	return appConfig, loadErr
}
