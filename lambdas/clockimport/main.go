package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"timedock.com/timedock/auth"
	"timedock.com/timedock/core"
	"timedock.com/timedock/infrastructure/devops"
	"timedock.com/timedock/infrastructure/filesystem"
	"timedock.com/timedock/lambdas/clockimport/helper"
)

// ImportEvent names the punch files to import and the company they belong
// to. Either one exact key or a prefix to scan.
type ImportEvent struct {
	Bucket           string `json:"bucket"`
	Key              string `json:"key"`
	Prefix           string `json:"prefix"`
	Tenant           string `json:"tenant"`
	UTCOffsetSeconds int    `json:"utc_offset_seconds"`
}

// keys resolves the object keys to import: an explicit key wins, otherwise
// the bucket is listed under the prefix.
func (e ImportEvent) keys(ctx context.Context, list func(context.Context, string, string) ([]string, error)) ([]string, error) {
	if e.Key != "" {
		return []string{e.Key}, nil
	}
	if e.Prefix != "" {
		return list(ctx, e.Bucket, e.Prefix)
	}
	return nil, fmt.Errorf("key or prefix is required")
}

type ImportResult struct {
	Sessions int `json:"sessions"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`
}

func storeFromConfig(ctx context.Context, cfg devops.StoreConfig) (auth.CredentialStore, error) {
	switch cfg.Backend {
	case "file":
		return auth.NewFileStore(cfg.Dir)
	case "redis":
		return auth.NewRedisStore(redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})), nil
	case "mysql":
		return auth.NewGormStore(cfg.DSN, 2)
	case "s3":
		awscfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return auth.NewS3Store(s3.NewFromConfig(awscfg), cfg.Bucket, cfg.Prefix), nil
	default:
		return nil, fmt.Errorf("unsupported credential store backend %q", cfg.Backend)
	}
}

func handle(ctx context.Context, event ImportEvent) (*ImportResult, error) {
	log, _ := zap.NewProduction()
	defer log.Sync()

	if event.Tenant == "" {
		return nil, fmt.Errorf("tenant is required")
	}

	cfg, err := devops.LoadAppConfig(ctx)
	if err != nil {
		return nil, err
	}

	store, err := storeFromConfig(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	authCfg := auth.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		Environment:  cfg.Environment,
	}
	manager := auth.NewManager(authCfg, store, log)
	clock := core.NewService(manager, authCfg.APIBase(), log)

	keys, err := event.keys(ctx, filesystem.ListFiles)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{}
	for _, key := range keys {
		var stream bytes.Buffer
		if err := filesystem.ReadFile(ctx, event.Bucket, key, &stream); err != nil {
			return nil, err
		}

		records, err := helper.ParseClockCSV(&stream, event.UTCOffsetSeconds)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", key, err)
		}

		sessions := helper.GroupSessions(records)
		log.Info("importing punch file",
			zap.String("key", key),
			zap.Int("records", len(records)),
			zap.Int("sessions", len(sessions)))

		for _, session := range sessions {
			_, err := clock.RecordSession(ctx, event.Tenant,
				session.EmployeeRef, session.From, session.To, "imported from "+key)
			switch {
			case errors.Is(err, core.ErrEmptySession):
				// a lone punch brackets nothing; importing it would open a
				// session nobody can close from the punch file
				log.Warn("skipping single-punch day",
					zap.String("employee", session.EmployeeRef),
					zap.String("date", session.Date))
				result.Skipped++
			case err != nil:
				log.Warn("session import failed",
					zap.String("employee", session.EmployeeRef),
					zap.String("date", session.Date),
					zap.Error(err))
				result.Failed++
			default:
				result.Sessions++
			}
		}
	}

	return result, nil
}

func main() {
	lambda.Start(handle)
}
