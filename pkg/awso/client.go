package awso

import (
	"context"
	"errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/smithy-go"
)

// ClientProvider lazily builds an AWS service client and caches it until
// someone calls Invalidate, typically because the credentials behind it
// expired.
type ClientProvider[T any] struct {
	buildClient func(cfg aws.Config) *T
	region      string
	client      *T
}

func NewClientProvider[T any](region string, buildClient func(cfg aws.Config) *T) ClientProvider[T] {
	return ClientProvider[T]{buildClient: buildClient, region: region}
}

func (cp *ClientProvider[T]) Client(ctx context.Context) (*T, error) {
	if cp.client == nil {
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, err
		}
		if cp.region != "" {
			cfg.Region = cp.region
		}
		cp.client = cp.buildClient(cfg)
	}
	return cp.client, nil
}

// Invalidate drops the cached client so the next Client call builds a fresh
// one with freshly-loaded credentials.
func (cp *ClientProvider[T]) Invalidate() {
	cp.client = nil
}

// IsInvalidCredentials reports whether err is an AWS API error caused by
// expired or otherwise unusable credentials, the case where rebuilding the
// client and retrying is worth a shot.
func IsInvalidCredentials(err error) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	switch apiErr.ErrorCode() {
	case "ExpiredToken", "ExpiredTokenException", "InvalidClientTokenId", "UnrecognizedClientException":
		return true
	}
	return false
}
