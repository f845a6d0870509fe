package awso

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func p(s string) *string {
	return &s
}

func TestClientCaching(t *testing.T) {
	buildClientInvocations := 0
	cp := NewClientProvider("us-east-1", func(cfg aws.Config) *string {
		buildClientInvocations++
		return p("dummy client")
	})

	for i := 0; i < 5; i++ {
		client, err := cp.Client(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "dummy client", *client)
	}

	assert.Equal(t, 1, buildClientInvocations)
}

func TestInvalidateForcesRebuild(t *testing.T) {
	buildClientInvocations := 0
	cp := NewClientProvider("us-east-1", func(cfg aws.Config) *string {
		buildClientInvocations++
		return p("dummy client")
	})

	_, err := cp.Client(context.Background())
	require.NoError(t, err)
	cp.Invalidate()
	_, err = cp.Client(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, buildClientInvocations)
}

func TestRegionIsApplied(t *testing.T) {
	var seenRegion string
	cp := NewClientProvider("eu-west-1", func(cfg aws.Config) *string {
		seenRegion = cfg.Region
		return p("dummy client")
	})

	_, err := cp.Client(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "eu-west-1", seenRegion)
}

type fakeAPIError struct {
	code string
}

func (e fakeAPIError) Error() string                 { return e.code }
func (e fakeAPIError) ErrorCode() string             { return e.code }
func (e fakeAPIError) ErrorMessage() string          { return e.code }
func (e fakeAPIError) ErrorFault() smithy.ErrorFault { return smithy.FaultClient }

func TestIsInvalidCredentials(t *testing.T) {
	assert.True(t, IsInvalidCredentials(fakeAPIError{"ExpiredToken"}))
	assert.True(t, IsInvalidCredentials(fakeAPIError{"ExpiredTokenException"}))
	assert.False(t, IsInvalidCredentials(fakeAPIError{"Throttling"}))
	assert.False(t, IsInvalidCredentials(errors.New("not an API error")))
}
