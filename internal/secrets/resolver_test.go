package secrets

import (
	"context"
	"errors"
	"sync"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeClient struct {
	mu       sync.Mutex
	values   map[string]string
	requests []string
	closed   bool
}

func (f *fakeClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req.GetName())
	v, ok := f.values[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "no such secret")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Name:    req.GetName(),
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(v)},
	}, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func TestParseReference(t *testing.T) {
	ref, err := ParseReference("secret://session-key?project=cybat-prod&version=3")
	require.NoError(t, err)
	require.Equal(t, Reference{Secret: "session-key", Project: "cybat-prod", Version: "3"}, ref)

	ref, err = ParseReference("secret://session-key")
	require.NoError(t, err)
	require.Equal(t, "latest", ref.Version)

	for _, bad := range []string{"https://session-key", "secret://", "secret://a/b"} {
		_, err := ParseReference(bad)
		require.Error(t, err, bad)
	}
}

func TestResolveFetchesAndCaches(t *testing.T) {
	client := &fakeClient{values: map[string]string{
		"projects/cybat-prod/secrets/session-key/versions/latest": "s3cr3t",
	}}
	r := NewResolver(context.Background(), WithProject("cybat-prod"), withClient(client))

	for i := 0; i < 3; i++ {
		v, err := r.Resolve(context.Background(), "secret://session-key")
		require.NoError(t, err)
		require.Equal(t, "s3cr3t", v)
	}
	require.Len(t, client.requests, 1)

	require.NoError(t, r.Close())
	require.False(t, client.closed, "injected clients are owned by the caller")
}

func TestResolvePassesPlainValuesThrough(t *testing.T) {
	r := NewResolver(context.Background(), withClient(&fakeClient{}))
	v, err := r.Resolve(context.Background(), "plain-key")
	require.NoError(t, err)
	require.Equal(t, "plain-key", v)
}

func TestResolveErrors(t *testing.T) {
	r := NewResolver(context.Background(), withClient(&fakeClient{values: map[string]string{}}))

	_, err := r.Resolve(context.Background(), "secret://session-key")
	require.ErrorContains(t, err, "no project")

	_, err = r.Resolve(context.Background(), "secret://session-key?project=p")
	require.True(t, errors.Is(err, ErrNotFound))

	unavailable := &Resolver{project: "p", cache: map[string]string{}}
	_, err = unavailable.Resolve(context.Background(), "secret://session-key")
	require.ErrorIs(t, err, ErrUnavailable)
}
