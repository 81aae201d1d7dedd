package anthropic

import (
	"context"
	"errors"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/require"

	"goa.design/voyage/runtime/trip"
)

type fakeMessages struct {
	blocks     []sdk.ContentBlockUnion
	err        error
	lastParams sdk.MessageNewParams
}

func (f *fakeMessages) New(_ context.Context, params sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &sdk.Message{Content: f.blocks}, nil
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Model: "claude-sonnet-4-5"})
	require.Error(t, err)

	_, err = New(Options{Client: &fakeMessages{}})
	require.Error(t, err)
}

func TestExtract(t *testing.T) {
	t.Parallel()

	msgs := &fakeMessages{blocks: []sdk.ContentBlockUnion{
		{Type: "text", Text: `{"destination":"Tokyo","intent":"hotels"}`},
	}}
	c, err := New(Options{Client: msgs, Model: "claude-sonnet-4-5"})
	require.NoError(t, err)

	cand, err := c.Extract(context.Background(), []trip.Message{{Role: trip.RoleUser, Content: "hotel in tokyo"}}, nil)
	require.NoError(t, err)
	require.Equal(t, "Tokyo", *cand.Destination)
	require.Equal(t, "hotels", *cand.Intent)
	require.Equal(t, sdk.Model("claude-sonnet-4-5"), msgs.lastParams.Model)
	require.Equal(t, int64(defaultMaxTokens), msgs.lastParams.MaxTokens)
}

func TestExtractConcatenatesTextBlocks(t *testing.T) {
	t.Parallel()

	msgs := &fakeMessages{blocks: []sdk.ContentBlockUnion{
		{Type: "text", Text: `{"destination":`},
		{Type: "text", Text: `"Tokyo"}`},
	}}
	c, err := New(Options{Client: msgs, Model: "claude-sonnet-4-5"})
	require.NoError(t, err)

	cand, err := c.Extract(context.Background(), nil, nil)
	require.NoError(t, err)
	require.Equal(t, "Tokyo", *cand.Destination)
}

func TestExtractNoTextContent(t *testing.T) {
	t.Parallel()

	c, err := New(Options{Client: &fakeMessages{}, Model: "claude-sonnet-4-5"})
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), nil, nil)
	require.Error(t, err)
}

func TestExtractPropagatesAPIError(t *testing.T) {
	t.Parallel()

	c, err := New(Options{Client: &fakeMessages{err: errors.New("overloaded")}, Model: "claude-sonnet-4-5"})
	require.NoError(t, err)

	_, err = c.Extract(context.Background(), nil, nil)
	require.ErrorContains(t, err, "overloaded")
}
