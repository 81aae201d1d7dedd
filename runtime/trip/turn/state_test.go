package turn

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextInterpretationEventsFromAnyStatus(t *testing.T) {
	t.Parallel()

	statuses := []Status{"", StatusCollectingProfile, StatusCollectingFields, StatusExecuting, StatusSynthesizing, StatusComplete}
	for _, s := range statuses {
		got, err := Next(s, EventMessage)
		require.NoError(t, err)
		require.Equal(t, s, got, "a message never moves the status by itself")

		got, err = Next(s, EventProfileMissing)
		require.NoError(t, err)
		require.Equal(t, StatusCollectingProfile, got)

		got, err = Next(s, EventFieldsMissing)
		require.NoError(t, err)
		require.Equal(t, StatusCollectingFields, got)

		got, err = Next(s, EventFieldsComplete)
		require.NoError(t, err)
		require.Equal(t, StatusExecuting, got)
	}
}

func TestNextPipelineOrder(t *testing.T) {
	t.Parallel()

	s, err := Next(StatusExecuting, EventResultsReady)
	require.NoError(t, err)
	require.Equal(t, StatusSynthesizing, s)

	s, err = Next(StatusSynthesizing, EventResponseReady)
	require.NoError(t, err)
	require.Equal(t, StatusComplete, s)
}

func TestNextRejectsOutOfOrderPipelineEvents(t *testing.T) {
	t.Parallel()

	_, err := Next(StatusCollectingFields, EventResultsReady)
	require.Error(t, err)

	_, err = Next(StatusExecuting, EventResponseReady)
	require.Error(t, err)

	_, err = Next(StatusComplete, EventResultsReady)
	require.Error(t, err)
}

func TestNextFullLifecycle(t *testing.T) {
	t.Parallel()

	s := Status("")
	var err error
	for _, ev := range []Event{EventMessage, EventFieldsComplete, EventResultsReady, EventResponseReady} {
		s, err = Next(s, ev)
		require.NoError(t, err)
	}
	require.Equal(t, StatusComplete, s)
}
