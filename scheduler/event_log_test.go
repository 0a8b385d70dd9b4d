package scheduler_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantprice/models"
	"plantprice/scheduler"
)

func TestEventLog(t *testing.T) {
	t.Parallel()

	t.Run("drains the source and keeps the newest events", func(t *testing.T) {
		t.Parallel()

		src := make(chan models.BatchEvent, 10)
		el := scheduler.NewEventLog(src, 3)
		el.Start()
		defer el.Stop()

		for i := 1; i <= 5; i++ {
			src <- models.BatchEvent{Seq: i, Type: models.EventProgress}
		}

		require.Eventually(t, func() bool {
			evs := el.After(0)
			return len(evs) == 3 && evs[2].Seq == 5
		}, time.Second, 5*time.Millisecond)

		evs := el.After(0)
		assert.Equal(t, 3, evs[0].Seq)
		assert.Len(t, el.After(4), 1)
	})

	t.Run("after the last event returns an empty list", func(t *testing.T) {
		t.Parallel()

		el := scheduler.NewEventLog(nil, 0)
		el.Append(models.BatchEvent{Seq: 1})

		got := el.After(1)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("stops when the source closes", func(t *testing.T) {
		t.Parallel()

		src := make(chan models.BatchEvent)
		el := scheduler.NewEventLog(src, 10)
		el.Start()
		close(src)
		el.Stop()
	})
}
