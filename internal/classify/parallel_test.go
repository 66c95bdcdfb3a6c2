package classify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-cdr3/internal/fasta"
)

func makeItems(n int) <-chan WorkItem {
	ch := make(chan WorkItem, n)
	full := vRef + insert + jRef
	for i := range n {
		item := WorkItem{
			Seq:  i,
			ID:   fmt.Sprint(i),
			Read: &fasta.Record{ID: fmt.Sprint(i), Seq: full},
		}
		// every third read has no V hit
		if i%3 != 0 {
			item.Hits = Hits{V: vHit(1, 24, 1, 24), J: jHit(7, 34)}
		}
		ch <- item
	}
	close(ch)
	return ch
}

func TestParallelClassify_OrderPreservation(t *testing.T) {
	c := newTestClassifier(t)

	results := c.ParallelClassify(makeItems(200), 8)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		require.NoError(t, r.Err)
		collected = append(collected, r.Seq)
		assert.Equal(t, fmt.Sprint(r.Seq), r.Class.ReadID)
		if r.Seq%3 == 0 {
			assert.Equal(t, NoV, r.Class.Status)
		} else {
			assert.Equal(t, Good, r.Class.Status)
		}
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 200)
	for i, seq := range collected {
		assert.Equal(t, i, seq, "result %d out of order", i)
	}
}

func TestParallelClassify_SingleWorker(t *testing.T) {
	c := newTestClassifier(t)

	results := c.ParallelClassify(makeItems(50), 1)

	var collected []int
	err := OrderedCollect(results, func(r WorkResult) error {
		collected = append(collected, r.Seq)
		return nil
	})
	require.NoError(t, err)

	assert.Len(t, collected, 50)
	for i, seq := range collected {
		assert.Equal(t, i, seq)
	}
}

func TestOrderedCollect_StopsOnError(t *testing.T) {
	c := newTestClassifier(t)
	results := c.ParallelClassify(makeItems(100), 4)

	errStop := errors.New("stop")
	calls := 0
	err := OrderedCollect(results, func(r WorkResult) error {
		calls++
		if r.Seq == 10 {
			return errStop
		}
		return nil
	})
	assert.ErrorIs(t, err, errStop)
	assert.Equal(t, 11, calls)
}
