package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnnotate(t *testing.T) {
	skipped := CompositeKey{Identifier: "order", Namespace: "application", Key: "timeout"}
	kept := CompositeKey{Identifier: "order", Namespace: "application", Key: "retries"}
	// 组件单独相同不算命中
	partial := CompositeKey{Identifier: "order", Namespace: "other", Key: "timeout"}

	records := map[CompositeKey]*Record{
		skipped: newRecord(skipped),
		kept:    newRecord(kept),
		partial: newRecord(partial),
	}
	records[kept].Skipped = true

	Annotate(records, NewSkipSet(skipped))

	assert.True(t, records[skipped].Skipped)
	assert.False(t, records[kept].Skipped)
	assert.False(t, records[partial].Skipped)
}

func TestAnnotate_NilSkipSet(t *testing.T) {
	key := CompositeKey{Identifier: "a", Namespace: "b", Key: "c"}
	records := map[CompositeKey]*Record{key: newRecord(key)}

	Annotate(records, nil)
	assert.False(t, records[key].Skipped)
}
