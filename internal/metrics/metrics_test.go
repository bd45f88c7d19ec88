package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingRecorder struct {
	noopRecorder
	mu    sync.Mutex
	ops   map[string][]bool
	tools map[string][]bool
	tiers []string
}

func newRecordingRecorder() *recordingRecorder {
	return &recordingRecorder{ops: map[string][]bool{}, tools: map[string][]bool{}}
}

func (r *recordingRecorder) IncDBOpTotal(op string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops[op] = append(r.ops[op], success)
}

func (r *recordingRecorder) IncToolTotal(tool string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool] = append(r.tools[tool], success)
}

func (r *recordingRecorder) ObserveComparison(tier string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = append(r.tiers, tier)
}

func TestTimeOpAndTimeTool(t *testing.T) {
	rec := newRecordingRecorder()
	SetRecorder(rec)
	t.Cleanup(func() { SetRecorder(nil) })

	TimeOp("db_upsert_connection")(true)
	TimeOp("db_upsert_connection")(false)
	TimeTool("top_matches")(true)
	Default().ObserveComparison("high")

	assert.Equal(t, []bool{true, false}, rec.ops["db_upsert_connection"])
	assert.Equal(t, []bool{true}, rec.tools["top_matches"])
	assert.Equal(t, []string{"high"}, rec.tiers)
}

func TestSetRecorderNilRestoresNoop(t *testing.T) {
	SetRecorder(nil)
	assert.IsType(t, &noopRecorder{}, Default())
	assert.NoError(t, Init(false, ""))
}
