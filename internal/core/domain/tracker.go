package domain

import (
	"encoding/hex"
	"encoding/json"

	"github.com/btcsuite/btcd/btcutil"
)

// OutputKey represents the ID of a tracked output, composed by its txid and
// vout.
type OutputKey struct {
	TxID string
	VOut uint32
}

// TrackedOutput is an output paying to a watched script, together with the
// height it confirmed at. Height 0 means the output is still unconfirmed.
type TrackedOutput struct {
	TxID   string `json:"txid"`
	VOut   uint32 `json:"vout"`
	Script []byte `json:"script"`
	Value  uint64 `json:"value"`
	Height int32  `json:"height"`
}

// Key returns the OutputKey of the current output.
func (o TrackedOutput) Key() OutputKey {
	return OutputKey{TxID: o.TxID, VOut: o.VOut}
}

// IsConfirmed returns whether the output has been included in a block.
func (o TrackedOutput) IsConfirmed() bool {
	return o.Height > 0
}

// OutputTracker maps watched scripts to the outputs observed for them. It is
// a plain in-memory entity, callers are responsible for serializing
// concurrent access.
type OutputTracker struct {
	watched map[string]struct{}
	outputs map[OutputKey]TrackedOutput
}

// NewOutputTracker returns an empty tracker.
func NewOutputTracker() *OutputTracker {
	return &OutputTracker{
		watched: map[string]struct{}{},
		outputs: map[OutputKey]TrackedOutput{},
	}
}

// Watch registers a script so that outputs paying to it are tracked.
func (t *OutputTracker) Watch(script []byte) error {
	if len(script) <= 0 {
		return ErrNullScript
	}
	t.watched[hex.EncodeToString(script)] = struct{}{}
	return nil
}

// IsWatched returns whether the script has been registered.
func (t *OutputTracker) IsWatched(script []byte) bool {
	_, ok := t.watched[hex.EncodeToString(script)]
	return ok
}

// WatchedScripts returns all registered scripts.
func (t *OutputTracker) WatchedScripts() [][]byte {
	scripts := make([][]byte, 0, len(t.watched))
	for s := range t.watched {
		script, _ := hex.DecodeString(s)
		scripts = append(scripts, script)
	}
	return scripts
}

// Has returns whether an output has been recorded under the given key.
func (t *OutputTracker) Has(key OutputKey) bool {
	_, ok := t.outputs[key]
	return ok
}

// Record upserts an observed output. The script must be watched.
func (t *OutputTracker) Record(output TrackedOutput) error {
	if !t.IsWatched(output.Script) {
		return ErrNotWatched
	}
	t.outputs[output.Key()] = output
	return nil
}

// Confirm marks a previously recorded output as confirmed at the given
// height.
func (t *OutputTracker) Confirm(key OutputKey, height int32) {
	if output, ok := t.outputs[key]; ok {
		output.Height = height
		t.outputs[key] = output
	}
}

// Balance sums the confirmed and unconfirmed values of the outputs observed
// for the given script.
func (t *OutputTracker) Balance(script []byte) (confirmed, unconfirmed btcutil.Amount) {
	scriptHex := hex.EncodeToString(script)
	for _, output := range t.outputs {
		if hex.EncodeToString(output.Script) != scriptHex {
			continue
		}
		if output.IsConfirmed() {
			confirmed += btcutil.Amount(output.Value)
		} else {
			unconfirmed += btcutil.Amount(output.Value)
		}
	}
	return
}

type trackerSnapshot struct {
	Watched []string        `json:"watched"`
	Outputs []TrackedOutput `json:"outputs"`
}

// Serialize returns the tracker as an opaque snapshot blob.
func (t *OutputTracker) Serialize() ([]byte, error) {
	snapshot := trackerSnapshot{
		Watched: make([]string, 0, len(t.watched)),
		Outputs: make([]TrackedOutput, 0, len(t.outputs)),
	}
	for s := range t.watched {
		snapshot.Watched = append(snapshot.Watched, s)
	}
	for _, output := range t.outputs {
		snapshot.Outputs = append(snapshot.Outputs, output)
	}
	return json.Marshal(snapshot)
}

// DeserializeOutputTracker rebuilds a tracker from a snapshot blob.
func DeserializeOutputTracker(buf []byte) (*OutputTracker, error) {
	var snapshot trackerSnapshot
	if err := json.Unmarshal(buf, &snapshot); err != nil {
		return nil, err
	}
	tracker := NewOutputTracker()
	for _, s := range snapshot.Watched {
		tracker.watched[s] = struct{}{}
	}
	for _, output := range snapshot.Outputs {
		tracker.outputs[output.Key()] = output
	}
	return tracker, nil
}
