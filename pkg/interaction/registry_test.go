package interaction

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/not-idle/pkg/testutil"
)

func TestSpecValidate(t *testing.T) {
	src := testutil.NewMockEventSource()

	tests := []struct {
		name    string
		spec    Spec
		wantErr bool
	}{
		{name: "valid", spec: Spec{Source: src, Events: []string{"tap"}}},
		{name: "nil source", spec: Spec{Events: []string{"tap"}}, wantErr: true},
		{name: "no events", spec: Spec{Source: src}, wantErr: true},
		{name: "empty name", spec: Spec{Source: src, Events: []string{"tap", ""}}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegistry_PairsPreserveOrderAndDuplicates(t *testing.T) {
	a, b := testutil.NewMockEventSource(), testutil.NewMockEventSource()

	var r Registry
	r.Add(Spec{Source: a, Events: []string{"tap", "swipe"}})
	r.Add(Spec{Source: b, Events: []string{"scroll"}}, Spec{Source: a, Events: []string{"tap"}})

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, []Pair{
		{Source: a, Event: "tap"},
		{Source: a, Event: "swipe"},
		{Source: b, Event: "scroll"},
		{Source: a, Event: "tap"},
	}, r.Pairs())
}

func TestRegistry_CopiesEvents(t *testing.T) {
	src := testutil.NewMockEventSource()
	events := []string{"tap"}

	var r Registry
	r.Add(Spec{Source: src, Events: events})
	events[0] = "changed"

	assert.Equal(t, "tap", r.Specs()[0].Events[0])
}

func TestRegistry_CloneIsIndependent(t *testing.T) {
	src := testutil.NewMockEventSource()

	var r Registry
	r.Add(Spec{Source: src, Events: []string{"tap"}})
	c := r.Clone()
	r.Add(Spec{Source: src, Events: []string{"blur"}})

	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, r.Len())
}

func TestRegistry_AddDefaults(t *testing.T) {
	root := testutil.NewMockEventSource()

	var r Registry
	r.AddDefaults(root)

	pairs := r.Pairs()
	assert.Len(t, pairs, 21)
	assert.Equal(t, Pair{Source: root, Event: "tap"}, pairs[0])
	assert.Equal(t, Pair{Source: root, Event: "selectedIndexChange"}, pairs[20])
}

func TestDefaultEventsReturnsCopy(t *testing.T) {
	events := DefaultEvents()
	events[0] = "changed"
	assert.Equal(t, "tap", DefaultEvents()[0])
}
