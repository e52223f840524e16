package eventbind

import (
	"context"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/eventbind/binding"
)

type pinged struct{ Seq int }

type pinger struct{ seen []int }

func (p *pinger) OnPing(e pinged) { p.seen = append(p.seen, e.Seq) }

func TestServiceHelpersRequireService(t *testing.T) {
	assert.ErrorIs(t, RegisterListener(nil, &pinger{}), ErrServiceRequired)
	assert.ErrorIs(t, PublishEvent(context.Background(), nil, pinged{}, nil), ErrServiceRequired)
}

func TestDispatcherExports(t *testing.T) {
	table := binding.MustBuild(binding.NewTableBuilder().
		Bind(reflect.TypeFor[*pinger](),
			binding.Direct("(*pinger).OnPing", (*pinger).OnPing),
		))

	d := NewDispatcher(table, WithDispatcherLogger(DiscardLogger()))
	p := &pinger{}
	require.NoError(t, d.Register(p))
	require.NoError(t, d.Post(context.Background(), pinged{Seq: 1}))
	assert.Equal(t, []int{1}, p.seen)
	assert.ErrorIs(t, d.Register(p), ErrAlreadyRegistered)
}

func TestEncodingExportAliases(t *testing.T) {
	payload := map[string]string{"hello": "world"}
	data, err := Marshal(payload)
	require.NoError(t, err)

	var out map[string]string
	require.NoError(t, Unmarshal(data, &out))
	assert.Equal(t, payload, out)
}

func TestMetadataAndIDExports(t *testing.T) {
	md := NewMetadata("tenant", "acme")
	assert.Equal(t, "acme", md["tenant"])
	assert.Len(t, NewID(), 26)
}

func TestTransportExports(t *testing.T) {
	assert.True(t, DefaultTransportRegistry.Has("channel"))
	assert.Equal(t, "channel", GetCapabilities("channel").Name)
}
