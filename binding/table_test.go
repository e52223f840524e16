package binding_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/eventbind/binding"
)

type Unbound struct{}

func (*Unbound) OnTick(TickEvent) {}

// binderChain is a valid Binder whose dynamic type cannot be a map key.
type binderChain []binding.Binder

func (c binderChain) Owner() reflect.Type                        { return c[0].Owner() }
func (c binderChain) EventType() reflect.Type                    { return c[0].EventType() }
func (c binderChain) Bind(listener any) (binding.Handler, error) { return c[0].Bind(listener) }
func (c binderChain) String() string                             { return c[0].String() }

func TestTableFindHandlers(t *testing.T) {
	t.Parallel()

	strategies := map[string]*binding.Table{
		"deferred": binding.MustBuild(binding.NewTableBuilder().Bind(counterType,
			binding.Deferred(counterType, "OnTick", tickType),
			binding.Deferred(counterType, "AlsoOnTick", tickType),
			binding.Deferred(counterType, "OnReset", resetType),
		)),
		"direct": binding.MustBuild(binding.NewTableBuilder().Bind(counterType,
			onTickThunk,
			alsoOnTickThunk,
			binding.Direct("(*Counter).Explode", (*Counter).Explode),
		)),
	}

	for name, table := range strategies {
		t.Run(name, func(t *testing.T) {
			c := &Counter{}
			found, err := table.FindHandlers(c)
			require.NoError(t, err)

			ticks := found[tickType]
			require.NotNil(t, ticks)
			assert.GreaterOrEqual(t, ticks.Len(), 2)

			handlers := ticks.Handlers()
			require.NoError(t, handlers[0].HandleEvent(TickEvent{N: 3}))
			require.NoError(t, handlers[1].HandleEvent(TickEvent{N: 3}))
			assert.Equal(t, 3, c.Total())
			assert.Equal(t, []string{"OnTick", "AlsoOnTick"}, c.seen)

			again, err := table.FindHandlers(c)
			require.NoError(t, err)
			for i, h := range again[tickType].Handlers()[:2] {
				assert.True(t, h.Equal(handlers[i]), "handlers built twice must be equal")
				assert.NotSame(t, h, handlers[i])
			}

			producers, err := table.FindProducers(c)
			require.NoError(t, err)
			assert.Empty(t, producers)
		})
	}
}

func TestTableSingleHandlerIsASet(t *testing.T) {
	t.Parallel()

	table := binding.MustBuild(binding.NewTableBuilder().Bind(counterType, onTickThunk))
	found, err := table.FindHandlers(&Counter{})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, 1, found[tickType].Len())
}

func TestTableUnboundType(t *testing.T) {
	t.Parallel()

	table := binding.MustBuild(binding.NewTableBuilder().Bind(counterType, onTickThunk))

	_, err := table.FindHandlers(&Unbound{})
	var notBound *binding.TypeNotBoundError
	require.ErrorAs(t, err, &notBound)
	assert.Equal(t, reflect.TypeFor[*Unbound](), notBound.Type)
	assert.ErrorIs(t, err, binding.ErrTypeNotBound)

	_, err = table.FindProducers(&Unbound{})
	assert.ErrorIs(t, err, binding.ErrTypeNotBound)

	_, err = table.FindHandlers("listener")
	assert.ErrorIs(t, err, binding.ErrTypeNotBound)

	_, err = table.FindHandlers(nil)
	assert.ErrorIs(t, err, binding.ErrListenerRequired)

	var empty *binding.Table
	_, err = empty.FindHandlers(&Counter{})
	assert.ErrorIs(t, err, binding.ErrTypeNotBound)
}

func TestTableIntrospection(t *testing.T) {
	t.Parallel()

	unboundType := reflect.TypeFor[*Unbound]()
	unboundTick := binding.Direct("(*Unbound).OnTick", (*Unbound).OnTick)
	table := binding.MustBuild(binding.NewTableBuilder().
		Bind(counterType, binding.Deferred(counterType, "OnReset", resetType), onTickThunk).
		Bind(unboundType, unboundTick))

	assert.Equal(t, []reflect.Type{counterType, unboundType}, table.Types())
	assert.True(t, table.Has(counterType))
	assert.False(t, table.Has(tickType))
	assert.Equal(t, []reflect.Type{resetType, tickType}, table.EventTypes(counterType))
	assert.Equal(t, []binding.Binder{onTickThunk}, table.Binders(counterType, tickType))
	assert.Nil(t, table.EventTypes(tickType))
}

func TestTableBuilderErrors(t *testing.T) {
	t.Parallel()

	t.Run("nil owner", func(t *testing.T) {
		_, err := binding.NewTableBuilder().Bind(nil, onTickThunk).Build()
		assert.ErrorIs(t, err, binding.ErrInvalidBinding)
	})

	t.Run("non pointer owner", func(t *testing.T) {
		_, err := binding.NewTableBuilder().Bind(reflect.TypeFor[Counter](), onTickThunk).Build()
		assert.ErrorIs(t, err, binding.ErrInvalidBinding)
	})

	t.Run("duplicate owner", func(t *testing.T) {
		_, err := binding.NewTableBuilder().
			Bind(counterType, onTickThunk).
			Bind(counterType, alsoOnTickThunk).
			Build()
		assert.ErrorIs(t, err, binding.ErrDuplicateBinding)
	})

	t.Run("duplicate binder", func(t *testing.T) {
		_, err := binding.NewTableBuilder().
			Bind(counterType,
				binding.Deferred(counterType, "OnTick", tickType),
				binding.Deferred(counterType, "OnTick", tickType)).
			Build()
		assert.ErrorIs(t, err, binding.ErrDuplicateBinding)
	})

	t.Run("nil binder", func(t *testing.T) {
		_, err := binding.NewTableBuilder().Bind(counterType, nil).Build()
		assert.ErrorIs(t, err, binding.ErrInvalidBinding)
	})

	t.Run("foreign thunk", func(t *testing.T) {
		foreign := binding.Direct("(*Unbound).OnTick", (*Unbound).OnTick)
		_, err := binding.NewTableBuilder().Bind(counterType, foreign).Build()
		assert.ErrorIs(t, err, binding.ErrInvalidBinding)
		assert.Contains(t, err.Error(), "(*Unbound).OnTick")
	})

	t.Run("non comparable binder", func(t *testing.T) {
		var err error
		require.NotPanics(t, func() {
			_, err = binding.NewTableBuilder().
				Bind(counterType, onTickThunk, binderChain{alsoOnTickThunk}).
				Build()
		})
		assert.ErrorIs(t, err, binding.ErrInvalidBinding)
		assert.Contains(t, err.Error(), "binder 1")
	})

	t.Run("errors are joined", func(t *testing.T) {
		_, err := binding.NewTableBuilder().
			Bind(nil).
			Bind(counterType, nil).
			Build()
		require.Error(t, err)
		assert.ErrorIs(t, err, binding.ErrInvalidBinding)
		assert.Contains(t, err.Error(), "owner type is required")
		assert.Contains(t, err.Error(), "binder 0")
	})

	t.Run("must build panics", func(t *testing.T) {
		assert.Panics(t, func() {
			binding.MustBuild(binding.NewTableBuilder().Bind(nil))
		})
	})
}

func TestDeferredBinderMissingMethod(t *testing.T) {
	t.Parallel()

	table := binding.MustBuild(binding.NewTableBuilder().Bind(counterType,
		binding.Deferred(counterType, "OnVanish", tickType)))

	_, err := table.FindHandlers(&Counter{})
	assert.ErrorIs(t, err, binding.ErrMethodNotFound)
	assert.Contains(t, err.Error(), "OnVanish")
}
