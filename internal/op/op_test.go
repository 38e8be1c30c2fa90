package op

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBase_HappyPath(t *testing.T) {
	b := NewBase(newTestBackend(), Convolution2D, "conv")
	assert.Equal(t, Constructed, b.State())
	assert.Equal(t, "conv", b.Name())
	assert.Equal(t, Convolution2D, b.Type())

	require.NoError(t, b.BeginReshape())
	b.EndReshape()
	assert.Equal(t, Shaped, b.State())

	require.NoError(t, b.BeginLoad())
	b.EndLoad()
	assert.Equal(t, Loaded, b.State())

	require.NoError(t, b.BeginSetUp())
	b.EndSetUp()
	assert.Equal(t, Ready, b.State())

	for i := 0; i < 3; i++ {
		require.NoError(t, b.BeginExecute())
		assert.Equal(t, Executing, b.State())
		b.EndExecute()
		assert.Equal(t, Ready, b.State())
	}

	require.NoError(t, b.BeginFree())
	b.EndFree()
	assert.Equal(t, Freed, b.State())

	// Freed operators are revived by reshape + load.
	require.NoError(t, b.BeginReshape())
	b.EndReshape()
	assert.Equal(t, Shaped, b.State())
}

func TestBase_ReshapeKeepsLoadedWeights(t *testing.T) {
	b := NewBase(newTestBackend(), Convolution2D, "conv")
	b.EndReshape()
	b.EndLoad()
	b.EndSetUp()

	require.NoError(t, b.BeginReshape())
	b.EndReshape()
	assert.Equal(t, Loaded, b.State())

	// New geometry needs a fresh setUp before execute.
	assert.Equal(t, PreconditionViolation, CodeOf(b.BeginExecute()))
}

func TestBase_Preconditions(t *testing.T) {
	tests := []struct {
		name  string
		setup func(b *Base)
		check func(b *Base) error
		stage Stage
	}{
		{"LoadBeforeReshape", func(*Base) {}, (*Base).BeginLoad, StageLoad},
		{"LoadAfterFree", func(b *Base) { b.EndReshape(); b.EndLoad(); b.EndFree() }, (*Base).BeginLoad, StageLoad},
		{"SetUpBeforeLoad", func(b *Base) { b.EndReshape() }, (*Base).BeginSetUp, StageSetUp},
		{"ExecuteBeforeLoad", func(b *Base) { b.EndReshape() }, (*Base).BeginExecute, StageExecute},
		{"ExecuteBeforeSetUp", func(b *Base) { b.EndReshape(); b.EndLoad() }, (*Base).BeginExecute, StageExecute},
		{"ExecuteAfterFree", func(b *Base) { b.EndReshape(); b.EndLoad(); b.EndSetUp(); b.EndFree() }, (*Base).BeginExecute, StageExecute},
		{"ReshapeWhileExecuting", func(b *Base) { b.EndReshape(); b.EndLoad(); b.EndSetUp(); _ = b.BeginExecute() }, (*Base).BeginReshape, StageReshape},
		{"FreeWhileExecuting", func(b *Base) { b.EndReshape(); b.EndLoad(); b.EndSetUp(); _ = b.BeginExecute() }, (*Base).BeginFree, StageFree},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBase(newTestBackend(), MaxPool2D, "pool")
			tt.setup(&b)
			err := tt.check(&b)
			require.Error(t, err)
			var opErr *Error
			require.ErrorAs(t, err, &opErr)
			assert.Equal(t, PreconditionViolation, opErr.Code)
			assert.Equal(t, tt.stage, opErr.Stage)
			assert.Equal(t, "pool", opErr.Op)
		})
	}
}

func TestBase_CheckIO(t *testing.T) {
	b := NewBase(newTestBackend(), MaxPool2D, "pool")
	err := b.CheckIO(StageReshape, nil, nil, 1, 1)
	assert.Equal(t, PreconditionViolation, CodeOf(err))
}

func TestStrings(t *testing.T) {
	assert.Equal(t, "Convolution2D", Convolution2D.String())
	assert.Equal(t, "MaxPool2D", MaxPool2D.String())
	assert.Equal(t, "ready", Ready.String())
	assert.Equal(t, "setUp", StageSetUp.String())
	assert.Equal(t, "allocation failure", AllocationFailure.String())
}
