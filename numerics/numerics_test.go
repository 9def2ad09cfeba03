package numerics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPredicates(t *testing.T) {
	assert := require.New(t)
	tol := Default()

	assert.True(tol.IsEQ(1.0, 1.0+1e-10))
	assert.False(tol.IsEQ(1.0, 1.0+1e-8))
	assert.True(tol.IsLT(1.0, 2.0))
	assert.False(tol.IsLT(1.0, 1.0+1e-10))
	assert.True(tol.IsLE(1.0, 1.0+1e-10))
	assert.True(tol.IsGE(1.0+1e-10, 1.0))
	assert.True(tol.IsZero(1e-10))
	assert.False(tol.IsZero(1e-8))
	assert.True(tol.IsPos(1e-8))
	assert.True(tol.IsNeg(-1e-8))
	assert.True(tol.IsInfinity(1e20))
	assert.False(tol.IsInfinity(1e19))
	assert.True(tol.IsNegInfinity(-1e20))
}

func TestIntegrality(t *testing.T) {
	assert := require.New(t)
	tol := Default()

	assert.True(tol.IsFeasIntegral(3.0))
	assert.True(tol.IsFeasIntegral(3.0000001))
	assert.True(tol.IsFeasIntegral(2.9999999))
	assert.False(tol.IsFeasIntegral(3.5))
	assert.Equal(3.0, tol.Floor(3.0000001))
	assert.Equal(3.0, tol.Ceil(2.9999999))
	assert.Equal(3.0, tol.Floor(3.7))
	assert.Equal(4.0, tol.Ceil(3.3))
}

func TestGrowCalc(t *testing.T) {
	assert := require.New(t)
	g := DefaultGrow()

	assert.Equal(0, g.Grow(0, 0))
	assert.GreaterOrEqual(g.Grow(0, 1), g.Init)
	assert.Equal(10, g.Grow(10, 5))

	// amortized geometric: repeated growth by one element must not allocate
	// linearly many distinct sizes
	sizes := 0
	cap := 0
	for n := 1; n <= 1024; n++ {
		if c := g.Grow(cap, n); c != cap {
			cap = c
			sizes++
		}
	}
	assert.Less(sizes, 16)
}

func TestValidate(t *testing.T) {
	assert := require.New(t)

	assert.NoError(Default().Validate())
	assert.Error((&Tolerances{Epsilon: 0, FeasTol: 1e-6, Infinity: 1e20}).Validate())
	assert.Error((&Tolerances{Epsilon: 1e-6, FeasTol: 1e-9, Infinity: 1e20}).Validate())
	assert.Error((&Tolerances{Epsilon: 1e-9, FeasTol: 1e-6, Infinity: 0.5}).Validate())
}

func TestLoadConfig(t *testing.T) {
	assert := require.New(t)

	path := filepath.Join(t.TempDir(), "tol.toml")
	assert.NoError(os.WriteFile(path, []byte("epsilon = 1e-8\nfeastol = 1e-5\ngrow_factor = 1.5\n"), 0o600))

	cfg, err := LoadConfig(path)
	assert.NoError(err)

	tol, err := cfg.Tolerances()
	assert.NoError(err)
	assert.Equal(1e-8, tol.Epsilon)
	assert.Equal(1e-5, tol.FeasTol)
	assert.Equal(Default().Infinity, tol.Infinity)

	g := cfg.Grow()
	assert.Equal(1.5, g.Fac)
	assert.Equal(DefaultGrow().Init, g.Init)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(err)
}
