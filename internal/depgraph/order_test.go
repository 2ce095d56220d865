package depgraph

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/runfortran/internal/ir"
)

func TestOrder_Empty(t *testing.T) {
	assert.Empty(t, Order(nil))
}

func TestOrder_DefinerBeforeUser(t *testing.T) {
	a := file("a.f90", defines("geometry"))
	b := file("b.f90", nil, use("geometry"))
	c := file("c.f90", nil)

	tests := []struct {
		name  string
		input []ir.FileNamespace
		want  []string
	}{
		{"definer first", []ir.FileNamespace{a, b, c}, []string{"c.f90", "a.f90", "b.f90"}},
		{"user first", []ir.FileNamespace{b, a, c}, []string{"c.f90", "a.f90", "b.f90"}},
		{"unrelated first", []ir.FileNamespace{c, b, a}, []string{"a.f90", "b.f90", "c.f90"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := ir.Paths(Order(tt.input))
			assert.Equal(t, tt.want, order)
			assert.Less(t, position(order, "a.f90"), position(order, "b.f90"))
		})
	}
}

func TestOrder_IntrinsicDoesNotMatchDefinition(t *testing.T) {
	// "use, intrinsic :: env" does not refer to the user's module env.
	user := file("user.f90", nil, intrinsic("env"))
	env := file("env.f90", defines("env"))

	order := ir.Paths(Order([]ir.FileNamespace{user, env}))
	assert.Equal(t, []string{"env.f90", "user.f90"}, order)

	order = ir.Paths(Order([]ir.FileNamespace{env, user}))
	assert.Equal(t, []string{"user.f90", "env.f90"}, order, "no constraint, so the later file goes first")
}

func TestOrder_ReverseChainAfterUnfold(t *testing.T) {
	files := []ir.FileNamespace{
		file("c.f90", nil, use("m2")),
		file("b.f90", defines("m2"), use("m1")),
		file("a.f90", defines("m1")),
	}

	unfolded, err := Unfold(files, Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a.f90", "b.f90", "c.f90"}, ir.Paths(Order(unfolded)))
}

func TestOrder_Deterministic(t *testing.T) {
	files := []ir.FileNamespace{
		file("a.f90", defines("m1")),
		file("b.f90", defines("m2"), use("m1")),
		file("c.f90", nil),
		file("d.f90", nil, use("m2")),
	}

	unfolded, err := Unfold(files, Options{})
	require.NoError(t, err)

	first := ir.Paths(Order(unfolded))
	for range 5 {
		assert.Equal(t, first, ir.Paths(Order(unfolded)))
	}
}

// randomDAG builds n files where file i defines m<i> and uses a random
// subset of modules defined by lower-numbered files.
func randomDAG(rng *rand.Rand, n int) ([]ir.FileNamespace, map[string][]string) {
	files := make([]ir.FileNamespace, n)
	deps := make(map[string][]string)
	for i := range n {
		path := fmt.Sprintf("f%02d.f90", i)
		var uses []ir.Module
		for j := range i {
			if rng.Intn(4) == 0 {
				uses = append(uses, use(fmt.Sprintf("m%d", j)))
				deps[path] = append(deps[path], fmt.Sprintf("f%02d.f90", j))
			}
		}
		if rng.Intn(5) == 0 {
			uses = append(uses, intrinsic("iso_c_binding"))
		}
		files[i] = file(path, defines(fmt.Sprintf("m%d", i)), uses...)
	}
	return files, deps
}

func TestOrder_RandomDAGsRespectDependencies(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := range 50 {
		files, deps := randomDAG(rng, 2+rng.Intn(14))
		rng.Shuffle(len(files), func(i, j int) { files[i], files[j] = files[j], files[i] })

		result, err := Resolve(files, Options{})
		require.NoError(t, err, "round %d", round)
		require.Len(t, result.Order, len(files))

		for user, definers := range deps {
			for _, definer := range definers {
				assert.Less(t, position(result.Order, definer), position(result.Order, user),
					"round %d: %s must precede %s in %v", round, definer, user, result.Order)
			}
		}
	}
}
