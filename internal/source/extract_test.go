package source

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/runfortran/internal/ir"
)

func def(name string) Occurrence {
	return Occurrence{Kind: Definition, Module: ir.NewModule(name, false)}
}

func use(name string, intrinsic bool) Occurrence {
	return Occurrence{Kind: Usage, Module: ir.NewModule(name, intrinsic)}
}

func TestExtractModules(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []Occurrence
	}{
		{"module definition", "module geometry", []Occurrence{def("geometry")}},
		{"upper case definition", "MODULE Geometry", []Occurrence{def("Geometry")}},
		{"end module", "end module geometry", []Occurrence{def("geometry")}},
		{"bare end module", "end module", nil},
		{"module procedure", "module procedure area", nil},
		{"module procedure upper", "MODULE PROCEDURE area", nil},
		{"module function", "module function area(r) result(a)", nil},
		{"module pure subroutine", "module pure subroutine step(x)", nil},
		{"module typed function", "module integer function count()", nil},
		{"module double precision function", "module double precision function norm(v)", nil},
		{"module derived type function", "module type(point) function origin()", nil},
		{"module named double", "module double", []Occurrence{def("double")}},
		{"end module named real", "end module real", []Occurrence{def("real")}},
		{"module named pure", "MODULE Pure", []Occurrence{def("Pure")}},
		{"submodule", "submodule (geometry) geometry_impl", nil},
		{"plain use", "use geometry", []Occurrence{use("geometry", false)}},
		{"use with only", "use geometry, only: area, volume", []Occurrence{use("geometry", false)}},
		{"use double colon", "use :: geometry", []Occurrence{use("geometry", false)}},
		{"intrinsic use", "use, intrinsic :: iso_c_binding", []Occurrence{use("iso_c_binding", true)}},
		{"intrinsic use compact", "use,intrinsic::iso_fortran_env", []Occurrence{use("iso_fortran_env", true)}},
		{"intrinsic upper", "USE, INTRINSIC :: ISO_C_BINDING", []Occurrence{use("ISO_C_BINDING", true)}},
		{"non intrinsic", "use, non_intrinsic :: iso_c_binding", []Occurrence{use("iso_c_binding", false)}},
		{"identifier containing use", "call reuse(x)", nil},
		{"used variable", "used = .true.", nil},
		{"modules variable", "nmodules = modules + 1", nil},
		{"no references", "x = y + 1", nil},
		{"empty", "", nil},
		{"two uses", "use a; use b", []Occurrence{use("a", false), use("b", false)}},
		{"definition before usage", "use b; module a", []Occurrence{def("a"), use("b", false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractModules(tt.line))
		})
	}
}

func TestExtractModulesRequiresNormalization(t *testing.T) {
	// Raw lines can hide names in literals and comments.
	raw := "print *, 'use fake' ! module ghost"
	assert.NotEmpty(t, ExtractModules(raw))
	assert.Empty(t, ExtractModules(NormalizeStatement(raw)))
}

func TestOccurrenceKindString(t *testing.T) {
	assert.Equal(t, "definition", Definition.String())
	assert.Equal(t, "usage", Usage.String())
}
