// Package source turns Fortran source files into namespaces.
//
// The stages run strictly forward:
//
//	raw line -> NormalizeStatement -> ExtractModules -> Namespace
//
// NormalizeStatement removes literal constants and trailing comments so
// that names inside strings or comments never match. ExtractModules finds
// module definitions ("module geometry") and usages ("use geometry",
// "use, intrinsic :: iso_c_binding"). ParseFile and ParseReader fold every
// line of a file into an ir.Namespace.
//
// Discover enumerates the Fortran files under one or more roots in a stable
// lexical order, which the orderer relies on for reproducible output.
//
// This is not a Fortran parser: scoping, submodules beyond textual
// detection, continuation lines and preprocessor directives are not
// interpreted.
package source
