// Package app wires one build run together: it owns the validated run
// configuration, the logger, the variant catalog, the step declarations,
// and the execution loop that turns a requested step subset into a finished
// (or fully reported, failed) build.
package app
