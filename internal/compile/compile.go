// Package compile computes the deterministic compiler configuration of
// a build: the ordered preprocessor define matrix and the flag list.
package compile

import (
	"github.com/dnys1/sqlite3build/internal/config"
	"github.com/dnys1/sqlite3build/internal/source"
)

// Define is one preprocessor symbol. A nil Value means the symbol is
// defined without a value.
type Define struct {
	Name  string
	Value *string
}

// Arg renders the define as a -D compiler argument.
func (d Define) Arg() string {
	if d.Value == nil {
		return "-D" + d.Name
	}
	return "-D" + d.Name + "=" + *d.Value
}

// Spec is the full input of one compiler invocation. It is built once
// per build and not mutated afterwards. Source paths are relative to
// the package root.
type Spec struct {
	Name    string
	AssetID string
	Sources []string
	Defines []Define
	Flags   []string
}

// Context is the build context the matrix rules are evaluated against.
type Context struct {
	OS       config.OS
	Mode     config.Mode
	DryRun   bool
	Strategy source.Strategy
}

type matrix struct {
	defines []Define
	flags   []string
}

func (m *matrix) define(name string) {
	m.defines = append(m.defines, Define{Name: name})
}

func (m *matrix) defineValue(name, value string) {
	m.defines = append(m.defines, Define{Name: name, Value: &value})
}

// A rule appends the defines and flags it is responsible for when its
// predicate over the build context holds. Rules run in a fixed order
// and never re-add a symbol an earlier rule has set.
type rule func(c Context, m *matrix)

var rules = []rule{
	baseline,
	posixCapabilities,
	windowsExport,
	diagnostics,
	optimization,
	systemLink,
}

// Matrix computes the defines and flags for a build context. It is
// pure and deterministic: repeated calls with an identical context
// yield an identical order and identical values, which the generated
// -D argument ordering of compiler invocations relies on.
func Matrix(c Context) ([]Define, []string) {
	var m matrix
	for _, r := range rules {
		r(c, &m)
	}
	return m.defines, m.flags
}

// baseline holds for every build: drop legacy and unused subsystems,
// lift the expression depth limit, keep temporary state in memory, and
// enable the FTS5 and R-tree extensions.
func baseline(_ Context, m *matrix) {
	m.defineValue("SQLITE_DQS", "0")
	m.define("SQLITE_OMIT_DEPRECATED")
	m.defineValue("SQLITE_MAX_EXPR_DEPTH", "0")
	m.defineValue("SQLITE_TEMP_STORE", "3")
	m.defineValue("SQLITE_DEFAULT_MEMSTATUS", "0")
	m.define("SQLITE_ENABLE_FTS5")
	m.define("SQLITE_ENABLE_RTREE")
	m.define("SQLITE_OMIT_TRACE")
	m.define("SQLITE_OMIT_TCL_VARIABLE")
	m.define("SQLITE_OMIT_PROGRESS_CALLBACK")
	m.define("SQLITE_OMIT_LOAD_EXTENSION")
	m.define("SQLITE_OMIT_GET_TABLE")
	m.define("SQLITE_OMIT_DECLTYPE")
	m.define("SQLITE_OMIT_AUTHORIZATION")
}

// posixCapabilities assumes the libc facilities glibc and bionic both
// provide.
func posixCapabilities(c Context, m *matrix) {
	if c.OS != config.Linux && c.OS != config.Android {
		return
	}
	m.define("SQLITE_USE_ALLOCA")
	m.define("HAVE_ISNAN")
	m.define("HAVE_LOCALTIME_R")
	m.define("HAVE_LOCALTIME_S")
	m.define("HAVE_MALLOC_USABLE_SIZE")
	m.define("HAVE_STRCHRNUL")
}

// windowsExport overrides the public API macro: unlike ELF targets,
// Windows needs an explicit export attribute on every public symbol.
func windowsExport(c Context, m *matrix) {
	if c.OS != config.Windows {
		return
	}
	m.defineValue("SQLITE_API", "__declspec(dllexport)")
}

// diagnostics enables the internal consistency and misuse checks for
// instrumentable debug builds. A dry run never produces a usable
// binary to instrument, so it always gets the untestable variant, even
// in nominal debug mode.
func diagnostics(c Context, m *matrix) {
	if !c.DryRun && c.Mode == config.Debug {
		m.define("SQLITE_DEBUG")
		m.define("SQLITE_MEMDEBUG")
		m.define("SQLITE_ENABLE_API_ARMOR")
		return
	}
	m.define("SQLITE_UNTESTABLE")
}

// optimization requests the platform's optimize flag for real release
// builds.
func optimization(c Context, m *matrix) {
	if c.DryRun || c.Mode != config.Release {
		return
	}
	if c.OS == config.Windows {
		m.flags = append(m.flags, "/O2")
		return
	}
	m.flags = append(m.flags, "-O3")
}

// systemLink asks the linker for the system-provided library.
// TODO(dnys1): the flag is spelled for unix-style linkers; MSVC wants
// sqlite3.lib instead.
func systemLink(c Context, m *matrix) {
	if c.Strategy != source.System {
		return
	}
	m.flags = append(m.flags, "-lsqlite3")
}
