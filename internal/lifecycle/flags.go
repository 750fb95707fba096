package lifecycle

import (
	"fmt"

	"backoffice/internal/db"
	"backoffice/internal/domain"
)

// FlagSet declares independent boolean columns. Implies maps a flag to the
// flag it requires: with {"is_featured": "is_active"} a row is never stored
// featured but inactive.
type FlagSet struct {
	Flags   []string
	Implies map[string]string
}

// Validate checks the declaration once at startup.
func (f *FlagSet) Validate() error {
	cfgErr := func(format string, args ...any) error {
		return domain.ConfigurationError{Component: "flags", Msg: fmt.Sprintf(format, args...)}
	}
	for _, flag := range f.Flags {
		if !db.IsIdent(flag) {
			return cfgErr("flag %q is not a valid identifier", flag)
		}
	}
	for from, to := range f.Implies {
		if !f.Has(from) || !f.Has(to) {
			return cfgErr("implication %s -> %s uses an undeclared flag", from, to)
		}
		if from == to {
			return cfgErr("flag %s implies itself", from)
		}
		if _, chained := f.Implies[to]; chained {
			return cfgErr("implication chains are not supported (%s -> %s -> %s)", from, to, f.Implies[to])
		}
	}
	return nil
}

// Has reports whether flag is declared.
func (f *FlagSet) Has(flag string) bool {
	for _, x := range f.Flags {
		if x == flag {
			return true
		}
	}
	return false
}

// dependents returns the flags that require flag.
func (f *FlagSet) dependents(flag string) []string {
	var out []string
	for _, x := range f.Flags {
		if f.Implies[x] == flag {
			out = append(out, x)
		}
	}
	return out
}

// toggleAssignments renders the SET list that negates flag and applies its
// side effects. Side effects come first and only read the flag's old value,
// so the result is the same whether the store evaluates assignments left to
// right (MySQL) or against the old row (SQLite).
func (f *FlagSet) toggleAssignments(flag string) []string {
	var sets []string
	if required, ok := f.Implies[flag]; ok {
		// turning flag on forces the flag it requires on
		sets = append(sets, fmt.Sprintf("%s = CASE WHEN COALESCE(%s, 0) = 1 THEN %s ELSE 1 END", required, flag, required))
	}
	for _, dep := range f.dependents(flag) {
		// turning flag off clears everything that requires it
		sets = append(sets, fmt.Sprintf("%s = CASE WHEN COALESCE(%s, 0) = 1 THEN 0 ELSE %s END", dep, flag, dep))
	}
	return append(sets, fmt.Sprintf("%s = CASE WHEN COALESCE(%s, 0) = 1 THEN 0 ELSE 1 END", flag, flag))
}

// Normalize enforces the implications on a set of explicit flag values
// (an edit form). A required flag is switched on when a flag that needs it
// is on; values not mentioned in the input are resolved against current.
func (f *FlagSet) Normalize(input, current map[string]bool) map[string]bool {
	out := make(map[string]bool, len(input))
	for k, v := range input {
		out[k] = v
	}
	value := func(flag string) bool {
		if v, ok := out[flag]; ok {
			return v
		}
		return current[flag]
	}
	for from, to := range f.Implies {
		if value(from) && !value(to) {
			if _, explicitOff := input[to]; explicitOff {
				if _, explicitFrom := input[from]; !explicitFrom {
					// explicit deactivation of the required flag wins over a stale dependent
					out[from] = false
					continue
				}
			}
			out[to] = true
		}
	}
	return out
}
