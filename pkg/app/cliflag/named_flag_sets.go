// Package cliflag groups pflag flag sets by section so command help output
// stays organized as options grow.
package cliflag

import (
	"github.com/spf13/pflag"
)

// NamedFlagSets stores named flag sets in the order they were requested.
type NamedFlagSets struct {
	// Order is the section order.
	Order []string
	// FlagSets maps section name to flag set.
	FlagSets map[string]*pflag.FlagSet
}

// FlagSet returns the flag set for name, creating it on first use.
func (nfs *NamedFlagSets) FlagSet(name string) *pflag.FlagSet {
	if nfs.FlagSets == nil {
		nfs.FlagSets = map[string]*pflag.FlagSet{}
	}
	if _, ok := nfs.FlagSets[name]; !ok {
		nfs.FlagSets[name] = pflag.NewFlagSet(name, pflag.ExitOnError)
		nfs.Order = append(nfs.Order, name)
	}
	return nfs.FlagSets[name]
}
