// Package stdlib embeds the standard library modules and registers the
// native bridges some of them opt into.
package stdlib

import (
	"embed"
	"io/fs"
	"sort"
	"strings"

	"sona/pkg/bridge"
	"sona/pkg/eval"
	"sona/pkg/module"
)

//go:embed lib/*.smod
var files embed.FS

// Label names the embedded root in module origins and error reports.
const Label = "<stdlib>"

// Root returns the embedded library as a search root.
func Root() module.Root {
	sub, err := fs.Sub(files, "lib")
	if err != nil {
		panic(err)
	}
	return module.FSRoot{Label: Label, FS: sub}
}

// Modules lists the names of the embedded modules.
func Modules() []string {
	entries, err := fs.ReadDir(files, "lib")
	if err != nil {
		return nil
	}
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), module.Extension))
	}
	sort.Strings(names)
	return names
}

// Source returns the source of an embedded module.
func Source(name string) (string, bool) {
	src, err := files.ReadFile("lib/" + name + module.Extension)
	if err != nil {
		return "", false
	}
	return string(src), true
}

type registration struct {
	id    string
	arity int
	fn    eval.NativeFunc
}

// RegisterAll registers every bridge used by the embedded modules.
func RegisterAll(reg *bridge.Registry) error {
	groups := [][]registration{
		hashingBridges,
		authBridges,
		jwtBridges,
		jsonBridges,
		envBridges,
		uuidBridges,
		humanizeBridges,
		mailBridges,
		websocketBridges,
		dbBridges,
		timeBridges,
	}
	for _, group := range groups {
		for _, r := range group {
			if err := reg.Register(r.id, r.arity, r.fn); err != nil {
				return err
			}
		}
	}
	return nil
}
