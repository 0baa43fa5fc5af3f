package plugins

import "github.com/thomasrohde/toy/pkg/evaluator"

const (
	Version = 0.1
	Author  = "Kayne Ruse"
)

type toyPlugin struct{}

func toyDef() Def {
	return Def{
		Name:    "Toy",
		Summary: "language metadata",
		Members: []string{"version", "author"},
		New:     func() evaluator.Plugin { return toyPlugin{} },
	}
}

func (toyPlugin) Initialize(env *evaluator.Env, alias string) error {
	return install(env, alias, "Toy", &table{name: "Toy", members: map[string]evaluator.Value{
		"version": evaluator.Number(Version),
		"author":  evaluator.String(Author),
	}})
}
