package config

// File is the on-disk structure of the ladle.yaml configuration file.
type File struct {
	Concurrency int        `yaml:"concurrency"`
	Timeout     string     `yaml:"timeout"`
	ColdStart   bool       `yaml:"coldStart"`
	Prune       bool       `yaml:"prune"`
	Backend     BackendDTO `yaml:"backend"`
	Recipes     RecipesDTO `yaml:"recipes"`
	TrustPath   string     `yaml:"trustPath"`
}

// BackendDTO selects and parameterizes the cache backend.
type BackendDTO struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Bucket  string `yaml:"bucket"`
	Object  string `yaml:"object"`
	Account string `yaml:"account"`
}

// RecipesDTO lists the directories searched for recipe files.
type RecipesDTO struct {
	OverrideDirs []string `yaml:"overrideDirs"`
	SearchDirs   []string `yaml:"searchDirs"`
}
