package todo

// ID identifies a todo or goal. Removal and toggling match on ID alone.
type ID string

// Todo is a single todo item.
type Todo struct {
	ID       ID     `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Complete bool   `json:"complete" yaml:"complete"`
}

// Goal is a single goal item.
type Goal struct {
	ID   ID     `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// State is the root state record. The zero value is the default state.
type State struct {
	Todos []Todo `json:"todos"`
	Goals []Goal `json:"goals"`
}
