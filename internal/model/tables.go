package model

// Table names for the task domain. The store and the integrity monitor
// address persisted data through these constants only.
const (
	TableLists            = "lists"
	TableItems            = "items"
	TableUsers            = "users"
	TableItemDependencies = "item_dependencies"
)

// Model names used to index validators and business rules.
const (
	ModelList = "list"
	ModelItem = "item"
)

// TableForModel maps a model name to its backing table. Unknown model names
// return the empty string.
func TableForModel(name string) string {
	switch name {
	case ModelList:
		return TableLists
	case ModelItem:
		return TableItems
	default:
		return ""
	}
}

// ModelForTable maps a table name back to its model name. Tables without a
// validator model (users, item_dependencies) return the empty string.
func ModelForTable(table string) string {
	switch table {
	case TableLists:
		return ModelList
	case TableItems:
		return ModelItem
	default:
		return ""
	}
}

// ScannableTables returns the tables integrity scans sweep by default.
func ScannableTables() []string {
	return []string{TableLists, TableItems}
}
