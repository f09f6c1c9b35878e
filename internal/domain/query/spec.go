package query

// Sort orden por un campo lógico.
type Sort struct {
	Field string
	Desc  bool
}

// QuerySpec consulta compuesta lista para el adaptador de almacenamiento.
type QuerySpec struct {
	Where  *Predicate
	Sort   []Sort
	Page   int
	Limit  int
	Offset int
}
