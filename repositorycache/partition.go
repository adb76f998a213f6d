package repositorycache

// DefaultPartitionName derives a partition from the entity type: the snake_case
// type name followed by the package path, e.g. "user_profile:example.com/app/models".
func DefaultPartitionName[T any]() string {
	rt := baseType[T]()
	name := toSnake(typeName[T]())
	if rt.PkgPath() == "" {
		return name
	}
	return name + ":" + rt.PkgPath()
}
