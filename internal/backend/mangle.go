package backend

import "strings"

// flatten replaces the path separators `/`, `\`, and `::` with `_`
// so a package path becomes a single mangled identifier segment.
func flatten(packagePath string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", "::", "_")
	return r.Replace(packagePath)
}

// MangleFunction produces the deterministic symbol name for a
// top-level function: coppice_<package_path_flattened>_<symbol_name>.
func MangleFunction(packagePath, name string) string {
	return "coppice_" + flatten(packagePath) + "_" + name
}

// MangleMethod produces the deterministic symbol name for a struct
// method: coppice_<package_path_flattened>_<struct_symbol>_<method_name>.
func MangleMethod(packagePath, structName, methodName string) string {
	return "coppice_" + flatten(packagePath) + "_" + structName + "_" + methodName
}
