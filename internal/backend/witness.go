package backend

import (
	"fmt"
	"sort"

	"github.com/isaacparker0/coppice-sub000/internal/exec"
)

// VTable is the ordered method-pointer table for one (struct, interface)
// conformance pair: `{data_pointer, vtable_pointer}` boxes an
// interface value, and a generic function's trailing witness parameter
// carries this same shape for its constrained type parameter.
type VTable struct {
	StructPackage    string
	StructName       string
	InterfacePackage string
	InterfaceName    string
	// Slots holds one mangled method symbol per interface method, in
	// InterfaceDecl.MethodOrder order.
	Slots []string
}

// Symbol is the mangled name this vtable is emitted under: one vtable
// per (struct, interface) pair, since distinct interfaces may impose
// different method orders on the same struct.
func (v *VTable) Symbol() string {
	return fmt.Sprintf("coppice_vtable_%s_%s_%s_%s", flatten(v.StructPackage), v.StructName, flatten(v.InterfacePackage), v.InterfaceName)
}

// BuildVTables computes one VTable per (struct, interface) conformance
// declared in the program, deterministically ordered for reproducible
// object output.
func BuildVTables(prog *exec.Program) ([]*VTable, []error) {
	ifaceByKey := map[string]*exec.InterfaceDecl{}
	for _, id := range prog.Interfaces {
		ifaceByKey[id.PackagePath+"\x00"+id.Name] = id
	}

	var tables []*VTable
	var errs []error
	for _, sd := range prog.Structs {
		for _, implName := range sd.Implements {
			id := lookupInterfaceByName(ifaceByKey, implName)
			if id == nil {
				errs = append(errs, fmt.Errorf("struct %s declares conformance to unknown interface %q", sd.Name, implName))
				continue
			}
			vt := &VTable{
				StructPackage: sd.PackagePath, StructName: sd.Name,
				InterfacePackage: id.PackagePath, InterfaceName: id.Name,
			}
			methodByName := map[string]*exec.MethodDecl{}
			for _, m := range sd.Methods {
				methodByName[m.Name] = m
			}
			for _, mname := range id.MethodOrder {
				m := methodByName[mname]
				if m == nil {
					errs = append(errs, fmt.Errorf("struct %s is missing method %q required by interface %s", sd.Name, mname, id.Name))
					continue
				}
				vt.Slots = append(vt.Slots, MangleMethod(sd.PackagePath, sd.Name, mname))
			}
			tables = append(tables, vt)
		}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Symbol() < tables[j].Symbol() })
	return tables, errs
}

// lookupInterfaceByName finds an interface declaration by its bare name
// across every package, since a struct's Implements list carries only
// the written (possibly import-qualified-then-stripped) interface name,
// not its defining package path.
func lookupInterfaceByName(byKey map[string]*exec.InterfaceDecl, name string) *exec.InterfaceDecl {
	for _, id := range byKey {
		if id.Name == name {
			return id
		}
	}
	return nil
}
