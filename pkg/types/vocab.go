package types

import (
	"sort"
	"strings"
)

// Subsystems is the closed vocabulary for the subsystem tag on every record
var Subsystems = []string{
	"core", "gameplay", "gas", "rendering", "networking", "ui", "input",
	"animation", "ai", "physics", "audio", "editor", "build", "containers",
	"delegates", "async", "niagara", "pcg", "world-partition", "mass-entity",
	"chaos", "other",
}

// Categories is the closed vocabulary for Note categories
var Categories = []string{
	"class", "function", "pattern", "gotcha", "architecture", "example",
	"config", "macro", "module", "best-practice",
}

// TypeKinds is the closed vocabulary for Type-entity kinds
var TypeKinds = []string{"class", "struct", "enum", "interface"}

// RPCTypes lists the accepted remote-procedure kinds. The empty string means none.
var RPCTypes = []string{"", "Server", "Client", "NetMulticast"}

// Depth is the analysis maturity of a Type-entity
type Depth string

const (
	DepthStub    Depth = "stub"
	DepthShallow Depth = "shallow"
	DepthDeep    Depth = "deep"
)

// Depths lists every depth in ascending order
var Depths = []Depth{DepthStub, DepthShallow, DepthDeep}

// Rank returns the position of d in the stub < shallow < deep ordering.
// Unknown values rank below stub.
func (d Depth) Rank() int {
	switch d {
	case DepthStub:
		return 0
	case DepthShallow:
		return 1
	case DepthDeep:
		return 2
	default:
		return -1
	}
}

// Valid reports whether d is one of the known depths
func (d Depth) Valid() bool {
	return d.Rank() >= 0
}

func contains(vocab []string, v string) bool {
	for _, s := range vocab {
		if s == v {
			return true
		}
	}
	return false
}

// ValidSubsystem reports whether s is a known subsystem
func ValidSubsystem(s string) bool { return contains(Subsystems, s) }

// ValidCategory reports whether c is a known Note category
func ValidCategory(c string) bool { return contains(Categories, c) }

// ValidTypeKind reports whether k is a known Type-entity kind
func ValidTypeKind(k string) bool { return contains(TypeKinds, k) }

// ValidRPCType reports whether r is empty or a known remote-procedure kind
func ValidRPCType(r string) bool { return contains(RPCTypes, r) }

// vocabList renders a vocabulary for error messages
func vocabList(vocab []string) string {
	sorted := append([]string(nil), vocab...)
	sort.Strings(sorted)
	return strings.Join(sorted, ", ")
}
