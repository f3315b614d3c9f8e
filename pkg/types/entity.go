package types

import (
	"strings"
	"time"
)

// Member summarizes one method, property or delegate listed on a Type-entity
type Member struct {
	Name       string `json:"name"`
	Type       string `json:"type,omitempty"`
	Brief      string `json:"brief,omitempty"`
	Specifiers string `json:"specifiers,omitempty"`
	Signature  string `json:"signature,omitempty"`
}

// TypeEntity is one named code type (class, struct, enum or interface).
// ParentType, OuterType and KnownChildren are name references that may dangle.
type TypeEntity struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Kind       string `json:"kind"`
	ParentType string `json:"parent_type,omitempty"`
	OuterType  string `json:"outer_type,omitempty"`
	Subsystem  string `json:"subsystem"`
	Module     string `json:"module,omitempty"`
	HeaderPath string `json:"header_path,omitempty"`
	Specifiers string `json:"specifiers,omitempty"`
	DocComment string `json:"doc_comment,omitempty"`
	Summary    string `json:"summary,omitempty"`

	// Union-merged across saves
	InheritanceChain []string `json:"inheritance_chain"`
	KnownChildren    []string `json:"known_children"`
	Interfaces       []string `json:"interfaces"`
	RelatedTypes     []string `json:"related_types"`
	KeyMethods       []Member `json:"key_methods"`
	KeyProperties    []Member `json:"key_properties"`
	KeyDelegates     []Member `json:"key_delegates"`

	LifecycleOrder  string `json:"lifecycle_order,omitempty"`
	Depth           Depth  `json:"depth"`
	NoteID          *int64 `json:"note_id,omitempty"`
	SourceLineCount int    `json:"source_line_count,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	DecodeErrors []string  `json:"decode_errors,omitempty"`
}

// Validate checks the key and closed vocabularies. An empty depth is allowed.
func (t *TypeEntity) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return required("name")
	}
	if !ValidTypeKind(t.Kind) {
		return notInVocab("kind", t.Kind, TypeKinds)
	}
	if !ValidSubsystem(t.Subsystem) {
		return notInVocab("subsystem", t.Subsystem, Subsystems)
	}
	if t.Depth != "" && !t.Depth.Valid() {
		return notInVocab("depth", string(t.Depth), []string{"stub", "shallow", "deep"})
	}
	if t.SourceLineCount < 0 {
		return &ValidationError{Field: "source_line_count", Reason: "must not be negative"}
	}
	return nil
}

// Parameter is one entry of a Callable-entity parameter list
type Parameter struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Default string `json:"default,omitempty"`
}

// CallableEntity is one function or method. Flags and lists are pointers or
// nil-able so a save can tell "not supplied" from "set to false/empty".
type CallableEntity struct {
	ID            int64       `json:"id"`
	QualifiedName string      `json:"qualified_name"`
	Name          string      `json:"name"`
	OwnerType     string      `json:"owner_type,omitempty"`
	Subsystem     string      `json:"subsystem"`
	ReturnType    string      `json:"return_type,omitempty"`
	Parameters    []Parameter `json:"parameters"`
	Signature     string      `json:"signature,omitempty"`
	Specifiers    string      `json:"specifiers,omitempty"`

	IsVirtual           *bool  `json:"is_virtual,omitempty"`
	IsConst             *bool  `json:"is_const,omitempty"`
	IsStatic            *bool  `json:"is_static,omitempty"`
	IsBlueprintCallable *bool  `json:"is_blueprint_callable,omitempty"`
	IsBlueprintEvent    *bool  `json:"is_blueprint_event,omitempty"`
	IsRPC               *bool  `json:"is_rpc,omitempty"`
	RPCType             string `json:"rpc_type,omitempty"`

	DocComment  string `json:"doc_comment,omitempty"`
	Summary     string `json:"summary,omitempty"`
	CallContext string `json:"call_context,omitempty"`
	CallOrder   string `json:"call_order,omitempty"`

	// Replaced wholesale when supplied
	CallsInto []string `json:"calls_into"`
	CalledBy  []string `json:"called_by"`

	NoteID *int64 `json:"note_id,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	DecodeErrors []string  `json:"decode_errors,omitempty"`
}

// QualifiedKey returns the storage key, deriving Owner::Name when unset
func (c *CallableEntity) QualifiedKey() string {
	return qualify(c.QualifiedName, c.OwnerType, c.Name)
}

// Validate checks the key and closed vocabularies
func (c *CallableEntity) Validate() error {
	if strings.TrimSpace(c.Name) == "" && strings.TrimSpace(c.QualifiedName) == "" {
		return required("name")
	}
	if !ValidSubsystem(c.Subsystem) {
		return notInVocab("subsystem", c.Subsystem, Subsystems)
	}
	if !ValidRPCType(c.RPCType) {
		return notInVocab("rpc_type", c.RPCType, RPCTypes)
	}
	return nil
}

// FieldEntity is one data member of a type
type FieldEntity struct {
	ID              int64  `json:"id"`
	QualifiedName   string `json:"qualified_name"`
	Name            string `json:"name"`
	OwnerType       string `json:"owner_type"`
	Subsystem       string `json:"subsystem"`
	DeclaredType    string `json:"declared_type"`
	DefaultValue    string `json:"default_value,omitempty"`
	Specifiers      string `json:"specifiers,omitempty"`
	IsReplicated    *bool  `json:"is_replicated,omitempty"`
	ReplicatedUsing string `json:"replicated_using,omitempty"`

	IsBlueprintVisible *bool `json:"is_blueprint_visible,omitempty"`
	IsEditAnywhere     *bool `json:"is_edit_anywhere,omitempty"`
	IsConfig           *bool `json:"is_config,omitempty"`

	DocComment string `json:"doc_comment,omitempty"`
	Summary    string `json:"summary,omitempty"`
	NoteID     *int64 `json:"note_id,omitempty"`

	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	DecodeErrors []string  `json:"decode_errors,omitempty"`
}

// QualifiedKey returns the storage key, deriving Owner::Name when unset
func (f *FieldEntity) QualifiedKey() string {
	return qualify(f.QualifiedName, f.OwnerType, f.Name)
}

// Validate checks the key and closed vocabularies
func (f *FieldEntity) Validate() error {
	if strings.TrimSpace(f.Name) == "" {
		return required("name")
	}
	if strings.TrimSpace(f.OwnerType) == "" {
		return required("owner_type")
	}
	if !ValidSubsystem(f.Subsystem) {
		return notInVocab("subsystem", f.Subsystem, Subsystems)
	}
	if strings.TrimSpace(f.DeclaredType) == "" {
		return required("declared_type")
	}
	return nil
}

// CoverageEntry is one append-only record of an analyzed source file
type CoverageEntry struct {
	ID             int64     `json:"id"`
	FilePath       string    `json:"file_path"`
	Module         string    `json:"module,omitempty"`
	Subsystem      string    `json:"subsystem,omitempty"`
	Depth          Depth     `json:"depth"`
	TypesFound     int       `json:"types_found"`
	CallablesFound int       `json:"callables_found"`
	FieldsFound    int       `json:"fields_found"`
	Notes          string    `json:"notes,omitempty"`
	AnalyzedAt     time.Time `json:"analyzed_at"`
}

// Validate checks the entry before it is appended
func (c *CoverageEntry) Validate() error {
	if strings.TrimSpace(c.FilePath) == "" {
		return required("file_path")
	}
	if c.Subsystem != "" && !ValidSubsystem(c.Subsystem) {
		return notInVocab("subsystem", c.Subsystem, Subsystems)
	}
	if !c.Depth.Valid() {
		return notInVocab("depth", string(c.Depth), []string{"stub", "shallow", "deep"})
	}
	if c.TypesFound < 0 || c.CallablesFound < 0 || c.FieldsFound < 0 {
		return &ValidationError{Field: "counts", Reason: "must not be negative"}
	}
	return nil
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

func qualify(qualified, owner, name string) string {
	if q := strings.TrimSpace(qualified); q != "" {
		return q
	}
	name = strings.TrimSpace(name)
	if owner = strings.TrimSpace(owner); owner != "" {
		return owner + "::" + name
	}
	return name
}
