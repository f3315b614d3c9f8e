package mcp

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/uekb-mcp/internal/storage"
	"github.com/dshills/uekb-mcp/pkg/types"
)

// bindArgs decodes the tool arguments into target. Unknown keys are ignored.
func bindArgs(request mcp.CallToolRequest, target interface{}) error {
	raw := request.Params.Arguments
	if raw == nil {
		raw = map[string]interface{}{}
	}
	data, err := json.Marshal(raw)
	if err == nil {
		err = json.Unmarshal(data, target)
	}
	if err != nil {
		return newMCPError(ErrorCodeInvalidParams, "invalid arguments", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return nil
}

func requiredParam(name string) error {
	return newMCPError(ErrorCodeInvalidParams, name+" parameter is required", map[string]interface{}{
		"param":  name,
		"reason": "missing or empty",
	})
}

type idArgs struct {
	ID *int64 `json:"id"`
}

type saveArgs struct {
	Title          string   `json:"title"`
	Subsystem      string   `json:"subsystem"`
	Category       string   `json:"category"`
	Summary        string   `json:"summary"`
	Content        string   `json:"content"`
	SourceFiles    []string `json:"source_files"`
	Tags           []string `json:"tags"`
	RelatedEntries []int64  `json:"related_entries"`
}

func (a saveArgs) note() *types.Note {
	return &types.Note{
		Title:        a.Title,
		Subsystem:    a.Subsystem,
		Category:     a.Category,
		Summary:      a.Summary,
		Content:      a.Content,
		SourceFiles:  a.SourceFiles,
		Tags:         a.Tags,
		RelatedNotes: a.RelatedEntries,
	}
}

type updateArgs struct {
	ID *int64 `json:"id"`
	types.NoteUpdate
}

type listArgs struct {
	Subsystem string `json:"subsystem"`
	Category  string `json:"category"`
	Limit     int    `json:"limit"`
	Offset    int    `json:"offset"`
}

type searchArgs struct {
	Query     string   `json:"query"`
	Tables    []string `json:"tables"`
	Subsystem string   `json:"subsystem"`
	Category  string   `json:"category"`
	Tags      []string `json:"tags"`
	Limit     int      `json:"limit"`
	Offset    int      `json:"offset"`
}

func (a searchArgs) validate() error {
	if a.Subsystem != "" && !types.ValidSubsystem(a.Subsystem) {
		return &types.ValidationError{Field: "subsystem", Value: a.Subsystem, Reason: "unknown subsystem"}
	}
	if a.Category != "" && !types.ValidCategory(a.Category) {
		return &types.ValidationError{Field: "category", Value: a.Category, Reason: "unknown category"}
	}
	return nil
}

func (a searchArgs) tables() []storage.Table {
	out := make([]storage.Table, 0, len(a.Tables))
	for _, t := range a.Tables {
		out = append(out, storage.Table(t))
	}
	return out
}

func (a searchArgs) filters() storage.SearchFilters {
	return storage.SearchFilters{Subsystem: a.Subsystem, Category: a.Category, Tags: a.Tags}
}

type classArgs struct {
	Name             string         `json:"name"`
	Kind             string         `json:"kind"`
	ParentClass      string         `json:"parent_class"`
	OuterClass       string         `json:"outer_class"`
	Subsystem        string         `json:"subsystem"`
	Module           string         `json:"module"`
	HeaderPath       string         `json:"header_path"`
	ClassSpecifiers  string         `json:"class_specifiers"`
	DocComment       string         `json:"doc_comment"`
	Summary          string         `json:"summary"`
	InheritanceChain []string       `json:"inheritance_chain"`
	KnownChildren    []string       `json:"known_children"`
	Interfaces       []string       `json:"interfaces"`
	KeyMethods       []types.Member `json:"key_methods"`
	KeyProperties    []types.Member `json:"key_properties"`
	KeyDelegates     []types.Member `json:"key_delegates"`
	LifecycleOrder   string         `json:"lifecycle_order"`
	RelatedClasses   []string       `json:"related_classes"`
	EntryID          *int64         `json:"entry_id"`
	AnalysisDepth    string         `json:"analysis_depth"`
	SourceLineCount  int            `json:"source_line_count"`
}

func (a classArgs) entity() *types.TypeEntity {
	return &types.TypeEntity{
		Name:             a.Name,
		Kind:             a.Kind,
		ParentType:       a.ParentClass,
		OuterType:        a.OuterClass,
		Subsystem:        a.Subsystem,
		Module:           a.Module,
		HeaderPath:       a.HeaderPath,
		Specifiers:       a.ClassSpecifiers,
		DocComment:       a.DocComment,
		Summary:          a.Summary,
		InheritanceChain: a.InheritanceChain,
		KnownChildren:    a.KnownChildren,
		Interfaces:       a.Interfaces,
		RelatedTypes:     a.RelatedClasses,
		KeyMethods:       a.KeyMethods,
		KeyProperties:    a.KeyProperties,
		KeyDelegates:     a.KeyDelegates,
		LifecycleOrder:   a.LifecycleOrder,
		Depth:            types.Depth(a.AnalysisDepth),
		NoteID:           a.EntryID,
		SourceLineCount:  a.SourceLineCount,
	}
}

type functionArgs struct {
	Name                string            `json:"name"`
	QualifiedName       string            `json:"qualified_name"`
	ClassName           string            `json:"class_name"`
	Subsystem           string            `json:"subsystem"`
	ReturnType          string            `json:"return_type"`
	Parameters          []types.Parameter `json:"parameters"`
	SignatureFull       string            `json:"signature_full"`
	UFunctionSpecifiers string            `json:"ufunction_specifiers"`
	IsVirtual           *bool             `json:"is_virtual"`
	IsConst             *bool             `json:"is_const"`
	IsStatic            *bool             `json:"is_static"`
	IsBlueprintCallable *bool             `json:"is_blueprint_callable"`
	IsBlueprintEvent    *bool             `json:"is_blueprint_event"`
	IsRPC               *bool             `json:"is_rpc"`
	RPCType             string            `json:"rpc_type"`
	DocComment          string            `json:"doc_comment"`
	Summary             string            `json:"summary"`
	CallContext         string            `json:"call_context"`
	CallOrder           string            `json:"call_order"`
	CallsInto           []string          `json:"calls_into"`
	CalledBy            []string          `json:"called_by"`
	EntryID             *int64            `json:"entry_id"`
}

func (a functionArgs) entity() *types.CallableEntity {
	return &types.CallableEntity{
		QualifiedName:       a.QualifiedName,
		Name:                a.Name,
		OwnerType:           a.ClassName,
		Subsystem:           a.Subsystem,
		ReturnType:          a.ReturnType,
		Parameters:          a.Parameters,
		Signature:           a.SignatureFull,
		Specifiers:          a.UFunctionSpecifiers,
		IsVirtual:           a.IsVirtual,
		IsConst:             a.IsConst,
		IsStatic:            a.IsStatic,
		IsBlueprintCallable: a.IsBlueprintCallable,
		IsBlueprintEvent:    a.IsBlueprintEvent,
		IsRPC:               a.IsRPC,
		RPCType:             a.RPCType,
		DocComment:          a.DocComment,
		Summary:             a.Summary,
		CallContext:         a.CallContext,
		CallOrder:           a.CallOrder,
		CallsInto:           a.CallsInto,
		CalledBy:            a.CalledBy,
		NoteID:              a.EntryID,
	}
}

type propertyArgs struct {
	Name                string `json:"name"`
	ClassName           string `json:"class_name"`
	Subsystem           string `json:"subsystem"`
	PropertyType        string `json:"property_type"`
	DefaultValue        string `json:"default_value"`
	UPropertySpecifiers string `json:"uproperty_specifiers"`
	IsReplicated        *bool  `json:"is_replicated"`
	ReplicatedUsing     string `json:"replicated_using"`
	IsBlueprintVisible  *bool  `json:"is_blueprint_visible"`
	IsEditAnywhere      *bool  `json:"is_edit_anywhere"`
	IsConfig            *bool  `json:"is_config"`
	DocComment          string `json:"doc_comment"`
	Summary             string `json:"summary"`
	EntryID             *int64 `json:"entry_id"`
}

func (a propertyArgs) entity() *types.FieldEntity {
	return &types.FieldEntity{
		Name:               a.Name,
		OwnerType:          a.ClassName,
		Subsystem:          a.Subsystem,
		DeclaredType:       a.PropertyType,
		DefaultValue:       a.DefaultValue,
		Specifiers:         a.UPropertySpecifiers,
		IsReplicated:       a.IsReplicated,
		ReplicatedUsing:    a.ReplicatedUsing,
		IsBlueprintVisible: a.IsBlueprintVisible,
		IsEditAnywhere:     a.IsEditAnywhere,
		IsConfig:           a.IsConfig,
		DocComment:         a.DocComment,
		Summary:            a.Summary,
		NoteID:             a.EntryID,
	}
}

type batchArgs struct {
	Items []json.RawMessage `json:"items"`
}

type batchItemArgs struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// decodeBatchItem decodes one raw batch entry. Kinds accept both the tool
// names (class, function, property) and the storage names (type, callable,
// field). A malformed entry is reported as an item error by index.
func decodeBatchItem(index int, raw json.RawMessage) (storage.BatchItem, *storage.BatchItemError) {
	var a batchItemArgs
	if err := json.Unmarshal(raw, &a); err != nil {
		return storage.BatchItem{}, batchDecodeError(index, "", err)
	}
	kind := batchKind(a.Kind)
	if kind == "" {
		return storage.BatchItem{}, &storage.BatchItemError{
			Index:  index,
			Kind:   storage.BatchKind(a.Kind),
			Field:  "kind",
			Reason: "kind must be one of: class, function, property",
		}
	}
	if len(a.Data) == 0 || string(a.Data) == "null" {
		return storage.BatchItem{}, &storage.BatchItemError{Index: index, Kind: kind, Field: "data", Reason: "data is required"}
	}

	switch kind {
	case storage.BatchType:
		var args classArgs
		if err := json.Unmarshal(a.Data, &args); err != nil {
			return storage.BatchItem{}, batchDecodeError(index, kind, err)
		}
		return storage.BatchItem{Kind: kind, Type: args.entity()}, nil
	case storage.BatchCallable:
		var args functionArgs
		if err := json.Unmarshal(a.Data, &args); err != nil {
			return storage.BatchItem{}, batchDecodeError(index, kind, err)
		}
		return storage.BatchItem{Kind: kind, Callable: args.entity()}, nil
	default:
		var args propertyArgs
		if err := json.Unmarshal(a.Data, &args); err != nil {
			return storage.BatchItem{}, batchDecodeError(index, kind, err)
		}
		return storage.BatchItem{Kind: kind, Field: args.entity()}, nil
	}
}

func batchKind(kind string) storage.BatchKind {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "class", "type":
		return storage.BatchType
	case "function", "callable":
		return storage.BatchCallable
	case "property", "field":
		return storage.BatchField
	default:
		return ""
	}
}

func batchDecodeError(index int, kind storage.BatchKind, err error) *storage.BatchItemError {
	item := &storage.BatchItemError{Index: index, Kind: kind, Reason: "malformed item: " + err.Error()}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		item.Field = typeErr.Field
	}
	return item
}

type queryClassArgs struct {
	ClassName         string `json:"class_name"`
	IncludeMethods    *bool  `json:"include_methods"`
	IncludeProperties *bool  `json:"include_properties"`
}

type hierarchyArgs struct {
	ClassName           string `json:"class_name"`
	Direction           string `json:"direction"`
	Depth               int    `json:"depth"`
	MaxChildrenPerLevel int    `json:"max_children_per_level"`
	MaxTotal            int    `json:"max_total"`
}

type callsArgs struct {
	FunctionName string `json:"function_name"`
	Direction    string `json:"direction"`
}

type logAnalysisArgs struct {
	FilePath        string `json:"file_path"`
	Module          string `json:"module"`
	Subsystem       string `json:"subsystem"`
	AnalysisDepth   string `json:"analysis_depth"`
	ClassesFound    int    `json:"classes_found"`
	FunctionsFound  int    `json:"functions_found"`
	PropertiesFound int    `json:"properties_found"`
	Notes           string `json:"notes"`
}

func (a logAnalysisArgs) entry() *types.CoverageEntry {
	return &types.CoverageEntry{
		FilePath:       a.FilePath,
		Module:         a.Module,
		Subsystem:      a.Subsystem,
		Depth:          types.Depth(a.AnalysisDepth),
		TypesFound:     a.ClassesFound,
		CallablesFound: a.FunctionsFound,
		FieldsFound:    a.PropertiesFound,
		Notes:          a.Notes,
	}
}

type analysisStatusArgs struct {
	GroupBy   string `json:"group_by"`
	Module    string `json:"module"`
	Subsystem string `json:"subsystem"`
}

func boolDefault(b *bool, defaultValue bool) bool {
	if b == nil {
		return defaultValue
	}
	return *b
}
