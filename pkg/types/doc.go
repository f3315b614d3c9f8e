// Package types provides the shared record definitions for the knowledge store.
//
// Records fall into two groups. Notes are free-form knowledge units written by
// the agent. TypeEntity, CallableEntity and FieldEntity are typed facts about
// engine code that accumulate over many partial analysis passes:
//
//	t := &types.TypeEntity{
//	    Name:          "AActor",
//	    Kind:          "class",
//	    Subsystem:     "gameplay",
//	    KnownChildren: []string{"APawn"},
//	    Depth:         types.DepthShallow,
//	}
//
// # Closed Vocabularies
//
// Subsystem, category, kind, depth and RPC type are closed vocabularies.
// Validate rejects unknown values with a *ValidationError naming the field;
// values are never coerced.
//
// # Depth
//
// Depth is ordered stub < shallow < deep. Storage never lowers the depth of a
// saved type:
//
//	types.DepthDeep.Rank() > types.DepthStub.Rank() // true
//
// # Decode Errors
//
// Every record read from storage carries DecodeErrors, the names of stored
// JSON fields that could not be decoded and were replaced by empty values.
package types
