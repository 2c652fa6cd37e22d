// Package diag provides centralized error codes and the structured
// report type used for every diagnostic the checker surfaces. Codes are
// stable: tools match on them, so they are never renumbered.
package diag

// Error code constants organized by phase.
const (
	// Checker errors (TC###)

	// TC001 indicates two concrete, incompatible types met during
	// unification.
	TC001 = "TC001"

	// TC002 indicates an attempt to solve a unification variable to a
	// polymorphic type.
	TC002 = "TC002"

	// TC003 indicates an occurs check failure (infinite type).
	TC003 = "TC003"

	// TC004 indicates function or application types of different arity.
	TC004 = "TC004"

	// TC005 indicates an unbound constructor or value name.
	TC005 = "TC005"

	// TC006 indicates a class obligation that never resolved.
	TC006 = "TC006"

	// Environment manifest errors (ENV###)

	// ENV001 indicates an unsupported manifest schema version.
	ENV001 = "ENV001"

	// ENV002 indicates a malformed manifest document.
	ENV002 = "ENV002"

	// ENV003 indicates a term in the manifest that failed to parse.
	ENV003 = "ENV003"

	// ENV004 indicates an inconsistent declaration, such as a functional
	// dependency naming an unknown class parameter.
	ENV004 = "ENV004"

	// Reader errors (RDR###)

	// RDR001 indicates a syntax error in a surface term.
	RDR001 = "RDR001"
)
