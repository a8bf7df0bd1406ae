package domain

// Actor identifies who performed a workflow operation. The identity layer
// authenticates; the workflow only consumes the result.
type Actor struct {
	ID          string
	DisplayName string
	Role        StaffRole
}

// SystemActor is used for entries originated by the platform itself, such as
// bindings created from inbound chat interactions.
var SystemActor = Actor{DisplayName: "system"}
