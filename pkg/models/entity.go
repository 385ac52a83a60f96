package models

// Entity is the business object an event concerns (opportunity, quote, ...)
// and against which idempotency is scoped. Fields carry the producer-supplied
// attribute snapshot that conditions evaluate on.
type Entity struct {
	ID     string         `json:"id"   validate:"required"`
	Type   string         `json:"type" validate:"required"`
	Fields map[string]any `json:"fields,omitempty"`
}

// Field looks up a named attribute on the entity.
func (e Entity) Field(name string) (any, bool) {
	if name == "id" {
		return e.ID, true
	}

	if name == "entity_type" {
		return e.Type, true
	}

	value, ok := e.Fields[name]

	return value, ok
}
