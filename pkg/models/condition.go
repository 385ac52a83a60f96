package models

// FieldType declares how a condition field's raw value is interpreted during
// evaluation.
type FieldType string

const (
	FieldTypeNumber  FieldType = "number"
	FieldTypeText    FieldType = "text"
	FieldTypeBoolean FieldType = "boolean"
	FieldTypeArray   FieldType = "array"
)

// ConditionField identifies an entity or context attribute a condition can
// test. The catalog is closed and every field declares its value type.
type ConditionField string

const (
	FieldOpportunityValue  ConditionField = "opportunity_value"
	FieldOpportunityStage  ConditionField = "opportunity_stage"
	FieldQuoteTotal        ConditionField = "quote_total"
	FieldQuoteStatus       ConditionField = "quote_status"
	FieldHasDecisionMaker  ConditionField = "has_decision_maker"
	FieldDaysSinceActivity ConditionField = "days_since_activity"
	FieldTags              ConditionField = "tags"
	FieldOwnerID           ConditionField = "owner_id"
	FieldEntityType        ConditionField = "entity_type"
	FieldPriority          ConditionField = "priority"
)

var conditionFieldTypes = map[ConditionField]FieldType{
	FieldOpportunityValue:  FieldTypeNumber,
	FieldOpportunityStage:  FieldTypeText,
	FieldQuoteTotal:        FieldTypeNumber,
	FieldQuoteStatus:       FieldTypeText,
	FieldHasDecisionMaker:  FieldTypeBoolean,
	FieldDaysSinceActivity: FieldTypeNumber,
	FieldTags:              FieldTypeArray,
	FieldOwnerID:           FieldTypeText,
	FieldEntityType:        FieldTypeText,
	FieldPriority:          FieldTypeText,
}

// Valid reports whether f is part of the closed field catalog.
func (f ConditionField) Valid() bool {
	_, ok := conditionFieldTypes[f]

	return ok
}

// Type returns the declared value type for the field.
func (f ConditionField) Type() (FieldType, bool) {
	fieldType, ok := conditionFieldTypes[f]

	return fieldType, ok
}

// ConditionFields lists every supported condition field.
func ConditionFields() []ConditionField {
	fields := make([]ConditionField, 0, len(conditionFieldTypes))
	for field := range conditionFieldTypes {
		fields = append(fields, field)
	}

	return fields
}

// Operator is a comparison from the closed operator set.
type Operator string

const (
	OperatorEquals         Operator = "="
	OperatorNotEquals      Operator = "!="
	OperatorGreaterThan    Operator = ">"
	OperatorGreaterOrEqual Operator = ">="
	OperatorLessThan       Operator = "<"
	OperatorLessOrEqual    Operator = "<="
	OperatorContains       Operator = "contains"
	OperatorNotContains    Operator = "not_contains"
)

// Operators lists every supported operator.
func Operators() []Operator {
	return []Operator{
		OperatorEquals,
		OperatorNotEquals,
		OperatorGreaterThan,
		OperatorGreaterOrEqual,
		OperatorLessThan,
		OperatorLessOrEqual,
		OperatorContains,
		OperatorNotContains,
	}
}

// Valid reports whether o is part of the closed operator set.
func (o Operator) Valid() bool {
	for _, known := range Operators() {
		if o == known {
			return true
		}
	}

	return false
}

// Ordering reports whether the operator compares magnitudes. Ordering
// operators only apply to number fields.
func (o Operator) Ordering() bool {
	switch o {
	case OperatorGreaterThan, OperatorGreaterOrEqual, OperatorLessThan, OperatorLessOrEqual:
		return true
	default:
		return false
	}
}

// Condition is a single predicate over an entity or context field. Conditions
// on a rule are ANDed; each evaluates independently.
type Condition struct {
	Field    ConditionField `json:"field"    validate:"required"`
	Operator Operator       `json:"operator" validate:"required"`
	Value    any            `json:"value"`
}
