// Package conditions evaluates rule conditions against an entity and event context.
package conditions

import (
	"fmt"
	"strings"

	"github.com/driftline/automaton/pkg/models"
)

// EvaluationError indicates a malformed condition (unknown field, invalid
// operator for the field type, uncoercible literal). A condition that simply
// does not hold, or whose field is missing, is not an error.
type EvaluationError struct {
	Field    models.ConditionField
	Operator models.Operator
	Reason   string
}

func (e *EvaluationError) Error() string {
	return fmt.Sprintf("cannot evaluate condition %s %s: %s", e.Field, e.Operator, e.Reason)
}

// Evaluate applies every condition against the entity and event context and
// reports whether all of them hold. The list is ANDed; an empty list always
// holds. Field values resolve from the entity first, then the context; an
// unresolvable field makes that condition false (fail-closed) rather than an
// error.
func Evaluate(conds []models.Condition, entity models.Entity, eventCtx map[string]any) (bool, error) {
	for _, cond := range conds {
		holds, err := evaluateOne(cond, entity, eventCtx)
		if err != nil {
			return false, err
		}

		if !holds {
			return false, nil
		}
	}

	return true, nil
}

func evaluateOne(cond models.Condition, entity models.Entity, eventCtx map[string]any) (bool, error) {
	fieldType, known := cond.Field.Type()
	if !known {
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "unknown field"}
	}

	if !cond.Operator.Valid() {
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "unknown operator"}
	}

	if cond.Operator.Ordering() && fieldType != models.FieldTypeNumber {
		return false, &EvaluationError{
			Field:    cond.Field,
			Operator: cond.Operator,
			Reason:   fmt.Sprintf("ordering operator requires a number field, %s is %s", cond.Field, fieldType),
		}
	}

	raw, resolved := resolve(cond.Field, entity, eventCtx)
	if !resolved {
		return false, nil
	}

	switch fieldType {
	case models.FieldTypeNumber:
		return evaluateNumber(cond, raw)
	case models.FieldTypeText:
		return evaluateText(cond, raw)
	case models.FieldTypeBoolean:
		return evaluateBoolean(cond, raw)
	case models.FieldTypeArray:
		return evaluateArray(cond, raw)
	default:
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "unsupported field type"}
	}
}

// resolve looks the field up on the entity first, then the event context.
func resolve(field models.ConditionField, entity models.Entity, eventCtx map[string]any) (any, bool) {
	if value, ok := entity.Field(string(field)); ok {
		return value, true
	}

	value, ok := eventCtx[string(field)]

	return value, ok
}

func evaluateNumber(cond models.Condition, raw any) (bool, error) {
	expected, ok := models.NumberValue(cond.Value)
	if !ok {
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "condition value is not numeric"}
	}

	actual, ok := models.NumberValue(raw)
	if !ok {
		// The resolved value cannot be read as a number: fail closed.
		return false, nil
	}

	switch cond.Operator {
	case models.OperatorEquals:
		return actual == expected, nil
	case models.OperatorNotEquals:
		return actual != expected, nil
	case models.OperatorGreaterThan:
		return actual > expected, nil
	case models.OperatorGreaterOrEqual:
		return actual >= expected, nil
	case models.OperatorLessThan:
		return actual < expected, nil
	case models.OperatorLessOrEqual:
		return actual <= expected, nil
	default:
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "operator not applicable to numbers"}
	}
}

func evaluateText(cond models.Condition, raw any) (bool, error) {
	expected, ok := models.TextValue(cond.Value)
	if !ok {
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "condition value is not text"}
	}

	actual, ok := models.TextValue(raw)
	if !ok {
		return false, nil
	}

	switch cond.Operator {
	case models.OperatorEquals:
		return actual == expected, nil
	case models.OperatorNotEquals:
		return actual != expected, nil
	case models.OperatorContains:
		return strings.Contains(actual, expected), nil
	case models.OperatorNotContains:
		return !strings.Contains(actual, expected), nil
	default:
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "operator not applicable to text"}
	}
}

func evaluateBoolean(cond models.Condition, raw any) (bool, error) {
	expected, ok := models.BoolValue(cond.Value)
	if !ok {
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "condition value is not boolean"}
	}

	actual, ok := models.BoolValue(raw)
	if !ok {
		return false, nil
	}

	switch cond.Operator {
	case models.OperatorEquals:
		return actual == expected, nil
	case models.OperatorNotEquals:
		return actual != expected, nil
	default:
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "operator not applicable to booleans"}
	}
}

func evaluateArray(cond models.Condition, raw any) (bool, error) {
	items, ok := models.ArrayValue(raw)
	if !ok {
		return false, nil
	}

	switch cond.Operator {
	case models.OperatorContains, models.OperatorNotContains:
		found := contains(items, cond.Value)
		if cond.Operator == models.OperatorNotContains {
			return !found, nil
		}

		return found, nil
	case models.OperatorEquals, models.OperatorNotEquals:
		// Equality on arrays is membership of the single expected value,
		// matching how rule authors use it in practice.
		found := contains(items, cond.Value)
		if cond.Operator == models.OperatorNotEquals {
			return !found, nil
		}

		return found, nil
	default:
		return false, &EvaluationError{Field: cond.Field, Operator: cond.Operator, Reason: "operator not applicable to arrays"}
	}
}

func contains(items []any, expected any) bool {
	for _, item := range items {
		if fmt.Sprintf("%v", item) == fmt.Sprintf("%v", expected) {
			return true
		}
	}

	return false
}
