package source

import "strings"

// Node types assigned to tasks and tables.
const (
	TypeTask      = "task"
	TypeTable     = "table"
	TypeStaging   = "staging"
	TypeDimension = "dimension"
	TypeFact      = "fact"
	TypeSource    = "source"
)

// InferTaskType classifies a task by its source file, target table and
// operator. Layer naming wins over the operator.
func InferTaskType(t Task) string {
	file := strings.ToLower(t.SourceFile)
	target := strings.ToLower(t.Param(ParamTargetTable))

	switch {
	case strings.Contains(file, "staging") || strings.Contains(target, "staging") || strings.Contains(file, "stg_"):
		return TypeStaging
	case strings.Contains(file, "dimension") || strings.Contains(target, "dimension") || strings.Contains(file, "dim_"):
		return TypeDimension
	case strings.Contains(file, "fact") || strings.Contains(target, "fact") || strings.Contains(file, "fct_"):
		return TypeFact
	case t.Operator == "PythonOperator":
		return TypeTask
	case strings.Contains(t.Operator, "SnowflakeOperator"):
		return TypeTable
	default:
		return TypeTask
	}
}

// InferTableType classifies a table by name.
func InferTableType(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "staging") || strings.HasPrefix(n, "stg"):
		return TypeStaging
	case strings.Contains(n, "dimension") || strings.HasPrefix(n, "dim"):
		return TypeDimension
	case strings.Contains(n, "fact") || strings.HasPrefix(n, "fct"):
		return TypeFact
	case strings.Contains(n, "ingestion") || strings.Contains(n, "raw"):
		return TypeSource
	default:
		return TypeTable
	}
}
