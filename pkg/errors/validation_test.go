package errors

import (
	"strings"
	"testing"
)

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"task id", "ingest:load_orders", false},
		{"container id", "dag:ingest", false},
		{"table id", "table:stg_orders", false},
		{"unicode", "pipeline:überprüfung", false},

		{"empty", "", true},
		{"too long", strings.Repeat("a", 600), true},
		{"null byte", "foo\x00bar", true},
		{"newline", "foo\nbar", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidInput) {
				t.Errorf("ValidateNodeID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidInput)
			}
		})
	}
}

func TestValidateModeName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"dag", "dag", false},
		{"table", "table", false},
		{"with dash", "data-layer", false},

		{"empty", "", true},
		{"uppercase", "DAG", true},
		{"leading digit", "1dag", true},
		{"slash", "dag/table", true},
		{"too long", strings.Repeat("m", 40), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModeName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateModeName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateQuery(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"short", "a", false},
		{"normal", "orders", false},
		{"tab", "fact\torders", false},

		{"too long", strings.Repeat("q", 300), true},
		{"null byte", "ord\x00ers", true},
		{"newline", "ord\ners", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateQuery(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateQuery(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "dags/ingest.yml", false},
		{"nested", "a/b/c/pipeline.toml", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "dags/../../secret", true},
		{"backslash", "dags\\ingest.yml", true},
		{"control char", "dags/\x01.yml", true},
		{"too long", strings.Repeat("d", 501), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePath(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
