package pipeline

import "testing"

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "strips page markers",
			input: "Opening balance Page 1 of 3 Salary",
			want:  "Opening balance Salary",
		},
		{
			name:  "collapses whitespace",
			input: "05/01/2024\t\tSALARY\n\n 50,000.00",
			want:  "05/01/2024 SALARY 50,000.00",
		},
		{
			name:  "lowercase letter before digit",
			input: "Amount l250.00",
			want:  "Amount 1250.00",
		},
		{
			name:  "uppercase letter before digit",
			input: "Ref O42",
			want:  "Ref 042",
		},
		{
			name:  "letters after digits untouched",
			input: "2 items 3rd",
			want:  "2 items 3rd",
		},
		{
			name:  "clean text unchanged",
			input: "2024-01-05 Salary credit 50000.00",
			want:  "2024-01-05 Salary credit 50000.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.want {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeText_IdempotentOnCleanText(t *testing.T) {
	clean := "2024-01-10 Grocery store debit -12000.00 2024-02-01 Grocery store debit -3000.00"
	once := NormalizeText(clean)
	if once != clean {
		t.Fatalf("NormalizeText changed clean text: %q", once)
	}
	if twice := NormalizeText(once); twice != once {
		t.Errorf("second pass changed text: %q", twice)
	}
}
