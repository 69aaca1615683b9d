package privacy_test

import (
	"strings"
	"testing"

	"github.com/docenthq/docent/pkg/privacy"
)

func TestMask(t *testing.T) {
	m := privacy.NewMasker()

	tests := []struct {
		name     string
		input    string
		want     string
		spanType privacy.SpanType
	}{
		{
			name:     "SSN",
			input:    "applicant SSN 123-45-6789 on file",
			want:     "applicant SSN [SSN] on file",
			spanType: privacy.SpanSSN,
		},
		{
			name:     "email",
			input:    "contact jane.doe+billing@example.co.uk for invoices",
			want:     "contact [EMAIL] for invoices",
			spanType: privacy.SpanEmail,
		},
		{
			name:     "phone",
			input:    "call (555) 867-5309 after hours",
			want:     "call [PHONE] after hours",
			spanType: privacy.SpanPhone,
		},
		{
			name:     "credit card passing Luhn",
			input:    "charged to 4111 1111 1111 1111 yesterday",
			want:     "charged to [CREDIT_CARD] yesterday",
			spanType: privacy.SpanCreditCard,
		},
		{
			name:     "IPv4 address",
			input:    "request from 192.168.10.42 denied",
			want:     "request from [IP_ADDRESS] denied",
			spanType: privacy.SpanIPAddress,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			masked, spans := m.Mask(tt.input)
			if masked != tt.want {
				t.Errorf("masked = %q, want %q", masked, tt.want)
			}
			if len(spans) != 1 {
				t.Fatalf("spans = %d, want 1", len(spans))
			}
			if spans[0].Type != tt.spanType {
				t.Errorf("span type = %q, want %q", spans[0].Type, tt.spanType)
			}
		})
	}
}

func TestMaskBehavior(t *testing.T) {
	m := privacy.NewMasker()

	t.Run("SSN-shaped string never survives", func(t *testing.T) {
		inputs := []string{
			"123-45-6789",
			"prefix 987-65-4321 suffix",
			"two: 111-22-3333 and 444-55-6666",
		}
		for _, input := range inputs {
			masked, _ := m.Mask(input)
			for _, ssn := range []string{"123-45-6789", "987-65-4321", "111-22-3333", "444-55-6666"} {
				if strings.Contains(masked, ssn) {
					t.Errorf("masked output %q still contains %s", masked, ssn)
				}
			}
		}
	})

	t.Run("surrounding text preserved verbatim", func(t *testing.T) {
		input := "Dear Ms. Alvarez,\nyour SSN 123-45-6789 was verified.\nRegards"
		masked, spans := m.Mask(input)

		if !strings.HasPrefix(masked, "Dear Ms. Alvarez,\nyour SSN ") {
			t.Errorf("prefix mangled: %q", masked)
		}
		if !strings.HasSuffix(masked, " was verified.\nRegards") {
			t.Errorf("suffix mangled: %q", masked)
		}

		// Spans index the original text, not the masked text.
		if len(spans) != 1 {
			t.Fatalf("spans = %d, want 1", len(spans))
		}
		if got := input[spans[0].Start:spans[0].End]; got != "123-45-6789" {
			t.Errorf("span covers %q in original, want the SSN", got)
		}
	})

	t.Run("card failing Luhn left alone", func(t *testing.T) {
		input := "order number 4111 1111 1111 1112 shipped"
		masked, spans := m.Mask(input)
		if masked != input {
			t.Errorf("masked = %q, want unchanged", masked)
		}
		if len(spans) != 0 {
			t.Errorf("spans = %d, want 0", len(spans))
		}
	})

	t.Run("clean text passes through untouched", func(t *testing.T) {
		input := "nothing sensitive in this paragraph at all"
		masked, spans := m.Mask(input)
		if masked != input {
			t.Errorf("masked = %q, want unchanged", masked)
		}
		if spans != nil {
			t.Errorf("spans = %v, want nil", spans)
		}
	})

	t.Run("multiple categories in one text", func(t *testing.T) {
		input := "SSN 123-45-6789, email bob@site.org, host 10.0.0.1"
		masked, spans := m.Mask(input)

		want := "SSN [SSN], email [EMAIL], host [IP_ADDRESS]"
		if masked != want {
			t.Errorf("masked = %q, want %q", masked, want)
		}
		if len(spans) != 3 {
			t.Fatalf("spans = %d, want 3", len(spans))
		}
		// Spans come back ordered by position in the original text.
		for i := 1; i < len(spans); i++ {
			if spans[i].Start < spans[i-1].End {
				t.Errorf("span %d overlaps or precedes span %d", i, i-1)
			}
		}
	})

	t.Run("masking is idempotent", func(t *testing.T) {
		input := "reach me at alice@example.com or 555-123-4567"
		once, _ := m.Mask(input)
		twice, spans := m.Mask(once)
		if twice != once {
			t.Errorf("second pass changed output: %q -> %q", once, twice)
		}
		if len(spans) != 0 {
			t.Errorf("second pass found %d spans, want 0", len(spans))
		}
	})
}
